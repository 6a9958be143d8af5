package lesion

import (
	"regexp"
	"sort"
	"strings"
)

// Section keys produced by SplitSections.
const (
	SectionClinicalInformation = "clinical_information"
	SectionStudyTechnique      = "study_technique"
	SectionReport              = "report"
	SectionConclusions         = "conclusions"
)

// SectionKeys lists the section keys in report order.
var SectionKeys = []string{
	SectionClinicalInformation,
	SectionStudyTechnique,
	SectionReport,
	SectionConclusions,
}

var sectionMarkers = []struct {
	key string
	re  *regexp.Regexp
}{
	{SectionClinicalInformation, regexp.MustCompile(`(?i)CLINICAL\s+INFORMATION\.?`)},
	{SectionStudyTechnique, regexp.MustCompile(`(?i)STUDY\s+TECHNIQUE\.?`)},
	{SectionReport, regexp.MustCompile(`(?i)REPORT\.?`)},
	{SectionConclusions, regexp.MustCompile(`(?i)CONCLUSIONS?\.?`)},
}

// Sections maps a section key to its text. A nil value means the section is
// absent or empty.
type Sections map[string]*string

// HasContent reports whether at least one section holds non-empty text.
func (s Sections) HasContent() bool {
	for _, v := range s {
		if v != nil && *v != "" {
			return true
		}
	}
	return false
}

// Get returns the text of a section, or "" when absent.
func (s Sections) Get(key string) string {
	if v := s[key]; v != nil {
		return *v
	}
	return ""
}

// EmptySections returns a Sections value with every key set to nil.
func EmptySections() Sections {
	out := make(Sections, len(SectionKeys))
	for _, k := range SectionKeys {
		out[k] = nil
	}
	return out
}

// SplitSections splits a raw pseudo-report into its labelled sections.
//
// Markers are matched case-insensitively with an optional trailing dot; only
// the first occurrence of each marker counts. A section's content runs from
// the end of its marker to the start of the next marker found in the text.
func SplitSections(text string) Sections {
	result := EmptySections()

	text = strings.TrimSpace(text)
	if text == "" {
		return result
	}

	type hit struct {
		start, end int
		key        string
	}
	var found []hit
	for _, m := range sectionMarkers {
		if loc := m.re.FindStringIndex(text); loc != nil {
			found = append(found, hit{start: loc[0], end: loc[1], key: m.key})
		}
	}
	if len(found) == 0 {
		return result
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })

	for i, h := range found {
		var content string
		if i+1 < len(found) {
			next := found[i+1].start
			if next < h.end {
				next = h.end
			}
			content = text[h.end:next]
		} else {
			content = text[h.end:]
		}
		content = strings.TrimSpace(content)
		if content != "" {
			c := content
			result[h.key] = &c
		}
	}
	return result
}
