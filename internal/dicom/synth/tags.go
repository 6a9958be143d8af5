package synth

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagValue overrides one string header of every generated slice.
type TagValue struct {
	Name  string
	Tag   tag.Tag
	Value string
}

type knownTag struct {
	name string
	tag  tag.Tag
}

// overridable maps lowercase keywords to the headers a caller may set.
// Identity, geometry and pixel headers have dedicated options instead.
var overridable = map[string]knownTag{
	"patientname":            {"PatientName", tag.PatientName},
	"patientbirthdate":       {"PatientBirthDate", tag.PatientBirthDate},
	"patientsex":             {"PatientSex", tag.PatientSex},
	"accessionnumber":        {"AccessionNumber", tag.AccessionNumber},
	"studydescription":       {"StudyDescription", tag.StudyDescription},
	"institutionname":        {"InstitutionName", tag.InstitutionName},
	"referringphysicianname": {"ReferringPhysicianName", tag.ReferringPhysicianName},
	"stationname":            {"StationName", tag.StationName},
	"seriesdescription":      {"SeriesDescription", tag.SeriesDescription},
	"protocolname":           {"ProtocolName", tag.ProtocolName},
	"bodypartexamined":       {"BodyPartExamined", tag.BodyPartExamined},
	"manufacturer":           {"Manufacturer", tag.Manufacturer},
	"manufacturermodelname":  {"ManufacturerModelName", tag.ManufacturerModelName},
}

// ParseTagValue parses "Keyword=Value". The keyword is matched
// case-insensitively; an unknown keyword is rejected with the closest known
// keyword as a hint.
func ParseTagValue(s string) (TagValue, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return TagValue{}, fmt.Errorf("invalid tag %q, want Keyword=Value", s)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	kt, found := overridable[key]
	if !found {
		if hint := closestKeyword(key); hint != "" {
			return TagValue{}, fmt.Errorf("unknown tag %q, did you mean %q?", name, hint)
		}
		return TagValue{}, fmt.Errorf("unknown tag %q", name)
	}
	return TagValue{Name: kt.name, Tag: kt.tag, Value: strings.TrimSpace(value)}, nil
}

// closestKeyword returns the known keyword within edit distance 5 of key,
// or "".
func closestKeyword(key string) string {
	const maxDistance = 5
	best, bestDist := "", maxDistance+1
	for k, kt := range overridable {
		if d := editDistance(key, k); d < bestDist || (d == bestDist && kt.name < best) {
			best, bestDist = kt.name, d
		}
	}
	if bestDist > maxDistance {
		return ""
	}
	return best
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// applyTags replaces matching elements of elems in place and appends the
// overrides that matched none.
func applyTags(elems []*dicom.Element, tags []TagValue) []*dicom.Element {
	for _, tv := range tags {
		e := mustNewElement(tv.Tag, []string{tv.Value})
		replaced := false
		for i, cur := range elems {
			if cur.Tag == tv.Tag {
				elems[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			elems = append(elems, e)
		}
	}
	return elems
}
