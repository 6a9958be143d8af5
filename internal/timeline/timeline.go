// Package timeline loads legacy per-exam timeline feeds (JSON or YAML) and
// normalises them into the exams the comparison engine works on.
package timeline

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/lesion"
)

// Format is the encoding of a timeline feed.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// record is one exam as found in a feed. Loosely typed fields accept what
// spreadsheet exports produce: numbers for accession numbers, free text for
// lesion sizes and dates.
type record struct {
	StudyDate       any                `json:"study_date" yaml:"study_date"`
	AccessionNumber any                `json:"accession_number" yaml:"accession_number"`
	PatientID       any                `json:"patient_id" yaml:"patient_id"`
	LesionSizesMM   any                `json:"lesion_sizes_mm" yaml:"lesion_sizes_mm"`
	LesionSizesRaw  any                `json:"lesion_sizes_raw" yaml:"lesion_sizes_raw"`
	ReportRaw       string             `json:"report_raw" yaml:"report_raw"`
	ReportText      string             `json:"report_text" yaml:"report_text"`
	ReportSections  map[string]*string `json:"report_sections" yaml:"report_sections"`
}

// FormatOf picks the feed format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", apperr.New(apperr.InvalidInput, "unsupported timeline format %q, expected .json, .yaml or .yml", filepath.Ext(path)).WithPath(path)
	}
}

// Load reads and normalises the timeline feed at path.
func Load(path string) ([]analysis.Exam, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "cannot read timeline").WithPath(path)
	}
	exams, err := Parse(data, format)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			ae.WithPath(path)
		}
		return nil, err
	}
	return exams, nil
}

// Parse decodes a feed and returns its exams in chronological order.
func Parse(data []byte, format Format) ([]analysis.Exam, error) {
	var records []record
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&records); err != nil {
			return nil, apperr.Wrap(apperr.InvalidInput, err, "invalid timeline JSON")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, apperr.Wrap(apperr.InvalidInput, err, "invalid timeline YAML")
		}
	default:
		return nil, apperr.New(apperr.InvalidInput, "unsupported timeline format %q", format)
	}

	exams := make([]analysis.Exam, len(records))
	for i, r := range records {
		exams[i] = r.exam()
	}
	return Normalize(exams), nil
}

func (r record) exam() analysis.Exam {
	ex := analysis.Exam{
		StudyDate:       NormalizeDate(r.StudyDate),
		AccessionNumber: accession(r.AccessionNumber),
		PatientID:       text(r.PatientID),
		ReportRaw:       cmp.Or(r.ReportRaw, r.ReportText),
	}

	if r.LesionSizesMM != nil {
		ex.LesionSizesMM = lesion.ParseSizes(r.LesionSizesMM)
	} else {
		ex.LesionSizesMM = lesion.ParseSizes(r.LesionSizesRaw)
	}

	if r.ReportSections != nil {
		ex.ReportSections = lesion.EmptySections()
		for k, v := range r.ReportSections {
			if v != nil && strings.TrimSpace(*v) == "" {
				v = nil
			}
			ex.ReportSections[k] = v
		}
	} else {
		ex.ReportSections = lesion.SplitSections(ex.ReportRaw)
	}
	return ex
}

// Normalize sorts dated exams ascending by date and appends undated exams
// after them, keeping input order among ties.
func Normalize(exams []analysis.Exam) []analysis.Exam {
	out := slices.Clone(exams)
	slices.SortStableFunc(out, func(a, b analysis.Exam) int {
		switch {
		case a.StudyDate == nil && b.StudyDate == nil:
			return 0
		case a.StudyDate == nil:
			return 1
		case b.StudyDate == nil:
			return -1
		default:
			return cmp.Compare(*a.StudyDate, *b.StudyDate)
		}
	})
	if out == nil {
		out = []analysis.Exam{}
	}
	return out
}

var dateLayouts = []string{
	time.DateOnly,
	"20060102",
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
}

// NormalizeDate converts a date-like value to YYYY-MM-DD, or nil when it
// cannot be read as a date.
func NormalizeDate(v any) *string {
	var s string
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		s = d.Format(time.DateOnly)
		return &s
	case string:
		s = strings.TrimSpace(d)
	default:
		s = strings.TrimSpace(fmt.Sprint(d))
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.Format(time.DateOnly)
			return &iso
		}
	}
	return nil
}

// accession renders an accession number as text, dropping the ".0" suffix
// spreadsheets add to whole numbers.
func accession(v any) string {
	s := text(v)
	if whole, ok := strings.CutSuffix(s, ".0"); ok {
		if _, err := strconv.ParseInt(whole, 10, 64); err == nil {
			return whole
		}
	}
	return s
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
