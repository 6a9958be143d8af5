package timeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/lesion"
)

const feedJSON = `[
  {"study_date": "2024-03-01", "accession_number": 123456.0, "patient_id": "P1",
   "lesion_sizes_raw": "18mm; 7.5 mm", "report_raw": "REPORT. larger. CONCLUSIONS. progression"},
  {"study_date": null, "accession_number": "X-9", "lesion_sizes_mm": [3]},
  {"study_date": "20240101", "accession_number": "A-1", "lesion_sizes_mm": [10, 8],
   "report_sections": {"report": "baseline", "conclusions": "  "}}
]`

func TestParse_JSON(t *testing.T) {
	exams, err := Parse([]byte(feedJSON), FormatJSON)
	require.NoError(t, err)
	require.Len(t, exams, 3)

	first := exams[0]
	assert.Equal(t, "2024-01-01", *first.StudyDate)
	assert.Equal(t, "A-1", first.AccessionNumber)
	assert.Equal(t, []float64{8, 10}, first.LesionSizesMM)
	assert.Equal(t, "baseline", first.ReportSections.Get(lesion.SectionReport))
	assert.Nil(t, first.ReportSections[lesion.SectionConclusions])
	assert.Contains(t, first.ReportSections, lesion.SectionStudyTechnique)

	second := exams[1]
	assert.Equal(t, "2024-03-01", *second.StudyDate)
	assert.Equal(t, "123456", second.AccessionNumber)
	assert.Equal(t, "P1", second.PatientID)
	assert.Equal(t, []float64{7.5, 18}, second.LesionSizesMM)
	assert.Equal(t, "progression", second.ReportSections.Get(lesion.SectionConclusions))

	assert.Nil(t, exams[2].StudyDate)
	assert.Equal(t, "X-9", exams[2].AccessionNumber)
}

func TestParse_YAML(t *testing.T) {
	feed := `
- study_date: 2024-05-02
  accession_number: 42
  lesion_sizes_raw: 12.5
  report_text: "CLINICAL INFORMATION. follow-up"
- study_date: not a date
  lesion_sizes_mm: []
`
	exams, err := Parse([]byte(feed), FormatYAML)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "2024-05-02", *exams[0].StudyDate)
	assert.Equal(t, "42", exams[0].AccessionNumber)
	assert.Equal(t, []float64{12.5}, exams[0].LesionSizesMM)
	assert.Equal(t, "follow-up", exams[0].ReportSections.Get(lesion.SectionClinicalInformation))
	assert.Nil(t, exams[1].StudyDate)
	assert.Empty(t, exams[1].LesionSizesMM)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"not": "a list"}`), FormatJSON)
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))

	_, err = Parse([]byte("- [unclosed"), FormatYAML)
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))
}

func TestParse_DropsNegativeSizeTokens(t *testing.T) {
	exams, err := Parse([]byte("- study_date: \"2024-01-10\"\n  lesion_sizes_raw: \"12 -15mm\"\n"), FormatYAML)
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, []float64{12}, exams[0].LesionSizesMM)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case_timeline.json")
	require.NoError(t, os.WriteFile(path, []byte(feedJSON), 0o644))

	exams, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, exams, 3)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))

	_, err = Load(filepath.Join(dir, "feed.xlsx"))
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- [unclosed"), 0o644))
	_, err = Load(bad)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, bad, ae.Path)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"2024-01-15", "2024-01-15"},
		{" 20240115 ", "2024-01-15"},
		{"2024-01-15T10:30:00Z", "2024-01-15"},
		{"2024-01-15 10:30:00", "2024-01-15"},
		{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "2023-12-31"},
	}
	for _, tt := range tests {
		got := NormalizeDate(tt.in)
		require.NotNil(t, got, "%v", tt.in)
		assert.Equal(t, tt.want, *got)
	}

	for _, in := range []any{nil, "", "15/01/2024", "2024-13-01", 3.5} {
		assert.Nil(t, NormalizeDate(in), "%v", in)
	}
}

func TestNormalize_StableAndUndatedLast(t *testing.T) {
	d := func(s string) *string { return &s }
	exams := Normalize(nil)
	assert.NotNil(t, exams)

	in, err := Parse([]byte(`[
	  {"accession_number": "u1"},
	  {"study_date": "2024-02-01", "accession_number": "b1"},
	  {"study_date": "2024-01-01", "accession_number": "a"},
	  {"study_date": "2024-02-01", "accession_number": "b2"},
	  {"accession_number": "u2"}
	]`), FormatJSON)
	require.NoError(t, err)

	var order []string
	for _, ex := range in {
		order = append(order, ex.AccessionNumber)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "u1", "u2"}, order)
	assert.Equal(t, d("2024-01-01"), in[0].StudyDate)
}
