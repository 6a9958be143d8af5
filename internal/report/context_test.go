package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/util"
)

var now = time.Date(2024, 7, 1, 9, 5, 0, 0, time.UTC)

func timelineExams() []analysis.Exam {
	return []analysis.Exam{
		{StudyDate: util.Ptr("2024-01-01"), LesionSizesMM: []float64{20}, ReportSections: lesion.SplitSections("STUDY TECHNIQUE. CT chest. CONCLUSIONS. baseline")},
		{StudyDate: util.Ptr("2024-03-01"), LesionSizesMM: []float64{12}, ReportSections: lesion.SplitSections("REPORT. smaller lesion")},
	}
}

func TestAssemble_Timeline(t *testing.T) {
	exams := timelineExams()
	doc, err := analysis.NewEngine(analysis.DefaultThresholds(), zerolog.Nop()).AnalyzeTimeline("C1", exams).Document()
	require.NoError(t, err)
	doc["latest_report"] = "from model"
	doc["latest_clinical_information"] = "history from model"

	c := Assemble(exams, doc, now)

	assert.Equal(t, "2024-07-01 09:05", c.GeneratedAt)
	assert.Equal(t, PipelineVersion, c.PipelineVersion)
	assert.Equal(t, "C1", c.CaseID)
	assert.Equal(t, 2.0, c.ExamCount)
	assert.Equal(t, "response", c.OverallStatus)
	assert.Equal(t, "2024-01-01", c.BaselineExam["study_date"])
	assert.Equal(t, "2024-03-01", c.LastStudy["study_date"])
	assert.Equal(t, c.BaselineExam, c.BaselineStudy)

	assert.Equal(t, "smaller lesion", *c.LatestReport)
	assert.Equal(t, "baseline", *c.LatestConclusions)
	assert.Equal(t, "CT chest.", *c.LatestStudyTechnique)
	assert.Equal(t, "history from model", *c.LatestClinicalInformation)

	assert.Equal(t, 20.0, *c.KPI.SumDiametersBaselineMM)
	assert.Equal(t, -40.0, *c.KPI.SumDiametersDeltaPct)
	assert.Nil(t, c.DicomMetadata)
}

func TestAssemble_Defaults(t *testing.T) {
	c := Assemble(timelineExams()[:1], analysis.Document{}, now)

	assert.Equal(t, "", c.CaseID)
	assert.Equal(t, 1, c.ExamCount)
	assert.Equal(t, "unknown", c.OverallStatus)
	assert.Equal(t, []any{}, c.LesionDeltas)
	assert.Equal(t, map[string]any{"study_date": nil}, c.BaselineExam)
	assert.Equal(t, map[string]any{"method": "N/A", "pixel_spacing_mm": nil}, c.Calibration)

	ev, ok := c.Evidence.(analysis.Evidence)
	require.True(t, ok)
	assert.Equal(t, "N/A", ev.RuleApplied)
	assert.Equal(t, analysis.DefaultThresholds(), ev.Thresholds)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	kpi := out["kpi"].(map[string]any)
	assert.Len(t, kpi, 11)
	assert.Equal(t, 0.0, kpi["lesion_count_baseline"])
	assert.Equal(t, 0.0, kpi["data_completeness_score"])
	assert.Nil(t, kpi["sum_diameters_current_mm"])
	assert.Contains(t, out, "latest_report")
}

func TestAssemble_ImagingFirstAndDicom(t *testing.T) {
	doc := analysis.Document{
		"baseline_study": map[string]any{"index": 0.0, "study_date": "2024-01-01", "study_uid": "1.2"},
		"last_exam":      map[string]any{},
		"last_study":     map[string]any{"index": 1.0, "date": "2024-02-02"},
		"dicom": map[string]any{
			"metadata":    map[string]any{"Modality": "CT"},
			"image_stats": map[string]any{"dtype": "int16"},
		},
		"warnings": []any{"w1"},
		"kpi":      map[string]any{"lesion_count_current": 3.0},
	}
	c := Assemble(nil, doc, now)

	assert.Equal(t, "1.2", c.BaselineExam["study_uid"])
	assert.Equal(t, "2024-02-02", c.LastExam["study_date"])
	assert.Equal(t, 0, c.ExamCount)
	assert.Equal(t, map[string]any{"Modality": "CT"}, c.DicomMetadata)
	assert.Equal(t, map[string]any{"dtype": "int16"}, c.DicomImageStats)
	assert.Equal(t, []any{"w1"}, c.Warnings)
	assert.Equal(t, 3, c.KPI.LesionCountCurrent)
	assert.Nil(t, c.LatestReport)
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "analysis.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"case_id":"X"}`), 0o644))
	doc, err := ReadDocument(good)
	require.NoError(t, err)
	assert.Equal(t, "X", doc["case_id"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o644))
	_, err = ReadDocument(bad)
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))

	_, err = ReadDocument(filepath.Join(dir, "missing.json"))
	assert.Equal(t, apperr.InvalidInput, apperr.CodeOf(err))
}

func TestRenderMarkdown(t *testing.T) {
	exams := timelineExams()
	doc, err := analysis.NewEngine(analysis.DefaultThresholds(), zerolog.Nop()).AnalyzeTimeline("C1", exams).Document()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, Assemble(exams, doc, now)))
	out := buf.String()
	assert.Contains(t, out, "Overall status: **response**")
	assert.Contains(t, out, "20 mm to 12 mm (-40 %), response")
	assert.Contains(t, out, "Clinical information: n/a")
	assert.NotContains(t, out, "## Warnings")

	buf.Reset()
	require.NoError(t, RenderMarkdown(&buf, Assemble(nil, analysis.Document{}, now)))
	assert.Contains(t, buf.String(), "No lesion comparison available.")
}
