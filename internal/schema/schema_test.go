package schema

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/dicom"
	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/util"
	"github.com/mrsinham/lesiontrack/internal/vision"
)

func engine() *analysis.Engine {
	return analysis.NewEngine(analysis.DefaultThresholds(), zerolog.Nop())
}

func dicomResult() *dicom.Result {
	uid := "1.2.3"
	return &dicom.Result{
		CaseID:   "IMG0001",
		Metadata: dicom.Metadata{PatientID: "P", StudyInstanceUID: "1.2", SeriesInstanceUID: uid, Modality: "CT", StudyDate: util.Ptr("2024-01-15"), PixelSpacing: []float64{0.7, 0.7}},
		ImageStats: dicom.ImageStats{
			Shape: []int{64, 64}, Dtype: "int16", Min: -1024, Max: 800, Mean: -200, Std: 150, DataConsistencyScore: 1,
		},
		Imaging: dicom.Imaging{
			InputKind: dicom.InputSingle, NSlices: 1, VolumeShape: []int{1, 64, 64},
			SpacingMM: []*float64{util.Ptr(2.5), util.Ptr(0.7), util.Ptr(0.7)}, SeriesInstanceUID: &uid, SortingKeyUsed: dicom.SortNone,
		},
		Explanation: "Single DICOM file analyzed, no temporal comparison available.",
	}
}

func mustDoc(t *testing.T, a *analysis.CaseAnalysis) analysis.Document {
	t.Helper()
	doc, err := a.Document()
	require.NoError(t, err)
	return doc
}

func TestValidate_EngineOutputs(t *testing.T) {
	timeline := engine().AnalyzeTimeline("C1", []analysis.Exam{
		{StudyDate: util.Ptr("2024-01-01"), LesionSizesMM: []float64{10, 8}, ReportSections: lesion.EmptySections()},
		{StudyDate: util.Ptr("2024-03-01"), LesionSizesMM: []float64{18, 7.5}, ReportSections: lesion.EmptySections()},
	})
	studies := engine().AnalyzeStudies("C2", &vision.Output{
		Studies: []vision.Study{
			{StudyUID: "1", StudyDate: util.Ptr("2024-01-01"), Lesions: []lesion.Measurement{{LesionID: "A", LongAxisMM: util.Ptr(10.0)}}},
			{StudyUID: "2", StudyDate: util.Ptr("2024-02-01"), Lesions: []lesion.Measurement{{LesionID: "A", LongAxisMM: util.Ptr(4.0)}}},
		},
		Warnings:    []string{},
		Calibration: vision.Calibration{Method: vision.CalibrationMethod, PixelSpacingMM: []float64{0.5, 0.5}},
	})

	for name, a := range map[string]*analysis.CaseAnalysis{
		"timeline":   timeline,
		"empty":      engine().AnalyzeTimeline("C0", nil),
		"dicom only": engine().FromDicom(dicomResult()),
		"studies":    studies.WithImaging(dicomResult()),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, Validate(mustDoc(t, a)))
		})
	}
}

func TestValidate_ReportsFailingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(analysis.Document)
		path   string
	}{
		{"bad status", func(d analysis.Document) { d["overall_status"] = "worse" }, "/overall_status"},
		{"score out of range", func(d analysis.Document) {
			d["dicom"].(map[string]any)["image_stats"].(map[string]any)["data_consistency_score"] = 1.5
		}, "/dicom/image_stats/data_consistency_score"},
		{"missing kpi key", func(d analysis.Document) { delete(d["kpi"].(map[string]any), "growth_rate_mm_per_day") }, "/kpi"},
		{"bad date", func(d analysis.Document) {
			d["dicom"].(map[string]any)["metadata"].(map[string]any)["StudyDate"] = "20240115"
		}, "/dicom/metadata/StudyDate"},
		{"missing case id", func(d analysis.Document) { delete(d, "case_id") }, "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustDoc(t, engine().FromDicom(dicomResult()))
			tt.mutate(doc)

			err := Validate(doc)
			require.Error(t, err)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.SchemaInvalid, ae.Code)
			assert.Equal(t, tt.path, ae.Path)
			assert.Contains(t, ae.Detail, tt.path)
		})
	}
}

func TestValidate_AllowsAddedKeys(t *testing.T) {
	doc := mustDoc(t, engine().FromDicom(dicomResult()))
	doc["llm_enriched"] = true
	doc["validation"] = map[string]any{"confidence_score": 0.9}
	assert.NoError(t, Validate(doc))
}
