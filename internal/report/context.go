// Package report assembles the rendering context of a case report from the
// timeline feed and the analysis document, and renders it as Markdown.
//
// Assembly is a pure merge: no classification or arithmetic happens here.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mrsinham/lesiontrack/internal/analysis"
	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/lesion"
)

// PipelineVersion is stamped into every report context.
const PipelineVersion = "0.1.0"

// GeneratedAtLayout formats Context.GeneratedAt.
const GeneratedAtLayout = "2006-01-02 15:04"

// Context is everything a report renderer needs. Pass-through fields keep
// whatever shape the analysis document carries.
type Context struct {
	GeneratedAt     string `json:"generated_at"`
	PipelineVersion string `json:"pipeline_version"`

	CaseID        any `json:"case_id"`
	PatientID     any `json:"patient_id"`
	ExamCount     any `json:"exam_count"`
	FirstExamDate any `json:"first_exam_date"`
	LastExamDate  any `json:"last_exam_date"`
	TimeDeltaDays any `json:"time_delta_days"`

	OverallStatus any            `json:"overall_status"`
	StatusReason  any            `json:"status_reason"`
	LesionDeltas  any            `json:"lesion_deltas"`
	BaselineExam  map[string]any `json:"baseline_exam"`
	LastExam      map[string]any `json:"last_exam"`
	BaselineStudy map[string]any `json:"baseline_study"`
	LastStudy     map[string]any `json:"last_study"`
	Evidence      any            `json:"evidence"`

	Studies     any `json:"studies"`
	Calibration any `json:"calibration"`
	Warnings    any `json:"warnings"`

	DicomMetadata   any `json:"dicom_metadata"`
	DicomImageStats any `json:"dicom_image_stats"`

	LatestClinicalInformation *string `json:"latest_clinical_information"`
	LatestStudyTechnique      *string `json:"latest_study_technique"`
	LatestReport              *string `json:"latest_report"`
	LatestConclusions         *string `json:"latest_conclusions"`

	KPI analysis.KPI `json:"kpi"`
}

// Assemble merges a chronologically ordered timeline and an analysis
// document into a report context. The timeline may be empty.
//
// Narrative fields take the most recent non-empty timeline section and fall
// back to the document's latest_* fields only when no exam has one.
func Assemble(exams []analysis.Exam, doc analysis.Document, now time.Time) *Context {
	baseline := normExam(firstMap(doc, "baseline_exam", "baseline_study"))
	last := normExam(firstMap(doc, "last_exam", "last_study"))

	dicomBlock, _ := doc["dicom"].(map[string]any)

	c := &Context{
		GeneratedAt:     now.Format(GeneratedAtLayout),
		PipelineVersion: PipelineVersion,

		CaseID:        get(doc, "case_id", ""),
		PatientID:     get(doc, "patient_id", ""),
		ExamCount:     get(doc, "exam_count", len(exams)),
		FirstExamDate: get(doc, "first_exam_date", nil),
		LastExamDate:  get(doc, "last_exam_date", nil),
		TimeDeltaDays: get(doc, "time_delta_days", nil),

		OverallStatus: get(doc, "overall_status", string(analysis.StatusUnknown)),
		StatusReason:  get(doc, "status_reason", nil),
		LesionDeltas:  get(doc, "lesion_deltas", []any{}),
		BaselineExam:  baseline,
		LastExam:      last,
		BaselineStudy: baseline,
		LastStudy:     last,
		Evidence:      get(doc, "evidence", defaultEvidence()),

		Studies:     get(doc, "studies", []any{}),
		Calibration: get(doc, "calibration", map[string]any{"method": "N/A", "pixel_spacing_mm": nil}),
		Warnings:    get(doc, "warnings", []any{}),

		DicomMetadata:   dicomBlock["metadata"],
		DicomImageStats: dicomBlock["image_stats"],

		LatestClinicalInformation: latest(exams, doc, lesion.SectionClinicalInformation),
		LatestStudyTechnique:      latest(exams, doc, lesion.SectionStudyTechnique),
		LatestReport:              latest(exams, doc, lesion.SectionReport),
		LatestConclusions:         latest(exams, doc, lesion.SectionConclusions),

		KPI: kpiOf(doc["kpi"]),
	}
	return c
}

// ReadDocument loads an analysis document from a JSON file.
func ReadDocument(path string) (analysis.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "cannot read analysis").WithPath(path)
	}
	var doc analysis.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperr.Wrap(apperr.InvalidInput, err, "invalid analysis JSON").WithPath(path)
	}
	if doc == nil {
		return nil, apperr.New(apperr.InvalidInput, "analysis document is empty").WithPath(path)
	}
	return doc, nil
}

func get(doc analysis.Document, key string, def any) any {
	if v, ok := doc[key]; ok && v != nil {
		return v
	}
	return def
}

func firstMap(doc analysis.Document, keys ...string) map[string]any {
	for _, k := range keys {
		if m, ok := doc[k].(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return map[string]any{}
}

// normExam guarantees a study_date key. Timeline summaries name it "date".
func normExam(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if _, ok := out["study_date"]; !ok {
		out["study_date"] = out["date"]
	}
	return out
}

func defaultEvidence() analysis.Evidence {
	return analysis.Evidence{
		ProgressionTriggers: []int{},
		ResponseTriggers:    []int{},
		RuleApplied:         "N/A",
		Thresholds:          analysis.DefaultThresholds(),
	}
}

func latest(exams []analysis.Exam, doc analysis.Document, section string) *string {
	for i := len(exams) - 1; i >= 0; i-- {
		if v := exams[i].ReportSections.Get(section); v != "" {
			return &v
		}
	}
	if v, ok := doc["latest_"+section].(string); ok && v != "" {
		return &v
	}
	return nil
}

// kpiOf reads a KPI block, leaving missing keys at their null or zero value.
func kpiOf(v any) analysis.KPI {
	var k analysis.KPI
	if v == nil {
		return k
	}
	data, err := json.Marshal(v)
	if err != nil {
		return k
	}
	if err := json.Unmarshal(data, &k); err != nil {
		return analysis.KPI{}
	}
	return k
}

// display renders a pass-through value, "n/a" when absent.
func display(v any) string {
	switch t := v.(type) {
	case nil:
		return "n/a"
	case *string:
		if t == nil {
			return "n/a"
		}
		return *t
	case *float64:
		if t == nil {
			return "n/a"
		}
		return fmt.Sprint(*t)
	case float64:
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
