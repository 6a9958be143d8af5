package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/mrsinham/lesiontrack/internal/dicom"
	"github.com/mrsinham/lesiontrack/internal/vision"
)

// Status is a per-lesion or overall classification.
type Status string

const (
	StatusProgression Status = "progression"
	StatusResponse    Status = "response"
	StatusStable      Status = "stable"
	StatusNew         Status = "new"
	StatusUnknown     Status = "unknown"
)

// Notes attached to deltas where one side of the pair is missing. Both cases
// carry StatusNew; the note is the only thing telling them apart.
const (
	NoteAbsentAtBaseline = "new lesion, absent at baseline"
	NoteAbsentAtLast     = "lesion absent at last exam"
)

// Values for CaseAnalysis.StatusReason.
const (
	ReasonNoTimeline   = "no_timeline"
	ReasonCompared     = "compared"
	ReasonInsufficient = "insufficient_measurements"
)

// LesionDelta is the comparison outcome for one lesion pair.
type LesionDelta struct {
	LesionIndex int      `json:"lesion_index"`
	LesionID    string   `json:"lesion_id,omitempty"`
	BaselineMM  *float64 `json:"baseline_mm"`
	LastMM      *float64 `json:"last_mm"`
	DeltaMM     *float64 `json:"delta_mm"`
	DeltaPct    *float64 `json:"delta_pct"`
	Status      Status   `json:"status"`
	Note        string   `json:"note,omitempty"`
}

// Evidence records why the overall status was chosen.
type Evidence struct {
	ProgressionTriggers []int      `json:"progression_triggers"`
	ResponseTriggers    []int      `json:"response_triggers"`
	RuleApplied         string     `json:"rule_applied"`
	Thresholds          Thresholds `json:"thresholds"`
}

// KPI holds the derived scalar metrics. Every key is always serialised.
type KPI struct {
	SumDiametersBaselineMM   *float64 `json:"sum_diameters_baseline_mm"`
	SumDiametersCurrentMM    *float64 `json:"sum_diameters_current_mm"`
	SumDiametersDeltaPct     *float64 `json:"sum_diameters_delta_pct"`
	DominantLesionBaselineMM *float64 `json:"dominant_lesion_baseline_mm"`
	DominantLesionCurrentMM  *float64 `json:"dominant_lesion_current_mm"`
	DominantLesionDeltaPct   *float64 `json:"dominant_lesion_delta_pct"`
	LesionCountBaseline      int      `json:"lesion_count_baseline"`
	LesionCountCurrent       int      `json:"lesion_count_current"`
	LesionCountDelta         int      `json:"lesion_count_delta"`
	GrowthRateMMPerDay       *float64 `json:"growth_rate_mm_per_day"`
	DataCompletenessScore    float64  `json:"data_completeness_score"`
}

// ExamSummary describes the baseline or last exam of a timeline comparison.
// Index is -1 when no exam qualified.
type ExamSummary struct {
	Index           int       `json:"index"`
	Date            *string   `json:"date"`
	LesionSizesMM   []float64 `json:"lesion_sizes_mm"`
	AccessionNumber string    `json:"accession_number"`
}

// StudySummary describes the baseline or last study of an imaging-first
// comparison. Index is -1 when no study qualified.
type StudySummary struct {
	Index         int       `json:"index"`
	StudyUID      string    `json:"study_uid"`
	StudyDate     *string   `json:"study_date"`
	LesionIDs     []string  `json:"lesion_ids"`
	LesionSizesMM []float64 `json:"lesion_sizes_mm"`
}

// TimelineSpan summarises the dates covered by the compared exams.
type TimelineSpan struct {
	ExamCount     int     `json:"exam_count"`
	FirstExamDate *string `json:"first_exam_date"`
	LastExamDate  *string `json:"last_exam_date"`
	TimeDeltaDays *int    `json:"time_delta_days"`
}

// DicomBlock carries the structural analyzer's metadata and pixel statistics.
type DicomBlock struct {
	Metadata   dicom.Metadata   `json:"metadata"`
	ImageStats dicom.ImageStats `json:"image_stats"`
}

// CaseAnalysis is the aggregate output of one comparison run.
//
// Only the constructors in this package build it. Downstream consumers work
// on the Document form and may only add new top-level keys.
type CaseAnalysis struct {
	CaseID    string `json:"case_id"`
	PatientID string `json:"patient_id"`

	*TimelineSpan

	BaselineExam  *ExamSummary  `json:"baseline_exam,omitempty"`
	LastExam      *ExamSummary  `json:"last_exam,omitempty"`
	BaselineStudy *StudySummary `json:"baseline_study,omitempty"`
	LastStudy     *StudySummary `json:"last_study,omitempty"`

	LesionDeltas      []LesionDelta `json:"lesion_deltas"`
	OverallStatus     Status        `json:"overall_status"`
	StatusReason      string        `json:"status_reason,omitempty"`
	StatusExplanation string        `json:"status_explanation,omitempty"`
	Evidence          Evidence      `json:"evidence"`
	KPI               KPI           `json:"kpi"`

	Dicom   *DicomBlock    `json:"dicom,omitempty"`
	Imaging *dicom.Imaging `json:"imaging,omitempty"`

	Studies     []vision.Study      `json:"studies,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Calibration *vision.Calibration `json:"calibration,omitempty"`
}

// WithImaging attaches structural analysis blocks as provenance and returns
// the analysis. The comparison fields are left untouched.
func (a *CaseAnalysis) WithImaging(r *dicom.Result) *CaseAnalysis {
	if r == nil {
		return a
	}
	a.Dicom = &DicomBlock{Metadata: r.Metadata, ImageStats: r.ImageStats}
	imaging := r.Imaging
	a.Imaging = &imaging
	if a.PatientID == "" {
		a.PatientID = r.Metadata.PatientID
	}
	return a
}

// Document is the JSON wire form of an analysis: a generic top-level object.
type Document map[string]any

// Document converts the analysis to its wire form.
func (a *CaseAnalysis) Document() (Document, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return doc, nil
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
