package analysis

import (
	"slices"

	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/util"
)

// Exam is one study in a patient timeline.
type Exam struct {
	StudyDate       *string         `json:"study_date"`
	AccessionNumber string          `json:"accession_number"`
	PatientID       string          `json:"patient_id,omitempty"`
	LesionSizesMM   []float64       `json:"lesion_sizes_mm"`
	ReportRaw       string          `json:"report_raw,omitempty"`
	ReportSections  lesion.Sections `json:"report_sections"`
}

// AnalyzeTimeline compares the first and the last exams of a chronologically
// ordered timeline that carry lesion sizes. Sizes are paired by ascending
// rank, not by lesion identity.
func (e *Engine) AnalyzeTimeline(caseID string, exams []Exam) *CaseAnalysis {
	patientID := ""
	for _, ex := range exams {
		if ex.PatientID != "" {
			patientID = ex.PatientID
			break
		}
	}

	baseIdx, lastIdx := -1, -1
	for i, ex := range exams {
		if len(ex.LesionSizesMM) > 0 {
			baseIdx = i
			break
		}
	}
	for i := len(exams) - 1; i >= 0; i-- {
		if len(exams[i].LesionSizesMM) > 0 {
			lastIdx = i
			break
		}
	}

	var dates []string
	for _, ex := range exams {
		if ex.StudyDate != nil && *ex.StudyDate != "" {
			dates = append(dates, *ex.StudyDate)
		}
	}
	span := &TimelineSpan{ExamCount: len(exams)}
	if len(dates) > 0 {
		span.FirstExamDate = util.Ptr(dates[0])
		span.LastExamDate = util.Ptr(dates[len(dates)-1])
	}
	span.TimeDeltaDays = DaysBetween(span.FirstExamDate, span.LastExamDate)

	baseSizes, lastSizes := []float64{}, []float64{}
	if baseIdx >= 0 {
		baseSizes = sortedCopy(exams[baseIdx].LesionSizesMM)
	}
	if lastIdx >= 0 {
		lastSizes = sortedCopy(exams[lastIdx].LesionSizesMM)
	}

	var (
		deltas  []LesionDelta
		outcome Outcome
		reason  string
	)
	if baseIdx < 0 || lastIdx < 0 || baseIdx == lastIdx {
		deltas = []LesionDelta{}
		outcome = Outcome{Status: StatusUnknown, ProgressionIndices: []int{}, ResponseIndices: []int{}, Rule: ruleInsufficient}
		reason = ReasonInsufficient
	} else {
		deltas, outcome = e.Compare(baseSizes, lastSizes)
		reason = ReasonCompared
	}

	e.log.Debug().
		Str("case_id", caseID).
		Int("exams", len(exams)).
		Int("baseline_index", baseIdx).
		Int("last_index", lastIdx).
		Str("status", string(outcome.Status)).
		Msg("timeline compared")

	return &CaseAnalysis{
		CaseID:        caseID,
		PatientID:     patientID,
		TimelineSpan:  span,
		BaselineExam:  examSummary(exams, baseIdx, baseSizes),
		LastExam:      examSummary(exams, lastIdx, lastSizes),
		LesionDeltas:  deltas,
		OverallStatus: outcome.Status,
		StatusReason:  reason,
		Evidence:      e.evidence(outcome),
		KPI:           buildKPI(baseSizes, lastSizes, span.TimeDeltaDays, DataCompleteness(exams)),
	}
}

func examSummary(exams []Exam, idx int, sizes []float64) *ExamSummary {
	if idx < 0 {
		return &ExamSummary{Index: -1, LesionSizesMM: []float64{}}
	}
	return &ExamSummary{
		Index:           idx,
		Date:            exams[idx].StudyDate,
		LesionSizesMM:   sizes,
		AccessionNumber: exams[idx].AccessionNumber,
	}
}

func sortedCopy(sizes []float64) []float64 {
	out := slices.Clone(sizes)
	slices.Sort(out)
	return out
}
