package analysis

import (
	"cmp"
	"slices"

	"github.com/mrsinham/lesiontrack/internal/dicom"
	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/util"
	"github.com/mrsinham/lesiontrack/internal/vision"
)

// AnalyzeStudies compares the first and the last measured studies of an
// imaging-first run. Lesions are paired by lesion id when every lesion on
// both sides has a distinct id, else by ascending long axis.
func (e *Engine) AnalyzeStudies(caseID string, out *vision.Output) *CaseAnalysis {
	var studies []vision.Study
	a := &CaseAnalysis{CaseID: caseID}
	if out != nil {
		studies = chronological(out.Studies)
		a.Warnings = out.Warnings
		cal := out.Calibration
		a.Calibration = &cal
	}
	if studies == nil {
		studies = []vision.Study{}
	}
	a.Studies = studies

	for _, st := range studies {
		if st.PatientID != "" {
			a.PatientID = st.PatientID
			break
		}
	}

	baseIdx, lastIdx := -1, -1
	for i, st := range studies {
		if len(lesion.LongAxes(st.Lesions)) > 0 {
			if baseIdx < 0 {
				baseIdx = i
			}
			lastIdx = i
		}
	}

	exams := make([]Exam, len(studies))
	var dates []string
	for i, st := range studies {
		exams[i] = Exam{StudyDate: st.StudyDate, LesionSizesMM: lesion.LongAxes(st.Lesions)}
		if st.StudyDate != nil {
			dates = append(dates, *st.StudyDate)
		}
	}
	span := &TimelineSpan{ExamCount: len(studies)}
	if len(dates) > 0 {
		span.FirstExamDate = util.Ptr(dates[0])
		span.LastExamDate = util.Ptr(dates[len(dates)-1])
	}
	span.TimeDeltaDays = DaysBetween(span.FirstExamDate, span.LastExamDate)
	a.TimelineSpan = span

	var base, last []lesion.Measurement
	if baseIdx >= 0 {
		base = measured(studies[baseIdx].Lesions)
		last = measured(studies[lastIdx].Lesions)
	}

	var (
		deltas  []LesionDelta
		outcome Outcome
	)
	switch {
	case baseIdx < 0 || baseIdx == lastIdx:
		deltas = []LesionDelta{}
		outcome = Outcome{Status: StatusUnknown, ProgressionIndices: []int{}, ResponseIndices: []int{}, Rule: ruleInsufficient}
		a.StatusReason = ReasonInsufficient
	case distinctIDs(base) && distinctIDs(last):
		deltas = e.CompareByID(identified(base), identified(last))
		outcome = e.Reduce(deltas)
		a.StatusReason = ReasonCompared
	default:
		base, last = byLongAxis(base), byLongAxis(last)
		deltas, outcome = e.Compare(lesion.LongAxes(base), lesion.LongAxes(last))
		a.StatusReason = ReasonCompared
	}

	a.BaselineStudy = studySummary(studies, baseIdx, base)
	a.LastStudy = studySummary(studies, lastIdx, last)
	a.LesionDeltas = deltas
	a.OverallStatus = outcome.Status
	a.Evidence = e.evidence(outcome)
	a.KPI = buildKPI(lesion.LongAxes(base), lesion.LongAxes(last), span.TimeDeltaDays, DataCompleteness(exams))

	e.log.Debug().
		Str("case_id", caseID).
		Int("studies", len(studies)).
		Int("baseline_index", baseIdx).
		Int("last_index", lastIdx).
		Str("status", string(outcome.Status)).
		Msg("studies compared")
	return a
}

// FromDicom builds the analysis of a structural DICOM run without any
// timeline. The status is always unknown.
func (e *Engine) FromDicom(r *dicom.Result) *CaseAnalysis {
	outcome := Outcome{Status: StatusUnknown, ProgressionIndices: []int{}, ResponseIndices: []int{}, Rule: ruleDicomOnly}
	a := &CaseAnalysis{
		CaseID:            r.CaseID,
		PatientID:         r.Metadata.PatientID,
		LesionDeltas:      []LesionDelta{},
		OverallStatus:     StatusUnknown,
		StatusReason:      ReasonNoTimeline,
		StatusExplanation: r.Explanation,
		Evidence:          e.evidence(outcome),
		KPI:               KPI{DataCompletenessScore: util.Round(r.ImageStats.DataConsistencyScore*100, 1)},
	}
	return a.WithImaging(r)
}

// chronological orders studies by date, dated studies first, keeping input
// order among equal or missing dates.
func chronological(studies []vision.Study) []vision.Study {
	out := slices.Clone(studies)
	slices.SortStableFunc(out, func(x, y vision.Study) int {
		switch {
		case x.StudyDate == nil && y.StudyDate == nil:
			return 0
		case x.StudyDate == nil:
			return 1
		case y.StudyDate == nil:
			return -1
		default:
			return cmp.Compare(*x.StudyDate, *y.StudyDate)
		}
	})
	return out
}

func measured(ms []lesion.Measurement) []lesion.Measurement {
	out := make([]lesion.Measurement, 0, len(ms))
	for _, m := range ms {
		if m.LongAxisMM != nil {
			out = append(out, m)
		}
	}
	return out
}

func distinctIDs(ms []lesion.Measurement) bool {
	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if m.LesionID == "" || seen[m.LesionID] {
			return false
		}
		seen[m.LesionID] = true
	}
	return true
}

func identified(ms []lesion.Measurement) []IdentifiedSize {
	out := make([]IdentifiedSize, len(ms))
	for i, m := range ms {
		out[i] = IdentifiedSize{ID: m.LesionID, SizeMM: *m.LongAxisMM}
	}
	return out
}

func byLongAxis(ms []lesion.Measurement) []lesion.Measurement {
	out := slices.Clone(ms)
	slices.SortStableFunc(out, func(x, y lesion.Measurement) int {
		return cmp.Compare(*x.LongAxisMM, *y.LongAxisMM)
	})
	return out
}

func studySummary(studies []vision.Study, idx int, ms []lesion.Measurement) *StudySummary {
	if idx < 0 {
		return &StudySummary{Index: -1, LesionIDs: []string{}, LesionSizesMM: []float64{}}
	}
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.LesionID
	}
	return &StudySummary{
		Index:         idx,
		StudyUID:      studies[idx].StudyUID,
		StudyDate:     studies[idx].StudyDate,
		LesionIDs:     ids,
		LesionSizesMM: lesion.LongAxes(ms),
	}
}
