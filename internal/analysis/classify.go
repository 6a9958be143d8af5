// Package analysis implements the longitudinal lesion comparison and the
// RECIST-like status classification, plus the KPIs derived from it.
//
// The engine is deterministic and never fails for business reasons: missing
// or insufficient data resolves to null values or an "unknown" status with an
// explanatory rule text.
package analysis

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrsinham/lesiontrack/internal/util"
)

const (
	ruleNoDeltas     = "unknown: no lesion measurements available for comparison"
	ruleInsufficient = "unknown: fewer than two exams have lesion measurements"
	ruleStable       = "stable: no progression or response criteria met"
	ruleDicomOnly    = "unknown: DICOM analysis only, no comparative timeline available"
)

// Engine compares lesion sizes between a baseline and a last exam.
type Engine struct {
	thresholds Thresholds
	log        zerolog.Logger
}

// NewEngine creates an engine using the given thresholds.
func NewEngine(t Thresholds, log zerolog.Logger) *Engine {
	return &Engine{thresholds: t, log: log.With().Str("component", "analysis").Logger()}
}

// Thresholds returns the thresholds the engine classifies with.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// ClassifyLesion classifies one lesion from its rounded deltas. A missing
// delta means one side of the pair is absent and yields StatusNew.
func (e *Engine) ClassifyLesion(deltaMM, deltaPct *float64) Status {
	if deltaMM == nil || deltaPct == nil {
		return StatusNew
	}
	if *deltaMM >= e.thresholds.ProgressionAbsMM && *deltaPct >= e.thresholds.ProgressionPct {
		return StatusProgression
	}
	if *deltaPct <= -e.thresholds.ResponsePct {
		return StatusResponse
	}
	return StatusStable
}

// CompareSizes pairs baseline and last sizes by index and classifies each
// pair. Both lists are expected in ascending order; the index is the only
// identity a pair has. Extra entries on either side produce StatusNew deltas
// with a note telling which side is missing.
func (e *Engine) CompareSizes(baseline, last []float64) []LesionDelta {
	n := max(len(baseline), len(last))
	deltas := make([]LesionDelta, 0, n)

	for i := 0; i < n; i++ {
		var b, l *float64
		if i < len(baseline) {
			b = util.Ptr(baseline[i])
		}
		if i < len(last) {
			l = util.Ptr(last[i])
		}
		deltas = append(deltas, e.delta(i, "", b, l))
	}
	return deltas
}

// IdentifiedSize is a lesion size tagged with a lesion identifier.
type IdentifiedSize struct {
	ID     string
	SizeMM float64
}

// CompareByID pairs lesions sharing an identifier. Baseline lesions come
// first in their given order, followed by lesions only present at the last
// exam in their given order.
func (e *Engine) CompareByID(baseline, last []IdentifiedSize) []LesionDelta {
	lastByID := make(map[string]float64, len(last))
	for _, l := range last {
		lastByID[l.ID] = l.SizeMM
	}
	seen := make(map[string]bool, len(baseline))

	deltas := make([]LesionDelta, 0, len(baseline)+len(last))
	for _, b := range baseline {
		seen[b.ID] = true
		var l *float64
		if v, ok := lastByID[b.ID]; ok {
			l = util.Ptr(v)
		}
		deltas = append(deltas, e.delta(len(deltas), b.ID, util.Ptr(b.SizeMM), l))
	}
	for _, l := range last {
		if seen[l.ID] {
			continue
		}
		deltas = append(deltas, e.delta(len(deltas), l.ID, nil, util.Ptr(l.SizeMM)))
	}
	return deltas
}

func (e *Engine) delta(index int, id string, b, l *float64) LesionDelta {
	d := LesionDelta{LesionIndex: index, LesionID: id, BaselineMM: b, LastMM: l}
	if b != nil && l != nil {
		d.DeltaMM = util.Ptr(util.Round(*l-*b, 2))
		if *b > 0 {
			d.DeltaPct = util.Ptr(util.Round((*l-*b) / *b * 100, 1))
		}
	}
	d.Status = e.ClassifyLesion(d.DeltaMM, d.DeltaPct)
	switch {
	case b == nil:
		d.Note = NoteAbsentAtBaseline
	case l == nil:
		d.Note = NoteAbsentAtLast
	}
	return d
}

// Outcome is the reduction of a delta list to one overall status.
type Outcome struct {
	Status             Status
	ProgressionIndices []int
	ResponseIndices    []int
	Rule               string
}

// Reduce derives the overall status from per-lesion statuses. Progression
// wins over response, response over stable; an empty list is unknown.
func (e *Engine) Reduce(deltas []LesionDelta) Outcome {
	if len(deltas) == 0 {
		return Outcome{Status: StatusUnknown, ProgressionIndices: []int{}, ResponseIndices: []int{}, Rule: ruleNoDeltas}
	}

	prog, resp := []int{}, []int{}
	for _, d := range deltas {
		switch d.Status {
		case StatusProgression:
			prog = append(prog, d.LesionIndex)
		case StatusResponse:
			resp = append(resp, d.LesionIndex)
		}
	}

	t := e.thresholds
	switch {
	case len(prog) > 0:
		return Outcome{
			Status:             StatusProgression,
			ProgressionIndices: prog,
			ResponseIndices:    resp,
			Rule: fmt.Sprintf("progression: lesion(s) %s increased >= %s%% AND >= %s mm",
				formatIndices(prog), formatFloat(t.ProgressionPct), formatFloat(t.ProgressionAbsMM)),
		}
	case len(resp) > 0:
		return Outcome{
			Status:             StatusResponse,
			ProgressionIndices: prog,
			ResponseIndices:    resp,
			Rule: fmt.Sprintf("response: lesion(s) %s decreased >= %s%%",
				formatIndices(resp), formatFloat(t.ResponsePct)),
		}
	default:
		return Outcome{Status: StatusStable, ProgressionIndices: []int{}, ResponseIndices: []int{}, Rule: ruleStable}
	}
}

// Compare runs CompareSizes then Reduce.
func (e *Engine) Compare(baseline, last []float64) ([]LesionDelta, Outcome) {
	deltas := e.CompareSizes(baseline, last)
	return deltas, e.Reduce(deltas)
}

func (e *Engine) evidence(o Outcome) Evidence {
	return Evidence{
		ProgressionTriggers: o.ProgressionIndices,
		ResponseTriggers:    o.ResponseIndices,
		RuleApplied:         o.Rule,
		Thresholds:          e.thresholds,
	}
}
