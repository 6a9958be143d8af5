package analysis

import "fmt"

// Default classification thresholds.
const (
	DefaultProgressionPct   = 20.0
	DefaultProgressionAbsMM = 5.0
	DefaultResponsePct      = 30.0
)

// Thresholds parameterise the lesion classification rule. They are echoed
// verbatim in every Evidence block produced with them.
type Thresholds struct {
	// ProgressionPct is the minimum percent increase for progression.
	ProgressionPct float64 `json:"progression_pct"`
	// ProgressionAbsMM is the minimum absolute increase in mm for progression.
	ProgressionAbsMM float64 `json:"progression_abs_mm"`
	// ResponsePct is the minimum percent decrease for response, as a positive number.
	ResponsePct float64 `json:"response_pct"`
}

// DefaultThresholds returns the standard 20% / 5 mm / 30% rule.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ProgressionPct:   DefaultProgressionPct,
		ProgressionAbsMM: DefaultProgressionAbsMM,
		ResponsePct:      DefaultResponsePct,
	}
}

// Validate checks that every threshold is strictly positive.
func (t Thresholds) Validate() error {
	if t.ProgressionPct <= 0 {
		return fmt.Errorf("progression_pct must be > 0, got %v", t.ProgressionPct)
	}
	if t.ProgressionAbsMM <= 0 {
		return fmt.Errorf("progression_abs_mm must be > 0, got %v", t.ProgressionAbsMM)
	}
	if t.ResponsePct <= 0 {
		return fmt.Errorf("response_pct must be > 0, got %v", t.ResponsePct)
	}
	return nil
}
