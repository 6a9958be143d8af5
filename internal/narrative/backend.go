// Package narrative adds advisory, model-generated content to an analysis
// document: report narrative sections and a data-consistency assessment.
//
// Nothing in this package can fail a run. Backends report errors, and the
// Enricher turns every error into an unchanged document.
package narrative

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by backends that are switched off.
	ErrDisabled = errors.New("narrative backend disabled")
	// ErrMalformed is returned when a model answer does not have the
	// expected shape or ranges.
	ErrMalformed = errors.New("malformed model output")
)

// Facts is the structured view of an analysis a backend reasons over.
type Facts map[string]any

// Sections are the three technical narrative sections of a report.
type Sections struct {
	StudyTechnique      string `json:"study_technique"`
	PreliminaryFindings string `json:"preliminary_findings"`
	Conclusions         string `json:"conclusions"`
}

// Assessment is a data-consistency review of an analysis. Scores are in
// [0, 1].
type Assessment struct {
	ConfidenceScore          float64  `json:"confidence_score"`
	ClinicalConsistencyScore float64  `json:"clinical_consistency_score"`
	AnomalyFlags             []string `json:"anomaly_flags"`
	ValidationNotes          *string  `json:"validation_notes"`
}

// Backend generates narrative content.
type Backend interface {
	Sections(ctx context.Context, facts Facts) (*Sections, error)
	Assess(ctx context.Context, facts Facts) (*Assessment, error)
	Name() string
}

// Noop is the backend used when no model is configured.
type Noop struct{}

func (Noop) Sections(context.Context, Facts) (*Sections, error) { return nil, ErrDisabled }

func (Noop) Assess(context.Context, Facts) (*Assessment, error) { return nil, ErrDisabled }

func (Noop) Name() string { return "none" }
