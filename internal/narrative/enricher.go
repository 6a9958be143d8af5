package narrative

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrsinham/lesiontrack/internal/analysis"
)

// Narrative keys written by Enrich.
const (
	KeyStudyTechnique      = "latest_study_technique"
	KeyReport              = "latest_report"
	KeyConclusions         = "latest_conclusions"
	KeyClinicalInformation = "latest_clinical_information"
	KeyEnriched            = "llm_enriched"
	KeyValidation          = "validation"
)

// coreKeys are produced by the deterministic pipeline and are never written
// by this package.
var coreKeys = []string{
	"pipeline_version", "case_id", "patient_id",
	"overall_status", "evidence", "lesion_deltas", "kpi", "dicom", "imaging",
	"status_reason", "status_explanation",
}

// ProtectedKeys lists the keys whose value must be identical before and
// after any Enricher call.
var ProtectedKeys = append(slices.Clone(coreKeys),
	KeyStudyTechnique, KeyReport, KeyConclusions, KeyClinicalInformation, KeyEnriched)

// Enricher merges backend output into analysis documents.
type Enricher struct {
	backend Backend
	log     zerolog.Logger
	now     func() time.Time
}

// NewEnricher returns an enricher over backend. A nil backend behaves as
// Noop.
func NewEnricher(backend Backend, log zerolog.Logger) *Enricher {
	if backend == nil {
		backend = Noop{}
	}
	return &Enricher{
		backend: backend,
		log:     log.With().Str("component", "narrative").Logger(),
		now:     time.Now,
	}
}

// Enrich adds the narrative sections and the llm_enriched marker. On any
// backend failure the document is returned as is.
func (e *Enricher) Enrich(ctx context.Context, doc analysis.Document) analysis.Document {
	s, err := e.backend.Sections(ctx, sectionFacts(doc))
	if err != nil {
		e.skip("enrichment", err)
		return doc
	}
	out, added := merge(doc, map[string]any{
		KeyStudyTechnique: s.StudyTechnique,
		KeyReport:         s.PreliminaryFindings,
		KeyConclusions:    s.Conclusions,
	})
	if added > 0 {
		out, _ = merge(out, map[string]any{KeyEnriched: true})
	}
	e.log.Info().Int("fields", added).Str("backend", e.backend.Name()).Msg("analysis enriched")
	return out
}

// Validate adds a validation block. On any backend failure the document is
// returned as is.
func (e *Enricher) Validate(ctx context.Context, doc analysis.Document) analysis.Document {
	a, err := e.backend.Assess(ctx, ValidationFacts(doc))
	if err != nil {
		e.skip("validation", err)
		return doc
	}
	flags := a.AnomalyFlags
	if flags == nil {
		flags = []string{}
	}
	block := map[string]any{
		"confidence_score":           a.ConfidenceScore,
		"clinical_consistency_score": a.ClinicalConsistencyScore,
		"anomaly_flags":              flags,
		"validation_notes":           a.ValidationNotes,
		"validated_at":               e.now().UTC().Format(time.RFC3339),
		"model_used":                 e.backend.Name(),
	}
	out, _ := merge(doc, map[string]any{KeyValidation: block})
	e.log.Info().
		Float64("confidence", a.ConfidenceScore).
		Float64("consistency", a.ClinicalConsistencyScore).
		Strs("flags", flags).
		Msg("analysis validated")
	return out
}

func (e *Enricher) skip(step string, err error) {
	if errors.Is(err, ErrDisabled) {
		e.log.Debug().Str("step", step).Msg("narrative backend disabled, skipping")
		return
	}
	e.log.Warn().Err(err).Str("step", step).Msg("narrative step failed, document unchanged")
}

// merge returns a copy of doc with the additions whose key is neither a core
// key nor already present, and the number of keys added.
func merge(doc analysis.Document, additions map[string]any) (analysis.Document, int) {
	out := doc.Clone()
	added := 0
	for k, v := range additions {
		if slices.Contains(coreKeys, k) {
			continue
		}
		if _, exists := doc[k]; exists {
			continue
		}
		out[k] = v
		added++
	}
	return out, added
}

func block(doc analysis.Document, key string) map[string]any {
	m, _ := doc[key].(map[string]any)
	return m
}

func sectionFacts(doc analysis.Document) Facts {
	dicom := block(doc, "dicom")
	meta, _ := dicom["metadata"].(map[string]any)
	stats, _ := dicom["image_stats"].(map[string]any)
	return Facts{
		"modality":               meta["Modality"],
		"body_part":              meta["BodyPartExamined"],
		"study_date":             meta["StudyDate"],
		"series_description":     meta["SeriesDescription"],
		"slice_thickness_mm":     meta["SliceThickness"],
		"pixel_spacing_mm":       meta["PixelSpacing"],
		"image_shape_px":         stats["shape"],
		"intensity_min":          stats["min"],
		"intensity_max":          stats["max"],
		"intensity_mean":         stats["mean"],
		"intensity_std":          stats["std"],
		"data_consistency_score": stats["data_consistency_score"],
	}
}

// ValidationFacts extracts the fields a consistency review looks at.
func ValidationFacts(doc analysis.Document) Facts {
	dicom := block(doc, "dicom")
	meta, _ := dicom["metadata"].(map[string]any)
	stats, _ := dicom["image_stats"].(map[string]any)
	imaging := block(doc, "imaging")
	kpi := block(doc, "kpi")

	deltas, _ := doc["lesion_deltas"].([]any)
	lesionCount := kpi["lesion_count_current"]
	if lesionCount == nil {
		lesionCount = 0
	}
	present := func(v any) bool {
		s, ok := v.(string)
		return ok && s != ""
	}

	return Facts{
		"pipeline_version":       doc["pipeline_version"],
		"overall_status":         doc["overall_status"],
		"status_reason":          doc["status_reason"],
		"modality":               meta["Modality"],
		"body_part":              meta["BodyPartExamined"],
		"study_date":             meta["StudyDate"],
		"patient_id_present":     present(meta["PatientID"]),
		"study_uid_present":      present(meta["StudyInstanceUID"]),
		"pixel_spacing_mm":       meta["PixelSpacing"],
		"slice_thickness_mm":     meta["SliceThickness"],
		"intensity_min":          stats["min"],
		"intensity_max":          stats["max"],
		"intensity_mean":         stats["mean"],
		"intensity_std":          stats["std"],
		"image_shape":            stats["shape"],
		"data_consistency_score": stats["data_consistency_score"],
		"input_kind":             imaging["input_kind"],
		"n_slices":               imaging["n_slices"],
		"is_3d":                  imaging["is_3d"],
		"lesion_count_current":   lesionCount,
		"lesion_deltas_count":    len(deltas),
		"data_completeness":      kpi["data_completeness_score"],
	}
}
