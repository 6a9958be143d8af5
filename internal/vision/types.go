// Package vision converts pixel-space lesion annotations into millimetre
// measurements using the PixelSpacing of the annotated DICOM series, and
// groups the results per study.
package vision

import "github.com/mrsinham/lesiontrack/internal/lesion"

// CalibrationMethod tags spacing taken from DICOM PixelSpacing.
const CalibrationMethod = "dicom_spacing"

// DefaultStudyKey is the annotation bucket used when an annotation carries
// no study id, and the fallback for any study without a matching bucket.
const DefaultStudyKey = "__default__"

// Annotation is one annotated series of one study.
type Annotation struct {
	StudyID   string             `json:"study_id"`
	SeriesUID string             `json:"series_uid"`
	Lesions   []LesionAnnotation `json:"lesions"`
}

// LesionAnnotation is a lesion measured in pixels. SeriesUID overrides the
// series of the enclosing annotation when set.
type LesionAnnotation struct {
	LesionID      string   `json:"lesion_id"`
	SliceInstance *int     `json:"slice_instance"`
	LongAxisPx    *float64 `json:"long_axis_px"`
	ShortAxisPx   *float64 `json:"short_axis_px"`
	SeriesUID     string   `json:"series_uid,omitempty"`
}

// StudyKPIs are per-study aggregates over converted lesions.
type StudyKPIs struct {
	SumLongAxisMM    *float64 `json:"sum_long_axis_mm"`
	DominantLesionMM *float64 `json:"dominant_lesion_mm"`
	LesionCount      int      `json:"lesion_count"`
}

// Study is one measured study.
type Study struct {
	StudyUID    string               `json:"study_uid"`
	StudyDate   *string              `json:"study_date"`
	PatientID   string               `json:"patient_id"`
	SeriesCount int                  `json:"series_count"`
	Lesions     []lesion.Measurement `json:"lesions"`
	KPIs        StudyKPIs            `json:"kpis"`
}

// Calibration echoes the last spacing used, for audit only.
type Calibration struct {
	Method         string    `json:"method"`
	PixelSpacingMM []float64 `json:"pixel_spacing_mm"`
}

// Output is the result of a measurement run.
type Output struct {
	Studies     []Study     `json:"studies"`
	Warnings    []string    `json:"warnings"`
	Calibration Calibration `json:"calibration"`
}
