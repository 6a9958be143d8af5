// Package synth writes deterministic synthetic DICOM series. It is used to
// build test fixtures and backs the synth command.
package synth

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Modality is a modality the writer knows how to produce.
type Modality string

const (
	CT Modality = "CT"
	MR Modality = "MR"
	SR Modality = "SR"
)

// ParseModality validates a modality name.
func ParseModality(s string) (Modality, error) {
	switch m := Modality(strings.ToUpper(strings.TrimSpace(s))); m {
	case CT, MR, SR:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported modality %q (want CT, MR or SR)", s)
	}
}

// Options configures one generated series.
type Options struct {
	OutputDir string
	Modality  Modality
	Slices    int
	// Size is the square matrix size in pixels.
	Size int
	// PixelSpacing in mm. Zero omits the PixelSpacing tag.
	PixelSpacing float64
	// SliceSpacing is the z gap between slices in mm and the slice thickness.
	SliceSpacing float64
	Seed         uint64

	PatientID string
	// PatientName defaults to a name derived from Seed.
	PatientName string
	// StudyDate in DICOM YYYYMMDD form.
	StudyDate string
	// StudyUID and SeriesUID are derived from Seed and OutputDir when empty.
	StudyUID  string
	SeriesUID string

	// Tags override string headers after every other option is applied.
	Tags []TagValue

	OmitInstanceNumber bool
	OmitPosition       bool
	// Flat writes a constant pixel value instead of textured noise.
	Flat bool
	// Extensionless names files IMG0001 instead of IMG0001.dcm.
	Extensionless bool
	// Overlay burns the slice label into the pixels.
	Overlay bool

	Workers int
	Log     zerolog.Logger
}

// DefaultOptions returns a small CT series configuration.
func DefaultOptions(dir string) Options {
	return Options{
		OutputDir:    dir,
		Modality:     CT,
		Slices:       4,
		Size:         64,
		PixelSpacing: 0.7,
		SliceSpacing: 2.5,
		Seed:         42,
		PatientID:    "SYN-0001",
		StudyDate:    "20240115",
		Log:          zerolog.Nop(),
	}
}

func (o Options) validate() error {
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if _, err := ParseModality(string(o.Modality)); err != nil {
		return err
	}
	if o.Slices <= 0 {
		return fmt.Errorf("number of slices must be > 0, got %d", o.Slices)
	}
	if o.Modality != SR && o.Size <= 0 {
		return fmt.Errorf("matrix size must be > 0, got %d", o.Size)
	}
	if o.PixelSpacing < 0 || o.SliceSpacing < 0 {
		return fmt.Errorf("spacing must not be negative")
	}
	return nil
}
