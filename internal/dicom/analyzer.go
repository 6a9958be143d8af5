package dicom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/util"
)

// DefaultMaxSampleSlices bounds the number of slices whose pixels are read
// when analyzing a series.
const DefaultMaxSampleSlices = 16

// Input kinds.
const (
	InputSingle = "single"
	InputSeries = "series"
)

// ImageStats summarizes pixel intensities of the analyzed image or of the
// sampled slices of a series.
type ImageStats struct {
	Shape                []int   `json:"shape"`
	Dtype                string  `json:"dtype"`
	Min                  float64 `json:"min"`
	Max                  float64 `json:"max"`
	Mean                 float64 `json:"mean"`
	Std                  float64 `json:"std"`
	DataConsistencyScore float64 `json:"data_consistency_score"`
	SampledSlices        *int    `json:"sampled_slices,omitempty"`
}

// Imaging describes the volume geometry of the analyzed input.
type Imaging struct {
	InputKind         string     `json:"input_kind"`
	NSlices           int        `json:"n_slices"`
	VolumeShape       []int      `json:"volume_shape"`
	SpacingMM         []*float64 `json:"spacing_mm"`
	SeriesInstanceUID *string    `json:"series_instance_uid"`
	SortingKeyUsed    string     `json:"sorting_key_used"`
	Is3D              bool       `json:"is_3d"`
}

// Result is the structural analysis of a file or a series.
type Result struct {
	CaseID      string
	Metadata    Metadata
	ImageStats  ImageStats
	Imaging     Imaging
	Explanation string
}

// Analyzer performs structural analysis of DICOM inputs.
type Analyzer struct {
	log       zerolog.Logger
	maxSample int
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(log zerolog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.log = log }
}

// WithMaxSampleSlices bounds pixel reads for series. Values below 1 are
// ignored.
func WithMaxSampleSlices(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n >= 1 {
			a.maxSample = n
		}
	}
}

// NewAnalyzer returns an analyzer with the given options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{log: zerolog.Nop(), maxSample: DefaultMaxSampleSlices}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze inspects a single DICOM file or a folder of slices. Non-image
// objects are rejected from their header before any pixel data is read.
// caseID defaults to the file stem or the folder name.
func (a *Analyzer) Analyze(path, caseID string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.New(apperr.DicomMissing, "DICOM input is required, not found: %s", path).WithPath(path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		if caseID == "" {
			caseID = filepath.Base(filepath.Clean(path))
		}
		return a.analyzeSeries(path, caseID)
	}
	if caseID == "" {
		caseID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return a.analyzeSingle(path, caseID)
}

func (a *Analyzer) analyzeSingle(path, caseID string) (*Result, error) {
	a.log.Debug().Str("path", path).Msg("reading single file")

	h, err := ReadHeader(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ImagesRequired, err, "unreadable DICOM file").WithPath(path)
	}
	if err := CheckImageModality(h); err != nil {
		return nil, err
	}

	meta := MetadataFromHeader(h)
	var stats pixelStats
	pf, err := readPixels(path, &stats)
	if err != nil {
		return nil, apperr.Wrap(apperr.PixelDataUnreadable, err, "cannot read pixel data").WithPath(path)
	}

	shape := []int{pf.rows, pf.cols}
	if pf.frames > 1 {
		shape = []int{pf.frames, pf.rows, pf.cols}
	}
	is := buildStats(shape, pf.dtype, &stats, meta)

	res := &Result{
		CaseID:      caseID,
		Metadata:    meta,
		ImageStats:  is,
		Imaging:     buildImaging(InputSingle, 1, pf.rows, pf.cols, meta, h.SliceThickness, SortNone),
		Explanation: "Single DICOM file analyzed, no temporal comparison available.",
	}
	a.log.Info().
		Str("patient_id", orNA(meta.PatientID)).
		Str("modality", orNA(meta.Modality)).
		Ints("shape", shape).
		Float64("consistency", is.DataConsistencyScore).
		Msg("single file analyzed")
	return res, nil
}

func (a *Analyzer) analyzeSeries(dir, caseID string) (*Result, error) {
	a.log.Debug().Str("dir", dir).Msg("scanning series folder")

	files, err := CollectFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.DicomMissing, "no DICOM files found in folder").WithPath(dir)
	}

	headers := make([]*Header, 0, len(files))
	for _, f := range files {
		h, err := ReadHeader(f)
		if err != nil {
			a.log.Debug().Err(err).Str("path", f).Msg("skipping unreadable file")
			continue
		}
		if err := CheckImageModality(h); err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	if len(headers) == 0 {
		return nil, apperr.New(apperr.ImagesRequired, "no valid image-modality DICOM files found").WithPath(dir)
	}

	series := LargestSeries(headers)
	sorted, key := SortSlices(series)
	zSpacing := ZSpacing(sorted)
	meta := MetadataFromHeader(sorted[0])
	a.log.Info().
		Int("files", len(headers)).
		Int("series", len(GroupBySeries(headers))).
		Int("slices", len(sorted)).
		Str("series_uid", meta.SeriesInstanceUID).
		Msg("series selected")

	indices := SampleIndices(len(sorted), a.maxSample)
	var (
		stats   pixelStats
		first   *pixelFile
		sampled int
	)
	for _, i := range indices {
		pf, err := readPixels(sorted[i].Path, &stats)
		if err != nil {
			a.log.Debug().Err(err).Str("path", sorted[i].Path).Msg("skipping slice pixels")
			continue
		}
		if first == nil {
			first = pf
		}
		sampled++
	}
	if first == nil {
		return nil, apperr.New(apperr.PixelDataUnreadable, "could not read pixel data from any slice in the series").WithPath(dir)
	}
	a.log.Debug().Int("sampled", sampled).Int("slices", len(sorted)).Msg("pixel sampling done")

	n := len(sorted)
	is := buildStats([]int{n, first.rows, first.cols}, first.dtype, &stats, meta)
	is.SampledSlices = &sampled

	res := &Result{
		CaseID:      caseID,
		Metadata:    meta,
		ImageStats:  is,
		Imaging:     buildImaging(InputSeries, n, first.rows, first.cols, meta, zSpacing, key),
		Explanation: fmt.Sprintf("Series of %d DICOM slices analyzed, no temporal comparison available (timeline missing).", n),
	}
	a.log.Info().
		Int("slices", n).
		Str("patient_id", orNA(meta.PatientID)).
		Str("modality", orNA(meta.Modality)).
		Str("sorted_by", key).
		Float64("consistency", is.DataConsistencyScore).
		Msg("series analyzed")
	return res, nil
}

func buildStats(shape []int, dtype string, s *pixelStats, meta Metadata) ImageStats {
	std := s.std()
	return ImageStats{
		Shape:                shape,
		Dtype:                dtype,
		Min:                  util.Round(s.min, 4),
		Max:                  util.Round(s.max, 4),
		Mean:                 util.Round(s.mean, 4),
		Std:                  util.Round(std, 4),
		DataConsistencyScore: consistencyScore(s.min, s.max, std, s.n, meta.completeness()),
	}
}

func buildImaging(kind string, n, rows, cols int, meta Metadata, zSpacing *float64, key string) Imaging {
	im := Imaging{
		InputKind:      kind,
		NSlices:        n,
		VolumeShape:    []int{n, rows, cols},
		SpacingMM:      []*float64{zSpacing, nil, nil},
		SortingKeyUsed: key,
		Is3D:           n > 1,
	}
	if len(meta.PixelSpacing) >= 2 {
		y, x := util.Round(meta.PixelSpacing[0], 4), util.Round(meta.PixelSpacing[1], 4)
		im.SpacingMM[1], im.SpacingMM[2] = &y, &x
	}
	if meta.SeriesInstanceUID != "" {
		uid := meta.SeriesInstanceUID
		im.SeriesInstanceUID = &uid
	}
	return im
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
