package vision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/lesion"
	"github.com/mrsinham/lesiontrack/internal/util"
)

// StudyFetcher materialises a remote study into a local folder under dir and
// returns that folder.
type StudyFetcher interface {
	Fetch(ctx context.Context, studyID, dir string) (string, error)
}

// Sources lists where DICOM data comes from: local files or folders, and
// remote study ids resolved through a StudyFetcher.
type Sources struct {
	Paths    []string
	StudyIDs []string
}

// Builder turns annotations into measured studies.
type Builder struct {
	log     zerolog.Logger
	fetcher StudyFetcher
	workDir string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(log zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

// WithFetcher enables remote study ids. Downloads land under workDir, or a
// fresh temporary directory when workDir is empty.
func WithFetcher(f StudyFetcher, workDir string) BuilderOption {
	return func(b *Builder) {
		b.fetcher = f
		b.workDir = workDir
	}
}

// NewBuilder returns a measurement builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Measure converts pixel annotations to mm for every DICOM source folder.
//
// It fails with MEASUREMENTS_REQUIRED when there are no annotations, no
// usable source, a matched study yields no lesion, or no study could be
// processed at all. Unmatched studies and spacing problems are warnings.
func (b *Builder) Measure(ctx context.Context, src Sources, anns []Annotation) (*Output, error) {
	byStudy := groupByStudy(anns)
	if len(byStudy) == 0 {
		return nil, apperr.New(apperr.MeasurementsRequired,
			"no lesion measurements available, provide annotations (px) or DICOM SR/RTSTRUCT")
	}

	var warnings []string
	folders, err := b.resolveFolders(ctx, src, &warnings)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, apperr.New(apperr.MeasurementsRequired,
			"no DICOM sources provided, supply DICOM paths or remote study ids")
	}

	out := &Output{
		Studies:     []Study{},
		Calibration: Calibration{Method: CalibrationMethod},
	}

	for _, folder := range folders {
		files, err := scanDCM(folder)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", folder, err)
		}
		if len(files) == 0 {
			warnings = append(warnings, fmt.Sprintf("No .dcm files found in %s", folder))
			continue
		}

		meta := ReadStudy(folder, files, b.log)
		key := meta.Key()
		anns := byStudy[key]
		if len(anns) == 0 {
			anns = byStudy[DefaultStudyKey]
		}
		if len(anns) == 0 {
			warnings = append(warnings, fmt.Sprintf("No annotations matched study %s, study skipped.", truncate(key, 20)))
			b.log.Warn().Str("study", key).Msg("no annotations matched study")
			continue
		}

		lesions := b.convert(meta, anns, &out.Calibration, &warnings)
		if len(lesions) == 0 {
			return nil, apperr.New(apperr.MeasurementsRequired,
				"no lesion measurements could be derived, check annotations JSON and PixelSpacing availability").WithPath(folder)
		}

		out.Studies = append(out.Studies, Study{
			StudyUID:    meta.StudyUID,
			StudyDate:   meta.StudyDate,
			PatientID:   meta.PatientID,
			SeriesCount: len(meta.Series),
			Lesions:     lesions,
			KPIs:        studyKPIs(lesions),
		})
		b.log.Info().Str("study", key).Int("lesions", len(lesions)).Msg("study measured")
	}

	if len(out.Studies) == 0 {
		return nil, apperr.New(apperr.MeasurementsRequired,
			"no valid studies could be processed from the provided DICOM sources")
	}
	out.Warnings = warnings
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out, nil
}

func (b *Builder) convert(meta *StudyMeta, anns []LesionAnnotation, cal *Calibration, warnings *[]string) []lesion.Measurement {
	lesions := make([]lesion.Measurement, 0, len(anns))
	for _, ann := range anns {
		label := ann.LesionID
		if label == "" {
			label = "?"
		}

		ps, source := ResolveSpacing(meta.Series, ann.SeriesUID)
		switch source {
		case SpacingNone:
			*warnings = append(*warnings, fmt.Sprintf("No PixelSpacing found for lesion %s, skipping.", label))
			b.log.Warn().Str("lesion", label).Msg("no pixel spacing, lesion skipped")
			continue
		case SpacingFallbackCT:
			*warnings = append(*warnings, fmt.Sprintf("Series UID not matched for lesion %s, using first CT series spacing.", label))
			b.log.Warn().Str("lesion", label).Str("series_uid", ann.SeriesUID).Msg("using fallback CT spacing")
		}
		cal.PixelSpacingMM = []float64{ps[0], ps[1]}

		m := lesion.Measurement{
			LesionID:      ann.LesionID,
			SliceInstance: ann.SliceInstance,
			LongAxisPx:    ann.LongAxisPx,
			ShortAxisPx:   ann.ShortAxisPx,
			SeriesUID:     ann.SeriesUID,
		}
		if m.LesionID == "" {
			m.LesionID = fmt.Sprintf("L%d", len(lesions)+1)
		}
		if ann.LongAxisPx != nil {
			m.LongAxisMM = util.Ptr(util.Round(*ann.LongAxisPx*ps[0], 2))
		}
		if ann.ShortAxisPx != nil {
			m.ShortAxisMM = util.Ptr(util.Round(*ann.ShortAxisPx*ps[1], 2))
		}
		lesions = append(lesions, m)
	}
	return lesions
}

func (b *Builder) resolveFolders(ctx context.Context, src Sources, warnings *[]string) ([]string, error) {
	var folders []string

	if len(src.StudyIDs) > 0 {
		if b.fetcher == nil {
			return nil, apperr.New(apperr.InvalidInput, "remote study ids given but no study fetcher is configured")
		}
		dir := b.workDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "vision_")
			if err != nil {
				return nil, fmt.Errorf("create work dir: %w", err)
			}
			dir = tmp
		}
		for _, id := range src.StudyIDs {
			folder, err := b.fetcher.Fetch(ctx, id, dir)
			if err != nil {
				return nil, fmt.Errorf("fetch study %s: %w", id, err)
			}
			folders = append(folders, folder)
		}
	}

	for _, p := range src.Paths {
		info, err := os.Stat(p)
		if err != nil {
			*warnings = append(*warnings, fmt.Sprintf("DICOM source not found: %s", p))
			continue
		}
		if info.IsDir() {
			folders = append(folders, p)
			continue
		}
		if ext := strings.ToLower(filepath.Ext(p)); ext == ".dcm" || ext == "" {
			folders = append(folders, filepath.Dir(p))
		}
	}
	return folders, nil
}

func studyKPIs(lesions []lesion.Measurement) StudyKPIs {
	axes := lesion.LongAxes(lesions)
	k := StudyKPIs{LesionCount: len(lesions)}
	if len(axes) == 0 {
		return k
	}
	var sum, dominant float64
	for i, a := range axes {
		sum += a
		if i == 0 || a > dominant {
			dominant = a
		}
	}
	k.SumLongAxisMM = util.Ptr(util.Round(sum, 2))
	k.DominantLesionMM = util.Ptr(dominant)
	return k
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
