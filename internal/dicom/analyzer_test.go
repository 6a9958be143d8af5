package dicom

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrsinham/lesiontrack/internal/apperr"
	"github.com/mrsinham/lesiontrack/internal/dicom/synth"
)

func writeSeries(t *testing.T, dir string, mod func(*synth.Options)) []synth.File {
	t.Helper()
	opts := synth.DefaultOptions(dir)
	if mod != nil {
		mod(&opts)
	}
	files, err := synth.Generate(opts)
	if err != nil {
		t.Fatalf("synth.Generate failed: %v", err)
	}
	return files
}

func TestAnalyze_SingleFile(t *testing.T) {
	files := writeSeries(t, t.TempDir(), func(o *synth.Options) { o.Slices = 1 })

	res, err := NewAnalyzer().Analyze(files[0].Path, "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.CaseID != "IMG0001" {
		t.Errorf("CaseID = %q, want file stem", res.CaseID)
	}
	im := res.Imaging
	if im.InputKind != InputSingle || im.NSlices != 1 || im.Is3D || im.SortingKeyUsed != SortNone {
		t.Errorf("unexpected imaging block: %+v", im)
	}
	if len(res.ImageStats.Shape) != 2 || res.ImageStats.Shape[0] != 64 || res.ImageStats.Shape[1] != 64 {
		t.Errorf("shape = %v, want [64 64]", res.ImageStats.Shape)
	}
	if res.ImageStats.SampledSlices != nil {
		t.Error("single file should not report sampled slices")
	}
	if im.SpacingMM[0] == nil || *im.SpacingMM[0] != 2.5 {
		t.Errorf("z spacing should come from SliceThickness, got %v", im.SpacingMM[0])
	}
	if im.SpacingMM[1] == nil || *im.SpacingMM[1] != 0.7 {
		t.Errorf("row spacing = %v, want 0.7", im.SpacingMM[1])
	}
	if res.Metadata.StudyDate == nil || *res.Metadata.StudyDate != "2024-01-15" {
		t.Errorf("StudyDate = %v", res.Metadata.StudyDate)
	}
	if res.ImageStats.Dtype != "int16" {
		t.Errorf("dtype = %s, want int16 for signed CT", res.ImageStats.Dtype)
	}
}

func TestAnalyze_SeriesSampling(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, func(o *synth.Options) {
		o.Slices = 100
		o.Size = 16
	})

	res, err := NewAnalyzer().Analyze(dir, "case-100")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Imaging.NSlices != 100 {
		t.Errorf("n_slices = %d, want 100", res.Imaging.NSlices)
	}
	if res.ImageStats.SampledSlices == nil || *res.ImageStats.SampledSlices > 16 {
		t.Errorf("sampled_slices = %v, want <= 16", res.ImageStats.SampledSlices)
	}
	if got := res.Imaging.VolumeShape; got[0] != 100 || got[1] != 16 || got[2] != 16 {
		t.Errorf("volume_shape = %v", got)
	}
	if res.Imaging.SortingKeyUsed != SortInstanceNumber {
		t.Errorf("sorting key = %s", res.Imaging.SortingKeyUsed)
	}
	if !res.Imaging.Is3D || res.Imaging.InputKind != InputSeries {
		t.Errorf("unexpected imaging block: %+v", res.Imaging)
	}
	if res.CaseID != "case-100" {
		t.Errorf("CaseID = %q", res.CaseID)
	}
}

func TestAnalyze_ZSpacingFromPositions(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, func(o *synth.Options) {
		o.Slices = 3
		o.SliceSpacing = 1.25
		o.OmitInstanceNumber = true
	})

	res, err := NewAnalyzer().Analyze(dir, "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Imaging.SortingKeyUsed != SortImagePositionPatient {
		t.Errorf("sorting key = %s, want ImagePositionPatient", res.Imaging.SortingKeyUsed)
	}
	if z := res.Imaging.SpacingMM[0]; z == nil || *z != 1.25 {
		t.Errorf("z spacing = %v, want 1.25", z)
	}
	if res.CaseID != filepath.Base(dir) {
		t.Errorf("CaseID = %q, want folder name", res.CaseID)
	}
}

func TestAnalyze_NoSortingKey(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, func(o *synth.Options) {
		o.Slices = 2
		o.OmitInstanceNumber = true
		o.OmitPosition = true
		o.Extensionless = true
	})

	res, err := NewAnalyzer().Analyze(dir, "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Imaging.SortingKeyUsed != SortNone {
		t.Errorf("sorting key = %s, want none", res.Imaging.SortingKeyUsed)
	}
	if z := res.Imaging.SpacingMM[0]; z == nil || *z != 2.5 {
		t.Errorf("z spacing should fall back to SliceThickness, got %v", z)
	}
}

func TestAnalyze_LargestSeriesWins(t *testing.T) {
	dir := t.TempDir()
	big := writeSeries(t, filepath.Join(dir, "a"), func(o *synth.Options) { o.Slices = 3 })
	writeSeries(t, filepath.Join(dir, "b"), func(o *synth.Options) {
		o.Slices = 1
		o.Modality = synth.MR
	})

	res, err := NewAnalyzer().Analyze(dir, "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if res.Imaging.NSlices != 3 {
		t.Errorf("n_slices = %d, want 3", res.Imaging.NSlices)
	}
	if uid := res.Imaging.SeriesInstanceUID; uid == nil || *uid != big[0].SeriesUID {
		t.Errorf("series uid = %v, want %s", uid, big[0].SeriesUID)
	}
}

func TestAnalyze_RejectsNonImage(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		files := writeSeries(t, t.TempDir(), func(o *synth.Options) {
			o.Modality = synth.SR
			o.Slices = 1
		})
		_, err := NewAnalyzer().Analyze(files[0].Path, "")
		if !errors.Is(err, apperr.ErrNonImageModality) {
			t.Fatalf("expected NON_IMAGE_MODALITY, got %v", err)
		}
	})

	t.Run("folder of one SR", func(t *testing.T) {
		dir := t.TempDir()
		writeSeries(t, dir, func(o *synth.Options) {
			o.Modality = synth.SR
			o.Slices = 1
		})
		_, err := NewAnalyzer().Analyze(dir, "")
		if !errors.Is(err, apperr.ErrNonImageModality) {
			t.Fatalf("expected NON_IMAGE_MODALITY, got %v", err)
		}
	})
}

func TestAnalyze_MissingInput(t *testing.T) {
	_, err := NewAnalyzer().Analyze(filepath.Join(t.TempDir(), "nope.dcm"), "")
	if apperr.CodeOf(err) != apperr.DicomMissing {
		t.Fatalf("expected DICOM_MISSING, got %v", err)
	}

	empty := t.TempDir()
	_, err = NewAnalyzer().Analyze(empty, "")
	if apperr.CodeOf(err) != apperr.DicomMissing {
		t.Fatalf("expected DICOM_MISSING for empty folder, got %v", err)
	}
}

func TestAnalyze_NoReadableImages(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "junk.dcm"), []byte("not a dicom file"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewAnalyzer().Analyze(dir, "")
	if !errors.Is(err, apperr.ErrImagesRequired) {
		t.Fatalf("expected IMAGES_REQUIRED, got %v", err)
	}
}

func TestAnalyze_FlatImageLowersConsistency(t *testing.T) {
	textured := writeSeries(t, t.TempDir(), func(o *synth.Options) { o.Slices = 1 })
	flat := writeSeries(t, t.TempDir(), func(o *synth.Options) {
		o.Slices = 1
		o.Flat = true
	})

	a, err := NewAnalyzer().Analyze(textured[0].Path, "")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewAnalyzer().Analyze(flat[0].Path, "")
	if err != nil {
		t.Fatal(err)
	}
	if a.ImageStats.DataConsistencyScore != 1.0 {
		t.Errorf("textured 64x64 with full metadata: score = %v, want 1.0", a.ImageStats.DataConsistencyScore)
	}
	// 1.0 - 0.4 (flat) - 0.2 (std < 1), blended with full metadata.
	if b.ImageStats.DataConsistencyScore != 0.58 {
		t.Errorf("flat image score = %v, want 0.58", b.ImageStats.DataConsistencyScore)
	}
}

func TestWithMaxSampleSlices(t *testing.T) {
	dir := t.TempDir()
	writeSeries(t, dir, func(o *synth.Options) {
		o.Slices = 10
		o.Size = 8
	})
	res, err := NewAnalyzer(WithMaxSampleSlices(3)).Analyze(dir, "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if *res.ImageStats.SampledSlices != 3 {
		t.Errorf("sampled = %d, want 3", *res.ImageStats.SampledSlices)
	}
}
