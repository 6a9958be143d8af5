package vision

// SeriesInfo summarizes one series of a study, built from file headers.
type SeriesInfo struct {
	SeriesUID          string
	Modality           string
	PixelSpacing       []float64
	FileCount          int
	RepresentativeFile string
}

// SpacingSource tells where a resolved spacing came from.
type SpacingSource int

const (
	SpacingNone SpacingSource = iota
	SpacingExact
	SpacingFallbackCT
)

// Spacing is a (row, column) pixel spacing in mm.
type Spacing [2]float64

// ResolveSpacing returns the pixel spacing of the series with the given UID.
// When that series is unknown or has no spacing, it falls back to the first
// CT series that has one and reports SpacingFallbackCT.
func ResolveSpacing(series []SeriesInfo, seriesUID string) (Spacing, SpacingSource) {
	for _, s := range series {
		if s.SeriesUID == seriesUID {
			if len(s.PixelSpacing) >= 2 {
				return Spacing{s.PixelSpacing[0], s.PixelSpacing[1]}, SpacingExact
			}
			break
		}
	}
	for _, s := range series {
		if s.Modality == "CT" && len(s.PixelSpacing) >= 2 {
			return Spacing{s.PixelSpacing[0], s.PixelSpacing[1]}, SpacingFallbackCT
		}
	}
	return Spacing{}, SpacingNone
}
