package dicom

import (
	"math"

	"github.com/mrsinham/lesiontrack/internal/util"
)

// minPixelCount is the pixel count below which an image is considered too
// small to be a diagnostic slice (64x64).
const minPixelCount = 64 * 64

// consistencyScore rates pixel statistics between 0 and 1 and blends the
// result 70/30 with the metadata completeness.
func consistencyScore(min, max, std float64, size int, meta float64) float64 {
	score := 1.0
	switch {
	case max <= min:
		score -= 0.4
	case max-min < 10:
		score -= 0.2
	}
	if size < minPixelCount {
		score -= 0.2
	}
	if std < 1.0 {
		score -= 0.2
	}
	blended := score*0.7 + meta*0.3
	return util.Round(math.Max(0, math.Min(1, blended)), 3)
}
