package dicom

import (
	"strings"

	"github.com/mrsinham/lesiontrack/internal/apperr"
)

// nonImageModalities lists modalities whose objects carry no pixel volume:
// structured reports, segmentations, RT objects, waveforms and the like.
var nonImageModalities = map[string]bool{
	"SR": true, "SEG": true, "RTSTRUCT": true, "RTDOSE": true, "RTPLAN": true,
	"PR": true, "KO": true, "AU": true, "ECG": true, "EPS": true, "HD": true,
	"IO": true, "OAM": true, "OP": true, "OPM": true, "OPT": true, "OPV": true,
	"OSS": true, "PX": true, "RG": true, "SM": true, "SRF": true, "TG": true,
	"XC": true,
}

// IsImageModality reports whether a modality code can carry an image volume.
// An empty modality is treated as an image.
func IsImageModality(modality string) bool {
	return !nonImageModalities[strings.ToUpper(strings.TrimSpace(modality))]
}

// CheckImageModality returns a NON_IMAGE_MODALITY error when the header
// belongs to a non-image object.
func CheckImageModality(h *Header) error {
	if IsImageModality(h.Modality) {
		return nil
	}
	return apperr.New(apperr.NonImageModality,
		"non-image DICOM rejected (Modality=%q): only image modalities (CT, MR, PT, DX, CR, NM, ...) are supported",
		strings.ToUpper(h.Modality)).WithPath(h.Path)
}
