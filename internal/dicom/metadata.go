package dicom

import (
	"strconv"

	"github.com/mrsinham/lesiontrack/internal/util"
)

// Metadata is the structured tag summary reported for an analyzed series.
type Metadata struct {
	PatientID         string    `json:"PatientID"`
	StudyInstanceUID  string    `json:"StudyInstanceUID"`
	SeriesInstanceUID string    `json:"SeriesInstanceUID"`
	Modality          string    `json:"Modality"`
	BodyPartExamined  *string   `json:"BodyPartExamined"`
	StudyDate         *string   `json:"StudyDate"`
	SeriesDescription *string   `json:"SeriesDescription"`
	InstanceNumber    *int      `json:"InstanceNumber"`
	PixelSpacing      []float64 `json:"PixelSpacing"`
	SliceThickness    *float64  `json:"SliceThickness"`
}

// MetadataFromHeader builds the metadata summary of a header.
func MetadataFromHeader(h *Header) Metadata {
	return Metadata{
		PatientID:         h.PatientID,
		StudyInstanceUID:  h.StudyInstanceUID,
		SeriesInstanceUID: h.SeriesInstanceUID,
		Modality:          h.Modality,
		BodyPartExamined:  nonEmpty(h.BodyPartExamined),
		StudyDate:         ISODate(h.StudyDate),
		SeriesDescription: nonEmpty(h.SeriesDescription),
		InstanceNumber:    h.InstanceNumber,
		PixelSpacing:      h.PixelSpacing,
		SliceThickness:    h.SliceThickness,
	}
}

// completeness returns the fraction of identifying fields that are present,
// rounded to 3 decimals.
func (m Metadata) completeness() float64 {
	present := 0
	for _, ok := range []bool{
		m.PatientID != "",
		m.StudyInstanceUID != "",
		m.SeriesInstanceUID != "",
		m.Modality != "",
		m.StudyDate != nil,
		len(m.PixelSpacing) > 0,
	} {
		if ok {
			present++
		}
	}
	return util.Round(float64(present)/6, 3)
}

// ISODate converts a DICOM YYYYMMDD date to YYYY-MM-DD. Anything else yields
// nil.
func ISODate(raw string) *string {
	s := cleanValue(raw)
	if len(s) != 8 {
		return nil
	}
	if _, err := strconv.Atoi(s); err != nil || s[0] == '-' || s[0] == '+' {
		return nil
	}
	iso := s[:4] + "-" + s[4:6] + "-" + s[6:8]
	return &iso
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
