// Package dicom reads DICOM headers and pixel data and analyzes a file or a
// folder of slices into a structural summary: ordered volume, voxel spacing,
// pixel statistics and a data consistency score.
package dicom

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Header holds the tags read from a DICOM file without its pixel data.
type Header struct {
	Path string

	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	Modality          string
	BodyPartExamined  string
	StudyDate         string
	SeriesDescription string
	AccessionNumber   string

	InstanceNumber       *int
	PixelSpacing         []float64
	SliceThickness       *float64
	ImagePositionPatient []float64

	Rows    int
	Columns int
}

// HasPosition reports whether the header carries a usable patient position.
func (h *Header) HasPosition() bool {
	return len(h.ImagePositionPatient) >= 3
}

// Z returns the z component of ImagePositionPatient, or 0 when absent.
func (h *Header) Z() float64 {
	if !h.HasPosition() {
		return 0
	}
	return h.ImagePositionPatient[2]
}

// ReadHeader parses a DICOM file element by element, stopping before pixel
// data. Elements after a malformed one are ignored; the header keeps what was
// read up to that point.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	p, err := dicom.NewParser(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			break
		}
		elements = append(elements, elem)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("parse %s: no elements parsed", path)
	}

	ds := dicom.Dataset{Elements: append(p.GetMetadata().Elements, elements...)}
	return headerFromDataset(path, ds), nil
}

func headerFromDataset(path string, ds dicom.Dataset) *Header {
	h := &Header{
		Path:              path,
		PatientID:         stringValue(ds, tag.PatientID),
		StudyInstanceUID:  stringValue(ds, tag.StudyInstanceUID),
		SeriesInstanceUID: stringValue(ds, tag.SeriesInstanceUID),
		Modality:          stringValue(ds, tag.Modality),
		BodyPartExamined:  stringValue(ds, tag.BodyPartExamined),
		StudyDate:         stringValue(ds, tag.StudyDate),
		SeriesDescription: stringValue(ds, tag.SeriesDescription),
		AccessionNumber:   stringValue(ds, tag.AccessionNumber),
		InstanceNumber:    intValue(ds, tag.InstanceNumber),
		SliceThickness:    floatValue(ds, tag.SliceThickness),
	}
	if ps := floatValues(ds, tag.PixelSpacing); len(ps) >= 2 {
		h.PixelSpacing = ps[:2]
	}
	if ipp := floatValues(ds, tag.ImagePositionPatient); len(ipp) >= 3 {
		h.ImagePositionPatient = ipp[:3]
	}
	if v := intValue(ds, tag.Rows); v != nil {
		h.Rows = *v
	}
	if v := intValue(ds, tag.Columns); v != nil {
		h.Columns = *v
	}
	return h
}

// rawValues returns the element's values as strings, or nil when absent.
func rawValues(ds dicom.Dataset, t tag.Tag) []string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return nil
	}
	switch v := elem.Value.GetValue().(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			for _, part := range strings.Split(s, `\`) {
				out = append(out, cleanValue(part))
			}
		}
		return out
	case []int:
		out := make([]string, len(v))
		for i, n := range v {
			out[i] = strconv.Itoa(n)
		}
		return out
	case []float64:
		out := make([]string, len(v))
		for i, f := range v {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	default:
		s := cleanValue(strings.Trim(elem.Value.String(), " []"))
		if s == "" {
			return nil
		}
		return strings.Fields(s)
	}
}

func cleanValue(s string) string {
	return strings.Trim(s, " \x00")
}

func stringValue(ds dicom.Dataset, t tag.Tag) string {
	vals := rawValues(ds, t)
	if len(vals) == 0 {
		return ""
	}
	return strings.Join(vals, `\`)
}

func intValue(ds dicom.Dataset, t tag.Tag) *int {
	vals := rawValues(ds, t)
	if len(vals) == 0 || vals[0] == "" {
		return nil
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		f, ferr := strconv.ParseFloat(vals[0], 64)
		if ferr != nil {
			return nil
		}
		n = int(f)
	}
	return &n
}

func floatValue(ds dicom.Dataset, t tag.Tag) *float64 {
	vals := floatValues(ds, t)
	if len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

// floatValues parses every value of a decimal string element. It returns nil
// if any value fails to parse.
func floatValues(ds dicom.Dataset, t tag.Tag) []float64 {
	vals := rawValues(ds, t)
	if len(vals) == 0 {
		return nil
	}
	out := make([]float64, 0, len(vals))
	for _, s := range vals {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}
