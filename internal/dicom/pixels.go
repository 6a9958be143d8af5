package dicom

import (
	"fmt"
	"math"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// pixelStats accumulates pooled intensity statistics over many frames.
type pixelStats struct {
	n    int
	min  float64
	max  float64
	mean float64
	m2   float64
}

func (s *pixelStats) add(v float64) {
	if s.n == 0 {
		s.min, s.max = v, v
	} else {
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	s.n++
	d := v - s.mean
	s.mean += d / float64(s.n)
	s.m2 += d * (v - s.mean)
}

// std returns the population standard deviation.
func (s *pixelStats) std() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.n))
}

// pixelFile describes the pixel array of one file after it has been folded
// into a pixelStats.
type pixelFile struct {
	rows   int
	cols   int
	frames int
	dtype  string
}

// readPixels parses path including pixel data and feeds every sample of every
// native frame into stats.
func readPixels(path string, stats *pixelStats) (*pixelFile, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, fmt.Errorf("no pixel data in %s", path)
	}
	info, ok := elem.Value.GetValue().(dicom.PixelDataInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected pixel data value in %s", path)
	}
	if len(info.Frames) == 0 {
		return nil, fmt.Errorf("pixel data in %s has no frames", path)
	}

	signed := false
	if rep := intValue(ds, tag.PixelRepresentation); rep != nil && *rep == 1 {
		signed = true
	}

	pf := &pixelFile{frames: len(info.Frames)}
	for i, fr := range info.Frames {
		if fr == nil || fr.Encapsulated || fr.NativeData == nil {
			return nil, fmt.Errorf("frame %d of %s is encapsulated or empty: compressed transfer syntaxes are not supported", i, path)
		}
		rows, cols, dtype, err := addFrame(fr.NativeData, signed, stats)
		if err != nil {
			return nil, fmt.Errorf("frame %d of %s: %w", i, path, err)
		}
		pf.rows, pf.cols, pf.dtype = rows, cols, dtype
	}
	return pf, nil
}

func addFrame(native frame.INativeFrame, signed bool, stats *pixelStats) (rows, cols int, dtype string, err error) {
	switch f := native.(type) {
	case *frame.NativeFrame[uint8]:
		for _, v := range f.RawData {
			if signed {
				stats.add(float64(int8(v)))
			} else {
				stats.add(float64(v))
			}
		}
		return f.Rows(), f.Cols(), sampleType("int8", "uint8", signed), nil
	case *frame.NativeFrame[uint16]:
		for _, v := range f.RawData {
			if signed {
				stats.add(float64(int16(v)))
			} else {
				stats.add(float64(v))
			}
		}
		return f.Rows(), f.Cols(), sampleType("int16", "uint16", signed), nil
	case *frame.NativeFrame[uint32]:
		for _, v := range f.RawData {
			if signed {
				stats.add(float64(int32(v)))
			} else {
				stats.add(float64(v))
			}
		}
		return f.Rows(), f.Cols(), sampleType("int32", "uint32", signed), nil
	default:
		return 0, 0, "", fmt.Errorf("unsupported native frame type %T", native)
	}
}

func sampleType(signedName, unsignedName string, signed bool) string {
	if signed {
		return signedName
	}
	return unsignedName
}
