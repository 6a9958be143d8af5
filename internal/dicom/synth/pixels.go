package synth

import (
	"image"
	"image/color"
	"math"
	randv2 "math/rand/v2"

	"github.com/suyashkumar/dicom/pkg/frame"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// fillFrame writes a radial gradient with layered noise, or a constant value
// when flat is set.
func fillFrame(f *frame.NativeFrame[uint16], size int, cfg pixelConfig, seed uint64, flat bool) {
	maxStored := float64(int(1)<<cfg.BitsStored - 1)
	if flat {
		v := uint16(math.Min(float64(cfg.BaseValue), maxStored))
		for i := range f.RawData {
			f.RawData[i] = v
		}
		return
	}

	rng := randv2.New(randv2.NewPCG(seed, seed))
	valueRange := float64(cfg.MaxValue - cfg.MinValue)
	center := float64(size) / 2
	maxDist := math.Sqrt(2 * center * center)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)-center, float64(y)-center
			dist := math.Sqrt(dx*dx+dy*dy) / maxDist
			intensity := float64(cfg.BaseValue) + (1.0-dist)*valueRange*0.3
			intensity += (rng.Float64() - 0.5) * valueRange * 0.3
			intensity += (rng.Float64() - 0.5) * valueRange * 0.15
			f.RawData[y*size+x] = uint16(math.Max(0, math.Min(maxStored, intensity)))
		}
	}
}

// drawLabel burns text into the middle of the frame, scaled to about 30% of
// the frame width and outlined in black.
func drawLabel(f *frame.NativeFrame[uint16], size int, cfg pixelConfig, text string) {
	face := basicfont.Face7x13
	baseW := font.MeasureString(face, text).Ceil()
	const baseH = 13
	if baseW == 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, baseW, baseH))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(color.Alpha{A: 255}),
		Face: face,
		Dot:  fixed.Point26_6{Y: fixed.I(baseH)},
	}
	d.DrawString(text)

	scale := math.Max(2.0, float64(size)*0.3/float64(baseW))
	w, h := int(float64(baseW)*scale), int(float64(baseH)*scale)
	scaled := image.NewAlpha(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), glyphs, glyphs.Bounds(), draw.Over, nil)

	x0, y0 := (size-w)/2, (size-h)/2
	white := uint16(cfg.MaxValue)
	outline := max(1, h/10)

	set := func(x, y int, v uint16) {
		if x >= 0 && x < size && y >= 0 && y < size {
			f.RawData[y*size+x] = v
		}
	}
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			if scaled.AlphaAt(sx, sy).A == 0 {
				continue
			}
			for dy := -outline; dy <= outline; dy++ {
				for dx := -outline; dx <= outline; dx++ {
					if dx*dx+dy*dy <= outline*outline {
						set(x0+sx+dx, y0+sy+dy, 0)
					}
				}
			}
		}
	}
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			if a := scaled.AlphaAt(sx, sy).A; a > 0 {
				set(x0+sx, y0+sy, uint16(uint32(white)*uint32(a)/255))
			}
		}
	}
}
