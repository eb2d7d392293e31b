// Package glyphtest renders synthetic hand-drawn glyphs for tests: black
// strokes on a white canvas, like the drawing area produces.
package glyphtest

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"testing"

	ocrimage "charocr/internal/image"
)

// Shape selects the stroke pattern of a glyph.
type Shape int

const (
	Bar    Shape = iota // vertical stroke
	Dash                // horizontal stroke
	Ring                // circle outline
	Cross               // X
	Dotted              // short bar with a detached dot above, like "i"
)

// Draw renders shape on a size x size white canvas. Variant perturbs position,
// length and thickness deterministically.
func Draw(shape Shape, size int, variant int64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	rnd := rand.New(rand.NewSource(variant))
	s := float64(size)
	jitter := func(f float64) float64 { return (rnd.Float64() - 0.5) * f * s }
	thick := s*0.06 + rnd.Float64()*s*0.03
	cx, cy := s/2+jitter(0.1), s/2+jitter(0.1)

	switch shape {
	case Bar:
		half := s*0.3 + jitter(0.05)
		line(img, cx, cy-half, cx+jitter(0.05), cy+half, thick)
	case Dash:
		half := s*0.3 + jitter(0.05)
		line(img, cx-half, cy, cx+half, cy+jitter(0.05), thick)
	case Ring:
		r := s*0.25 + jitter(0.05)
		const steps = 48
		for i := 0; i < steps; i++ {
			a0 := 2 * math.Pi * float64(i) / steps
			a1 := 2 * math.Pi * float64(i+1) / steps
			line(img, cx+r*math.Cos(a0), cy+r*math.Sin(a0), cx+r*math.Cos(a1), cy+r*math.Sin(a1), thick)
		}
	case Cross:
		half := s*0.28 + jitter(0.05)
		line(img, cx-half, cy-half, cx+half, cy+half, thick)
		line(img, cx-half, cy+half, cx+half, cy-half, thick)
	case Dotted:
		half := s*0.2 + jitter(0.04)
		line(img, cx, cy-half/2, cx, cy+half*1.5, thick)
		disc(img, cx, cy-half*1.5, thick)
	}
	return img
}

// Blank returns an empty white canvas.
func Blank(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func line(img *image.Gray, x0, y0, x1, y1, thick float64) {
	steps := int(math.Hypot(x1-x0, y1-y0)) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		disc(img, x0+(x1-x0)*t, y0+(y1-y0)*t, thick)
	}
}

func disc(img *image.Gray, cx, cy, r float64) {
	b := img.Bounds()
	for y := int(cy - r); y <= int(cy+r); y++ {
		for x := int(cx - r); x <= int(cx+r); x++ {
			if !(image.Point{x, y}).In(b) {
				continue
			}
			if math.Hypot(float64(x)-cx, float64(y)-cy) <= r {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}

// WriteSamples writes count variants of shape into dir as name.N.ext and
// returns the paths.
func WriteSamples(t testing.TB, dir string, shape Shape, count int, ext string) []string {
	t.Helper()
	paths := make([]string, 0, count)
	for i := 0; i < count; i++ {
		p := filepath.Join(dir, "sample."+strconv.Itoa(i)+ext)
		if err := ocrimage.Save(p, Draw(shape, 48, int64(i)+int64(shape)*1000)); err != nil {
			t.Fatalf("write sample: %v", err)
		}
		paths = append(paths, p)
	}
	return paths
}
