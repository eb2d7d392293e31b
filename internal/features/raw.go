package features

import (
	"gocv.io/x/gocv"
)

// RawPixelsName identifies the raw-pixel pipeline.
const RawPixelsName = "raw-pixels"

// RawPixels flattens the normalised square glyph into intensities in [0, 1].
type RawPixels struct {
	Side int
}

// NewRawPixels returns the 16x16 raw-pixel pipeline.
func NewRawPixels() RawPixels {
	return RawPixels{Side: 16}
}

func (p RawPixels) Name() string { return RawPixelsName }

func (p RawPixels) Dim() int { return p.Side * p.Side }

// Extract implements Pipeline.
func (p RawPixels) Extract(src gocv.Mat) ([]float64, error) {
	square, err := Preprocess(src, p.Side)
	if err != nil {
		return nil, err
	}
	defer square.Close()

	vec := make([]float64, 0, p.Dim())
	for y := 0; y < p.Side; y++ {
		for x := 0; x < p.Side; x++ {
			vec = append(vec, float64(square.GetUCharAt(y, x))/255)
		}
	}
	return vec, nil
}
