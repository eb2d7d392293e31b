package features

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// GradientHistogramName identifies the gradient-histogram pipeline.
const GradientHistogramName = "gradient-histogram"

// HistogramNorm selects how the concatenated histogram is normalised.
type HistogramNorm int

const (
	// NormL2 divides the histogram by its L2 norm.
	NormL2 HistogramNorm = iota
	// NormHellinger sum-normalises, takes square roots, then L2-normalises.
	NormHellinger
)

func (n HistogramNorm) String() string {
	switch n {
	case NormL2:
		return "l2"
	case NormHellinger:
		return "hellinger"
	default:
		return fmt.Sprintf("HistogramNorm(%d)", int(n))
	}
}

const (
	histogramEps = 1e-7
	deskewEps    = 1e-2
	sobelKernel  = 3
)

// GradientHistogram encodes a deskewed glyph as four per-quadrant histograms
// of gradient orientation weighted by gradient magnitude.
type GradientHistogram struct {
	Side int
	Bins int
	Norm HistogramNorm
}

// NewGradientHistogram returns the 20x20, 16-bin, L2-normalised pipeline.
func NewGradientHistogram() GradientHistogram {
	return GradientHistogram{Side: 20, Bins: 16, Norm: NormL2}
}

func (p GradientHistogram) Name() string { return GradientHistogramName }

func (p GradientHistogram) Dim() int { return 4 * p.Bins }

// Extract implements Pipeline.
func (p GradientHistogram) Extract(src gocv.Mat) ([]float64, error) {
	square, err := Preprocess(src, p.Side)
	if err != nil {
		return nil, err
	}
	defer square.Close()

	straight := Deskew(square, p.Side)
	defer straight.Close()

	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(straight, &gx, gocv.MatTypeCV32F, 1, 0, sobelKernel, 1, 0, gocv.BorderDefault)
	gocv.Sobel(straight, &gy, gocv.MatTypeCV32F, 0, 1, sobelKernel, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	defer mag.Close()
	ang := gocv.NewMat()
	defer ang.Close()
	gocv.CartToPolar(gx, gy, &mag, &ang, false)

	hist := make([]float64, p.Dim())
	half := p.Side / 2
	for y := 0; y < p.Side; y++ {
		for x := 0; x < p.Side; x++ {
			bin := int(float64(p.Bins) * float64(ang.GetFloatAt(y, x)) / (2 * math.Pi))
			bin = min(max(bin, 0), p.Bins-1)
			// Cells: top-left, bottom-left, top-right, bottom-right.
			cell := 0
			if y >= half {
				cell++
			}
			if x >= half {
				cell += 2
			}
			hist[cell*p.Bins+bin] += float64(mag.GetFloatAt(y, x))
		}
	}

	switch p.Norm {
	case NormHellinger:
		floats.Scale(1/(floats.Sum(hist)+histogramEps), hist)
		for i, v := range hist {
			hist[i] = math.Sqrt(v)
		}
		floats.Scale(1/(floats.Norm(hist, 2)+histogramEps), hist)
	default:
		floats.Scale(1/(floats.Norm(hist, 2)+histogramEps), hist)
	}
	return hist, nil
}

// Deskew removes the horizontal shear of a glyph estimated from its
// second-order central moments. Images with a negligible vertical moment are
// returned unchanged (as a copy).
func Deskew(img gocv.Mat, side int) gocv.Mat {
	m := gocv.Moments(img, false)
	if math.Abs(m["mu02"]) < deskewEps {
		return img.Clone()
	}
	skew := m["mu11"] / m["mu02"]

	// The correcting map is x' = x + skew*y - side*skew/2 applied as a
	// destination-to-source lookup; warpAffine inverts its argument, so pass
	// the inverse shear.
	transform := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transform.Close()
	transform.SetDoubleAt(0, 0, 1)
	transform.SetDoubleAt(0, 1, -skew)
	transform.SetDoubleAt(0, 2, 0.5*float64(side)*skew)
	transform.SetDoubleAt(1, 0, 0)
	transform.SetDoubleAt(1, 1, 1)
	transform.SetDoubleAt(1, 2, 0)

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(img, &dst, transform, image.Point{side, side},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst
}
