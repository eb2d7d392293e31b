package dataset

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"gocv.io/x/gocv"

	"charocr/internal/classes"
	ocrimage "charocr/internal/image"
)

// RandomParams describes the random variants generated from one drawn sample.
type RandomParams struct {
	Count  int // variants per sample
	Width  int // output size in pixels
	Height int

	// Stroke width change in pixels, drawn uniformly from [MinGrow, MaxGrow].
	// Negative values thin the strokes.
	MinGrow int
	MaxGrow int

	// Maximum rotation in degrees. X and Y tilt the drawing out of the page,
	// which foreshortens it vertically or horizontally; Z turns it in the page.
	XAngle float64
	YAngle float64
	ZAngle float64
}

// DefaultRandomParams mirrors the drawing panel: five 150x150 variants,
// tilted up to 70 and 50 degrees and turned up to 12.
func DefaultRandomParams() RandomParams {
	return RandomParams{
		Count:   5,
		Width:   150,
		Height:  150,
		MinGrow: -1,
		MaxGrow: 3,
		XAngle:  70,
		YAngle:  50,
		ZAngle:  12,
	}
}

func (p RandomParams) Validate() error {
	if p.Count < 0 {
		return fmt.Errorf("variant count must not be negative, got %d", p.Count)
	}
	if p.Width < 5 || p.Height < 5 {
		return fmt.Errorf("variant size %dx%d below 5x5", p.Width, p.Height)
	}
	if p.MinGrow > p.MaxGrow {
		return fmt.Errorf("stroke growth range [%d,%d] is empty", p.MinGrow, p.MaxGrow)
	}
	for _, a := range []float64{p.XAngle, p.YAngle, p.ZAngle} {
		if a < 0 || a > 360 || math.IsNaN(a) {
			return fmt.Errorf("rotation %v outside [0,360]", a)
		}
	}
	return nil
}

// AugmentSample stores p.Count random variants of img in the folder of cl,
// named like AddSample does, and returns their paths. Each variant can be
// undone with RemoveLast.
func (d *Dataset) AugmentSample(prefix string, cl classes.Class, img image.Image, ext string, p RandomParams) ([]string, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	src, err := ocrimage.FromImage(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	paths := make([]string, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		variant, err := randomVariant(gray, p, d.rnd)
		if err != nil {
			return paths, err
		}
		path, err := d.AddSample(prefix, cl, variant, ext)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// randomVariant tilts, turns and re-strokes a dark-on-white gray drawing and
// resizes it to p.Width x p.Height.
func randomVariant(gray gocv.Mat, p RandomParams, rnd *rand.Rand) (image.Image, error) {
	uniform := func(limit float64) float64 { return (rnd.Float64()*2 - 1) * limit }
	grow := p.MinGrow + rnd.Intn(p.MaxGrow-p.MinGrow+1)
	tiltX := uniform(p.XAngle) * math.Pi / 180
	tiltY := uniform(p.YAngle) * math.Pi / 180
	turn := uniform(p.ZAngle) * math.Pi / 180

	// Scale about the centre by the projected tilt, then rotate.
	w, h := gray.Cols(), gray.Rows()
	cx, cy := float64(w)/2, float64(h)/2
	sx, sy := math.Cos(tiltY), math.Cos(tiltX)
	cos, sin := math.Cos(turn), math.Sin(turn)
	a, b := cos*sx, -sin*sy
	c, d := sin*sx, cos*sy

	transform := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transform.Close()
	transform.SetDoubleAt(0, 0, a)
	transform.SetDoubleAt(0, 1, b)
	transform.SetDoubleAt(0, 2, cx-a*cx-b*cy)
	transform.SetDoubleAt(1, 0, c)
	transform.SetDoubleAt(1, 1, d)
	transform.SetDoubleAt(1, 2, cy-c*cx-d*cy)

	warped := gocv.NewMat()
	defer warped.Close()
	gocv.WarpAffineWithParams(gray, &warped, transform, image.Point{w, h},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	// Ink is dark: eroding the white background widens the strokes.
	stroked := gocv.NewMat()
	defer stroked.Close()
	if grow == 0 {
		warped.CopyTo(&stroked)
	} else {
		size := 2*abs(grow) + 1
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{size, size})
		defer kernel.Close()
		if grow > 0 {
			gocv.Erode(warped, &stroked, kernel)
		} else {
			gocv.Dilate(warped, &stroked, kernel)
		}
	}

	out := gocv.NewMat()
	defer out.Close()
	gocv.Resize(stroked, &out, image.Point{p.Width, p.Height}, 0, 0, gocv.InterpolationLinear)
	img, err := out.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert variant: %w", err)
	}
	return img, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
