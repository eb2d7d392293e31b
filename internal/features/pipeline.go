// Package features turns raw character bitmaps into fixed-length numeric
// vectors. Every pipeline shares the same ink isolation stages and differs only
// in how the normalised square glyph is encoded.
package features

import (
	"errors"
	"fmt"
	"image"

	"charocr/pkg/geometry"

	"gocv.io/x/gocv"
)

// Pipeline is a pure, deterministic function from a raw image to a vector of
// length Dim().
type Pipeline interface {
	Name() string
	Dim() int
	Extract(src gocv.Mat) ([]float64, error)
}

// Stage parameters shared by all variants.
const (
	blurKernel     = 5
	thresholdMax   = 255
	thresholdBlock = 11
	thresholdC     = 2
)

// ErrEmptyImage is returned for a Mat with no pixels.
var ErrEmptyImage = errors.New("empty image")

// Preprocess isolates the ink of a hand-drawn character and returns it as an
// 8-bit side x side square: gray, blurred, locally thresholded (ink = 255),
// cropped to the union of all contour boxes, centred on a black square and
// resized. The caller owns the returned Mat.
func Preprocess(src gocv.Mat, side int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), ErrEmptyImage
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", src.Channels())
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{blurKernel, blurKernel}, 0, 0, gocv.BorderDefault)

	// Threshold must stay local: ink density varies with brush size.
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.AdaptiveThreshold(blurred, &mask, thresholdMax,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, thresholdBlock, thresholdC)

	cropped := cropToInk(mask)
	defer cropped.Close()

	squared := padSquare(cropped)
	defer squared.Close()

	out := gocv.NewMat()
	gocv.Resize(squared, &out, image.Point{side, side}, 0, 0, gocv.InterpolationLinear)
	return out, nil
}

// InkBounds returns the union of the bounding boxes of every contour in mask.
// ok is false when there is no ink.
func InkBounds(mask gocv.Mat) (geometry.RectInt, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return geometry.RectInt{}, false
	}

	// A single contour is not enough: "i" or "%" have detached parts.
	rects := make([]geometry.RectInt, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rects = append(rects, geometry.FromImageRect(gocv.BoundingRect(contours.At(i))))
	}
	box := geometry.UnionAll(rects)
	return box, !box.Empty()
}

// cropToInk returns a copy of mask cropped to its ink, or an unchanged copy
// when no contour is found.
func cropToInk(mask gocv.Mat) gocv.Mat {
	box, ok := InkBounds(mask)
	if !ok {
		return mask.Clone()
	}
	region := mask.Region(box.ImageRect())
	defer region.Close()
	return region.Clone()
}

// padSquare centres src on a zero-filled square whose side is the larger
// dimension of src.
func padSquare(src gocv.Mat) gocv.Mat {
	h, w := src.Rows(), src.Cols()
	side := max(h, w)
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), side, side, gocv.MatTypeCV8U)

	roi := square.Region(geometry.CenterIn(side, w, h).ImageRect())
	src.CopyTo(&roi)
	roi.Close()
	return square
}

// ByName returns the pipeline registered under name.
func ByName(name string) (Pipeline, error) {
	switch name {
	case RawPixelsName:
		return NewRawPixels(), nil
	case GradientHistogramName:
		return NewGradientHistogram(), nil
	}
	return nil, fmt.Errorf("unknown feature pipeline %q", name)
}
