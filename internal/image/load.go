// Package image loads hand-drawn raster samples into OpenCV matrices and writes
// captured samples back to disk.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
)

// ErrMissingFile is returned when a referenced image path does not exist.
var ErrMissingFile = errors.New("image file not found")

// Supported sample extensions.
const (
	ExtBMP = ".bmp"
	ExtPNG = ".png"
)

// HasExt reports whether name carries a supported raster extension.
func HasExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtBMP, ExtPNG:
		return true
	}
	return false
}

// Read decodes an image file into a Go image.
func Read(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, err := decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Load reads an image file and converts it to a BGR matrix.
// The caller owns the returned Mat.
func Load(path string) (gocv.Mat, error) {
	img, err := Read(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	return FromImage(img)
}

// Decode converts an encoded PNG or BMP stream to a BGR matrix without going
// through the filesystem.
func Decode(r io.Reader) (gocv.Mat, error) {
	img, err := decode(r)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img)
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(data []byte) (gocv.Mat, error) {
	return Decode(bytes.NewReader(data))
}

// decode relies on the png and bmp packages having registered their formats.
func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	return img, err
}

// FromImage converts a Go image to a 3-channel BGR matrix. Files and in-memory
// bitmaps both pass through here, so the pipeline sees identical pixels.
func FromImage(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	bgr := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			bgr = append(bgr, p[2], p[1], p[0])
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, bgr)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert image: %w", err)
	}
	// Detach from the Go buffer.
	out := mat.Clone()
	mat.Close()
	runtime.KeepAlive(bgr)
	return out, nil
}

// Save writes img as PNG or BMP, chosen by the path extension.
func Save(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtBMP:
		err = bmp.Encode(f, img)
	case ExtPNG:
		err = png.Encode(f, img)
	default:
		err = fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write image %s: %w", path, err)
	}
	return nil
}
