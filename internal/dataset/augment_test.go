package dataset

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"gocv.io/x/gocv"

	"charocr/internal/glyphtest"
	ocrimage "charocr/internal/image"
)

func inkPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128 {
				n++
			}
		}
	}
	return n
}

func grayMat(t *testing.T, img image.Image) gocv.Mat {
	t.Helper()
	src, err := ocrimage.FromImage(img)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}

func TestAugmentSampleWritesVariants(t *testing.T) {
	root := t.TempDir()
	ds := New(root, WithSeed(11))
	params := DefaultRandomParams()
	params.Count, params.Width, params.Height = 3, 40, 30

	paths, err := ds.AugmentSample("user-", classA, glyphtest.Draw(glyphtest.Cross, 64, 1), ocrimage.ExtPNG, params)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 || len(ds.Added()) != 3 {
		t.Fatalf("paths = %v, added = %v", paths, ds.Added())
	}
	for i, path := range paths {
		if want := filepath.Join(root, "a_small", "user-a_small."+strconv.Itoa(i)+".png"); path != want {
			t.Errorf("variant %d path = %s, want %s", i, path, want)
		}
		img, err := ocrimage.Read(path)
		if err != nil {
			t.Fatal(err)
		}
		if got := img.Bounds().Size(); got != (image.Point{40, 30}) {
			t.Errorf("variant %d size = %v", i, got)
		}
		if inkPixels(img) == 0 {
			t.Errorf("variant %d lost all ink", i)
		}
	}

	// Variants are undone one at a time, newest first.
	if ok, err := ds.RemoveLast(); !ok || err != nil {
		t.Fatalf("RemoveLast = %v, %v", ok, err)
	}
	if _, err := os.Stat(paths[2]); !os.IsNotExist(err) {
		t.Fatalf("newest variant still present: %v", err)
	}
}

func TestAugmentSampleIsReproducibleWithSeed(t *testing.T) {
	glyph := glyphtest.Draw(glyphtest.Ring, 48, 4)
	params := DefaultRandomParams()
	params.Count = 2

	var files [2][]byte
	for i := range files {
		paths, err := New(t.TempDir(), WithSeed(5)).AugmentSample("", classB, glyph, ocrimage.ExtBMP, params)
		if err != nil {
			t.Fatal(err)
		}
		if files[i], err = os.ReadFile(paths[1]); err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(files[0], files[1]) {
		t.Fatal("same seed produced different variants")
	}
}

func TestRandomVariantWithoutDistortionKeepsDrawing(t *testing.T) {
	glyph := glyphtest.Draw(glyphtest.Bar, 32, 2)
	gray := grayMat(t, glyph)
	defer gray.Close()

	img, err := randomVariant(gray, RandomParams{Width: 32, Height: 32}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			want := int(glyph.GrayAt(x, y).Y)
			got := int(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			if d := got - want; d > 1 || d < -1 {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestRandomVariantStrokeGrowth(t *testing.T) {
	gray := grayMat(t, glyphtest.Draw(glyphtest.Cross, 64, 3))
	defer gray.Close()

	ink := func(grow int) int {
		p := RandomParams{Width: 64, Height: 64, MinGrow: grow, MaxGrow: grow}
		img, err := randomVariant(gray, p, rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatal(err)
		}
		return inkPixels(img)
	}
	thin, plain, thick := ink(-1), ink(0), ink(2)
	if !(thin < plain && plain < thick) {
		t.Fatalf("ink for grow -1/0/2 = %d/%d/%d", thin, plain, thick)
	}
}

func TestRandomParamsValidate(t *testing.T) {
	base := DefaultRandomParams()
	tests := []struct {
		name   string
		mutate func(*RandomParams)
		ok     bool
	}{
		{"defaults", func(*RandomParams) {}, true},
		{"no variants", func(p *RandomParams) { p.Count = 0 }, true},
		{"negative count", func(p *RandomParams) { p.Count = -1 }, false},
		{"tiny", func(p *RandomParams) { p.Width = 4 }, false},
		{"empty growth", func(p *RandomParams) { p.MinGrow, p.MaxGrow = 2, 1 }, false},
		{"angle", func(p *RandomParams) { p.ZAngle = 400 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if err := p.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v", err)
			}
		})
	}
}

func TestAugmentSampleRejectsBadParams(t *testing.T) {
	root := t.TempDir()
	p := DefaultRandomParams()
	p.MinGrow, p.MaxGrow = 3, 0
	if _, err := New(root).AugmentSample("", classA, glyphtest.Blank(16), ocrimage.ExtPNG, p); err == nil {
		t.Fatal("bad params accepted")
	}
	if _, err := os.Stat(filepath.Join(root, "a_small")); !os.IsNotExist(err) {
		t.Fatalf("folder created for rejected params: %v", err)
	}
}
