package image_test

import (
	"bytes"
	"errors"
	"image/png"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"

	ocrimage "charocr/internal/image"
	"charocr/internal/glyphtest"
)

func matsEqual(t *testing.T, a, b gocv.Mat) {
	t.Helper()
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Channels() != b.Channels() {
		t.Fatalf("shape %dx%dx%d != %dx%dx%d", a.Rows(), a.Cols(), a.Channels(), b.Rows(), b.Cols(), b.Channels())
	}
	if !bytes.Equal(a.ToBytes(), b.ToBytes()) {
		t.Fatal("pixel data differs")
	}
}

func TestLoadFormatsMatchInMemory(t *testing.T) {
	dir := t.TempDir()
	glyph := glyphtest.Draw(glyphtest.Ring, 40, 7)

	mem, err := ocrimage.FromImage(glyph)
	if err != nil {
		t.Fatal(err)
	}
	defer mem.Close()
	if mem.Channels() != 3 || mem.Rows() != 40 || mem.Cols() != 40 {
		t.Fatalf("FromImage shape = %dx%dx%d", mem.Rows(), mem.Cols(), mem.Channels())
	}

	for _, ext := range []string{ocrimage.ExtPNG, ocrimage.ExtBMP} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "glyph"+ext)
			if err := ocrimage.Save(path, glyph); err != nil {
				t.Fatal(err)
			}
			loaded, err := ocrimage.Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			defer loaded.Close()
			matsEqual(t, mem, loaded)
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, glyph); err != nil {
		t.Fatal(err)
	}
	decoded, err := ocrimage.DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	defer decoded.Close()
	matsEqual(t, mem, decoded)
}

func TestLoadMissingFile(t *testing.T) {
	m, err := ocrimage.Load(filepath.Join(t.TempDir(), "nope.png"))
	defer m.Close()
	if !errors.Is(err, ocrimage.ErrMissingFile) {
		t.Fatalf("Load() err = %v, want ErrMissingFile", err)
	}
}

func TestHasExt(t *testing.T) {
	tests := map[string]bool{
		"a.png":  true,
		"a.BMP":  true,
		"a.jpg":  false,
		"a":      false,
		"a.png~": false,
	}
	for name, want := range tests {
		if got := ocrimage.HasExt(name); got != want {
			t.Errorf("HasExt(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSaveRejectsUnknownExt(t *testing.T) {
	if err := ocrimage.Save(filepath.Join(t.TempDir(), "x.gif"), glyphtest.Blank(8)); err == nil {
		t.Fatal("Save() accepted .gif")
	}
}
