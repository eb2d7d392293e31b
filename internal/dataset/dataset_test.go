package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"charocr/internal/classes"
	"charocr/internal/features"
	"charocr/internal/glyphtest"
	ocrimage "charocr/internal/image"
	"charocr/internal/ml"
)

var (
	classA = classes.Class{Value: "a", Repr: "a", Folder: "a_small"}
	classB = classes.Class{Value: "b", Repr: "b", Folder: "b_small"}
	classC = classes.Class{Value: "c", Repr: "c", Folder: "c_small"}
)

// populate writes count samples per class folder, alternating extensions.
func populate(t *testing.T, root string, counts map[classes.Class]int) {
	t.Helper()
	shape := glyphtest.Bar
	for cl, n := range counts {
		dir := filepath.Join(root, cl.Folder)
		png := (n + 1) / 2
		glyphtest.WriteSamples(t, dir, shape, png, ocrimage.ExtPNG)
		glyphtest.WriteSamples(t, dir, shape, n-png, ocrimage.ExtBMP)
		shape++
	}
}

func TestPreprocessSplitScenario(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[classes.Class]int{classA: 10})

	ds := New(root, WithSeed(1))
	if err := ds.Preprocess(classes.MustNew(classA), 10, 0.5, features.NewRawPixels()); err != nil {
		t.Fatal(err)
	}
	if ds.TrainCount() != 5 || ds.TestCount() != 5 {
		t.Fatalf("train/test = %d/%d, want 5/5", ds.TrainCount(), ds.TestCount())
	}
	train, labels := ds.Train()
	if train.Cols != 256 || len(labels) != train.Rows {
		t.Fatalf("train matrix %dx%d with %d labels", train.Rows, train.Cols, len(labels))
	}
}

func TestPreprocessRowSum(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[classes.Class]int{classA: 7, classB: 3, classC: 0})
	set := classes.MustNew(classA, classB, classC)

	tests := []struct {
		name      string
		max       int
		ratio     float64
		wantTrain int
		wantTest  int
	}{
		{"half", 50, 0.5, 4 + 2, 3 + 1},
		{"capped", 2, 0.5, 1 + 1, 1 + 1},
		{"all test", 50, 0, 0, 10},
		{"all train", 50, 1, 10, 0},
		{"ceil", 5, 0.3, 2 + 1, 3 + 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := New(root, WithSeed(7))
			if err := ds.Preprocess(set, tt.max, tt.ratio, features.NewRawPixels()); err != nil {
				t.Fatal(err)
			}
			if ds.TrainCount() != tt.wantTrain || ds.TestCount() != tt.wantTest {
				t.Fatalf("train/test = %d/%d, want %d/%d", ds.TrainCount(), ds.TestCount(), tt.wantTrain, tt.wantTest)
			}
			want := min(7, tt.max) + min(3, tt.max)
			if got := ds.TrainCount() + ds.TestCount(); got != want {
				t.Fatalf("rows = %d, want %d", got, want)
			}
			for _, part := range []func() (ml.Matrix, []int){ds.Train, ds.Test} {
				m, labels := part()
				if m.Rows != len(labels) || m.Cols != 256 {
					t.Fatalf("partition %dx%d with %d labels", m.Rows, m.Cols, len(labels))
				}
				if err := ml.CheckLabels(labels, set.Len()); err != nil {
					t.Fatal(err)
				}
			}
		})
	}
}

func TestPreprocessEmptyFolders(t *testing.T) {
	ds := New(t.TempDir())
	if err := ds.Preprocess(classes.MustNew(classA, classB), 10, 0.5, features.NewGradientHistogram()); err != nil {
		t.Fatal(err)
	}
	if ds.TrainCount() != 0 || ds.TestCount() != 0 {
		t.Fatalf("rows = %d/%d, want 0/0", ds.TrainCount(), ds.TestCount())
	}
	train, _ := ds.Train()
	if train.Cols != 64 {
		t.Fatalf("empty train width = %d, want 64", train.Cols)
	}
}

func TestPreprocessIsReproducibleWithSeed(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[classes.Class]int{classA: 6})
	set := classes.MustNew(classA)

	run := func() ml.Matrix {
		ds := New(root, WithSeed(42))
		if err := ds.Preprocess(set, 6, 0.5, features.NewRawPixels()); err != nil {
			t.Fatal(err)
		}
		m, _ := ds.Train()
		return m
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different partitions")
	}
}

func TestPreprocessRejectsBadParams(t *testing.T) {
	ds := New(t.TempDir())
	set := classes.MustNew(classA)
	if err := ds.Preprocess(set, 0, 0.5, features.NewRawPixels()); err == nil {
		t.Error("maxPerClass 0 accepted")
	}
	if err := ds.Preprocess(set, 10, 1.5, features.NewRawPixels()); err == nil {
		t.Error("ratio 1.5 accepted")
	}
}

func TestPreprocessUnreadableSample(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, classA.Folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	ds := New(root)
	if err := ds.Preprocess(classes.MustNew(classA), 10, 0.5, features.NewRawPixels()); err == nil {
		t.Fatal("corrupt sample accepted")
	}
}

func TestAppendTrainAndReplaceTest(t *testing.T) {
	root := t.TempDir()
	populate(t, root, map[classes.Class]int{classA: 4, classB: 4})
	ds := New(root, WithSeed(3))
	if err := ds.Preprocess(classes.MustNew(classA, classB), 10, 0.5, features.NewRawPixels()); err != nil {
		t.Fatal(err)
	}
	test, labels := ds.Test()
	moved := test.Select([]int{0})
	if err := ds.AppendTrain(moved, labels[:1]); err != nil {
		t.Fatal(err)
	}
	if ds.TrainCount() != 5 {
		t.Fatalf("train rows = %d, want 5", ds.TrainCount())
	}
	if err := ds.ReplaceTest(test.Select([]int{1, 2}), labels[1:3]); err != nil {
		t.Fatal(err)
	}
	if ds.TestCount() != 2 {
		t.Fatalf("test rows = %d, want 2", ds.TestCount())
	}
	if err := ds.ReplaceTest(ml.Matrix{}, nil); err != nil {
		t.Fatal(err)
	}
	if got, _ := ds.Test(); got.Rows != 0 || got.Cols != 256 {
		t.Fatalf("empty test = %dx%d", got.Rows, got.Cols)
	}

	if err := ds.AppendTrain(moved, nil); err == nil {
		t.Error("row/label mismatch accepted")
	}
	if err := ds.AppendTrain(moved, []int{9}); err == nil {
		t.Error("invalid label accepted")
	}
}

func TestAddSampleAndRemoveLast(t *testing.T) {
	root := t.TempDir()
	ds := New(root)

	first, err := ds.AddSample("user-", classA, glyphtest.Draw(glyphtest.Ring, 32, 1), ocrimage.ExtPNG)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(root, "a_small", "user-a_small.0.png"); first != want {
		t.Fatalf("path = %s, want %s", first, want)
	}
	second, err := ds.AddSample("user-", classA, glyphtest.Draw(glyphtest.Ring, 32, 2), ocrimage.ExtPNG)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "user-a_small.1.png" {
		t.Fatalf("second path = %s", second)
	}

	// The freed slot is reused.
	if err := os.Remove(first); err != nil {
		t.Fatal(err)
	}
	third, err := ds.AddSample("user-", classA, glyphtest.Draw(glyphtest.Ring, 32, 3), ocrimage.ExtBMP)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(third) != "user-a_small.0.bmp" {
		t.Fatalf("third path = %s", third)
	}
	if _, err := os.Stat(filepath.Join(root, "a_small", "user-a_small.0.png")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected file state: %v", err)
	}

	ok, err := ds.RemoveLast()
	if err != nil || !ok {
		t.Fatalf("RemoveLast = %v, %v", ok, err)
	}
	if _, err := os.Stat(third); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("last sample still on disk")
	}
	if got := ds.Added(); len(got) != 2 || got[1] != second {
		t.Fatalf("Added = %v", got)
	}

	ds.last = nil
	if ok, err := ds.RemoveLast(); ok || err != nil {
		t.Fatalf("RemoveLast on empty history = %v, %v", ok, err)
	}
}

func TestRemoveLastWithHistory(t *testing.T) {
	root := t.TempDir()
	path, err := New(root).AddSample("", classA, glyphtest.Draw(glyphtest.Bar, 32, 1), ocrimage.ExtPNG)
	if err != nil {
		t.Fatal(err)
	}
	ds := New(root, WithHistory([]string{path}))
	if ok, err := ds.RemoveLast(); !ok || err != nil {
		t.Fatalf("RemoveLast = %v, %v", ok, err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("sample from history still on disk")
	}
}

func TestRemoveLastAlreadyDeleted(t *testing.T) {
	root := t.TempDir()
	ds := New(root)
	first, err := ds.AddSample("", classA, glyphtest.Draw(glyphtest.Bar, 32, 1), ocrimage.ExtPNG)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ds.AddSample("", classA, glyphtest.Draw(glyphtest.Bar, 32, 2), ocrimage.ExtPNG)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(second); err != nil {
		t.Fatal(err)
	}

	if ok, err := ds.RemoveLast(); !ok || err != nil {
		t.Fatalf("RemoveLast of a missing file = %v, %v", ok, err)
	}
	if got := ds.Added(); len(got) != 1 || got[0] != first {
		t.Fatalf("Added = %v", got)
	}
	if ok, err := ds.RemoveLast(); !ok || err != nil {
		t.Fatalf("RemoveLast = %v, %v", ok, err)
	}
	if _, err := os.Stat(first); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("older sample still on disk")
	}
}

func TestAddSampleRejectsExtension(t *testing.T) {
	ds := New(t.TempDir())
	if _, err := ds.AddSample("", classA, glyphtest.Blank(8), ".jpg"); err == nil {
		t.Fatal("jpg accepted")
	}
}
