// Package dataset enumerates the per-class sample folders, extracts feature
// vectors and partitions them into train and test matrices.
package dataset

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"charocr/internal/classes"
	"charocr/internal/features"
	ocrimage "charocr/internal/image"
	"charocr/internal/ml"
)

// Dataset owns a root folder laid out as root/<class folder>/*.{bmp,png} and
// the train/test partition built from it by Preprocess.
type Dataset struct {
	root string
	rnd  *rand.Rand

	classes     classes.Set
	maxPerClass int
	trainRatio  float64

	train       ml.Matrix
	trainLabels []int
	test        ml.Matrix
	testLabels  []int

	// last holds the paths written by AddSample, oldest first.
	last []string
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithSeed makes the per-class shuffle reproducible.
func WithSeed(seed int64) Option {
	return func(d *Dataset) { d.rnd = rand.New(rand.NewSource(seed)) }
}

// WithHistory seeds the undo history of AddSample with paths from an earlier
// session, oldest first.
func WithHistory(paths []string) Option {
	return func(d *Dataset) { d.last = append([]string(nil), paths...) }
}

// New returns an empty dataset rooted at root.
func New(root string, opts ...Option) *Dataset {
	d := &Dataset{root: root}
	for _, opt := range opts {
		opt(d)
	}
	if d.rnd == nil {
		d.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return d
}

// FromPartitions builds a dataset from already extracted partitions, for
// samples that never touch the disk.
func FromPartitions(set classes.Set, train ml.Matrix, trainLabels []int, test ml.Matrix, testLabels []int) (*Dataset, error) {
	if !train.Empty() && !test.Empty() && train.Cols != test.Cols {
		return nil, fmt.Errorf("train has %d features, test has %d", train.Cols, test.Cols)
	}
	d := New("")
	d.classes = set
	d.trainRatio = float64(train.Rows) / math.Max(1, float64(train.Rows+test.Rows))
	if train.Cols == 0 {
		train.Cols = test.Cols
	}
	if test.Cols == 0 {
		test.Cols = train.Cols
	}
	d.train, d.test = ml.Matrix{Cols: train.Cols}, ml.Matrix{Cols: test.Cols}
	if err := d.AppendTrain(train, trainLabels); err != nil {
		return nil, fmt.Errorf("train partition: %w", err)
	}
	if err := d.ReplaceTest(test, testLabels); err != nil {
		return nil, fmt.Errorf("test partition: %w", err)
	}
	return d, nil
}

func (d *Dataset) Root() string { return d.root }

func (d *Dataset) SetRoot(root string) { d.root = root }

// Classes returns the class set of the last Preprocess call.
func (d *Dataset) Classes() classes.Set { return d.classes }

// Class maps a label back to its class.
func (d *Dataset) Class(label int) classes.Class { return d.classes.At(label) }

func (d *Dataset) MaxPerClass() int { return d.maxPerClass }

func (d *Dataset) TrainRatio() float64 { return d.trainRatio }

// Train returns the train matrix and its parallel labels.
func (d *Dataset) Train() (ml.Matrix, []int) { return d.train, d.trainLabels }

// Test returns the test matrix and its parallel labels.
func (d *Dataset) Test() (ml.Matrix, []int) { return d.test, d.testLabels }

func (d *Dataset) TrainCount() int { return d.train.Rows }

func (d *Dataset) TestCount() int { return d.test.Rows }

// Preprocess rebuilds both partitions from disk. For every class the sample
// files are shuffled and capped to maxPerClass, then the first
// ceil(n*trainRatio) feature vectors go to train and the rest to test.
// A missing or empty class folder contributes no rows.
func (d *Dataset) Preprocess(set classes.Set, maxPerClass int, trainRatio float64, p features.Pipeline) error {
	if maxPerClass < 1 {
		return fmt.Errorf("max samples per class must be positive, got %d", maxPerClass)
	}
	if trainRatio < 0 || trainRatio > 1 || math.IsNaN(trainRatio) {
		return fmt.Errorf("train ratio must be within [0,1], got %v", trainRatio)
	}

	train := ml.Matrix{Cols: p.Dim()}
	test := ml.Matrix{Cols: p.Dim()}
	var trainLabels, testLabels []int

	for label, cl := range set.All() {
		images, err := listImages(filepath.Join(d.root, cl.Folder))
		if err != nil {
			return err
		}
		d.rnd.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })
		n := min(len(images), maxPerClass)
		trainCount := min(int(math.Ceil(float64(n)*trainRatio)), n)

		for i, path := range images[:n] {
			vec, err := extractFile(p, path)
			if err != nil {
				return fmt.Errorf("class %s: %w", cl.Repr, err)
			}
			if i < trainCount {
				train.Data = append(train.Data, vec...)
				train.Rows++
				trainLabels = append(trainLabels, label)
			} else {
				test.Data = append(test.Data, vec...)
				test.Rows++
				testLabels = append(testLabels, label)
			}
		}
		if n > 0 {
			log.Printf("[dataset] %s: %d samples (%d train, %d test)", cl.Folder, n, trainCount, n-trainCount)
		}
	}

	d.classes = set
	d.maxPerClass = maxPerClass
	d.trainRatio = trainRatio
	d.train, d.trainLabels = train, trainLabels
	d.test, d.testLabels = test, testLabels
	return nil
}

// AppendTrain grows the train partition with rows moved out of test.
func (d *Dataset) AppendTrain(rows ml.Matrix, labels []int) error {
	if err := d.checkRows(rows, labels); err != nil {
		return err
	}
	if err := d.train.AppendRows(rows); err != nil {
		return err
	}
	d.trainLabels = append(d.trainLabels, labels...)
	return nil
}

// ReplaceTest swaps the test partition for the given rows.
func (d *Dataset) ReplaceTest(rows ml.Matrix, labels []int) error {
	if err := d.checkRows(rows, labels); err != nil {
		return err
	}
	if rows.Empty() {
		rows = ml.Matrix{Cols: d.test.Cols}
	}
	d.test = rows.Clone()
	d.testLabels = append([]int(nil), labels...)
	return nil
}

func (d *Dataset) checkRows(rows ml.Matrix, labels []int) error {
	if rows.Rows != len(labels) {
		return fmt.Errorf("%d rows but %d labels", rows.Rows, len(labels))
	}
	return ml.CheckLabels(labels, d.classes.Len())
}

// listImages returns the sample files of folder sorted by name. A missing
// folder yields no images.
func listImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !ocrimage.HasExt(e.Name()) {
			continue
		}
		images = append(images, filepath.Join(folder, e.Name()))
	}
	sort.Strings(images)
	return images, nil
}

func extractFile(p features.Pipeline, path string) ([]float64, error) {
	img, err := ocrimage.Load(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	vec, err := p.Extract(img)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	return vec, nil
}
