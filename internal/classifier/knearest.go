package classifier

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"charocr/internal/features"
	"charocr/internal/ml"
)

// neighbours is the k of the majority vote.
const neighbours = 6

// knnMagic starts every KNearest model file.
var knnMagic = [4]byte{'C', 'K', 'N', 'N'}

// kNearest keeps its training samples and votes among the nearest ones.
type kNearest struct {
	classCount int
	pipeline   features.Pipeline

	samples ml.Matrix
	labels  []int
	tree    *kdtree.Tree
}

func newKNearest(classCount int, o options) *kNearest {
	return &kNearest{classCount: classCount, pipeline: o.pipeline}
}

func (k *kNearest) Type() Type                  { return KNearest }
func (k *kNearest) ClassCount() int             { return k.classCount }
func (k *kNearest) Pipeline() features.Pipeline { return k.pipeline }
func (k *kNearest) Trained() bool               { return !k.samples.Empty() }

// Train stores the samples. With updateBase they are appended to the stored
// ones.
func (k *kNearest) Train(samples ml.Matrix, labels []int, updateBase bool) error {
	if err := checkTrainInput(samples, labels, k.classCount); err != nil {
		return err
	}
	if updateBase {
		if k.samples.Empty() {
			return nil
		}
		merged, err := ml.Concat(k.samples, samples)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrFeatureMismatch, err)
		}
		k.samples, k.labels = merged, ml.ConcatLabels(k.labels, labels)
		k.buildTree()
		return nil
	}
	if samples.Empty() {
		return nil
	}
	k.samples = samples.Clone()
	k.labels = append([]int(nil), labels...)
	k.buildTree()
	return nil
}

// storedSample is a training row in the search tree. index is its row in
// the stored matrix and breaks distance ties.
type storedSample struct {
	vec   []float64
	index int
	label int
}

func (s storedSample) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return s.vec[d] - c.(storedSample).vec[d]
}

func (s storedSample) Dims() int { return len(s.vec) }

// Distance is the squared Euclidean distance, as kdtree.Point uses.
func (s storedSample) Distance(c kdtree.Comparable) float64 {
	return squaredDistance(s.vec, c.(storedSample).vec)
}

// sampleSet implements kdtree.Interface over the stored rows.
type sampleSet []storedSample

func (s sampleSet) Index(i int) kdtree.Comparable { return s[i] }
func (s sampleSet) Len() int                      { return len(s) }
func (s sampleSet) Slice(start, end int) kdtree.Interface {
	return s[start:end]
}

func (s sampleSet) Pivot(d kdtree.Dim) int {
	p := samplePlane{dim: d, set: s}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// samplePlane orders a sampleSet along one dimension.
type samplePlane struct {
	dim kdtree.Dim
	set sampleSet
}

func (p samplePlane) Len() int           { return len(p.set) }
func (p samplePlane) Less(i, j int) bool { return p.set[i].vec[p.dim] < p.set[j].vec[p.dim] }
func (p samplePlane) Swap(i, j int)      { p.set[i], p.set[j] = p.set[j], p.set[i] }
func (p samplePlane) Slice(start, end int) kdtree.SortSlicer {
	return samplePlane{dim: p.dim, set: p.set[start:end]}
}

func (k *kNearest) buildTree() {
	set := make(sampleSet, k.samples.Rows)
	for i := range set {
		set[i] = storedSample{vec: k.samples.Row(i), index: i, label: k.labels[i]}
	}
	k.tree = kdtree.New(set, false)
}

// nearest returns the count closest stored samples to x ordered by distance,
// then by row index. The first search finds the radius of the count-th
// neighbour, the second collects every sample within it so that ties at
// that radius resolve by row index rather than by tree order.
func (k *kNearest) nearest(x []float64, count int) []kdtree.ComparableDist {
	q := storedSample{vec: x, index: -1}
	keep := kdtree.NewNKeeper(count)
	k.tree.NearestSet(keep, q)
	radius := 0.0
	for _, c := range keep.Heap {
		if c.Comparable != nil {
			radius = math.Max(radius, c.Dist)
		}
	}

	within := kdtree.NewDistKeeper(radius)
	k.tree.NearestSet(within, q)
	near := make([]kdtree.ComparableDist, 0, len(within.Heap))
	for _, c := range within.Heap {
		if c.Comparable != nil {
			near = append(near, c)
		}
	}
	sort.Slice(near, func(a, b int) bool {
		if near[a].Dist != near[b].Dist {
			return near[a].Dist < near[b].Dist
		}
		return near[a].Comparable.(storedSample).index < near[b].Comparable.(storedSample).index
	})
	return near[:min(count, len(near))]
}

// Predict returns the majority label among the nearest stored samples by
// Euclidean distance. Equal votes go to the smallest label.
func (k *kNearest) Predict(samples ml.Matrix) ([]int, error) {
	if samples.Empty() {
		return []int{}, nil
	}
	if !k.Trained() {
		return nil, ErrNotTrained
	}
	if err := checkPredictInput(samples, k.samples.Cols); err != nil {
		return nil, err
	}
	count := min(neighbours, k.samples.Rows)
	votes := make([]int, k.classCount)
	out := make([]int, samples.Rows)
	for r := range out {
		for i := range votes {
			votes[i] = 0
		}
		for _, n := range k.nearest(samples.Row(r), count) {
			votes[n.Comparable.(storedSample).label]++
		}
		best := 0
		for label, v := range votes {
			if v > votes[best] {
				best = label
			}
		}
		out[r] = best
	}
	return out, nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i, v := range a {
		d := v - b[i]
		sum += d * d
	}
	return sum
}

type knnHeader struct {
	Magic      [4]byte
	ClassCount uint32
	Rows       uint32
	Cols       uint32
}

// Save writes the header followed by the sample matrix and the labels in
// gonum's binary encoding.
func (k *kNearest) Save(path string) error {
	if !k.Trained() {
		return ErrNotTrained
	}
	var buf bytes.Buffer
	h := knnHeader{
		Magic:      knnMagic,
		ClassCount: uint32(k.classCount),
		Rows:       uint32(k.samples.Rows),
		Cols:       uint32(k.samples.Cols),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("failed to encode model header: %w", err)
	}
	if _, err := k.samples.Dense().MarshalBinaryTo(&buf); err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}
	labels := make([]float64, len(k.labels))
	for i, l := range k.labels {
		labels[i] = float64(l)
	}
	if _, err := mat.NewVecDense(len(labels), labels).MarshalBinaryTo(&buf); err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

// Load reads a saved sample dump and trains on it.
func (k *kNearest) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	defer file.Close()
	samples, labels, err := decodeKNearest(bufio.NewReader(file), k.classCount)
	if err != nil {
		return fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	k.samples, k.labels, k.tree = ml.Matrix{}, nil, nil
	return k.Train(samples, labels, false)
}

func decodeKNearest(r io.Reader, classCount int) (ml.Matrix, []int, error) {
	var h knnHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return ml.Matrix{}, nil, err
	}
	if h.Magic != knnMagic {
		return ml.Matrix{}, nil, fmt.Errorf("not a nearest-neighbour model")
	}
	if int(h.ClassCount) != classCount {
		return ml.Matrix{}, nil, fmt.Errorf("model has %d classes, want %d", h.ClassCount, classCount)
	}
	var d mat.Dense
	if _, err := d.UnmarshalBinaryFrom(r); err != nil {
		return ml.Matrix{}, nil, err
	}
	var v mat.VecDense
	if _, err := v.UnmarshalBinaryFrom(r); err != nil {
		return ml.Matrix{}, nil, err
	}
	samples := ml.FromDense(&d)
	if samples.Rows != int(h.Rows) || samples.Cols != int(h.Cols) || v.Len() != samples.Rows {
		return ml.Matrix{}, nil, fmt.Errorf("payload size does not match header")
	}
	labels := make([]int, v.Len())
	for i := range labels {
		labels[i] = int(v.AtVec(i))
	}
	return samples, labels, nil
}
