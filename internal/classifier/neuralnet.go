package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"charocr/internal/features"
	"charocr/internal/ml"
)

// Network shape and backpropagation parameters.
const (
	hiddenUnits    = 16
	maxEpochs      = 2000
	targetError    = 0.002
	gradientScale  = 0.1
	momentumScale  = 0.1
	minInputStdDev = 1e-7
)

// neuralNetwork is a three-layer perceptron with symmetric sigmoid units.
type neuralNetwork struct {
	classCount int
	pipeline   features.Pipeline
	seed       int64
	cache      trainingCache

	dim       int
	inputMean []float64
	inputStd  []float64
	hidden    *layer
	output    *layer
}

func newNeuralNet(classCount int, o options) *neuralNetwork {
	return &neuralNetwork{classCount: classCount, pipeline: o.pipeline, seed: o.seed}
}

func (n *neuralNetwork) Type() Type                  { return NeuralNet }
func (n *neuralNetwork) ClassCount() int             { return n.classCount }
func (n *neuralNetwork) Pipeline() features.Pipeline { return n.pipeline }
func (n *neuralNetwork) Trained() bool               { return n.output != nil }

func (n *neuralNetwork) Train(samples ml.Matrix, labels []int, updateBase bool) error {
	if err := checkTrainInput(samples, labels, n.classCount); err != nil {
		return err
	}
	samples, labels, ok, err := n.cache.union(samples, labels, updateBase)
	if err != nil || !ok {
		return err
	}
	n.fit(samples, labels)
	return nil
}

func (n *neuralNetwork) layers(dim int) (hidden, output *layer) {
	act := ml.SymmetricSigmoid{Alpha: 1, Beta: 1}
	return newLayer(dim, hiddenUnits, act), newLayer(hiddenUnits, n.classCount, act)
}

// fit trains a freshly initialised network. Each epoch visits the samples in
// random order and updates the weights after every sample. Training stops
// after maxEpochs or once the mean per-sample squared error is below
// targetError.
func (n *neuralNetwork) fit(samples ml.Matrix, labels []int) {
	n.dim = samples.Cols
	n.hidden, n.output = n.layers(samples.Cols)
	n.inputMean, n.inputStd = columnMoments(samples)

	rnd := rand.New(rand.NewSource(n.seed))
	n.hidden.initWeights(rnd)
	n.output.initWeights(rnd)

	x := n.standardize(samples)
	targets := ml.OneHot(labels, n.classCount)

	order := rnd.Perm(x.Rows)
	hiddenOut := make([]float64, 0, hiddenUnits)
	hiddenErr := make([]float64, hiddenUnits)
	for epoch := 0; epoch < maxEpochs; epoch++ {
		rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		var sumErr float64
		for _, r := range order {
			in := x.Row(r)
			target := targets.Row(r)
			n.hidden.forward(in)
			hiddenOut = n.hidden.activations(hiddenOut)
			n.output.forward(hiddenOut)
			for o := range n.output.outputs {
				e := n.output.outputs[o].Activation - target[o]
				n.output.outputs[o].Error = e
				sumErr += e * e
			}
			n.output.backward(hiddenOut, hiddenErr, gradientScale, momentumScale)
			for h := range n.hidden.outputs {
				n.hidden.outputs[h].Error = hiddenErr[h]
			}
			n.hidden.backward(in, nil, gradientScale, momentumScale)
		}
		if 0.5*sumErr/float64(x.Rows) < targetError {
			break
		}
	}
	n.hidden.resetMomentum()
	n.output.resetMomentum()
}

func (n *neuralNetwork) Predict(samples ml.Matrix) ([]int, error) {
	if samples.Empty() {
		return []int{}, nil
	}
	if !n.Trained() {
		return nil, ErrNotTrained
	}
	if err := checkPredictInput(samples, n.dim); err != nil {
		return nil, err
	}
	x := n.standardize(samples)
	out := make([]int, x.Rows)
	hiddenOut := make([]float64, 0, hiddenUnits)
	scores := make([]float64, 0, n.classCount)
	for r := 0; r < x.Rows; r++ {
		n.hidden.forward(x.Row(r))
		hiddenOut = n.hidden.activations(hiddenOut)
		n.output.forward(hiddenOut)
		scores = n.output.activations(scores)
		out[r] = ml.ArgMax(scores)
	}
	return out, nil
}

func (n *neuralNetwork) standardize(samples ml.Matrix) ml.Matrix {
	x := samples.Clone()
	for r := 0; r < x.Rows; r++ {
		row := x.Row(r)
		for j := range row {
			row[j] = (row[j] - n.inputMean[j]) / n.inputStd[j]
		}
	}
	return x
}

// columnMoments returns per-feature mean and standard deviation. Constant
// features get a unit deviation.
func columnMoments(samples ml.Matrix) (mean, std []float64) {
	mean = make([]float64, samples.Cols)
	std = make([]float64, samples.Cols)
	d := samples.Dense()
	col := make([]float64, samples.Rows)
	for j := 0; j < samples.Cols; j++ {
		mat.Col(col, j, d)
		m, v := stat.PopMeanVariance(col, nil)
		mean[j] = m
		std[j] = math.Sqrt(v)
		if std[j] < minInputStdDev {
			std[j] = 1
		}
	}
	return mean, std
}

// neuralNetFile is the YAML model layout.
type neuralNetFile struct {
	Type       string      `yaml:"type"`
	ClassCount int         `yaml:"class_count"`
	Pipeline   string      `yaml:"pipeline"`
	LayerSizes []int       `yaml:"layer_sizes"`
	InputMean  []float64   `yaml:"input_mean,flow"`
	InputStd   []float64   `yaml:"input_std,flow"`
	Layers     []layerFile `yaml:"layers"`
}

type layerFile struct {
	Weights [][]float64 `yaml:"weights,flow"`
	Biases  []float64   `yaml:"biases,flow"`
}

func (n *neuralNetwork) Save(path string) error {
	if !n.Trained() {
		return ErrNotTrained
	}
	f := neuralNetFile{
		Type:       NeuralNet.String(),
		ClassCount: n.classCount,
		Pipeline:   n.pipeline.Name(),
		LayerSizes: []int{n.dim, hiddenUnits, n.classCount},
		InputMean:  n.inputMean,
		InputStd:   n.inputStd,
		Layers:     []layerFile{encodeLayer(n.hidden), encodeLayer(n.output)},
	}
	return writeYAML(path, f)
}

func (n *neuralNetwork) Load(path string) error {
	var f neuralNetFile
	if err := readYAML(path, &f); err != nil {
		return err
	}
	if err := checkHeader(f.Type, NeuralNet, f.ClassCount, n.classCount); err != nil {
		return err
	}
	if len(f.LayerSizes) != 3 || len(f.Layers) != 2 || f.LayerSizes[1] != hiddenUnits {
		return fmt.Errorf("unsupported network layout %v", f.LayerSizes)
	}
	dim := f.LayerSizes[0]
	if len(f.InputMean) != dim || len(f.InputStd) != dim {
		return fmt.Errorf("input scaling has %d/%d values, want %d", len(f.InputMean), len(f.InputStd), dim)
	}
	hidden, output := n.layers(dim)
	if err := decodeLayer(f.Layers[0], hidden); err != nil {
		return fmt.Errorf("hidden layer: %w", err)
	}
	if err := decodeLayer(f.Layers[1], output); err != nil {
		return fmt.Errorf("output layer: %w", err)
	}
	n.dim, n.hidden, n.output = dim, hidden, output
	n.inputMean, n.inputStd = f.InputMean, f.InputStd
	n.cache = trainingCache{}
	return nil
}

func encodeLayer(l *layer) layerFile {
	f := layerFile{Weights: make([][]float64, l.weights.Rows), Biases: l.biases}
	for o := range f.Weights {
		f.Weights[o] = l.weights.Row(o)
	}
	return f
}

func decodeLayer(f layerFile, l *layer) error {
	rows, err := ml.FromRows(f.Weights, l.weights.Cols)
	if err != nil {
		return err
	}
	if rows.Rows != l.weights.Rows || rows.Cols != l.weights.Cols || len(f.Biases) != len(l.biases) {
		return fmt.Errorf("got %dx%d weights and %d biases, want %dx%d and %d",
			rows.Rows, rows.Cols, len(f.Biases), l.weights.Rows, l.weights.Cols, len(l.biases))
	}
	l.weights = rows
	copy(l.biases, f.Biases)
	return nil
}
