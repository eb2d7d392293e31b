package classifier

import (
	"math/rand"

	"charocr/internal/ml"
)

type neuron struct {
	Activation float64
	Error      float64
	Prime      float64
}

// layer is a fully connected layer trained by online backpropagation with
// momentum.
type layer struct {
	activationFn ml.IActivationFn
	outputs      []neuron
	weights      ml.Matrix // outputs x inputs
	biases       []float64
	wDelta       ml.Matrix
	bDelta       []float64
}

func newLayer(inputSize, outputSize int, activationFn ml.IActivationFn) *layer {
	return &layer{
		activationFn: activationFn,
		outputs:      make([]neuron, outputSize),
		weights:      ml.NewMatrix(outputSize, inputSize),
		biases:       make([]float64, outputSize),
		wDelta:       ml.NewMatrix(outputSize, inputSize),
		bDelta:       make([]float64, outputSize),
	}
}

func (l *layer) initWeights(rnd *rand.Rand) {
	var variance = 2.0 / float64(l.weights.Rows+l.weights.Cols)
	ml.InitUniform(rnd, l.weights.Data, variance)
	for i := range l.biases {
		l.biases[i] = 0
	}
}

func (l *layer) forward(input []float64) {
	for o := range l.outputs {
		x := l.biases[o]
		for i, v := range input {
			x += l.weights.At(o, i) * v
		}
		n := &l.outputs[o]
		n.Activation = l.activationFn.Sigma(x)
		n.Prime = l.activationFn.SigmaPrime(x)
	}
}

// backward propagates the output errors into inputErr (when not nil) and
// applies the weight update: delta = scale*gradient + moment*previousDelta.
func (l *layer) backward(input, inputErr []float64, scale, moment float64) {
	for i := range inputErr {
		inputErr[i] = 0
	}
	for o := range l.outputs {
		n := &l.outputs[o]
		x := n.Error * n.Prime
		row := l.weights.Row(o)
		dRow := l.wDelta.Row(o)
		for i, v := range input {
			if inputErr != nil {
				inputErr[i] += row[i] * x
			}
			d := scale*x*v + moment*dRow[i]
			dRow[i] = d
			row[i] -= d
		}
		d := scale*x + moment*l.bDelta[o]
		l.bDelta[o] = d
		l.biases[o] -= d
	}
}

func (l *layer) activations(dst []float64) []float64 {
	dst = dst[:0]
	for _, n := range l.outputs {
		dst = append(dst, n.Activation)
	}
	return dst
}

func (l *layer) resetMomentum() {
	for i := range l.wDelta.Data {
		l.wDelta.Data[i] = 0
	}
	for i := range l.bDelta {
		l.bDelta[i] = 0
	}
}
