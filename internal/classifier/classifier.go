// Package classifier provides the three interchangeable learning algorithms
// behind the recogniser: a small neural network, k-nearest neighbours and an
// RBF support vector machine.
package classifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"charocr/internal/features"
	"charocr/internal/ml"
)

var (
	// ErrNotTrained is returned when predicting or saving without model state.
	ErrNotTrained = errors.New("classifier is not trained")
	// ErrFeatureMismatch is returned when sample width differs from the trained width.
	ErrFeatureMismatch = errors.New("feature dimension mismatch")
)

// Type selects a classifier variant. Its numeric value is the model file tag.
type Type int

const (
	NeuralNet Type = iota
	KNearest
	SVM
)

// Types lists every variant in tag order.
var Types = []Type{NeuralNet, KNearest, SVM}

func (t Type) String() string {
	switch t {
	case NeuralNet:
		return "ann"
	case KNearest:
		return "knn"
	case SVM:
		return "svm"
	default:
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseType accepts the short name ("ann", "knn", "svm") or the numeric tag.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range Types {
		if s == t.String() || s == t.Tag() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown classifier type %q", s)
}

// Tag is the identifier used in model file names.
func (t Type) Tag() string { return strconv.Itoa(int(t)) }

// Ext is the model file extension: YAML for the variants with trained
// parameters, a binary sample dump for KNearest.
func (t Type) Ext() string {
	if t == KNearest {
		return ".bin"
	}
	return ".yml"
}

// DefaultPipeline returns the feature pipeline a variant is trained with.
func (t Type) DefaultPipeline() features.Pipeline {
	if t == SVM {
		return features.NewGradientHistogram()
	}
	return features.NewRawPixels()
}

// Classifier maps feature vectors to class indices in [0, ClassCount()).
type Classifier interface {
	Type() Type
	ClassCount() int
	Pipeline() features.Pipeline

	// Train fits the model. With updateBase set, NeuralNet and SVM retrain
	// from scratch on the previous training set plus samples, and KNearest
	// adds samples to its stored data; without prior data the call does
	// nothing. Training on zero rows leaves the model as it was.
	Train(samples ml.Matrix, labels []int, updateBase bool) error
	Predict(samples ml.Matrix) ([]int, error)
	Trained() bool

	Save(path string) error
	Load(path string) error
}

type options struct {
	seed     int64
	pipeline features.Pipeline
}

// Option configures a classifier.
type Option func(*options)

// WithSeed sets the seed for weight initialisation and sample ordering.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithPipeline overrides the variant's default feature pipeline.
func WithPipeline(p features.Pipeline) Option {
	return func(o *options) { o.pipeline = p }
}

// New returns an untrained classifier of type typ.
func New(typ Type, classCount int, opts ...Option) (Classifier, error) {
	if classCount < 1 {
		return nil, fmt.Errorf("class count must be positive, got %d", classCount)
	}
	o := options{seed: 1, pipeline: typ.DefaultPipeline()}
	for _, opt := range opts {
		opt(&o)
	}
	switch typ {
	case NeuralNet:
		return newNeuralNet(classCount, o), nil
	case KNearest:
		return newKNearest(classCount, o), nil
	case SVM:
		return newSVM(classCount, o), nil
	default:
		return nil, fmt.Errorf("unknown classifier type %d", int(typ))
	}
}

func checkTrainInput(samples ml.Matrix, labels []int, classCount int) error {
	if samples.Rows != len(labels) {
		return fmt.Errorf("%d samples but %d labels", samples.Rows, len(labels))
	}
	return ml.CheckLabels(labels, classCount)
}

func checkPredictInput(samples ml.Matrix, dim int) error {
	if !samples.Empty() && samples.Cols != dim {
		return fmt.Errorf("%w: got %d features, trained on %d", ErrFeatureMismatch, samples.Cols, dim)
	}
	return nil
}

// trainingCache keeps the most recent training set of the variants that
// support union retraining.
type trainingCache struct {
	samples ml.Matrix
	labels  []int
}

// union resolves the training set of a Train call. ok is false when the call
// has nothing to train on.
func (c *trainingCache) union(samples ml.Matrix, labels []int, updateBase bool) (ml.Matrix, []int, bool, error) {
	if updateBase {
		if c.samples.Empty() {
			return ml.Matrix{}, nil, false, nil
		}
		merged, err := ml.Concat(c.samples, samples)
		if err != nil {
			return ml.Matrix{}, nil, false, fmt.Errorf("%w: %v", ErrFeatureMismatch, err)
		}
		samples, labels = merged, ml.ConcatLabels(c.labels, labels)
	}
	if samples.Empty() {
		return ml.Matrix{}, nil, false, nil
	}
	c.samples = samples.Clone()
	c.labels = append([]int(nil), labels...)
	return samples, labels, true, nil
}
