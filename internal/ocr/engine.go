// Package ocr drives a training session from dataset preprocessing to model
// persistence, and recognises single drawn characters with a trained model.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"

	"gocv.io/x/gocv"

	"charocr/internal/analyzer"
	"charocr/internal/classes"
	"charocr/internal/classifier"
	"charocr/internal/dataset"
	ocrimage "charocr/internal/image"
	"charocr/internal/lockfile"
	"charocr/internal/ml"
)

// ErrModelNotFound is returned when no model file matches a class set and
// classifier type.
var ErrModelNotFound = errors.New("model not found")

// State is the phase of the current training session.
type State int

const (
	Idle State = iota
	Preprocessing
	BaselineTrained
	Refining
	Persisted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preprocessing:
		return "preprocessing"
	case BaselineTrained:
		return "baseline trained"
	case Refining:
		return "refining"
	case Persisted:
		return "persisted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LogSink receives the training transcript, one message per checkpoint.
type LogSink func(string)

// Parameter ranges accepted by Params.Validate.
const (
	MaxPerClassLimit      = 50000
	ErrorsIterationsLimit = 500
)

// Params are the numeric training parameters.
type Params struct {
	TrainRatio       float64 // fraction of each class used for training, 0..1
	MaxPerClass      int     // cap on samples read per class
	ErrorsIterations int     // error-injection rounds after the baseline
}

// DefaultParams returns a 50% split, 400 samples per class and no
// error injection.
func DefaultParams() Params {
	return Params{TrainRatio: 0.5, MaxPerClass: 400}
}

func (p Params) Validate() error {
	if p.TrainRatio < 0 || p.TrainRatio > 1 {
		return fmt.Errorf("train ratio %v outside [0,1]", p.TrainRatio)
	}
	if p.MaxPerClass < 1 || p.MaxPerClass > MaxPerClassLimit {
		return fmt.Errorf("max per class %d outside [1,%d]", p.MaxPerClass, MaxPerClassLimit)
	}
	if p.ErrorsIterations < 0 || p.ErrorsIterations > ErrorsIterationsLimit {
		return fmt.Errorf("errors iterations %d outside [0,%d]", p.ErrorsIterations, ErrorsIterationsLimit)
	}
	return nil
}

// Engine owns the classifier of one training session, or the model loaded
// for recognition.
type Engine struct {
	state     State
	iteration int

	classes classes.Set
	typ     classifier.Type
	model   classifier.Classifier
	opts    []classifier.Option
}

// NewEngine creates an idle engine. opts are passed to every classifier it
// creates.
func NewEngine(opts ...classifier.Option) *Engine {
	return &Engine{opts: opts}
}

func (e *Engine) State() State { return e.state }

// Iteration is the current error-injection round while Refining.
func (e *Engine) Iteration() int { return e.iteration }

func (e *Engine) Classes() classes.Set { return e.classes }

// Classifier returns the trained or loaded model, or nil.
func (e *Engine) Classifier() classifier.Classifier { return e.model }

// TrainModel preprocesses ds with the pipeline of a new typ classifier,
// trains the baseline on the train partition and runs p.ErrorsIterations
// rounds of error injection. When sink is set, an analyzer report is sent
// after the baseline and again after refinement.
func (e *Engine) TrainModel(ds *dataset.Dataset, set classes.Set, typ classifier.Type, p Params, sink LogSink) error {
	if err := p.Validate(); err != nil {
		return err
	}
	model, err := classifier.New(typ, set.Len(), e.opts...)
	if err != nil {
		return err
	}
	e.model, e.classes, e.typ = nil, set, typ
	e.iteration = 0

	e.state = Preprocessing
	emit(sink, "Pre-processing...")
	if err := ds.Preprocess(set, p.MaxPerClass, p.TrainRatio, model.Pipeline()); err != nil {
		e.state = Idle
		return fmt.Errorf("preprocessing failed: %w", err)
	}

	report := analyzer.New(model, ds)
	report.Start()
	x, y := ds.Train()
	if err := model.Train(x, y, false); err != nil {
		e.state = Idle
		return fmt.Errorf("training failed: %w", err)
	}
	report.Stop()
	e.model = model
	e.state = BaselineTrained
	log.Printf("[ocr] baseline %s trained on %d samples, %d in test", typ, ds.TrainCount(), ds.TestCount())
	if err := emitReport(sink, report); err != nil {
		return err
	}

	if p.ErrorsIterations == 0 || !model.Trained() {
		return nil
	}
	report = analyzer.New(model, ds)
	report.Start()
	if err := e.refine(ds, model, p.ErrorsIterations, sink); err != nil {
		return err
	}
	report.Stop()
	return emitReport(sink, report)
}

// refine is the error-injection loop. Each round predicts the test
// partition, moves the misclassified rows into train, retrains on them with
// updateBase, and keeps only the correctly classified rows as the new test
// partition. It stops after maxIterations rounds, when the test partition is
// empty, or after a round without errors.
func (e *Engine) refine(ds *dataset.Dataset, model classifier.Classifier, maxIterations int, sink LogSink) error {
	// The model stays usable when a round fails.
	defer func() { e.state = BaselineTrained }()
	for k := 1; k <= maxIterations; k++ {
		test, labels := ds.Test()
		if test.Empty() {
			break
		}
		e.state, e.iteration = Refining, k

		predicted, err := model.Predict(test)
		if err != nil {
			return fmt.Errorf("error injection %d: %w", k, err)
		}
		var bad, good []int
		for i, p := range predicted {
			if p == labels[i] {
				good = append(good, i)
			} else {
				bad = append(bad, i)
			}
		}

		if len(bad) > 0 {
			rows, rowLabels := test.Select(bad), pick(labels, bad)
			if err := ds.AppendTrain(rows, rowLabels); err != nil {
				return fmt.Errorf("error injection %d: %w", k, err)
			}
			if err := model.Train(rows, rowLabels, true); err != nil {
				return fmt.Errorf("error injection %d: retraining failed: %w", k, err)
			}
		}
		if err := ds.ReplaceTest(test.Select(good), pick(labels, good)); err != nil {
			return fmt.Errorf("error injection %d: %w", k, err)
		}

		msg := fmt.Sprintf("Error injection %d/%d: %d errors moved to train set, %d samples left in test set",
			k, maxIterations, len(bad), len(good))
		log.Printf("[ocr] %s", msg)
		emit(sink, msg)
		if len(bad) == 0 {
			break
		}
	}
	return nil
}

func pick(labels, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

func emit(sink LogSink, msg string) {
	if sink != nil {
		sink(msg)
	}
}

func emitReport(sink LogSink, a *analyzer.Analyzer) error {
	if sink == nil {
		return nil
	}
	if err := a.Analyze(); err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	sink(a.String())
	return nil
}

// SaveModel writes the trained model to folder under its identity and
// returns the path. The folder is locked while writing.
func (e *Engine) SaveModel(folder string) (string, error) {
	if e.model == nil || !e.model.Trained() {
		return "", classifier.ErrNotTrained
	}
	release, err := lockfile.Acquire(folder, lockfile.DefaultTimeout)
	if err != nil {
		return "", err
	}
	defer release()

	path := ModelPath(folder, e.classes, e.typ)
	if err := e.model.Save(path); err != nil {
		return "", err
	}
	e.state = Persisted
	log.Printf("[ocr] saved model %s", path)
	return path, nil
}

// LoadModel restores the model of (set, typ) from folder. Predictions map
// back to set by position.
func (e *Engine) LoadModel(set classes.Set, folder string, typ classifier.Type) error {
	path := ModelPath(folder, set, typ)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, path)
	}
	model, err := classifier.New(typ, set.Len(), e.opts...)
	if err != nil {
		return err
	}
	if err := model.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return err
	}
	e.model, e.classes, e.typ = model, set, typ
	e.state, e.iteration = Idle, 0
	log.Printf("[ocr] loaded model %s", path)
	return nil
}

// CharFromImage recognises one in-memory drawing.
func (e *Engine) CharFromImage(img image.Image) (classes.Class, error) {
	m, err := ocrimage.FromImage(img)
	if err != nil {
		return classes.Class{}, err
	}
	defer m.Close()
	return e.charFromMat(m)
}

// CharFromFile recognises one image file.
func (e *Engine) CharFromFile(path string) (classes.Class, error) {
	m, err := ocrimage.Load(path)
	if err != nil {
		return classes.Class{}, err
	}
	defer m.Close()
	return e.charFromMat(m)
}

// CharFromBytes recognises one encoded PNG or BMP image.
func (e *Engine) CharFromBytes(data []byte) (classes.Class, error) {
	m, err := ocrimage.DecodeBytes(data)
	if err != nil {
		return classes.Class{}, err
	}
	defer m.Close()
	return e.charFromMat(m)
}

func (e *Engine) charFromMat(m gocv.Mat) (classes.Class, error) {
	if e.model == nil || !e.model.Trained() {
		return classes.Class{}, classifier.ErrNotTrained
	}
	vec, err := e.model.Pipeline().Extract(m)
	if err != nil {
		return classes.Class{}, err
	}
	predicted, err := e.model.Predict(ml.Matrix{Data: vec, Rows: 1, Cols: len(vec)})
	if err != nil {
		return classes.Class{}, err
	}
	return e.classes.At(predicted[0]), nil
}
