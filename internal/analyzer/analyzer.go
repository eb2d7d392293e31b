// Package analyzer reports how well a trained classifier recognises the
// train and test partitions of a dataset.
package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"charocr/internal/classes"
	"charocr/internal/classifier"
	"charocr/internal/dataset"
	"charocr/internal/ml"
)

// Score counts correct predictions among the samples of one class.
type Score struct {
	Correct int
	Total   int
	Percent int // truncated; 100 when Total is 0
}

// ClassResult holds the train and test scores of one class.
type ClassResult struct {
	Class classes.Class
	Train Score
	Test  Score
}

// Extreme names the best or worst recognised class of a partition.
type Extreme struct {
	Class   classes.Class
	Percent int
}

// Stats describes the distribution of training samples per class.
type Stats struct {
	Mean           float64
	Median         float64
	MAD            float64
	Variance       float64
	Std            float64
	CoeffVariation float64 // percent; 0 when Mean is 0
}

// Report is the result of Analyze.
type Report struct {
	Classes    []ClassResult
	BestTrain  Extreme
	WorstTrain Extreme
	BestTest   Extreme
	WorstTest  Extreme

	TrainSamples Stats

	TrainCount    int
	TestCount     int
	TrainAccuracy float64
	TestAccuracy  float64
	Elapsed       time.Duration
}

// Analyzer is a read-only pass over a classifier and a dataset.
type Analyzer struct {
	model   classifier.Classifier
	dataset *dataset.Dataset

	start   time.Time
	elapsed time.Duration
	report  Report
}

func New(model classifier.Classifier, ds *dataset.Dataset) *Analyzer {
	return &Analyzer{model: model, dataset: ds}
}

// Start marks the beginning of the timed training call.
func (a *Analyzer) Start() { a.start = time.Now() }

// Stop records the time elapsed since Start.
func (a *Analyzer) Stop() { a.elapsed = time.Since(a.start) }

func (a *Analyzer) Report() Report { return a.report }

// Analyze predicts both partitions and computes the report.
func (a *Analyzer) Analyze() error {
	trainX, trainY := a.dataset.Train()
	testX, testY := a.dataset.Test()

	trainHits, trainAcc, err := a.evaluate(trainX, trainY)
	if err != nil {
		return fmt.Errorf("train partition: %w", err)
	}
	testHits, testAcc, err := a.evaluate(testX, testY)
	if err != nil {
		return fmt.Errorf("test partition: %w", err)
	}

	set := a.dataset.Classes()
	trainTotals := countLabels(trainY, set.Len())
	testTotals := countLabels(testY, set.Len())

	r := Report{
		TrainCount:    a.dataset.TrainCount(),
		TestCount:     a.dataset.TestCount(),
		TrainAccuracy: trainAcc,
		TestAccuracy:  testAcc,
		Elapsed:       a.elapsed,
	}
	var trainCounts []float64
	for label, cl := range set.All() {
		if trainTotals[label] == 0 && testTotals[label] == 0 {
			continue
		}
		r.Classes = append(r.Classes, ClassResult{
			Class: cl,
			Train: newScore(trainHits[label], trainTotals[label]),
			Test:  newScore(testHits[label], testTotals[label]),
		})
		if trainTotals[label] > 0 {
			trainCounts = append(trainCounts, float64(trainTotals[label]))
		}
	}
	r.BestTrain, r.WorstTrain = extremes(r.Classes, func(c ClassResult) int { return c.Train.Percent })
	r.BestTest, r.WorstTest = extremes(r.Classes, func(c ClassResult) int { return c.Test.Percent })
	r.TrainSamples = distribution(trainCounts)

	a.report = r
	return nil
}

// evaluate returns the per-label count of correct predictions and the
// overall accuracy. Nothing is predicted for an empty partition or an
// untrained model.
func (a *Analyzer) evaluate(x ml.Matrix, labels []int) ([]int, float64, error) {
	hits := make([]int, a.dataset.Classes().Len())
	if x.Empty() || !a.model.Trained() {
		return hits, 0, nil
	}
	predicted, err := a.model.Predict(x)
	if err != nil {
		return nil, 0, err
	}
	var correct int
	for i, p := range predicted {
		if p == labels[i] {
			hits[p]++
			correct++
		}
	}
	return hits, float64(correct) / float64(len(labels)), nil
}

func countLabels(labels []int, n int) []int {
	counts := make([]int, n)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func newScore(correct, total int) Score {
	s := Score{Correct: correct, Total: total, Percent: 100}
	if total > 0 {
		s.Percent = int(float64(correct) / float64(total) * 100)
	}
	return s
}

// extremes returns the classes with the highest and lowest percent. The
// first class wins ties.
func extremes(results []ClassResult, percent func(ClassResult) int) (best, worst Extreme) {
	for i, c := range results {
		p := percent(c)
		if i == 0 || p > best.Percent {
			best = Extreme{Class: c.Class, Percent: p}
		}
		if i == 0 || p < worst.Percent {
			worst = Extreme{Class: c.Class, Percent: p}
		}
	}
	return best, worst
}

func distribution(counts []float64) Stats {
	if len(counts) == 0 {
		return Stats{}
	}
	var s Stats
	s.Mean, s.Variance = stat.PopMeanVariance(counts, nil)
	s.Std = math.Sqrt(s.Variance)
	s.Median = median(counts)
	deviations := make([]float64, len(counts))
	for i, c := range counts {
		deviations[i] = math.Abs(c - s.Median)
	}
	s.MAD = median(deviations)
	if s.Mean > 0 {
		s.CoeffVariation = s.Std / s.Mean * 100
	}
	return s
}

// median averages the two middle values of an even-sized sample.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// String formats the report the way it is shown in the training log.
func (a *Analyzer) String() string { return a.report.String() }

func (r Report) String() string {
	var b strings.Builder
	b.WriteString("\tTrain samples\t\tTest samples")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "\n  %s:\t%d / %d\t(%d %%)\t  -  %d / %d\t(%d %%)",
			c.Class.Repr, c.Train.Correct, c.Train.Total, c.Train.Percent,
			c.Test.Correct, c.Test.Total, c.Test.Percent)
	}
	fmt.Fprintf(&b, "\n\n  Best recognized in train set : %s\n", r.BestTrain)
	fmt.Fprintf(&b, "  Worst recognized in train set : %s\n", r.WorstTrain)
	fmt.Fprintf(&b, "\n  Best recognized in test set : %s\n", r.BestTest)
	fmt.Fprintf(&b, "  Worst recognized in test set : %s\n", r.WorstTest)
	b.WriteString("\n ------------------\n")
	b.WriteString("| Training samples |\n")
	b.WriteString(" ------------------\n")
	fmt.Fprintf(&b, "  Mean : %d\n", int(r.TrainSamples.Mean))
	fmt.Fprintf(&b, "  Median : %d\n", int(r.TrainSamples.Median))
	fmt.Fprintf(&b, "  Median absolute deviation : %.2f\n", r.TrainSamples.MAD)
	fmt.Fprintf(&b, "  Standard deviation : %.2f\n", r.TrainSamples.Std)
	fmt.Fprintf(&b, "  Coefficient of variation : %.2f %%\n", r.TrainSamples.CoeffVariation)
	fmt.Fprintf(&b, "\nTrain set: %d samples | Test set: %d samples\n", r.TrainCount, r.TestCount)
	fmt.Fprintf(&b, "Training time: %.4f s\n", r.Elapsed.Seconds())
	fmt.Fprintf(&b, "\nTrain accuracy: %.2f %% | Test accuracy %.2f %%\n", r.TrainAccuracy*100, r.TestAccuracy*100)
	return b.String()
}

func (e Extreme) String() string {
	if e.Class.Value == "" {
		return "-"
	}
	return fmt.Sprintf("%s (%d %%)", e.Class.Repr, e.Percent)
}
