package classifier

import (
	"fmt"
	"math"
	"sort"

	"charocr/internal/features"
	"charocr/internal/ml"
)

// C-SVC hyperparameters.
const (
	svmC         = 2.67
	svmGamma     = 5.383
	svmTolerance = 1e-3
	svmTau       = 1e-12
	svmMaxIter   = 10_000_000
)

// supportVectorMachine is a one-vs-one C-SVC with an RBF kernel.
type supportVectorMachine struct {
	classCount int
	pipeline   features.Pipeline
	cache      trainingCache

	dim      int
	labels   []int // classes present in the training set, ascending
	machines []binaryMachine
}

// binaryMachine separates Positive (decision > 0) from Negative.
type binaryMachine struct {
	Positive int         `yaml:"positive"`
	Negative int         `yaml:"negative"`
	Rho      float64     `yaml:"rho"`
	Coef     []float64   `yaml:"coef,flow"`
	Vectors  [][]float64 `yaml:"support_vectors,flow"`
}

func newSVM(classCount int, o options) *supportVectorMachine {
	return &supportVectorMachine{classCount: classCount, pipeline: o.pipeline}
}

func (s *supportVectorMachine) Type() Type                  { return SVM }
func (s *supportVectorMachine) ClassCount() int             { return s.classCount }
func (s *supportVectorMachine) Pipeline() features.Pipeline { return s.pipeline }
func (s *supportVectorMachine) Trained() bool               { return len(s.labels) > 0 }

func (s *supportVectorMachine) Train(samples ml.Matrix, labels []int, updateBase bool) error {
	if err := checkTrainInput(samples, labels, s.classCount); err != nil {
		return err
	}
	samples, labels, ok, err := s.cache.union(samples, labels, updateBase)
	if err != nil || !ok {
		return err
	}
	s.fit(samples, labels)
	return nil
}

func (s *supportVectorMachine) fit(samples ml.Matrix, labels []int) {
	byClass := map[int][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	present := make([]int, 0, len(byClass))
	for l := range byClass {
		present = append(present, l)
	}
	sort.Ints(present)

	s.dim = samples.Cols
	s.labels = present
	s.machines = nil
	for a := 0; a < len(present); a++ {
		for b := a + 1; b < len(present); b++ {
			pos, neg := present[a], present[b]
			rows := append(append([]int(nil), byClass[pos]...), byClass[neg]...)
			y := make([]float64, len(rows))
			for i := range y {
				if i < len(byClass[pos]) {
					y[i] = 1
				} else {
					y[i] = -1
				}
			}
			x := samples.Select(rows)
			m := trainBinary(newKernelRows(x, y, svmCacheBytes))
			m.Positive, m.Negative = pos, neg
			s.machines = append(s.machines, m)
		}
	}
}

func rbf(a, b []float64) float64 {
	return math.Exp(-svmGamma * squaredDistance(a, b))
}

// trainBinary solves the C-SVC dual with SMO, choosing the maximal
// violating pair as working set each iteration. Only the rows of the pair
// are read from q.
func trainBinary(q *kernelRows) binaryMachine {
	x, y := q.x, q.y
	l := x.Rows

	alpha := make([]float64, l)
	grad := make([]float64, l)
	for i := range grad {
		grad[i] = -1
	}
	upper := func(t int) bool { return alpha[t] >= svmC }
	lower := func(t int) bool { return alpha[t] <= 0 }

	for iter := 0; iter < svmMaxIter; iter++ {
		i, j := -1, -1
		gMax, gMin := math.Inf(-1), math.Inf(1)
		for t := 0; t < l; t++ {
			v := -y[t] * grad[t]
			if (y[t] > 0 && !upper(t)) || (y[t] < 0 && !lower(t)) {
				if v >= gMax {
					gMax, i = v, t
				}
			}
			if (y[t] > 0 && !lower(t)) || (y[t] < 0 && !upper(t)) {
				if v <= gMin {
					gMin, j = v, t
				}
			}
		}
		if i < 0 || j < 0 || gMax-gMin < svmTolerance {
			break
		}

		qi, qj := q.row(i), q.row(j)
		oldI, oldJ := alpha[i], alpha[j]
		if y[i] != y[j] {
			quad := q.diag[i] + q.diag[j] + 2*qi[j]
			if quad <= 0 {
				quad = svmTau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j], alpha[i] = 0, diff
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, -diff
			}
			if diff > 0 {
				if alpha[i] > svmC {
					alpha[i], alpha[j] = svmC, svmC-diff
				}
			} else if alpha[j] > svmC {
				alpha[j], alpha[i] = svmC, svmC+diff
			}
		} else {
			quad := q.diag[i] + q.diag[j] - 2*qi[j]
			if quad <= 0 {
				quad = svmTau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > svmC {
				if alpha[i] > svmC {
					alpha[i], alpha[j] = svmC, sum-svmC
				}
			} else if alpha[j] < 0 {
				alpha[j], alpha[i] = 0, sum
			}
			if sum > svmC {
				if alpha[j] > svmC {
					alpha[j], alpha[i] = svmC, sum-svmC
				}
			} else if alpha[i] < 0 {
				alpha[i], alpha[j] = 0, sum
			}
		}

		dI, dJ := alpha[i]-oldI, alpha[j]-oldJ
		for t := 0; t < l; t++ {
			grad[t] += qi[t]*dI + qj[t]*dJ
		}
	}

	m := binaryMachine{Rho: computeRho(alpha, grad, y)}
	for t := 0; t < l; t++ {
		if alpha[t] > 0 {
			m.Coef = append(m.Coef, alpha[t]*y[t])
			m.Vectors = append(m.Vectors, append([]float64(nil), x.Row(t)...))
		}
	}
	return m
}

// computeRho averages y*grad over the free vectors, or takes the middle of
// the feasible interval when every vector is at a bound.
func computeRho(alpha, grad, y []float64) float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	var nFree int
	for t := range alpha {
		yg := y[t] * grad[t]
		switch {
		case alpha[t] >= svmC:
			if y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case alpha[t] <= 0:
			if y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

func (m binaryMachine) decision(x []float64) float64 {
	sum := -m.Rho
	for i, sv := range m.Vectors {
		sum += m.Coef[i] * rbf(sv, x)
	}
	return sum
}

// Predict runs every pairwise machine and returns the most voted class.
// Equal votes go to the smallest label.
func (s *supportVectorMachine) Predict(samples ml.Matrix) ([]int, error) {
	if samples.Empty() {
		return []int{}, nil
	}
	if !s.Trained() {
		return nil, ErrNotTrained
	}
	if err := checkPredictInput(samples, s.dim); err != nil {
		return nil, err
	}
	out := make([]int, samples.Rows)
	votes := make([]int, s.classCount)
	for r := range out {
		if len(s.labels) == 1 {
			out[r] = s.labels[0]
			continue
		}
		x := samples.Row(r)
		for i := range votes {
			votes[i] = 0
		}
		for _, m := range s.machines {
			if m.decision(x) > 0 {
				votes[m.Positive]++
			} else {
				votes[m.Negative]++
			}
		}
		best := s.labels[0]
		for _, l := range s.labels {
			if votes[l] > votes[best] {
				best = l
			}
		}
		out[r] = best
	}
	return out, nil
}

// svmFile is the YAML model layout.
type svmFile struct {
	Type       string          `yaml:"type"`
	ClassCount int             `yaml:"class_count"`
	Pipeline   string          `yaml:"pipeline"`
	Kernel     string          `yaml:"kernel"`
	C          float64         `yaml:"c"`
	Gamma      float64         `yaml:"gamma"`
	Dim        int             `yaml:"var_count"`
	Labels     []int           `yaml:"class_labels,flow"`
	Machines   []binaryMachine `yaml:"decision_functions"`
}

func (s *supportVectorMachine) Save(path string) error {
	if !s.Trained() {
		return ErrNotTrained
	}
	return writeYAML(path, svmFile{
		Type:       SVM.String(),
		ClassCount: s.classCount,
		Pipeline:   s.pipeline.Name(),
		Kernel:     "rbf",
		C:          svmC,
		Gamma:      svmGamma,
		Dim:        s.dim,
		Labels:     s.labels,
		Machines:   s.machines,
	})
}

func (s *supportVectorMachine) Load(path string) error {
	var f svmFile
	if err := readYAML(path, &f); err != nil {
		return err
	}
	if err := checkHeader(f.Type, SVM, f.ClassCount, s.classCount); err != nil {
		return err
	}
	if len(f.Labels) == 0 {
		return fmt.Errorf("model has no classes")
	}
	if err := ml.CheckLabels(f.Labels, s.classCount); err != nil {
		return err
	}
	if want := len(f.Labels) * (len(f.Labels) - 1) / 2; len(f.Machines) != want {
		return fmt.Errorf("model has %d decision functions, want %d", len(f.Machines), want)
	}
	for i, m := range f.Machines {
		if len(m.Coef) != len(m.Vectors) {
			return fmt.Errorf("decision function %d: %d coefficients for %d vectors", i, len(m.Coef), len(m.Vectors))
		}
		if err := ml.CheckLabels([]int{m.Positive, m.Negative}, s.classCount); err != nil {
			return fmt.Errorf("decision function %d: %w", i, err)
		}
		for _, v := range m.Vectors {
			if len(v) != f.Dim {
				return fmt.Errorf("decision function %d: support vector has %d values, want %d", i, len(v), f.Dim)
			}
		}
	}
	s.dim, s.labels, s.machines = f.Dim, f.Labels, f.Machines
	s.cache = trainingCache{}
	return nil
}
