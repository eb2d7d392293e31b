package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type IActivationFn interface {
	Sigma(x float64) float64
	SigmaPrime(x float64) float64
}

// SymmetricSigmoid is beta*(1-exp(-alpha*x))/(1+exp(-alpha*x)), ranging over
// (-beta, beta).
type SymmetricSigmoid struct {
	Alpha float64
	Beta  float64
}

func (s SymmetricSigmoid) Sigma(x float64) float64 {
	e := math.Exp(-s.Alpha * x)
	return s.Beta * (1 - e) / (1 + e)
}

func (s SymmetricSigmoid) SigmaPrime(x float64) float64 {
	e := math.Exp(-s.Alpha * x)
	d := 1 + e
	return 2 * s.Alpha * s.Beta * e / (d * d)
}

// ArgMax returns the index of the largest value; the first one wins ties.
func ArgMax(values []float64) int {
	return floats.MaxIdx(values)
}
