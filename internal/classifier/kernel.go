package classifier

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"charocr/internal/ml"
)

// svmCacheBytes bounds the kernel rows kept in memory while training one
// pairwise machine.
const svmCacheBytes = 100 << 20

// kernelRows serves rows of Q[i][j] = y[i]*y[j]*K(x[i], x[j]). Rows are
// computed when first needed and kept in an LRU cache of at most capacity
// rows, so memory does not grow with the square of the sample count.
type kernelRows struct {
	x        ml.Matrix
	y        []float64
	diag     []float64
	capacity int
	cache    *lru.Cache[int, []float64]
}

func newKernelRows(x ml.Matrix, y []float64, budgetBytes int) *kernelRows {
	capacity := max(2, budgetBytes/(8*max(1, x.Rows)))
	cache, err := lru.New[int, []float64](capacity)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	k := &kernelRows{x: x, y: y, capacity: capacity, cache: cache, diag: make([]float64, x.Rows)}
	for i := range k.diag {
		k.diag[i] = rbf(x.Row(i), x.Row(i))
	}
	return k
}

// row returns Q[i]. The slice stays valid after it is evicted.
func (k *kernelRows) row(i int) []float64 {
	if r, ok := k.cache.Get(i); ok {
		return r
	}
	r := make([]float64, k.x.Rows)
	xi := k.x.Row(i)
	for j := range r {
		r[j] = k.y[i] * k.y[j] * rbf(xi, k.x.Row(j))
	}
	k.cache.Add(i, r)
	return r
}
