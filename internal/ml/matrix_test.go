package ml

import (
	"math"
	"reflect"
	"testing"
)

func TestFromRowsAndSelect(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows != 3 || m.Cols != 2 {
		t.Fatalf("dims = %dx%d", m.Rows, m.Cols)
	}
	got := m.Select([]int{2, 0})
	if !reflect.DeepEqual(got.Data, []float64{5, 6, 1, 2}) || got.Rows != 2 {
		t.Fatalf("Select = %+v", got)
	}
	if _, err := FromRows([][]float64{{1}, {1, 2}}, 0); err == nil {
		t.Fatal("ragged rows accepted")
	}
}

func TestEmptyMatrix(t *testing.T) {
	m, err := FromRows(nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Empty() || m.Cols != 4 || m.Dense() != nil {
		t.Fatalf("empty matrix = %+v", m)
	}
	o, _ := FromRows([][]float64{{1, 2, 3, 4}}, 0)
	c, err := Concat(m, o)
	if err != nil {
		t.Fatal(err)
	}
	if c.Rows != 1 || c.Cols != 4 {
		t.Fatalf("Concat dims = %dx%d", c.Rows, c.Cols)
	}
	both, err := Concat(Matrix{Cols: 3}, Matrix{})
	if err != nil || !both.Empty() || both.Cols != 3 {
		t.Fatalf("Concat(empty, empty) = %+v, %v", both, err)
	}
}

func TestConcatWidthMismatch(t *testing.T) {
	a, _ := FromRows([][]float64{{1, 2}}, 0)
	b, _ := FromRows([][]float64{{1, 2, 3}}, 0)
	if _, err := Concat(a, b); err == nil {
		t.Fatal("width mismatch accepted")
	}
}

func TestAppendRows(t *testing.T) {
	var m Matrix
	o, _ := FromRows([][]float64{{1, 2}, {3, 4}}, 0)
	if err := m.AppendRows(o); err != nil {
		t.Fatal(err)
	}
	if err := m.AppendRows(Matrix{Cols: 2}); err != nil {
		t.Fatal(err)
	}
	if m.Rows != 2 || m.Cols != 2 || m.At(1, 0) != 3 {
		t.Fatalf("AppendRows = %+v", m)
	}
	bad, _ := FromRows([][]float64{{1}}, 0)
	if err := m.AppendRows(bad); err == nil {
		t.Fatal("width mismatch accepted")
	}
}

func TestDenseSharesStorage(t *testing.T) {
	m, _ := FromRows([][]float64{{1, 2}, {3, 4}}, 0)
	d := m.Dense()
	d.Set(1, 1, 9)
	if m.At(1, 1) != 9 {
		t.Fatal("Dense does not share storage")
	}
	if back := FromDense(d); !reflect.DeepEqual(back.Data, m.Data) {
		t.Fatalf("FromDense = %v", back.Data)
	}
}

func TestOneHot(t *testing.T) {
	m := OneHot([]int{2, 0}, 3)
	if !reflect.DeepEqual(m.Data, []float64{0, 0, 1, 1, 0, 0}) {
		t.Fatalf("OneHot = %v", m.Data)
	}
	if err := CheckLabels([]int{0, 3}, 3); err == nil {
		t.Fatal("out of range label accepted")
	}
}

func TestSymmetricSigmoid(t *testing.T) {
	s := SymmetricSigmoid{Alpha: 1, Beta: 1}
	if s.Sigma(0) != 0 {
		t.Fatalf("Sigma(0) = %v", s.Sigma(0))
	}
	if v := s.Sigma(50); math.Abs(v-1) > 1e-9 {
		t.Fatalf("Sigma(50) = %v", v)
	}
	// numeric derivative
	const h = 1e-6
	for _, x := range []float64{-2, -0.3, 0, 0.7, 3} {
		want := (s.Sigma(x+h) - s.Sigma(x-h)) / (2 * h)
		if got := s.SigmaPrime(x); math.Abs(got-want) > 1e-6 {
			t.Errorf("SigmaPrime(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestArgMax(t *testing.T) {
	if i := ArgMax([]float64{0.1, 0.9, 0.9, -1}); i != 1 {
		t.Fatalf("ArgMax = %d, want 1", i)
	}
}
