// Package kernel provides covariance functions over scalar inputs and the
// batch operations that turn them into covariance matrices.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrConfiguration indicates a kernel hyperparameter outside its domain.
var ErrConfiguration = errors.New("invalid kernel configuration")

// Kernel is a covariance function k(a, b) over scalar inputs.
// Implementations must be symmetric, free of side effects and defined for
// every real input.
type Kernel interface {
	Compute(a, b float64) float64
}

// MatrixKernel is implemented by kernels that provide their own batch path.
// Matrix and SymMatrix dispatch to it when available.
type MatrixKernel interface {
	Kernel
	Matrix(xs, ys []float64) *mat.Dense
}

// Stationary kernels depend only on a-b and expose their variance at zero
// distance.
type Stationary interface {
	Kernel
	Variance() float64
}

// Matrix builds the len(xs)×len(ys) covariance matrix with cell (i,j) equal
// to k.Compute(xs[i], ys[j]). The result is only symmetric when xs and ys hold
// the same points. Returns nil when either axis is empty since gonum does not
// allow zero-sized matrices.
func Matrix(k Kernel, xs, ys []float64) *mat.Dense {
	if len(xs) == 0 || len(ys) == 0 {
		return nil
	}
	if mk, ok := k.(MatrixKernel); ok {
		return mk.Matrix(xs, ys)
	}

	cols := len(ys)
	data := make([]float64, len(xs)*cols)
	for i, a := range xs {
		row := data[i*cols : (i+1)*cols]
		for j, b := range ys {
			row[j] = k.Compute(a, b)
		}
	}
	return mat.NewDense(len(xs), cols, data)
}

// SymMatrix builds the covariance matrix of xs with itself. Only the upper
// triangle is evaluated, so the result is symmetric by construction.
// Returns nil for an empty xs.
func SymMatrix(k Kernel, xs []float64) *mat.SymDense {
	n := len(xs)
	if n == 0 {
		return nil
	}
	if mk, ok := k.(MatrixKernel); ok {
		return symFromDense(mk.Matrix(xs, xs))
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, k.Compute(xs[i], xs[j]))
		}
	}
	return sym
}

// Diag evaluates k(x, x) for every x.
func Diag(k Kernel, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = k.Compute(x, x)
	}
	return out
}

func symFromDense(d *mat.Dense) *mat.SymDense {
	n, _ := d.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, d.At(i, j))
		}
	}
	return sym
}

func validateVariance(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a finite value >= 0, got %v", ErrConfiguration, name, v)
	}
	return nil
}

func validateLengthScale(name string, l float64) error {
	if math.IsNaN(l) || math.IsInf(l, 0) || l <= 0 {
		return fmt.Errorf("%w: %s must be a finite value > 0, got %v", ErrConfiguration, name, l)
	}
	return nil
}
