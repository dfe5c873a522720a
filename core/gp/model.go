// Package gp implements exact Gaussian Process regression over scalar inputs.
//
// A Model is built once from a training set, a covariance function and an
// observation noise level. Construction assembles the training covariance,
// regularizes its diagonal and stores its inverse. A Model is immutable after
// construction: changing data or hyperparameters means building a new Model,
// so Predict may be called concurrently without locking.
package gp

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/adalundhe/gpr/core/kernel"
	"gonum.org/v1/gonum/mat"
)

// Inversion methods recorded on a Model.
const (
	MethodNone     = "none"
	MethodCholesky = "cholesky"
	MethodLU       = "lu"
)

// =============================================================================
// Options
// =============================================================================

type options struct {
	logger *slog.Logger
}

// Option configures model construction.
type Option func(*options)

// WithLogger sets the logger used for construction and prediction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// =============================================================================
// Model
// =============================================================================

// Model is a fitted GP regression model.
type Model struct {
	kernel kernel.Kernel
	x      []float64
	y      []float64
	noise  float64

	// inv is (K + (noise+Jitter)I)^-1, nil for an empty training set.
	inv *mat.SymDense

	// alpha caches inv·y so predictive means cost one mat-vec.
	alpha *mat.VecDense

	logDet float64
	method string
	logger *slog.Logger
}

// New fits a model to the training pairs (x[i], y[i]).
//
// It fails with ErrDimensionMismatch when len(x) != len(y), with
// ErrConfiguration for a nil kernel, a negative or non-finite noise or
// non-finite training values, and with ErrNotInvertible when the regularized
// covariance cannot be inverted. An empty training set is valid and
// predicts the prior.
func New(x, y []float64, k kernel.Kernel, noise float64, opts ...Option) (*Model, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(x) != len(y) {
		return nil, dimensionMismatch(len(x), len(y))
	}
	if k == nil {
		return nil, configurationError(fmt.Errorf("%w: kernel is nil", ErrConfiguration))
	}
	if err := validateNoise(noise); err != nil {
		return nil, err
	}
	if err := validateFinite("x", x); err != nil {
		return nil, err
	}
	if err := validateFinite("y", y); err != nil {
		return nil, err
	}

	m := &Model{
		kernel: k,
		x:      cloneFloats(x),
		y:      cloneFloats(y),
		noise:  noise,
		method: MethodNone,
		logger: o.logger,
	}

	n := len(x)
	if n == 0 {
		m.logger.Debug("gp model built with empty training set")
		return m, nil
	}

	kReg := Regularize(kernel.SymMatrix(k, m.x), noise)
	inv, logDet, method, err := invert(kReg)
	if err != nil {
		m.logger.Warn("training covariance inversion failed",
			slog.Int("n", n),
			slog.Float64("noise_sigma", noise),
			slog.String("error", err.Error()))
		return nil, notInvertible(n, noise, err)
	}

	alpha := mat.NewVecDense(n, nil)
	alpha.MulVec(inv, mat.NewVecDense(n, m.y))

	m.inv = inv
	m.alpha = alpha
	m.logDet = logDet
	m.method = method

	m.logger.Debug("gp model built",
		slog.Int("n", n),
		slog.Float64("noise_sigma", noise),
		slog.String("method", method))

	return m, nil
}

// Fit validates hp and builds a model with its RBF kernel.
func Fit(x, y []float64, hp Hyperparams, opts ...Option) (*Model, error) {
	if len(x) != len(y) {
		return nil, dimensionMismatch(len(x), len(y))
	}
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	k, err := hp.Kernel()
	if err != nil {
		return nil, err
	}
	return New(x, y, k, hp.NoiseSigma, opts...)
}

// invert returns the inverse of a symmetric matrix and its log absolute
// determinant. Cholesky is tried first; LU handles matrices that are
// invertible but not numerically positive definite.
func invert(k *mat.SymDense) (*mat.SymDense, float64, string, error) {
	n := k.SymmetricDim()

	var chol mat.Cholesky
	if chol.Factorize(k) {
		inv := mat.NewSymDense(n, nil)
		if err := chol.InverseTo(inv); err == nil || acceptCondition(err) {
			if allFinite(inv.RawSymmetric().Data) {
				return inv, chol.LogDet(), MethodCholesky, nil
			}
		}
	}

	var dense mat.Dense
	if err := dense.Inverse(k); err != nil && !acceptCondition(err) {
		return nil, 0, "", err
	}

	inv := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			inv.SetSym(i, j, 0.5*(dense.At(i, j)+dense.At(j, i)))
		}
	}
	if !allFinite(inv.RawSymmetric().Data) {
		return nil, 0, "", errors.New("inverse has non-finite entries")
	}
	logDet, sign := mat.LogDet(k)
	if sign == 0 {
		return nil, 0, "", errors.New("matrix is singular")
	}
	return inv, logDet, MethodLU, nil
}

// acceptCondition reports whether err is only an ill-conditioning warning
// with a finite condition number; the inverse is still computed in that case.
func acceptCondition(err error) bool {
	var cond mat.Condition
	return errors.As(err, &cond) && !math.IsInf(float64(cond), 0)
}

// =============================================================================
// Accessors
// =============================================================================

// Len returns the number of training points.
func (m *Model) Len() int {
	return len(m.x)
}

// X returns a copy of the training inputs.
func (m *Model) X() []float64 {
	return cloneFloats(m.x)
}

// Y returns a copy of the training targets.
func (m *Model) Y() []float64 {
	return cloneFloats(m.y)
}

// Noise returns the observation noise used at construction.
func (m *Model) Noise() float64 {
	return m.noise
}

// Kernel returns the covariance function of the model.
func (m *Model) Kernel() kernel.Kernel {
	return m.kernel
}

// Method returns how the training covariance was inverted.
func (m *Model) Method() string {
	return m.method
}

// Inverse returns a copy of the regularized training covariance inverse, or
// nil for an empty training set.
func (m *Model) Inverse() *mat.SymDense {
	if m.inv == nil {
		return nil
	}
	out := mat.NewSymDense(m.inv.SymmetricDim(), nil)
	out.CopySym(m.inv)
	return out
}

func cloneFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func allFinite(v []float64) bool {
	for _, f := range v {
		if !finite(f) {
			return false
		}
	}
	return true
}

func validateFinite(name string, v []float64) error {
	for i, f := range v {
		if !finite(f) {
			return configurationError(fmt.Errorf("%w: %s[%d] is not finite: %v", ErrConfiguration, name, i, f))
		}
	}
	return nil
}
