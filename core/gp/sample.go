package gp

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Sample draws n functions from the posterior at xq. Column j of the
// returned len(xq)×n matrix is one draw.
//
// The posterior covariance is factored with Cholesky; when cancellation has
// left it numerically indefinite, an eigendecomposition with negative
// eigenvalues clipped to zero is used instead.
func (m *Model) Sample(xq []float64, n int, rng *rand.Rand) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: number of samples must be positive, got %d", ErrConfiguration, n)
	}
	if len(xq) == 0 {
		return nil, fmt.Errorf("%w: no query points to sample", ErrConfiguration)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrConfiguration)
	}

	mean, cov := m.PredictCov(xq)
	factor, err := covFactor(cov)
	if err != nil {
		return nil, err
	}

	mq := len(xq)
	z := mat.NewDense(mq, n, nil)
	for i := 0; i < mq; i++ {
		for j := 0; j < n; j++ {
			z.Set(i, j, rng.NormFloat64())
		}
	}

	var out mat.Dense
	out.Mul(factor, z)
	for i := 0; i < mq; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += mean[i]
		}
	}
	return &out, nil
}

// covFactor returns F with F·Fᵀ equal to cov (up to clipping).
func covFactor(cov *mat.SymDense) (mat.Matrix, error) {
	var chol mat.Cholesky
	if chol.Factorize(cov) {
		var l mat.TriDense
		chol.LTo(&l)
		return &l, nil
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return nil, errors.New("posterior covariance factorization failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	r, c := vecs.Dims()
	for j := 0; j < c; j++ {
		s := math.Sqrt(math.Max(0, vals[j]))
		for i := 0; i < r; i++ {
			vecs.Set(i, j, vecs.At(i, j)*s)
		}
	}
	return &vecs, nil
}
