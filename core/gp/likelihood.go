package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogMarginalLikelihood returns log p(y | X, hyperparameters) under the
// regularized covariance:
//
//	−½ yᵀ·Kinv·y − ½ log|K'| − n/2 · log 2π
//
// It is reported for comparing hyperparameter settings by hand; nothing in
// this package optimizes it. Zero for an empty training set.
func (m *Model) LogMarginalLikelihood() float64 {
	n := len(m.y)
	if n == 0 {
		return 0
	}
	fit := mat.Dot(mat.NewVecDense(n, m.y), m.alpha)
	return -0.5*fit - 0.5*m.logDet - 0.5*float64(n)*math.Log(2*math.Pi)
}
