package gp

import (
	"log/slog"
	"math"

	"github.com/adalundhe/gpr/core/kernel"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

// Prediction holds the posterior mean and variance at each query point, in
// query order.
type Prediction struct {
	X        []float64 `json:"x"`
	Mean     []float64 `json:"mean"`
	Variance []float64 `json:"variance"`

	// Clamped counts variances that came out slightly negative from
	// floating point cancellation and were reported as 0.
	Clamped int `json:"clamped,omitempty"`
}

// Len returns the number of query points.
func (p Prediction) Len() int {
	return len(p.Mean)
}

// StdDev returns the square root of every variance.
func (p Prediction) StdDev() []float64 {
	out := make([]float64, len(p.Variance))
	for i, v := range p.Variance {
		out[i] = math.Sqrt(v)
	}
	return out
}

// Predict returns the posterior mean and variance of the latent function at
// xq. With Kstar = K(X, xq) of shape n×m:
//
//	mean     = Kstarᵀ · Kinv · y
//	variance = diag(K(xq, xq) − Kstarᵀ · Kinv · Kstar) + Jitter
//
// Negative variances from cancellation are clamped to 0. Predict does not
// modify the model and is safe for concurrent use.
func (m *Model) Predict(xq []float64) Prediction {
	mq := len(xq)
	p := Prediction{
		X:        cloneFloats(xq),
		Mean:     make([]float64, mq),
		Variance: kernel.Diag(m.kernel, xq),
	}
	if mq == 0 {
		return p
	}

	if len(m.x) > 0 {
		kStarT := m.crossT(xq)

		mean := mat.NewVecDense(mq, p.Mean)
		mean.MulVec(kStarT, m.alpha)

		// Row i of u·kStarT holds kStar[:,i]ᵀ·Kinv; its dot with row i of
		// kStarT is the explained variance at xq[i].
		var u mat.Dense
		u.Mul(kStarT, m.inv)
		for i := 0; i < mq; i++ {
			p.Variance[i] -= vek.Dot(u.RawRowView(i), kStarT.RawRowView(i))
		}
	}

	for i := range p.Variance {
		p.Variance[i] += Jitter
		if p.Variance[i] < 0 {
			p.Variance[i] = 0
			p.Clamped++
		}
	}
	if p.Clamped > 0 {
		m.logger.Debug("negative predictive variance clamped to zero",
			slog.Int("clamped", p.Clamped),
			slog.Int("queries", mq))
	}

	return p
}

// PredictObserved is Predict with the observation noise added to every
// variance: the predictive distribution of a new noisy observation rather
// than of the latent function.
func (m *Model) PredictObserved(xq []float64) Prediction {
	p := m.Predict(xq)
	for i := range p.Variance {
		p.Variance[i] += m.noise
	}
	return p
}

// PredictCov returns the posterior mean and full posterior covariance
//
//	K(xq, xq) − Kstarᵀ · Kinv · Kstar + Jitter·I
//
// Unlike Predict the covariance is not clamped. cov is nil for an empty xq.
func (m *Model) PredictCov(xq []float64) ([]float64, *mat.SymDense) {
	mq := len(xq)
	mean := make([]float64, mq)
	if mq == 0 {
		return mean, nil
	}

	cov := kernel.SymMatrix(m.kernel, xq)
	if len(m.x) > 0 {
		kStarT := m.crossT(xq)

		mv := mat.NewVecDense(mq, mean)
		mv.MulVec(kStarT, m.alpha)

		var u, explained mat.Dense
		u.Mul(kStarT, m.inv)
		explained.Mul(&u, kStarT.T())
		for i := 0; i < mq; i++ {
			for j := i; j < mq; j++ {
				e := 0.5 * (explained.At(i, j) + explained.At(j, i))
				cov.SetSym(i, j, cov.At(i, j)-e)
			}
		}
	}
	addDiag(cov, Jitter)

	return mean, cov
}

// crossT returns K(xq, X) = K(X, xq)ᵀ as a dense m×n matrix so that each
// query point owns a contiguous row.
func (m *Model) crossT(xq []float64) *mat.Dense {
	kStar := kernel.Matrix(m.kernel, m.x, xq)
	var out mat.Dense
	out.CloneFrom(kStar.T())
	return &out
}
