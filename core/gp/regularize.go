package gp

import "gonum.org/v1/gonum/mat"

// Jitter is added to every covariance diagonal on top of the observation
// noise so that coincident points or zero noise never make the matrix
// exactly singular.
const Jitter = 1e-6

// Regularize returns K + (noise + Jitter) * I as a new matrix. k is left
// untouched. A nil k yields nil.
func Regularize(k *mat.SymDense, noise float64) *mat.SymDense {
	if k == nil {
		return nil
	}
	out := mat.NewSymDense(k.SymmetricDim(), nil)
	out.CopySym(k)
	addDiag(out, noise+Jitter)
	return out
}

func addDiag(s *mat.SymDense, v float64) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+v)
	}
}
