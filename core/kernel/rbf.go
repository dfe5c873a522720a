package kernel

import "math"

var (
	rbf *RBF
	_   Stationary = rbf // Check that RBF respects the Stationary interface.
)

// RBF is the radial basis (squared exponential) covariance function
//
//	k(a, b) = sigma * exp(-0.5 * (a-b)^2 / lengthScale^2)
//
// sigma is an amplitude on the variance scale: k(a, a) == sigma.
type RBF struct {
	sigma       float64
	lengthScale float64
}

// NewRBF returns an RBF kernel. lengthScale must be > 0 and sigma >= 0.
func NewRBF(sigma, lengthScale float64) (*RBF, error) {
	if err := validateVariance("sigma", sigma); err != nil {
		return nil, err
	}
	if err := validateLengthScale("length_scale", lengthScale); err != nil {
		return nil, err
	}
	return &RBF{
		sigma:       sigma,
		lengthScale: lengthScale,
	}, nil
}

func (k *RBF) Compute(a, b float64) float64 {
	d := a - b
	return k.sigma * math.Exp(-0.5*d*d/(k.lengthScale*k.lengthScale))
}

func (k *RBF) Variance() float64 {
	return k.sigma
}

func (k *RBF) Sigma() float64 {
	return k.sigma
}

func (k *RBF) LengthScale() float64 {
	return k.lengthScale
}
