package kernel

import "math"

var (
	matern12 *Matern12
	matern32 *Matern32
	_        Stationary = matern12 // Check that Matern12 respects the Stationary interface.
	_        Stationary = matern32 // Check that Matern32 respects the Stationary interface.
)

// Matern12 is the exponential (Ornstein-Uhlenbeck) covariance function
//
//	k(a, b) = variance * exp(-|a-b| / lengthScale)
type Matern12 struct {
	variance    float64
	lengthScale float64
}

func NewMatern12(variance, lengthScale float64) (*Matern12, error) {
	if err := validateVariance("variance", variance); err != nil {
		return nil, err
	}
	if err := validateLengthScale("length_scale", lengthScale); err != nil {
		return nil, err
	}
	return &Matern12{
		variance:    variance,
		lengthScale: lengthScale,
	}, nil
}

func (k *Matern12) Compute(a, b float64) float64 {
	return k.variance * math.Exp(-math.Abs(a-b)/k.lengthScale)
}

func (k *Matern12) Variance() float64 {
	return k.variance
}

// Matern32 is the once-differentiable Matern covariance function
//
//	k(a, b) = variance * (1 + lambda*|a-b|) * exp(-lambda*|a-b|),  lambda = sqrt(3)/lengthScale
type Matern32 struct {
	variance float64
	lambda   float64
}

func NewMatern32(variance, lengthScale float64) (*Matern32, error) {
	if err := validateVariance("variance", variance); err != nil {
		return nil, err
	}
	if err := validateLengthScale("length_scale", lengthScale); err != nil {
		return nil, err
	}
	return &Matern32{
		variance: variance,
		lambda:   math.Sqrt(3) / lengthScale,
	}, nil
}

func (k *Matern32) Compute(a, b float64) float64 {
	r := k.lambda * math.Abs(a-b)
	return k.variance * (1 + r) * math.Exp(-r)
}

func (k *Matern32) Variance() float64 {
	return k.variance
}
