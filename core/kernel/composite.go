package kernel

import "fmt"

var (
	constant *Constant
	sum      *Sum
	_        Stationary = constant // Check that Constant respects the Stationary interface.
	_        Stationary = sum      // Check that Sum respects the Stationary interface.
)

// Constant is a covariance function with the same value for every pair of
// inputs. Added to another kernel it models an unknown constant offset.
type Constant struct {
	variance float64
}

func NewConstant(variance float64) (*Constant, error) {
	if err := validateVariance("variance", variance); err != nil {
		return nil, err
	}
	return &Constant{variance: variance}, nil
}

func (k *Constant) Compute(a, b float64) float64 {
	return k.variance
}

func (k *Constant) Variance() float64 {
	return k.variance
}

// Sum is the pointwise sum of its parts. Nested sums are flattened.
type Sum struct {
	parts []Stationary
}

// NewSum combines kernels into a single covariance function.
func NewSum(parts ...Stationary) (*Sum, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: sum needs at least one kernel", ErrConfiguration)
	}
	flat := make([]Stationary, 0, len(parts))
	for i, part := range parts {
		switch part := part.(type) {
		case nil:
			return nil, fmt.Errorf("%w: sum part %d is nil", ErrConfiguration, i)
		case *Sum:
			flat = append(flat, part.parts...)
		default:
			flat = append(flat, part)
		}
	}
	return &Sum{parts: flat}, nil
}

func (k *Sum) Compute(a, b float64) float64 {
	total := 0.0
	for _, part := range k.parts {
		total += part.Compute(a, b)
	}
	return total
}

func (k *Sum) Variance() float64 {
	total := 0.0
	for _, part := range k.parts {
		total += part.Variance()
	}
	return total
}

// Len returns the number of flattened parts.
func (k *Sum) Len() int {
	return len(k.parts)
}
