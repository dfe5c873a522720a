package gp

import (
	"fmt"
	"math"
	"strings"
)

// BandMode selects the half-width term of an uncertainty band.
type BandMode string

const (
	// BandVariance makes the band half-width the variance itself.
	BandVariance BandMode = "variance"

	// BandStdDev uses the standard deviation.
	BandStdDev BandMode = "stddev"
)

// ParseBandMode parses "variance" or "stddev" (case-insensitive).
func ParseBandMode(s string) (BandMode, error) {
	switch BandMode(strings.ToLower(strings.TrimSpace(s))) {
	case BandVariance:
		return BandVariance, nil
	case BandStdDev:
		return BandStdDev, nil
	default:
		return "", fmt.Errorf("%w: unknown band mode %q", ErrConfiguration, s)
	}
}

// Band returns mean − width·term and mean + width·term for every query
// point, where term is the variance or standard deviation per mode.
func (p Prediction) Band(mode BandMode, width float64) (lower, upper []float64) {
	lower = make([]float64, len(p.Mean))
	upper = make([]float64, len(p.Mean))
	for i, mean := range p.Mean {
		term := p.Variance[i]
		if mode == BandStdDev {
			term = math.Sqrt(term)
		}
		lower[i] = mean - width*term
		upper[i] = mean + width*term
	}
	return lower, upper
}
