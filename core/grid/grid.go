// Package grid builds the evenly spaced query points a posterior is
// evaluated on.
package grid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Default plotting range and resolution.
const (
	DefaultLo     = 0.0
	DefaultHi     = 10.0
	DefaultPoints = 101
)

// ErrInvalidGrid indicates a malformed or empty grid specification.
var ErrInvalidGrid = errors.New("invalid grid")

// Spec describes a closed interval sampled at Points evenly spaced values.
type Spec struct {
	Lo     float64 `yaml:"lo" json:"lo"`
	Hi     float64 `yaml:"hi" json:"hi"`
	Points int     `yaml:"points" json:"points"`
}

// Default returns 101 points over [0, 10].
func Default() Spec {
	return Spec{Lo: DefaultLo, Hi: DefaultHi, Points: DefaultPoints}
}

// Validate checks that the bounds are finite and ordered and that there is
// at least one point. A single point requires Lo == Hi.
func (s Spec) Validate() error {
	if math.IsNaN(s.Lo) || math.IsInf(s.Lo, 0) || math.IsNaN(s.Hi) || math.IsInf(s.Hi, 0) {
		return fmt.Errorf("%w: bounds must be finite, got [%v, %v]", ErrInvalidGrid, s.Lo, s.Hi)
	}
	if s.Points < 1 {
		return fmt.Errorf("%w: need at least one point, got %d", ErrInvalidGrid, s.Points)
	}
	if s.Hi < s.Lo {
		return fmt.Errorf("%w: hi %v below lo %v", ErrInvalidGrid, s.Hi, s.Lo)
	}
	if s.Points == 1 && s.Hi != s.Lo {
		return fmt.Errorf("%w: a single point needs lo == hi", ErrInvalidGrid)
	}
	return nil
}

// Values returns the grid points. The last value is exactly Hi.
func (s Spec) Values() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return Linspace(s.Lo, s.Hi, s.Points), nil
}

// String formats the spec as lo:hi:points.
func (s Spec) String() string {
	return strconv.FormatFloat(s.Lo, 'g', -1, 64) + ":" +
		strconv.FormatFloat(s.Hi, 'g', -1, 64) + ":" +
		strconv.Itoa(s.Points)
}

// Parse reads a lo:hi:points specification such as "0:10:101". The points
// field may be omitted, in which case DefaultPoints is used.
func Parse(text string) (Spec, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Spec{}, fmt.Errorf("%w: want lo:hi[:points], got %q", ErrInvalidGrid, text)
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: lo: %v", ErrInvalidGrid, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: hi: %v", ErrInvalidGrid, err)
	}

	points := DefaultPoints
	if len(parts) == 3 {
		points, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return Spec{}, fmt.Errorf("%w: points: %v", ErrInvalidGrid, err)
		}
	}

	s := Spec{Lo: lo, Hi: hi, Points: points}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive. n <= 0
// yields an empty slice and n == 1 yields [lo].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
