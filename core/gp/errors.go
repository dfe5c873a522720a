package gp

import (
	"errors"
	"fmt"
	"strconv"

	coreerrors "github.com/adalundhe/gpr/core/errors"
	"github.com/adalundhe/gpr/core/kernel"
)

var (
	// ErrDimensionMismatch indicates training x and y sequences of different length.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrConfiguration indicates a hyperparameter outside its domain.
	ErrConfiguration = kernel.ErrConfiguration

	// ErrNotInvertible indicates the regularized training covariance could not be inverted.
	ErrNotInvertible = errors.New("covariance matrix not invertible")
)

func dimensionMismatch(nx, ny int) error {
	return coreerrors.NewTieredError(
		coreerrors.TierPermanent,
		"build model",
		fmt.Errorf("%w: len(x)=%d, len(y)=%d", ErrDimensionMismatch, nx, ny),
	).
		WithContext("len_x", strconv.Itoa(nx)).
		WithContext("len_y", strconv.Itoa(ny))
}

func configurationError(err error) error {
	if !errors.Is(err, ErrConfiguration) {
		err = fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return coreerrors.NewTieredError(coreerrors.TierUserFixable, "validate hyperparameters", err)
}

// notInvertible ranks raising the noise above pruning points: noise fixes
// both duplicate inputs and a kernel that is not positive definite.
func notInvertible(n int, noise float64, cause error) error {
	wrapped := fmt.Errorf("%w: %v", ErrNotInvertible, cause)
	raise := coreerrors.NewRemedy("increase noise_sigma", coreerrors.RemedyAdjust, 0.8).
		WithMetadata("noise_sigma", strconv.FormatFloat(noise, 'g', -1, 64)).
		WithMetadata("suggested", strconv.FormatFloat(max(10*noise, 0.01), 'g', -1, 64))
	prune := coreerrors.NewRemedy("remove coincident training points", coreerrors.RemedyAdjust, 0.5)
	return coreerrors.NewTieredError(coreerrors.TierUserFixable, "invert training covariance", wrapped).
		WithContext("n", strconv.Itoa(n)).
		WithRemedy(raise, prune)
}
