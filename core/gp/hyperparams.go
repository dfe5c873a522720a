package gp

import (
	"fmt"
	"math"

	"github.com/adalundhe/gpr/core/kernel"
)

// Hyperparams are the RBF amplitude, length scale and observation noise.
// They are passed by value; a model never changes them after construction.
type Hyperparams struct {
	// Sigma is the kernel amplitude on the variance scale. Must be >= 0.
	Sigma float64 `json:"sigma" yaml:"sigma"`

	// LengthScale controls how quickly covariance decays with distance. Must be > 0.
	LengthScale float64 `json:"length_scale" yaml:"length_scale"`

	// NoiseSigma is added to the training covariance diagonal. Must be >= 0.
	NoiseSigma float64 `json:"noise_sigma" yaml:"noise_sigma"`
}

// DefaultHyperparams returns sigma=1, length_scale=1, noise_sigma=0.1.
func DefaultHyperparams() Hyperparams {
	return Hyperparams{
		Sigma:       1.0,
		LengthScale: 1.0,
		NoiseSigma:  0.1,
	}
}

// Validate checks every hyperparameter against its domain.
func (hp Hyperparams) Validate() error {
	if !finite(hp.LengthScale) || hp.LengthScale <= 0 {
		return configurationError(fmt.Errorf("%w: length_scale must be > 0, got %v", ErrConfiguration, hp.LengthScale))
	}
	if !finite(hp.Sigma) || hp.Sigma < 0 {
		return configurationError(fmt.Errorf("%w: sigma must be >= 0, got %v", ErrConfiguration, hp.Sigma))
	}
	if err := validateNoise(hp.NoiseSigma); err != nil {
		return err
	}
	return nil
}

// Kernel builds the RBF covariance function for these hyperparameters.
func (hp Hyperparams) Kernel() (*kernel.RBF, error) {
	k, err := kernel.NewRBF(hp.Sigma, hp.LengthScale)
	if err != nil {
		return nil, configurationError(err)
	}
	return k, nil
}

func validateNoise(noise float64) error {
	if !finite(noise) || noise < 0 {
		return configurationError(fmt.Errorf("%w: noise_sigma must be >= 0, got %v", ErrConfiguration, noise))
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
