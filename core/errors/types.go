// Package errors implements a small error taxonomy with classification and
// handling behavior for model construction and state persistence failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorTier represents the classification tier for errors.
// Each tier has defined behavior for retry policy and user notification.
type ErrorTier int

const (
	// TierTransient indicates temporary errors that may succeed on retry.
	// Examples: a locked state database, an interrupted write.
	TierTransient ErrorTier = iota

	// TierPermanent indicates errors that will not resolve with retry.
	// Examples: mismatched training sequences, corrupt persisted state.
	TierPermanent

	// TierUserFixable indicates errors that require the caller to change inputs.
	// Examples: a zero length scale, a covariance matrix that needs more noise.
	TierUserFixable
)

var tierNames = map[ErrorTier]string{
	TierTransient:   "transient",
	TierPermanent:   "permanent",
	TierUserFixable: "user_fixable",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TierBehavior defines the handling behavior for an error tier.
type TierBehavior struct {
	// ShouldRetry indicates whether the same call may succeed unchanged.
	ShouldRetry bool

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// ShouldNotify indicates whether to surface the error to the user.
	ShouldNotify bool
}

// DefaultBehaviors returns the default behavior for each error tier.
func DefaultBehaviors() map[ErrorTier]TierBehavior {
	return map[ErrorTier]TierBehavior{
		TierTransient: {
			ShouldRetry:  true,
			MaxRetries:   3,
			ShouldNotify: false,
		},
		TierPermanent: {
			ShouldRetry:  false,
			MaxRetries:   0,
			ShouldNotify: true,
		},
		TierUserFixable: {
			ShouldRetry:  false,
			MaxRetries:   0,
			ShouldNotify: true,
		},
	}
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	Remedies   Remedies
	Context    map[string]string
}

// Error implements the error interface.
func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is checks if the target error matches this TieredError's tier.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if errors.As(target, &te) {
		return e.Tier == te.Tier
	}
	return false
}

// NewTieredError creates a new TieredError with the given tier and message.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
		Context:    make(map[string]string),
	}
}

// WithContext adds context key-value pairs to the error.
func (e *TieredError) WithContext(key, value string) *TieredError {
	e.Context[key] = value
	return e
}

// WithRemedy attaches suggested fixes to the error. Nil remedies are skipped.
func (e *TieredError) WithRemedy(remedies ...*Remedy) *TieredError {
	for _, r := range remedies {
		if r != nil {
			e.Remedies = append(e.Remedies, r)
		}
	}
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Permanent.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierPermanent
}

// GetBehavior returns the behavior for an error's tier.
func GetBehavior(err error) TierBehavior {
	tier := GetTier(err)
	behaviors := DefaultBehaviors()
	return behaviors[tier]
}

// IsRetryable checks if an error should be retried based on its tier.
func IsRetryable(err error) bool {
	return GetBehavior(err).ShouldRetry
}

// GetRemedies returns the ranked remedies of the outermost TieredError in
// the chain that carries any.
func GetRemedies(err error) Remedies {
	for err != nil {
		var te *TieredError
		if !errors.As(err, &te) {
			return nil
		}
		if len(te.Remedies) > 0 {
			return te.Remedies.Ranked()
		}
		err = te.Underlying
	}
	return nil
}

// GetRemedy returns the best remedy attached anywhere in the error chain.
func GetRemedy(err error) *Remedy {
	return GetRemedies(err).Best()
}

// Tier sentinels for errors.Is matching on classification alone.
var (
	ErrTransient   = NewTieredError(TierTransient, "transient failure", nil)
	ErrPermanent   = NewTieredError(TierPermanent, "permanent failure", nil)
	ErrUserFixable = NewTieredError(TierUserFixable, "user fixable failure", nil)
)

// WrapWithTier wraps an error with a tier classification.
func WrapWithTier(tier ErrorTier, message string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap TieredErrors
	var te *TieredError
	if errors.As(err, &te) {
		// Preserve existing tier if wrapping
		return &TieredError{
			Tier:       te.Tier,
			Message:    message,
			Underlying: err,
			Context:    te.Context,
		}
	}

	return NewTieredError(tier, message, err)
}
