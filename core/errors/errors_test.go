package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTierString(t *testing.T) {
	tests := []struct {
		tier     ErrorTier
		expected string
	}{
		{TierTransient, "transient"},
		{TierPermanent, "permanent"},
		{TierUserFixable, "user_fixable"},
		{ErrorTier(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.tier.String(); got != tt.expected {
				t.Errorf("ErrorTier.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTieredErrorError(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		underlying := errors.New("base error")
		err := NewTieredError(TierTransient, "wrapped", underlying)
		expected := "[transient] wrapped: base error"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := NewTieredError(TierPermanent, "simple error", nil)
		expected := "[permanent] simple error"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})
}

func TestTieredErrorIs(t *testing.T) {
	sentinel := errors.New("matrix not invertible")
	err := fmt.Errorf("fit: %w", NewTieredError(TierUserFixable, "invert", sentinel))

	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the underlying sentinel")
	}
	if !errors.Is(err, ErrUserFixable) {
		t.Error("errors.Is should match on tier")
	}
	if errors.Is(err, ErrPermanent) {
		t.Error("errors.Is should not match a different tier")
	}
}

func TestGetTierAndBehavior(t *testing.T) {
	if got := GetTier(errors.New("plain")); got != TierPermanent {
		t.Errorf("GetTier(plain) = %v, want permanent", got)
	}
	transient := NewTieredError(TierTransient, "busy", nil)
	if got := GetTier(fmt.Errorf("outer: %w", transient)); got != TierTransient {
		t.Errorf("GetTier(wrapped) = %v, want transient", got)
	}
	if !IsRetryable(transient) {
		t.Error("transient errors should be retryable")
	}
	if IsRetryable(NewTieredError(TierUserFixable, "bad input", nil)) {
		t.Error("user fixable errors should not be retryable")
	}
}

func TestWrapWithTier(t *testing.T) {
	if WrapWithTier(TierPermanent, "msg", nil) != nil {
		t.Error("wrapping nil should return nil")
	}

	inner := NewTieredError(TierUserFixable, "inner", nil).WithContext("n", "3")
	wrapped := WrapWithTier(TierPermanent, "outer", inner)
	if GetTier(wrapped) != TierUserFixable {
		t.Errorf("existing tier should be preserved, got %v", GetTier(wrapped))
	}

	var te *TieredError
	if !errors.As(wrapped, &te) || te.Context["n"] != "3" {
		t.Error("context should be carried over")
	}
}

func TestGetRemedy(t *testing.T) {
	remedy := NewRemedy("increase noise", RemedyAdjust, 0.9)
	inner := NewTieredError(TierUserFixable, "inner", errors.New("singular")).WithRemedy(remedy)
	outer := WrapWithTier(TierPermanent, "outer", inner)

	if got := GetRemedy(outer); got != remedy {
		t.Errorf("GetRemedy() = %v, want %v", got, remedy)
	}
	if GetRemedy(errors.New("plain")) != nil {
		t.Error("plain errors carry no remedy")
	}
	if GetRemedy(nil) != nil {
		t.Error("nil error carries no remedy")
	}
}

func TestGetRemedies(t *testing.T) {
	low := NewRemedy("remove coincident points", RemedyAdjust, 0.4)
	high := NewRemedy("increase noise_sigma", RemedyAdjust, 0.9)
	err := NewTieredError(TierUserFixable, "invert", nil).WithRemedy(low, nil, high)

	got := GetRemedies(fmt.Errorf("fit: %w", err))
	if len(got) != 2 || got[0] != high || got[1] != low {
		t.Errorf("GetRemedies() = %v, want [high low]", got)
	}
	if GetRemedies(errors.New("plain")) != nil {
		t.Error("plain errors carry no remedies")
	}
}
