package errors

import (
	"cmp"
	"slices"
)

// RemedyAction is what the caller should do about an error.
type RemedyAction string

const (
	// RemedyRetry means the same call may succeed unchanged.
	RemedyRetry RemedyAction = "retry"

	// RemedyAdjust means the call should be repeated with different inputs,
	// such as a larger noise_sigma or fewer training points.
	RemedyAdjust RemedyAction = "adjust"

	// RemedyAbort means there is nothing useful to try.
	RemedyAbort RemedyAction = "abort"
)

// Remedy is one suggested fix. Confidence in [0, 1] ranks it against the
// other remedies attached to the same error.
type Remedy struct {
	Description string
	Action      RemedyAction
	Confidence  float64
	Metadata    map[string]string
}

// NewRemedy creates a remedy, clamping confidence into [0, 1].
func NewRemedy(description string, action RemedyAction, confidence float64) *Remedy {
	return &Remedy{
		Description: description,
		Action:      action,
		Confidence:  min(max(confidence, 0), 1),
		Metadata:    make(map[string]string),
	}
}

// WithMetadata records a value the remedy refers to, e.g. the current noise_sigma.
func (r *Remedy) WithMetadata(key, value string) *Remedy {
	r.Metadata[key] = value
	return r
}

// Remedies is the set of fixes attached to an error.
type Remedies []*Remedy

// Ranked returns a copy ordered by descending confidence. Ties keep the
// order in which the remedies were attached.
func (rs Remedies) Ranked() Remedies {
	out := slices.Clone(rs)
	slices.SortStableFunc(out, func(a, b *Remedy) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return out
}

// Best returns the highest-confidence remedy, or nil if there is none.
func (rs Remedies) Best() *Remedy {
	if len(rs) == 0 {
		return nil
	}
	return rs.Ranked()[0]
}

// Alternatives returns every remedy except Best, still ranked.
func (rs Remedies) Alternatives() Remedies {
	if len(rs) < 2 {
		return nil
	}
	return rs.Ranked()[1:]
}
