package errors

import (
	"testing"
)

func TestNewRemedy(t *testing.T) {
	r := NewRemedy("raise noise_sigma", RemedyAdjust, 1.7)
	if r.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", r.Confidence)
	}
	if r.Action != RemedyAdjust {
		t.Errorf("Action = %v, want adjust", r.Action)
	}

	r = NewRemedy("noop", RemedyAbort, -3)
	if r.Confidence != 0.0 {
		t.Errorf("Confidence = %v, want 0.0", r.Confidence)
	}

	r.WithMetadata("noise_sigma", "0.1")
	if r.Metadata["noise_sigma"] != "0.1" {
		t.Error("metadata not stored")
	}
}

func TestRemediesRanking(t *testing.T) {
	var none Remedies
	if none.Best() != nil || none.Alternatives() != nil {
		t.Error("empty remedies should have no best or alternatives")
	}

	first := NewRemedy("remove coincident training points", RemedyAdjust, 0.5)
	second := NewRemedy("increase noise_sigma", RemedyAdjust, 0.8)
	tie := NewRemedy("drop the newest point", RemedyAdjust, 0.5)
	rs := Remedies{first, second, tie}

	if rs.Best() != second {
		t.Errorf("Best() = %v, want %v", rs.Best(), second)
	}
	alts := rs.Alternatives()
	if len(alts) != 2 || alts[0] != first || alts[1] != tie {
		t.Errorf("Alternatives() = %v, want [first tie] in attach order", alts)
	}
	if rs[0] != first {
		t.Error("Ranked must not reorder the receiver")
	}
	if (Remedies{second}).Alternatives() != nil {
		t.Error("a single remedy has no alternatives")
	}
}
