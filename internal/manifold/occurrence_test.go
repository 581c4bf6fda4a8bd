package manifold

import (
	"testing"
	"time"
)

func TestNewOccurrenceConsciousPreActivated(t *testing.T) {
	now := time.Now()
	o := NewOccurrence("id", "word", Quaternion{W: 1}, 0, true, now)
	if o.ActivationCount != 1 {
		t.Fatalf("conscious occurrence ActivationCount = %d, want 1", o.ActivationCount)
	}
	if o.LastActivatedAt != now {
		t.Fatalf("conscious occurrence LastActivatedAt not stamped")
	}

	sub := NewOccurrence("id2", "word", Quaternion{W: 1}, 0, false, now)
	if sub.ActivationCount != 0 {
		t.Fatalf("subconscious occurrence ActivationCount = %d, want 0", sub.ActivationCount)
	}
}

func TestActivateIncrements(t *testing.T) {
	o := NewOccurrence("id", "word", Quaternion{W: 1}, 0, false, time.Now())
	later := time.Now().Add(time.Second)
	o.Activate(later)
	if o.ActivationCount != 1 {
		t.Fatalf("ActivationCount = %d, want 1", o.ActivationCount)
	}
	if o.LastActivatedAt != later {
		t.Fatalf("LastActivatedAt not updated")
	}
}

func TestDriftRateAnchorsAtThreshold(t *testing.T) {
	o := NewOccurrence("id", "word", Quaternion{W: 1}, 0, false, time.Now())
	o.ActivationCount = 5 // ratio = (5/10)/0.5 = 1 exactly
	rate := o.DriftRate(10, Theta)
	if rate != 0 {
		t.Fatalf("DriftRate at threshold = %f, want 0 (anchored)", rate)
	}
	if !o.Anchored {
		t.Fatalf("occurrence not anchored after crossing threshold")
	}
	// Anchoring is permanent even if a later call would compute a lower ratio.
	if rate2 := o.DriftRate(1000000, Theta); rate2 != 0 {
		t.Fatalf("DriftRate after anchoring = %f, want 0", rate2)
	}
}

func TestDriftRateBelowThreshold(t *testing.T) {
	o := NewOccurrence("id", "word", Quaternion{W: 1}, 0, false, time.Now())
	o.ActivationCount = 1
	rate := o.DriftRate(100, Theta) // ratio = (1/100)/0.5 = 0.02
	if rate <= 0 || rate >= 1 {
		t.Fatalf("DriftRate = %f, want in (0,1)", rate)
	}
	if o.Anchored {
		t.Fatalf("occurrence anchored below threshold")
	}
}

func TestDriftRateZeroTotal(t *testing.T) {
	o := NewOccurrence("id", "word", Quaternion{W: 1}, 0, false, time.Now())
	if rate := o.DriftRate(0, Theta); rate != 0 {
		t.Fatalf("DriftRate(0) = %f, want 0", rate)
	}
}
