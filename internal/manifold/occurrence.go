package manifold

import "time"

// Occurrence is a single word instance anchored at a point on the
// manifold: a quaternion position, a phasor, and the activation history
// that governs how much farther it may move.
type Occurrence struct {
	ID              string
	Word            string
	Position        Quaternion
	Phase           Phasor
	ActivationCount uint32
	Anchored        bool
	CreatedAt       time.Time
	LastActivatedAt time.Time
}

// NewOccurrence builds an occurrence at position with the given phase.
// Conscious occurrences start pre-activated (activation_count = 1); all
// others start at 0.
func NewOccurrence(id, word string, position Quaternion, phase Phasor, conscious bool, now time.Time) *Occurrence {
	o := &Occurrence{
		ID:        id,
		Word:      word,
		Position:  position,
		Phase:     phase,
		CreatedAt: now,
	}
	if conscious {
		o.ActivationCount = 1
		o.LastActivatedAt = now
	}
	return o
}

// Activate increments the activation counter and refreshes the
// last-activated timestamp.
func (o *Occurrence) Activate(now time.Time) {
	o.ActivationCount++
	o.LastActivatedAt = now
}

// Plasticity is 1 / (1 + ln(1 + activation_count)): occurrences that have
// been activated many times move less on each subsequent query.
func (o *Occurrence) Plasticity() float64 {
	return Plasticity(o.ActivationCount)
}

// DriftRate returns (activation_count / neighborhoodTotal) / theta clamped
// to [0,1]. Once this ratio reaches 1, the occurrence is anchored: Anchored
// flips to true (permanently — the spec requires anchoring to be
// monotone) and DriftRate returns 0 from then on, even if the underlying
// ratio would later drop (e.g. neighborhoodTotal grows). theta is the
// system's configured vividness/anchoring threshold (Theta by default).
func (o *Occurrence) DriftRate(neighborhoodTotal uint32, theta float64) float64 {
	if o.Anchored {
		return 0
	}
	if neighborhoodTotal == 0 {
		return 0
	}
	ratio := (float64(o.ActivationCount) / float64(neighborhoodTotal)) / theta
	rate := clamp(ratio, 0, 1)
	if rate >= 1 {
		o.Anchored = true
		return 0
	}
	return rate
}
