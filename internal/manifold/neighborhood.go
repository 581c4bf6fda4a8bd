package manifold

import (
	"math/rand"
	"time"
)

// Neighborhood is a seeded cluster: every occurrence it holds lies within
// RadiusNeighborhood of Seed. Insertion order is preserved in Occurrences
// for reproducible iteration.
type Neighborhood struct {
	ID               string
	Seed             Quaternion
	Occurrences      []*Occurrence
	PerWordIndex     map[string][]string // word -> occurrence ids, insertion order
	TotalActivations uint32
	CreatedAt        time.Time

	byID map[string]*Occurrence
}

// NewNeighborhood seeds a fresh neighborhood with a random point on S³.
func NewNeighborhood(id string, rng *rand.Rand, now time.Time) *Neighborhood {
	return &Neighborhood{
		ID:           id,
		Seed:         RandomUnit(rng),
		PerWordIndex: make(map[string][]string),
		CreatedAt:    now,
		byID:         make(map[string]*Occurrence),
	}
}

// ensureIndex lazily rebuilds byID after a snapshot import populates
// Occurrences/PerWordIndex directly without going through Insert.
func (n *Neighborhood) ensureIndex() {
	if n.byID != nil {
		return
	}
	n.byID = make(map[string]*Occurrence, len(n.Occurrences))
	for _, o := range n.Occurrences {
		n.byID[o.ID] = o
	}
}

// Insert adds occ to the neighborhood. occ.Position must already lie
// within RadiusNeighborhood of Seed; otherwise ErrOutOfNeighborhood.
func (n *Neighborhood) Insert(occ *Occurrence) error {
	if Geodesic(occ.Position, n.Seed) > RadiusNeighborhood+1e-9 {
		return ErrOutOfNeighborhood
	}
	n.ensureIndex()
	n.Occurrences = append(n.Occurrences, occ)
	n.PerWordIndex[occ.Word] = append(n.PerWordIndex[occ.Word], occ.ID)
	n.byID[occ.ID] = occ
	return nil
}

// OccurrencesForWord returns the occurrences matching word, in insertion
// order.
func (n *Neighborhood) OccurrencesForWord(word string) []*Occurrence {
	n.ensureIndex()
	ids := n.PerWordIndex[word]
	if len(ids) == 0 {
		return nil
	}
	out := make([]*Occurrence, 0, len(ids))
	for _, id := range ids {
		if o, ok := n.byID[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// ByID looks up an occurrence by id within this neighborhood.
func (n *Neighborhood) ByID(id string) (*Occurrence, bool) {
	n.ensureIndex()
	o, ok := n.byID[id]
	return o, ok
}

// ActivateWord increments ActivationCount (via Activate) on every
// occurrence matching word and updates TotalActivations by the number of
// occurrences activated.
func (n *Neighborhood) ActivateWord(word string, now time.Time) []*Occurrence {
	matches := n.OccurrencesForWord(word)
	for _, o := range matches {
		o.Activate(now)
		n.TotalActivations++
	}
	return matches
}

// Vividness is the fraction of occurrences with ActivationCount > 0.
func (n *Neighborhood) Vividness() float64 {
	if len(n.Occurrences) == 0 {
		return 0
	}
	activated := 0
	for _, o := range n.Occurrences {
		if o.ActivationCount > 0 {
			activated++
		}
	}
	return float64(activated) / float64(len(n.Occurrences))
}

// Vivid reports whether Vividness() >= theta.
func (n *Neighborhood) Vivid(theta float64) bool {
	return n.Vividness() >= theta
}
