package manifold

import "time"

// Kind distinguishes the two parallel manifolds.
type Kind int

const (
	Subconscious Kind = iota
	Conscious
)

func (k Kind) String() string {
	if k == Conscious {
		return "conscious"
	}
	return "subconscious"
}

// Episode is an ordered bag of neighborhoods: a document or conversation
// turn, timestamped and tagged conscious or subconscious. Episodes are
// append-only during normal operation.
type Episode struct {
	ID            string
	Kind          Kind
	Neighborhoods []*Neighborhood
	CreatedAt     time.Time
	Name          string
}

// NewEpisode creates an empty episode of the given kind.
func NewEpisode(id string, kind Kind, name string, now time.Time) *Episode {
	return &Episode{ID: id, Kind: kind, Name: name, CreatedAt: now}
}

// AddNeighborhood appends n to the episode's ordered neighborhood list.
func (e *Episode) AddNeighborhood(n *Neighborhood) {
	e.Neighborhoods = append(e.Neighborhoods, n)
}

// VividNeighborhoodCount returns how many of e's neighborhoods are vivid
// under theta.
func (e *Episode) VividNeighborhoodCount(theta float64) int {
	count := 0
	for _, n := range e.Neighborhoods {
		if n.Vivid(theta) {
			count++
		}
	}
	return count
}

// Vivid reports whether the fraction of vivid neighborhoods in e is >=
// theta.
func (e *Episode) Vivid(theta float64) bool {
	if len(e.Neighborhoods) == 0 {
		return false
	}
	return float64(e.VividNeighborhoodCount(theta))/float64(len(e.Neighborhoods)) >= theta
}
