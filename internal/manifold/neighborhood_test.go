package manifold

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// Antipodal identification caps geodesic distance at π/2, which is below
// RadiusNeighborhood (π/φ), so every unit quaternion is reachable from
// every seed. Insert's radius check exists as a guard against corrupt
// positions (e.g. a bad snapshot import), not as a filter normal sampling
// ever trips.
func TestNeighborhoodInsertAcceptsAnyUnitQuaternion(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	now := time.Now()
	n := NewNeighborhood("n1", rng, now)
	orthogonal := orthogonalize(Quaternion{X: 1}, n.Seed)
	occ := NewOccurrence("o1", "word", orthogonal, 0, false, now)
	if err := n.Insert(occ); err != nil {
		t.Fatalf("Insert(orthogonal unit quaternion) = %v, want nil", err)
	}
}

func TestNeighborhoodInsertAndLookup(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	now := time.Now()
	n := NewNeighborhood("n1", rng, now)
	pos, err := RandomNear(n.Seed, math.Pi/2, rng)
	if err != nil {
		t.Fatalf("RandomNear: %v", err)
	}
	occ := NewOccurrence("o1", "cat", pos, 0, false, now)
	if err := n.Insert(occ); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := n.ByID("o1")
	if !ok || got != occ {
		t.Fatalf("ByID(o1) = %v, %v; want occ, true", got, ok)
	}

	words := n.OccurrencesForWord("cat")
	if len(words) != 1 || words[0] != occ {
		t.Fatalf("OccurrencesForWord(cat) = %v, want [occ]", words)
	}
}

func TestNeighborhoodActivateWordUpdatesTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	now := time.Now()
	n := NewNeighborhood("n1", rng, now)
	pos, _ := RandomNear(n.Seed, math.Pi/2, rng)
	occ := NewOccurrence("o1", "cat", pos, 0, false, now)
	n.Insert(occ)

	matches := n.ActivateWord("cat", now.Add(time.Second))
	if len(matches) != 1 {
		t.Fatalf("ActivateWord matches = %d, want 1", len(matches))
	}
	if occ.ActivationCount != 1 {
		t.Fatalf("ActivationCount = %d, want 1", occ.ActivationCount)
	}
	if n.TotalActivations != 1 {
		t.Fatalf("TotalActivations = %d, want 1", n.TotalActivations)
	}
}

func TestNeighborhoodVividness(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	now := time.Now()
	n := NewNeighborhood("n1", rng, now)
	for _, w := range []string{"a", "b", "c", "d"} {
		pos, _ := RandomNear(n.Seed, math.Pi/2, rng)
		n.Insert(NewOccurrence(w, w, pos, 0, false, now))
	}
	if n.Vivid(Theta) {
		t.Fatalf("fresh neighborhood reported vivid")
	}
	n.ActivateWord("a", now)
	n.ActivateWord("b", now)
	if !n.Vivid(Theta) {
		t.Fatalf("neighborhood with 2/4 activated should be vivid (>= Θ=0.5)")
	}
}
