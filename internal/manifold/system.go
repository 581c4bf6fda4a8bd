package manifold

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/manifold-labs/manifold/internal/interfaces"
	"github.com/manifold-labs/manifold/internal/tokenize"
)

var defaultTokenizer interfaces.Tokenizer = tokenize.Default{}

// WordIndexEntry locates one occurrence of a word: which episode, which
// neighborhood within it, and which occurrence within that.
type WordIndexEntry struct {
	EpisodeID      string
	NeighborhoodID string
	OccurrenceID   string
}

// System owns both manifolds, the global word index, IDF bookkeeping, the
// mass table, and the RNG. Per the concurrency model there is exactly one
// mutable holder of a System at any time; it performs no internal locking.
type System struct {
	ConsciousEpisode     *Episode
	SubconsciousEpisodes []*Episode
	WordIndex            map[string][]WordIndexEntry
	DFTable              map[string]uint32
	DocCount             uint32
	MassTable            map[string]float64
	Coupling             CouplingSplit

	// Tunables. Each defaults to the package constant of the same name but
	// may be overridden per System (e.g. from internal/config) without
	// touching the formulas that consume them.
	Theta                      float64
	NovelInterferenceThreshold float64
	ConsciousFragmentCap       int
	SubconsciousFragmentCap    int
	NovelLinkCap               int
	FragmentsPerNeighborhood   int

	rng     *rand.Rand
	rngSeed uint64

	// Clock is consulted for every timestamp the system stamps onto new
	// entities. Defaults to time.Now; tests substitute a fixed clock to
	// get byte-identical snapshots across runs (determinism invariant).
	Clock func() time.Time

	// neighborhoodIndex gives O(1) neighborhood-id -> owning
	// episode/neighborhood lookups across both manifolds.
	neighborhoodIndex map[string]neighborhoodLocation
}

type neighborhoodLocation struct {
	episode      *Episode
	neighborhood *Neighborhood
}

// NewSystem constructs an empty System seeded deterministically from seed.
func NewSystem(seed uint64) *System {
	s := &System{
		WordIndex:                  make(map[string][]WordIndexEntry),
		DFTable:                    make(map[string]uint32),
		MassTable:                  make(map[string]float64),
		Coupling:                   DefaultCoupling,
		Theta:                      Theta,
		NovelInterferenceThreshold: NovelInterferenceThreshold,
		ConsciousFragmentCap:       ConsciousFragmentCap,
		SubconsciousFragmentCap:    SubconsciousFragmentCap,
		NovelLinkCap:               NovelLinkCap,
		FragmentsPerNeighborhood:   FragmentsPerNeighborhood,
		rng:                        rand.New(rand.NewSource(int64(seed))),
		rngSeed:                    seed,
		Clock:                      time.Now,
		neighborhoodIndex:          make(map[string]neighborhoodLocation),
	}
	// The conscious episode is stamped by its first conscious ingest, so its
	// CreatedAt comes from Clock even when Clock is replaced after NewSystem.
	s.ConsciousEpisode = NewEpisode(s.newID(), Conscious, "", time.Time{})
	return s
}

// rngReader adapts a math/rand source to io.Reader so uuid generation draws
// from the system's own seeded stream instead of crypto/rand's global one —
// required for two Systems built from the same seed to produce identical
// ids, and therefore byte-identical snapshots.
type rngReader struct{ rng *rand.Rand }

func (r rngReader) Read(p []byte) (int, error) {
	return r.rng.Read(p)
}

// newID draws a random-version UUID from s.rng, so every id a System mints
// is reproducible given its seed.
func (s *System) newID() string {
	id, err := uuid.NewRandomFromReader(rngReader{s.rng})
	if err != nil {
		panic(fmt.Sprintf("newID: %v", err))
	}
	return id.String()
}

// Ingest tokenizes text, splits it into per-sentence neighborhoods (one
// fresh random-seeded neighborhood per sentence group), and inserts one
// occurrence per distinct word within each group. It returns the id of the
// episode the content landed in (the single conscious episode id for
// Conscious ingestion, a fresh episode id otherwise).
func (s *System) Ingest(text string, kind Kind) (string, error) {
	return s.ingest(text, kind, "", defaultTokenizer)
}

// IngestNamed is Ingest with an optional display name for the resulting
// subconscious episode (ignored for conscious ingestion, since there is
// exactly one conscious episode).
func (s *System) IngestNamed(text string, kind Kind, name string) (string, error) {
	return s.ingest(text, kind, name, defaultTokenizer)
}

// IngestWithTokenizer is Ingest but with an explicit tokenizer, letting
// callers supply their own (word, sentence_index) producer in place of
// the package default.
func (s *System) IngestWithTokenizer(text string, kind Kind, tok interfaces.Tokenizer) (string, error) {
	return s.ingest(text, kind, "", tok)
}

func (s *System) ingest(text string, kind Kind, name string, tok interfaces.Tokenizer) (string, error) {
	tokens := tok.Tokenize(text)
	if len(tokens) == 0 {
		return "", ErrEmptyInput
	}

	now := s.Clock()
	var episode *Episode
	if kind == Conscious {
		episode = s.ConsciousEpisode
		if episode.CreatedAt.IsZero() {
			episode.CreatedAt = now
		}
	} else {
		episode = NewEpisode(s.newID(), kind, name, now)
	}

	groups := groupBySentence(tokens)
	docSeen := make(map[string]bool) // document frequency counts once per distinct word per ingest call
	for _, group := range groups {
		neighborhood := NewNeighborhood(s.newID(), s.rng, now)
		perNeighborhoodSeen := make(map[string]bool)
		k := 0
		for _, word := range group {
			if perNeighborhoodSeen[word] {
				continue
			}
			perNeighborhoodSeen[word] = true

			// RandomNear rejects radii above π/2 and Geodesic never exceeds
			// π/2, so a π/2 cap already reaches every point within
			// RadiusNeighborhood (π/φ) of the seed.
			position, err := RandomNear(neighborhood.Seed, math.Min(RadiusNeighborhood, math.Pi/2), s.rng)
			if err != nil {
				return "", fmt.Errorf("ingest: sample position for %q: %w", word, err)
			}
			phase := GoldenAnglePhase(k)
			k++

			occ := NewOccurrence(s.newID(), word, position, phase, kind == Conscious, now)
			if err := neighborhood.Insert(occ); err != nil {
				return "", fmt.Errorf("ingest: insert %q: %w", word, err)
			}

			s.WordIndex[word] = append(s.WordIndex[word], WordIndexEntry{
				EpisodeID:      episode.ID,
				NeighborhoodID: neighborhood.ID,
				OccurrenceID:   occ.ID,
			})
			if !docSeen[word] {
				docSeen[word] = true
				s.DFTable[word]++
			}
		}
		episode.AddNeighborhood(neighborhood)
		s.neighborhoodIndex[neighborhood.ID] = neighborhoodLocation{episode: episode, neighborhood: neighborhood}
	}

	if kind != Conscious {
		s.SubconsciousEpisodes = append(s.SubconsciousEpisodes, episode)
	}
	s.DocCount++

	s.renormalizeMass()
	return episode.ID, nil
}

// MarkSalient ingests text into the conscious episode: its occurrences
// start pre-activated (activation_count = 1).
func (s *System) MarkSalient(text string) (string, error) {
	return s.ingest(text, Conscious, "", defaultTokenizer)
}

// ActivateResponse tokenizes text and, for each word, activates every
// matching occurrence across both manifolds (light reinforcement — no
// drift, no coupling), then renormalises mass.
func (s *System) ActivateResponse(text string) {
	now := s.Clock()
	tokens := defaultTokenizer.Tokenize(text)
	words := make(map[string]bool)
	for _, t := range tokens {
		words[t.Word] = true
	}
	wordList := make([]string, 0, len(words))
	for w := range words {
		wordList = append(wordList, w)
	}
	sort.Strings(wordList)

	for _, word := range wordList {
		for _, loc := range s.neighborhoodsContainingWord(word) {
			loc.neighborhood.ActivateWord(word, now)
		}
	}
	s.renormalizeMass()
}

// neighborhoodsContainingWord returns every distinct neighborhood (across
// both manifolds) holding at least one occurrence of word, in ascending
// neighborhood-id order for deterministic iteration.
func (s *System) neighborhoodsContainingWord(word string) []neighborhoodLocation {
	seen := make(map[string]bool)
	var out []neighborhoodLocation
	for _, entry := range s.WordIndex[word] {
		if seen[entry.NeighborhoodID] {
			continue
		}
		seen[entry.NeighborhoodID] = true
		if loc, ok := s.neighborhoodIndex[entry.NeighborhoodID]; ok {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].neighborhood.ID < out[j].neighborhood.ID })
	return out
}

// allOccurrences returns every occurrence in the system across both
// manifolds, in ascending id order — the canonical iteration order the
// spec requires for deterministic mass renormalisation and snapshotting.
func (s *System) allOccurrences() []*Occurrence {
	var out []*Occurrence
	for _, n := range s.allNeighborhoods() {
		out = append(out, n.Occurrences...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *System) allNeighborhoods() []*Neighborhood {
	var out []*Neighborhood
	if s.ConsciousEpisode != nil {
		out = append(out, s.ConsciousEpisode.Neighborhoods...)
	}
	for _, e := range s.SubconsciousEpisodes {
		out = append(out, e.Neighborhoods...)
	}
	return out
}

func (s *System) renormalizeMass() {
	occs := s.allOccurrences()
	ids := make([]string, len(occs))
	counts := make([]uint32, len(occs))
	for i, o := range occs {
		ids[i] = o.ID
		counts[i] = o.ActivationCount
	}
	s.MassTable = RenormalizeMass(ids, counts)
}

// idf returns the current IDF weight for word.
func (s *System) idf(word string) float64 {
	return IDF(s.DocCount, s.DFTable[word])
}

// RNGSeed returns the seed this system's RNG was constructed with.
func (s *System) RNGSeed() uint64 {
	return s.rngSeed
}

// Stats summarises the system's size and mass.
type Stats struct {
	Episodes      int
	Neighborhoods int
	Occurrences   int
	ConsciousMass float64
	TotalMass     float64
	DocCount      uint32
}

// Stats computes counts and norms across the system.
func (s *System) Stats() Stats {
	var st Stats
	st.Episodes = 1 + len(s.SubconsciousEpisodes)
	st.DocCount = s.DocCount

	for _, n := range s.ConsciousEpisode.Neighborhoods {
		st.Neighborhoods++
		st.Occurrences += len(n.Occurrences)
		for _, o := range n.Occurrences {
			st.ConsciousMass += s.MassTable[o.ID]
		}
	}
	for _, e := range s.SubconsciousEpisodes {
		for _, n := range e.Neighborhoods {
			st.Neighborhoods++
			st.Occurrences += len(n.Occurrences)
		}
	}
	for _, m := range s.MassTable {
		st.TotalMass += m
	}
	return st
}

// groupBySentence partitions tokens into ordered groups by sentence
// index, preserving within-group insertion order.
func groupBySentence(tokens []interfaces.Token) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	var groups [][]string
	var current []string
	currentIdx := tokens[0].SentenceIndex
	for _, t := range tokens {
		if t.SentenceIndex != currentIdx {
			groups = append(groups, current)
			current = nil
			currentIdx = t.SentenceIndex
		}
		current = append(current, t.Word)
	}
	groups = append(groups, current)
	return groups
}
