package manifold

import (
	"sort"
	"time"

	"github.com/manifold-labs/manifold/internal/interfaces"
	"github.com/manifold-labs/manifold/internal/logger"
)

// QueryResult is the record produced by Query: everything Surface and
// Compose need to turn a perturbed manifold into human-readable output.
type QueryResult struct {
	QueryTokens            []string
	ActivatedOccurrenceIDs []string           // ascending id order
	NeighborhoodActivation map[string]float64 // neighborhood id -> Σ activation_count·idf(word) over occurrences activated this query
	InterferenceTable      map[string]float64 // word -> I_w (signed, may be negative)
	NovelCandidates        []NovelPair        // every cross-manifold occurrence pair of a shared query word, pre-threshold

	system *System
}

// NovelPair is one cross-manifold occurrence pair sharing a query word,
// carrying the raw (unweighted) interference between them.
type NovelPair struct {
	Word                     string
	ConsciousOccurrenceID    string
	ConsciousWord            string
	SubconsciousOccurrenceID string
	SubconsciousWord         string
	Interference             float64 // cos(θ_con − θ_sub), unweighted
	IDF                      float64
}

type activatedOcc struct {
	occ            *Occurrence
	neighborhoodID string
}

// Query runs the query pipeline: activate every occurrence matching a query
// word across both manifolds, drift activated occurrences pairwise toward
// each other, compute cross-manifold interference, couple shared-word
// phases via a Kuramoto-style nudge, and record the result. Mass is
// renormalised once at the end, after all activation for this query has
// landed. An empty query (tokenizes to zero words) is a no-op.
func (s *System) Query(text string) QueryResult {
	now := s.Clock()
	tokens := defaultTokenizer.Tokenize(text)

	queryWords := dedupedSortedWords(tokens)

	result := QueryResult{
		QueryTokens:            wordsOf(tokens),
		NeighborhoodActivation: make(map[string]float64),
		InterferenceTable:      make(map[string]float64),
		system:                 s,
	}
	if len(queryWords) == 0 {
		return result
	}

	activated := s.activate(queryWords, now)
	s.drift(activated)
	result.NovelCandidates = s.interference(queryWords, result.InterferenceTable)
	s.coupling(queryWords)
	s.renormalizeMass()

	ids := make([]string, 0, len(activated))
	for _, a := range activated {
		ids = append(ids, a.occ.ID)
		result.NeighborhoodActivation[a.neighborhoodID] += float64(a.occ.ActivationCount) * s.idf(a.occ.Word)
	}
	sort.Strings(ids)
	result.ActivatedOccurrenceIDs = ids

	return result
}

func wordsOf(tokens []interfaces.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Word
	}
	return out
}

func dedupedSortedWords(tokens []interfaces.Token) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokens {
		if !seen[t.Word] {
			seen[t.Word] = true
			out = append(out, t.Word)
		}
	}
	sort.Strings(out)
	return out
}

// activate reinforces every occurrence of every query word, across both
// manifolds, reusing Neighborhood.ActivateWord so this stays consistent
// with ActivateResponse's reinforcement semantics. The returned slice is
// sorted by ascending occurrence id, the order the rest of the pipeline
// relies on for determinism.
func (s *System) activate(queryWords []string, now time.Time) []activatedOcc {
	type key struct{ neighborhoodID, word string }
	done := make(map[key]bool)

	var out []activatedOcc
	for _, word := range queryWords {
		for _, entry := range s.WordIndex[word] {
			k := key{entry.NeighborhoodID, word}
			if done[k] {
				continue
			}
			done[k] = true
			loc, ok := s.neighborhoodIndex[entry.NeighborhoodID]
			if !ok {
				continue
			}
			for _, occ := range loc.neighborhood.ActivateWord(word, now) {
				out = append(out, activatedOcc{occ: occ, neighborhoodID: entry.NeighborhoodID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].occ.ID < out[j].occ.ID })
	return out
}

// drift lets every pair of activated occurrences that share a neighborhood,
// or whose neighborhoods' seeds lie within 2·R_N of each other, pull each
// other along the geodesic between them. It reads from and writes to a
// scratch buffer keyed by occurrence id so later pairs in the (ascending
// occurrence-id) processing order see earlier pairs' effects, matching the
// read-then-commit staging the core's concurrency model relies on for
// reproducibility; positions are committed to the real occurrences only
// once every pair has been processed.
func (s *System) drift(activated []activatedOcc) {
	if len(activated) < 2 {
		return
	}

	scratch := make(map[string]Quaternion, len(activated))
	for _, a := range activated {
		scratch[a.occ.ID] = a.occ.Position
	}
	rateCache := make(map[string]float64, len(activated))
	rate := func(a activatedOcc) float64 {
		if r, ok := rateCache[a.occ.ID]; ok {
			return r
		}
		total := s.neighborhoodIndex[a.neighborhoodID].neighborhood.TotalActivations
		r := a.occ.DriftRate(total, s.Theta)
		rateCache[a.occ.ID] = r
		return r
	}

	for i := 0; i < len(activated); i++ {
		for j := i + 1; j < len(activated); j++ {
			a, b := activated[i], activated[j]
			if !neighborhoodsInRange(s, a.neighborhoodID, b.neighborhoodID) {
				continue
			}
			idfA, idfB := s.idf(a.occ.Word), s.idf(b.occ.Word)
			denom := idfA + idfB
			if denom == 0 {
				continue
			}

			if ra := rate(a); ra > 0 {
				ta := a.occ.Plasticity() * ra * (idfB / denom)
				seedA := s.neighborhoodIndex[a.neighborhoodID].neighborhood.Seed
				clamped := clampDriftT(seedA, scratch[a.occ.ID], scratch[b.occ.ID], ta)
				if clamped < ta-1e-12 {
					logger.Debug("drift clamped to radius invariant", "occurrence", a.occ.ID, "word", a.occ.Word, "t", ta, "clamped_t", clamped)
				}
				scratch[a.occ.ID] = Slerp(scratch[a.occ.ID], scratch[b.occ.ID], clamped)
			} else if a.occ.Anchored {
				logger.Debug("occurrence anchored, skipping drift", "occurrence", a.occ.ID, "word", a.occ.Word)
			}
			if rb := rate(b); rb > 0 {
				tb := b.occ.Plasticity() * rb * (idfA / denom)
				seedB := s.neighborhoodIndex[b.neighborhoodID].neighborhood.Seed
				clamped := clampDriftT(seedB, scratch[b.occ.ID], scratch[a.occ.ID], tb)
				if clamped < tb-1e-12 {
					logger.Debug("drift clamped to radius invariant", "occurrence", b.occ.ID, "word", b.occ.Word, "t", tb, "clamped_t", clamped)
				}
				scratch[b.occ.ID] = Slerp(scratch[b.occ.ID], scratch[a.occ.ID], clamped)
			} else if b.occ.Anchored {
				logger.Debug("occurrence anchored, skipping drift", "occurrence", b.occ.ID, "word", b.occ.Word)
			}
		}
	}

	for _, a := range activated {
		a.occ.Position = scratch[a.occ.ID]
	}
}

func neighborhoodsInRange(s *System, idA, idB string) bool {
	if idA == idB {
		return true
	}
	locA, okA := s.neighborhoodIndex[idA]
	locB, okB := s.neighborhoodIndex[idB]
	if !okA || !okB {
		return false
	}
	return Geodesic(locA.neighborhood.Seed, locB.neighborhood.Seed) <= 2*RadiusNeighborhood
}

// clampDriftT finds the largest t' <= t such that slerping from `from`
// toward `to` by t' keeps the result within RadiusNeighborhood of seed,
// assuming (as holds for the small per-query drift amounts here) that
// distance-from-seed increases monotonically with t along that arc.
func clampDriftT(seed, from, to Quaternion, t float64) float64 {
	if t <= 0 {
		return 0
	}
	feasible := func(tt float64) bool {
		return Geodesic(Slerp(from, to, tt), seed) <= RadiusNeighborhood+1e-9
	}
	if feasible(t) {
		return t
	}
	lo, hi := 0.0, t
	for i := 0; i < 40; i++ {
		mid := (lo + hi) / 2
		if feasible(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// interference computes, for every query word present in both manifolds,
// I_w = Σ idf(w)·cos(θ_con − θ_sub) over every cross-manifold pair of
// occurrences of w (recorded in table as the word's novelty signal), and
// returns every individual cross-manifold pair considered along the way —
// the per-pair, per-occurrence detail Surface needs to build novel links
// from, which the summed table value alone can't reconstruct.
func (s *System) interference(queryWords []string, table map[string]float64) []NovelPair {
	var pairs []NovelPair
	for _, word := range queryWords {
		var con, sub []*Occurrence
		for _, entry := range s.WordIndex[word] {
			loc, ok := s.neighborhoodIndex[entry.NeighborhoodID]
			if !ok {
				continue
			}
			occ, ok := loc.neighborhood.ByID(entry.OccurrenceID)
			if !ok {
				continue
			}
			if loc.episode.Kind == Conscious {
				con = append(con, occ)
			} else {
				sub = append(sub, occ)
			}
		}
		if len(con) == 0 || len(sub) == 0 {
			continue
		}
		idf := s.idf(word)
		var sum float64
		for _, co := range con {
			for _, so := range sub {
				raw := Interference(co.Phase, so.Phase)
				sum += idf * raw
				pairs = append(pairs, NovelPair{
					Word:                     word,
					ConsciousOccurrenceID:    co.ID,
					ConsciousWord:            co.Word,
					SubconsciousOccurrenceID: so.ID,
					SubconsciousWord:         so.Word,
					Interference:             raw,
					IDF:                      idf,
				})
			}
		}
		table[word] = sum
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ConsciousOccurrenceID != pairs[j].ConsciousOccurrenceID {
			return pairs[i].ConsciousOccurrenceID < pairs[j].ConsciousOccurrenceID
		}
		return pairs[i].SubconsciousOccurrenceID < pairs[j].SubconsciousOccurrenceID
	})
	return pairs
}

// coupling nudges the phase of every occurrence of every query word that
// appears in both manifolds toward that word's mass-weighted circular mean
// phase, by K·plasticity·mass (K = K_con for conscious occurrences, K_sub
// otherwise). Updates are staged in a buffer keyed by occurrence pointer
// and applied only after every word has been processed, so a word
// processed later never sees a phase another word's coupling already
// moved.
func (s *System) coupling(queryWords []string) {
	type participant struct {
		occ  *Occurrence
		kind Kind
	}

	staged := make(map[*Occurrence]Phasor)
	for _, word := range queryWords {
		var participants []participant
		for _, entry := range s.WordIndex[word] {
			loc, ok := s.neighborhoodIndex[entry.NeighborhoodID]
			if !ok {
				continue
			}
			occ, ok := loc.neighborhood.ByID(entry.OccurrenceID)
			if !ok {
				continue
			}
			participants = append(participants, participant{occ: occ, kind: loc.episode.Kind})
		}

		hasCon, hasSub := false, false
		for _, p := range participants {
			if p.kind == Conscious {
				hasCon = true
			} else {
				hasSub = true
			}
		}
		if !hasCon || !hasSub {
			continue
		}

		phases := make([]Phasor, len(participants))
		weights := make([]float64, len(participants))
		for i, p := range participants {
			phases[i] = p.occ.Phase
			weights[i] = s.MassTable[p.occ.ID]
		}
		mean := CircularMean(phases, weights)

		for _, p := range participants {
			k := s.Coupling.Subconscious
			if p.kind == Conscious {
				k = s.Coupling.Conscious
			}
			amount := clamp(k*p.occ.Plasticity()*s.MassTable[p.occ.ID], 0, 1)
			cur, ok := staged[p.occ]
			if !ok {
				cur = p.occ.Phase
			}
			staged[p.occ] = CircularInterp(cur, mean, amount)
		}
	}

	for occ, phase := range staged {
		occ.Phase = phase
	}
}
