package manifold

import "sort"

// Fragment is a single surfaced word: one occurrence drawn from a vivid
// neighborhood.
type Fragment struct {
	OccurrenceID    string
	Word            string
	ActivationCount uint32
}

// NeighborhoodSurface is one vivid neighborhood's contribution to a
// surfaced result: which episode it belongs to, how strongly this query
// activated it, and its top fragments.
type NeighborhoodSurface struct {
	NeighborhoodID string
	EpisodeID      string
	EpisodeName    string
	Activation     float64
	Fragments      []Fragment
}

// NovelLink is one conscious/subconscious occurrence pair of the same word
// whose interference cleared NovelInterferenceThreshold: an association
// strong enough to call out explicitly.
type NovelLink struct {
	Word                     string
	ConsciousOccurrenceID    string
	ConsciousWord            string
	SubconsciousOccurrenceID string
	SubconsciousWord         string
	Interference             float64 // raw cos(θ_con − θ_sub)
	Score                    float64 // Interference × idf, the rank key
}

// Surfaced is everything Compose needs: the ranked, capped vivid
// neighborhoods from each manifold plus any novel cross-manifold links.
type Surfaced struct {
	Conscious    []NeighborhoodSurface
	Subconscious []NeighborhoodSurface
	Novel        []NovelLink
}

// Surface ranks every vivid neighborhood in each manifold by how strongly
// the query activated it (neighborhoods the query never touched rank
// last, at activation 0), keeps the top ConsciousFragmentCap /
// SubconsciousFragmentCap of them, and within each keeps its top
// FragmentsPerNeighborhood occurrences by activation count. Ties at every
// level break on ascending id for determinism.
func (s *System) Surface(result QueryResult) Surfaced {
	return Surfaced{
		Conscious:    s.rankNeighborhoods(s.ConsciousEpisode.Neighborhoods, result, s.ConsciousFragmentCap),
		Subconscious: s.rankNeighborhoods(s.subconsciousNeighborhoods(), result, s.SubconsciousFragmentCap),
		Novel:        novelLinks(result.NovelCandidates, s.NovelInterferenceThreshold, s.NovelLinkCap),
	}
}

func (s *System) subconsciousNeighborhoods() []*Neighborhood {
	var out []*Neighborhood
	for _, e := range s.SubconsciousEpisodes {
		out = append(out, e.Neighborhoods...)
	}
	return out
}

func (s *System) rankNeighborhoods(all []*Neighborhood, result QueryResult, cap int) []NeighborhoodSurface {
	var vivid []*Neighborhood
	for _, n := range all {
		if n.Vivid(s.Theta) {
			vivid = append(vivid, n)
		}
	}
	sort.Slice(vivid, func(i, j int) bool {
		ai, aj := result.NeighborhoodActivation[vivid[i].ID], result.NeighborhoodActivation[vivid[j].ID]
		if ai != aj {
			return ai > aj
		}
		return vivid[i].ID < vivid[j].ID
	})
	if len(vivid) > cap {
		vivid = vivid[:cap]
	}

	out := make([]NeighborhoodSurface, 0, len(vivid))
	for _, n := range vivid {
		loc := s.neighborhoodIndex[n.ID]
		out = append(out, NeighborhoodSurface{
			NeighborhoodID: n.ID,
			EpisodeID:      loc.episode.ID,
			EpisodeName:    loc.episode.Name,
			Activation:     result.NeighborhoodActivation[n.ID],
			Fragments:      topFragments(n, s.FragmentsPerNeighborhood),
		})
	}
	return out
}

func topFragments(n *Neighborhood, cap int) []Fragment {
	occs := append([]*Occurrence(nil), n.Occurrences...)
	sort.Slice(occs, func(i, j int) bool {
		if occs[i].ActivationCount != occs[j].ActivationCount {
			return occs[i].ActivationCount > occs[j].ActivationCount
		}
		return occs[i].ID < occs[j].ID
	})
	if len(occs) > cap {
		occs = occs[:cap]
	}
	out := make([]Fragment, len(occs))
	for i, o := range occs {
		out[i] = Fragment{OccurrenceID: o.ID, Word: o.Word, ActivationCount: o.ActivationCount}
	}
	return out
}

// novelLinks keeps every candidate pair whose raw interference clears
// threshold, ranked by interference × idf, capped at cap.
func novelLinks(candidates []NovelPair, threshold float64, cap int) []NovelLink {
	var out []NovelLink
	for _, p := range candidates {
		if p.Interference >= threshold {
			out = append(out, NovelLink{
				Word:                     p.Word,
				ConsciousOccurrenceID:    p.ConsciousOccurrenceID,
				ConsciousWord:            p.ConsciousWord,
				SubconsciousOccurrenceID: p.SubconsciousOccurrenceID,
				SubconsciousWord:         p.SubconsciousWord,
				Interference:             p.Interference,
				Score:                    p.Interference * p.IDF,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ConsciousOccurrenceID < out[j].ConsciousOccurrenceID
	})
	if len(out) > cap {
		out = out[:cap]
	}
	return out
}
