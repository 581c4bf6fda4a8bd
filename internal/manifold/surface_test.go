package manifold

import "testing"

func TestSurfaceOnlyIncludesVividNeighborhoods(t *testing.T) {
	s := NewSystem(1)
	s.Ingest("alpha beta gamma delta", Subconscious)
	result := s.Query("alpha") // activates only 1 of 4 words in the neighborhood: not vivid yet

	surfaced := s.Surface(result)
	if len(surfaced.Subconscious) != 0 {
		t.Fatalf("non-vivid neighborhood surfaced: %+v", surfaced.Subconscious)
	}
}

func TestSurfaceIncludesVividNeighborhoodAfterEnoughActivation(t *testing.T) {
	s := NewSystem(2)
	s.Ingest("alpha beta", Subconscious)
	s.Query("alpha beta") // 2/2 words activated: vividness = 1.0 >= Θ

	result := s.Query("alpha beta")
	surfaced := s.Surface(result)
	if len(surfaced.Subconscious) != 1 {
		t.Fatalf("Subconscious surfaced = %d, want 1", len(surfaced.Subconscious))
	}
	if len(surfaced.Subconscious[0].Fragments) != 2 {
		t.Fatalf("Fragments = %d, want 2", len(surfaced.Subconscious[0].Fragments))
	}
}

func TestSurfaceCapsSubconscious(t *testing.T) {
	s := NewSystem(3)
	// Six separate subconscious episodes, each a single fully-activated
	// two-word neighborhood: all vivid, but only SubconsciousFragmentCap
	// should surface.
	for i := 0; i < 6; i++ {
		s.IngestNamed("wordone wordtwo", Subconscious, "episode")
	}
	result := s.Query("wordone wordtwo")
	surfaced := s.Surface(result)
	if len(surfaced.Subconscious) > SubconsciousFragmentCap {
		t.Fatalf("Subconscious surfaced = %d, want <= %d", len(surfaced.Subconscious), SubconsciousFragmentCap)
	}
}

func TestSurfaceNovelLinksRespectThresholdAndCap(t *testing.T) {
	candidates := []NovelPair{
		{Word: "a", ConsciousOccurrenceID: "ca", SubconsciousOccurrenceID: "sa", Interference: 0.9, IDF: 1},
		{Word: "b", ConsciousOccurrenceID: "cb", SubconsciousOccurrenceID: "sb", Interference: 0.85, IDF: 1},
		{Word: "c", ConsciousOccurrenceID: "cc", SubconsciousOccurrenceID: "sc", Interference: 0.81, IDF: 1},
		{Word: "d", ConsciousOccurrenceID: "cd", SubconsciousOccurrenceID: "sd", Interference: 0.5, IDF: 1}, // below threshold
		{Word: "e", ConsciousOccurrenceID: "ce", SubconsciousOccurrenceID: "se", Interference: 0.95, IDF: 1},
	}
	links := novelLinks(candidates, NovelInterferenceThreshold, NovelLinkCap)
	if len(links) != NovelLinkCap {
		t.Fatalf("novelLinks count = %d, want %d", len(links), NovelLinkCap)
	}
	if links[0].Word != "e" {
		t.Fatalf("novelLinks[0] = %q, want highest-scoring 'e'", links[0].Word)
	}
	for _, l := range links {
		if l.Word == "d" {
			t.Fatalf("novelLinks included sub-threshold word %q", l.Word)
		}
	}
}

func TestSurfaceNovelLinksCarryOccurrenceIdentity(t *testing.T) {
	s := NewSystem(5)
	s.MarkSalient("event sourcing is preferred over crud")
	s.Ingest("we need an audit trail", Subconscious)
	s.Ingest("event sourcing gives us an audit trail", Subconscious)

	result := s.Query("event sourcing audit trail")
	surfaced := s.Surface(result)

	if len(surfaced.Novel) == 0 {
		t.Fatalf("expected at least one novel link surfaced for a word shared between manifolds")
	}
	link := surfaced.Novel[0]
	if link.ConsciousOccurrenceID == "" || link.SubconsciousOccurrenceID == "" {
		t.Fatalf("novel link missing occurrence identity: %+v", link)
	}
	if link.ConsciousWord == "" || link.SubconsciousWord == "" {
		t.Fatalf("novel link missing occurrence words: %+v", link)
	}
}

func TestSurfaceNovelLinksRankedByInterferenceTimesIDF(t *testing.T) {
	candidates := []NovelPair{
		{Word: "low-idf-high-interference", ConsciousOccurrenceID: "c1", SubconsciousOccurrenceID: "s1", Interference: 0.99, IDF: 0.1},
		{Word: "high-idf-lower-interference", ConsciousOccurrenceID: "c2", SubconsciousOccurrenceID: "s2", Interference: 0.81, IDF: 2.0},
	}
	links := novelLinks(candidates, NovelInterferenceThreshold, NovelLinkCap)
	if len(links) != 2 {
		t.Fatalf("novelLinks count = %d, want 2", len(links))
	}
	if links[0].Word != "high-idf-lower-interference" {
		t.Fatalf("novelLinks[0] = %q, want the higher interference×idf score to rank first", links[0].Word)
	}
}
