package manifold

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/manifold-labs/manifold/internal/logger"
)

// SnapshotVersion is bumped whenever the wire format below changes
// incompatibly.
const SnapshotVersion = 1

const massSumTolerance = 1e-4
const quaternionNormTolerance = 1e-4

type quatWire [4]float64

func quatToWire(q Quaternion) quatWire { return quatWire{q.W, q.X, q.Y, q.Z} }
func wireToQuat(w quatWire) Quaternion { return Quaternion{W: w[0], X: w[1], Y: w[2], Z: w[3]} }

type occWire struct {
	ID              string   `json:"id"`
	Word            string   `json:"word"`
	Position        quatWire `json:"position"`
	Phase           float64  `json:"phase"`
	ActivationCount uint32   `json:"activation_count"`
	Anchored        bool     `json:"anchored"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivatedAt time.Time `json:"last_activated_at"`
}

type neighborhoodWire struct {
	ID               string    `json:"id"`
	Seed             quatWire  `json:"seed"`
	Occurrences      []occWire `json:"occurrences"`
	TotalActivations uint32    `json:"total_activations"`
	CreatedAt        time.Time `json:"created_at"`
}

type episodeWire struct {
	ID            string             `json:"id"`
	Name          string             `json:"name,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	Neighborhoods []neighborhoodWire `json:"neighborhoods"`
}

// snapshotWire's field order is load-bearing: encoding/json marshals
// struct fields in declaration order, and the wire format fixes this exact
// key sequence so two processes with identical state produce byte-
// identical snapshots.
type snapshotWire struct {
	Version      int                 `json:"version"`
	RNGSeed      uint64              `json:"rng_seed"`
	Conscious    episodeWire         `json:"conscious"`
	Subconscious []episodeWire       `json:"subconscious"`
	DFTable      map[string]uint32   `json:"df_table"`
	DocCount     uint32              `json:"doc_count"`
}

// Export serialises the system to its canonical JSON wire format. Given
// the same rng_seed and the same sequence of prior operations, Export
// always produces byte-identical output (the determinism invariant).
func (s *System) Export() ([]byte, error) {
	w := snapshotWire{
		Version:      SnapshotVersion,
		RNGSeed:      s.rngSeed,
		Conscious:    episodeToWire(s.ConsciousEpisode),
		Subconscious: make([]episodeWire, len(s.SubconsciousEpisodes)),
		DFTable:      s.DFTable,
		DocCount:     s.DocCount,
	}
	for i, e := range s.SubconsciousEpisodes {
		w.Subconscious[i] = episodeToWire(e)
	}
	return json.Marshal(w)
}

// SnapshotDigest returns the blake2b-256 digest of exported snapshot
// bytes, for callers (e.g. a persistence layer) that want to detect
// on-disk corruption before even attempting to parse the JSON.
func SnapshotDigest(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// ExportWithDigest is Export plus the snapshot's integrity digest.
func (s *System) ExportWithDigest() ([]byte, [32]byte, error) {
	data, err := s.Export()
	if err != nil {
		return nil, [32]byte{}, err
	}
	return data, SnapshotDigest(data), nil
}

func episodeToWire(e *Episode) episodeWire {
	w := episodeWire{
		ID:            e.ID,
		Name:          e.Name,
		CreatedAt:     e.CreatedAt,
		Neighborhoods: make([]neighborhoodWire, len(e.Neighborhoods)),
	}
	for i, n := range e.Neighborhoods {
		nw := neighborhoodWire{
			ID:               n.ID,
			Seed:             quatToWire(n.Seed),
			TotalActivations: n.TotalActivations,
			CreatedAt:        n.CreatedAt,
			Occurrences:      make([]occWire, len(n.Occurrences)),
		}
		for j, o := range n.Occurrences {
			nw.Occurrences[j] = occWire{
				ID:              o.ID,
				Word:            o.Word,
				Position:        quatToWire(o.Position),
				Phase:           float64(o.Phase),
				ActivationCount: o.ActivationCount,
				Anchored:        o.Anchored,
				CreatedAt:       o.CreatedAt,
				LastActivatedAt: o.LastActivatedAt,
			}
		}
		w.Neighborhoods[i] = nw
	}
	return w
}

// ImportSnapshot rebuilds a System from bytes previously produced by
// Export. It validates every quaternion's norm and the renormalised mass
// table's sum before returning, wrapping any failure in ErrCorruptState.
func ImportSnapshot(data []byte) (*System, error) {
	var w snapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	s := &System{
		WordIndex:                  make(map[string][]WordIndexEntry),
		DFTable:                    w.DFTable,
		DocCount:                   w.DocCount,
		MassTable:                  make(map[string]float64),
		Coupling:                   DefaultCoupling,
		Theta:                      Theta,
		NovelInterferenceThreshold: NovelInterferenceThreshold,
		ConsciousFragmentCap:       ConsciousFragmentCap,
		SubconsciousFragmentCap:    SubconsciousFragmentCap,
		NovelLinkCap:               NovelLinkCap,
		FragmentsPerNeighborhood:   FragmentsPerNeighborhood,
		rng:                        rand.New(rand.NewSource(int64(w.RNGSeed))),
		rngSeed:                    w.RNGSeed,
		Clock:                      time.Now,
		neighborhoodIndex:          make(map[string]neighborhoodLocation),
	}
	if s.DFTable == nil {
		s.DFTable = make(map[string]uint32)
	}

	conscious, err := episodeFromWire(w.Conscious, Conscious)
	if err != nil {
		return nil, err
	}
	s.ConsciousEpisode = conscious
	s.indexEpisode(conscious)

	s.SubconsciousEpisodes = make([]*Episode, len(w.Subconscious))
	for i, ew := range w.Subconscious {
		e, err := episodeFromWire(ew, Subconscious)
		if err != nil {
			return nil, err
		}
		s.SubconsciousEpisodes[i] = e
		s.indexEpisode(e)
	}

	s.rebuildWordIndex()
	s.renormalizeMass()

	var total float64
	for _, m := range s.MassTable {
		total += m
	}
	if len(s.MassTable) > 0 && math.Abs(total-TotalMassTarget) > massSumTolerance {
		logger.Warn("snapshot import failed mass conservation check", "total", total, "want", TotalMassTarget)
		return nil, fmt.Errorf("%w: mass sums to %f, want %f±%g", ErrCorruptState, total, TotalMassTarget, massSumTolerance)
	}

	return s, nil
}

func episodeFromWire(w episodeWire, kind Kind) (*Episode, error) {
	e := NewEpisode(w.ID, kind, w.Name, w.CreatedAt)
	for _, nw := range w.Neighborhoods {
		n := &Neighborhood{
			ID:               nw.ID,
			Seed:             wireToQuat(nw.Seed),
			PerWordIndex:     make(map[string][]string),
			TotalActivations: nw.TotalActivations,
			CreatedAt:        nw.CreatedAt,
			byID:             make(map[string]*Occurrence),
		}
		if math.Abs(n.Seed.Norm()-1) > quaternionNormTolerance {
			return nil, fmt.Errorf("%w: neighborhood %s seed norm %f", ErrCorruptState, n.ID, n.Seed.Norm())
		}
		for _, ow := range nw.Occurrences {
			pos := wireToQuat(ow.Position)
			if math.Abs(pos.Norm()-1) > quaternionNormTolerance {
				return nil, fmt.Errorf("%w: occurrence %s position norm %f", ErrCorruptState, ow.ID, pos.Norm())
			}
			occ := &Occurrence{
				ID:              ow.ID,
				Word:            ow.Word,
				Position:        pos,
				Phase:           Phasor(ow.Phase).Normalize(),
				ActivationCount: ow.ActivationCount,
				Anchored:        ow.Anchored,
				CreatedAt:       ow.CreatedAt,
				LastActivatedAt: ow.LastActivatedAt,
			}
			if err := n.Insert(occ); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
			}
		}
		e.AddNeighborhood(n)
	}
	return e, nil
}

func (s *System) indexEpisode(e *Episode) {
	for _, n := range e.Neighborhoods {
		s.neighborhoodIndex[n.ID] = neighborhoodLocation{episode: e, neighborhood: n}
	}
}

func (s *System) rebuildWordIndex() {
	for _, n := range s.allNeighborhoods() {
		loc := s.neighborhoodIndex[n.ID]
		for _, o := range n.Occurrences {
			s.WordIndex[o.Word] = append(s.WordIndex[o.Word], WordIndexEntry{
				EpisodeID:      loc.episode.ID,
				NeighborhoodID: n.ID,
				OccurrenceID:   o.ID,
			})
		}
	}
}
