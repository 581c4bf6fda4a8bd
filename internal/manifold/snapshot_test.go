package manifold

import (
	"strings"
	"testing"
	"time"
)

func TestExportImportRoundTrip(t *testing.T) {
	s := NewSystem(99)
	s.Clock = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s.Ingest("the quick brown fox", Conscious)
	s.Ingest("jumps over the lazy dog", Subconscious)
	s.Query("fox dog")

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	restored, err := ImportSnapshot(data)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}

	restoredData, err := restored.Export()
	if err != nil {
		t.Fatalf("Export (restored): %v", err)
	}
	if string(data) != string(restoredData) {
		t.Fatalf("round-trip snapshot not byte-identical:\nfirst:  %s\nsecond: %s", data, restoredData)
	}
}

func TestExportKeyOrder(t *testing.T) {
	s := NewSystem(1)
	s.Ingest("alpha", Subconscious)
	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	json := string(data)
	keys := []string{`"version"`, `"rng_seed"`, `"conscious"`, `"subconscious"`, `"df_table"`, `"doc_count"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(json, k)
		if idx < 0 {
			t.Fatalf("key %s missing from export: %s", k, json)
		}
		if idx < last {
			t.Fatalf("key %s out of order in export", k)
		}
		last = idx
	}
}

func TestSnapshotDigestDetectsTampering(t *testing.T) {
	s := NewSystem(3)
	s.Ingest("alpha beta", Subconscious)
	data, digest, err := s.ExportWithDigest()
	if err != nil {
		t.Fatalf("ExportWithDigest: %v", err)
	}
	if SnapshotDigest(data) != digest {
		t.Fatalf("SnapshotDigest(data) != digest returned by ExportWithDigest")
	}

	tampered := append([]byte(nil), data...)
	tampered[0] ^= 0xFF
	if SnapshotDigest(tampered) == digest {
		t.Fatalf("digest unchanged after tampering with snapshot bytes")
	}
}

func TestImportRejectsCorruptJSON(t *testing.T) {
	if _, err := ImportSnapshot([]byte("not json")); err == nil {
		t.Fatalf("ImportSnapshot(invalid json) = nil error, want ErrCorruptState")
	}
}

func TestImportRebuildsWordIndexAndMass(t *testing.T) {
	s := NewSystem(2)
	s.Ingest("alpha beta gamma", Subconscious)
	data, _ := s.Export()

	restored, err := ImportSnapshot(data)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if len(restored.WordIndex["alpha"]) != 1 {
		t.Fatalf("restored WordIndex[alpha] = %v, want 1 entry", restored.WordIndex["alpha"])
	}
	if len(restored.MassTable) == 0 {
		t.Fatalf("restored MassTable is empty")
	}
}
