package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stewardrx/platform/internal/shared/types"
)

func testEntry(seq int64, prevHash string) Entry {
	return Entry{
		ID:         types.NewID(),
		Sequence:   seq,
		EventID:    "evt-" + string(rune('0'+seq)),
		EventType:  "patient.created",
		ActorID:    "actor-1",
		Data:       json.RawMessage(`{"patient_id":"P-001"}`),
		OccurredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Minute),
		PrevHash:   prevHash,
	}
}

func buildChain(t *testing.T, n int) []Entry {
	t.Helper()
	entries := make([]Entry, 0, n)
	prev := genesisHash
	for i := 1; i <= n; i++ {
		e := testEntry(int64(i), prev)
		if err := e.Seal(); err != nil {
			t.Fatalf("Seal() error = %v", err)
		}
		entries = append(entries, e)
		prev = e.Hash
	}
	return entries
}

func TestComputeHashDeterministic(t *testing.T) {
	e := testEntry(1, genesisHash)

	h1, err := e.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash() error = %v", err)
	}
	h2, err := e.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestComputeHashSensitiveToContent(t *testing.T) {
	a := testEntry(1, genesisHash)
	b := testEntry(1, genesisHash)
	b.Data = json.RawMessage(`{"patient_id":"P-002"}`)

	ha, _ := a.ComputeHash()
	hb, _ := b.ComputeHash()
	if ha == hb {
		t.Error("different data produced identical hashes")
	}
}

func TestVerifyChainIntact(t *testing.T) {
	entries := buildChain(t, 5)

	badSeq, err := VerifyChain(entries)
	if err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}
	if badSeq != -1 {
		t.Errorf("badSeq = %d, want -1", badSeq)
	}
}

func TestVerifyChainEmpty(t *testing.T) {
	badSeq, err := VerifyChain(nil)
	if err != nil {
		t.Errorf("VerifyChain(nil) error = %v", err)
	}
	if badSeq != -1 {
		t.Errorf("badSeq = %d, want -1", badSeq)
	}
}

func TestVerifyChainDetectsTamperedData(t *testing.T) {
	entries := buildChain(t, 5)
	entries[2].Data = json.RawMessage(`{"patient_id":"P-999"}`)

	badSeq, err := VerifyChain(entries)
	if err == nil {
		t.Fatal("tampered chain verified as intact")
	}
	if badSeq != 3 {
		t.Errorf("badSeq = %d, want 3", badSeq)
	}
}

func TestVerifyChainDetectsBrokenLink(t *testing.T) {
	entries := buildChain(t, 5)
	// Re-seal entry 3 with a forged prev_hash: its own hash is valid but
	// it no longer links to entry 2.
	entries[2].PrevHash = genesisHash
	if err := entries[2].Seal(); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	badSeq, err := VerifyChain(entries)
	if err == nil {
		t.Fatal("broken chain verified as intact")
	}
	if badSeq != 3 {
		t.Errorf("badSeq = %d, want 3", badSeq)
	}
}

func TestVerifyChainDetectsRemovedEntry(t *testing.T) {
	entries := buildChain(t, 5)
	truncated := append(entries[:2:2], entries[3:]...)

	badSeq, err := VerifyChain(truncated)
	if err == nil {
		t.Fatal("chain with removed entry verified as intact")
	}
	if badSeq != 4 {
		t.Errorf("badSeq = %d, want 4", badSeq)
	}
}
