package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stewardrx/platform/internal/shared/types"
)

// genesisHash anchors the first entry of the chain
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one link in the tamper-evident audit chain. Each entry hashes
// its own content together with the previous entry's hash, so modifying
// any historical entry breaks verification of everything after it.
type Entry struct {
	ID         types.ID        `json:"id"`
	Sequence   int64           `json:"sequence"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	ActorName  string          `json:"actor_name,omitempty"`
	ActorRole  string          `json:"actor_role,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at"`
	PrevHash   string          `json:"prev_hash"`
	Hash       string          `json:"hash"`
}

// hashPayload is the canonical form fed to SHA-256. Field order is fixed
// by the struct definition, so marshaling is deterministic.
type hashPayload struct {
	Sequence   int64           `json:"sequence"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	ActorID    string          `json:"actor_id"`
	Data       json.RawMessage `json:"data"`
	OccurredAt string          `json:"occurred_at"`
	PrevHash   string          `json:"prev_hash"`
}

// ComputeHash returns the SHA-256 hash of the entry's canonical form
func (e *Entry) ComputeHash() (string, error) {
	payload := hashPayload{
		Sequence:   e.Sequence,
		EventID:    e.EventID,
		EventType:  e.EventType,
		ActorID:    e.ActorID,
		Data:       e.Data,
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339Nano),
		PrevHash:   e.PrevHash,
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Seal computes and stores the entry's hash
func (e *Entry) Seal() error {
	hash, err := e.ComputeHash()
	if err != nil {
		return err
	}
	e.Hash = hash
	return nil
}

// VerifyChain checks that entries form an unbroken hash chain. Entries
// must be ordered by sequence. It returns the sequence of the first bad
// entry, or -1 if the chain is intact.
func VerifyChain(entries []Entry) (int64, error) {
	prevHash := genesisHash
	for i := range entries {
		e := &entries[i]
		if e.PrevHash != prevHash {
			return e.Sequence, fmt.Errorf("entry %d: prev_hash mismatch", e.Sequence)
		}
		computed, err := e.ComputeHash()
		if err != nil {
			return e.Sequence, err
		}
		if computed != e.Hash {
			return e.Sequence, fmt.Errorf("entry %d: hash mismatch", e.Sequence)
		}
		prevHash = e.Hash
	}
	return -1, nil
}
