package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the sentinel previous-hash for the first chain entry
const GenesisHash = "genesis"

// Entry is one link of the global hash-chained audit log. Entries are
// append-only: never mutated, never deleted. Seq is assigned by the database
// on insert and defines the chain's total order; CreatedAt is metadata and
// must never be used for ordering (it is not monotonic).
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Seq       int64          `json:"seq"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Hash      string         `json:"hash"`
	PrevHash  string         `json:"prev_hash"`
	CreatedAt time.Time      `json:"created_at"`
}

// ComputeHash derives the chain hash for an entry from its event type, the
// canonical JSON encoding of its payload and the previous entry's hash.
// encoding/json sorts map keys, so the payload encoding is deterministic.
func ComputeHash(eventType string, payloadJSON []byte, prevHash string) string {
	h := sha256.New()
	h.Write([]byte(eventType))
	h.Write(payloadJSON)
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}
