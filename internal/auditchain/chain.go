// Package auditchain maintains the global hash-linked audit log. Every entry
// folds the previous entry's hash into its own, so any retroactive edit or
// reorder is detectable by replaying the chain.
package auditchain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/domain/audit"
	"github.com/meridianbank/corebank/internal/platform/persistence"
)

// chainLockKey scopes the advisory lock that serializes chain appends.
// Arbitrary but stable; shared by every writer of audit_log_entries.
const chainLockKey int64 = 0x41554449544c4f47 // "AUDITLOG"

// Chain is the single writer of the audit log. Appends are serialized with a
// transaction-scoped advisory lock so "read tail, compute hash, insert" is
// atomic even across concurrent database transactions: two appends can never
// observe the same tail.
type Chain struct {
	db      persistence.TxRunner
	entries audit.Repository
	logger  *slog.Logger
}

// NewChain creates the audit chain writer
func NewChain(db persistence.TxRunner, entries audit.Repository, logger *slog.Logger) *Chain {
	return &Chain{
		db:      db,
		entries: entries,
		logger:  logger,
	}
}

// AppendInTx appends one entry inside the caller's transaction. The entry
// commits and rolls back with the enclosing unit of work, so a committed
// transfer always has its audit entry and an aborted one leaves none.
func (c *Chain) AppendInTx(ctx context.Context, tx pgx.Tx, eventType string, payload map[string]any) (*audit.Entry, error) {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", chainLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire audit chain lock: %w", err)
	}

	repo := c.entries.WithTx(tx)

	prevHash, err := repo.LatestHash(ctx)
	if err != nil {
		return nil, err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize audit payload: %w", err)
	}

	entry := &audit.Entry{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Hash:      audit.ComputeHash(eventType, payloadJSON, prevHash),
		PrevHash:  prevHash,
		CreatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	c.logger.Debug("audit entry appended", "event_type", eventType, "hash", entry.Hash)
	return entry, nil
}

// Append appends one entry in its own transaction, for callers outside a
// transfer's unit of work (e.g. the audit-append API operation).
func (c *Chain) Append(ctx context.Context, eventType string, payload map[string]any) (*audit.Entry, error) {
	var entry *audit.Entry
	err := c.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var appendErr error
		entry, appendErr = c.AppendInTx(ctx, tx, eventType, payload)
		return appendErr
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// VerifyResult reports the outcome of a full chain replay
type VerifyResult struct {
	Entries    int        `json:"entries"`
	Valid      bool       `json:"valid"`
	BrokenAt   *uuid.UUID `json:"broken_at,omitempty"`
	BrokenHash string     `json:"broken_hash,omitempty"`
}

// Verify replays all entries in creation order, recomputing each hash from
// its payload and the prior entry's hash. Any mismatch indicates tampering
// or reordering and names the first broken entry.
func (c *Chain) Verify(ctx context.Context) (*VerifyResult, error) {
	entries, err := c.entries.ListInOrder(ctx)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Entries: len(entries), Valid: true}

	prevHash := audit.GenesisHash
	for _, entry := range entries {
		payloadJSON, err := json.Marshal(entry.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize payload of entry %s: %w", entry.ID, err)
		}

		expected := audit.ComputeHash(entry.EventType, payloadJSON, prevHash)
		if entry.PrevHash != prevHash || entry.Hash != expected {
			id := entry.ID
			result.Valid = false
			result.BrokenAt = &id
			result.BrokenHash = entry.Hash
			c.logger.Warn("audit chain verification failed", "entry_id", entry.ID.String())
			return result, nil
		}
		prevHash = entry.Hash
	}

	return result, nil
}
