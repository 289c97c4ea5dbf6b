package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/domain/audit"
	"github.com/meridianbank/corebank/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit log repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends one entry to the audit log. Serialization of appends is the
// chain writer's responsibility, not this repository's.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	query := `
		INSERT INTO audit_log_entries (id, event_type, payload, hash, prev_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.EventType,
		entry.Payload,
		entry.Hash,
		entry.PrevHash,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit log entry", "event_type", entry.EventType, "error", err)
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}

	return nil
}

// LatestHash returns the hash of the most recently appended entry, or the
// genesis sentinel when the chain is empty. The tail is the highest seq, not
// the latest created_at: timestamps can tie within a microsecond.
func (r *AuditRepository) LatestHash(ctx context.Context) (string, error) {
	query := `
		SELECT hash
		FROM audit_log_entries
		ORDER BY seq DESC
		LIMIT 1
	`

	var hash string
	err := r.querier.QueryRow(ctx, query).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return audit.GenesisHash, nil
		}
		r.logger.Error("Failed to read audit chain tail", "error", err)
		return "", fmt.Errorf("failed to read audit chain tail: %w", err)
	}

	return hash, nil
}

// ListInOrder returns all entries in append order for chain verification
func (r *AuditRepository) ListInOrder(ctx context.Context) ([]*audit.Entry, error) {
	query := `
		SELECT id, seq, event_type, payload, hash, prev_hash, created_at
		FROM audit_log_entries
		ORDER BY seq ASC
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list audit log entries", "error", err)
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var entry audit.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.EventType,
			&entry.Payload,
			&entry.Hash,
			&entry.PrevHash,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log rows: %w", err)
	}

	return entries, nil
}
