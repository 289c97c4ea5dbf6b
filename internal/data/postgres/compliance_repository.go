package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/domain/compliance"
	"github.com/meridianbank/corebank/internal/platform/persistence"
)

// ComplianceRepository implements the compliance.Repository interface for PostgreSQL
type ComplianceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewComplianceRepository creates a new PostgreSQL compliance check repository
func NewComplianceRepository(logger *slog.Logger, db *persistence.PostgresDB) compliance.Repository {
	return &ComplianceRepository{querier: db.Pool(), logger: logger}
}

// WithTx wraps the repository with a transaction
func (r *ComplianceRepository) WithTx(tx pgx.Tx) compliance.Repository {
	return &ComplianceRepository{querier: tx, logger: r.logger}
}

// Create stores one compliance check record
func (r *ComplianceRepository) Create(ctx context.Context, record *compliance.CheckRecord) error {
	query := `
		INSERT INTO compliance_checks (id, user_id, transaction_id, check_type, status, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.TransactionID,
		record.CheckType,
		record.Status,
		record.Details,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create compliance check", "check_type", record.CheckType, "error", err)
		return fmt.Errorf("failed to create compliance check: %w", err)
	}

	return nil
}

// ListByUser returns the most recent compliance checks for a user, newest first
func (r *ComplianceRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*compliance.CheckRecord, error) {
	query := `
		SELECT id, user_id, transaction_id, check_type, status, details, created_at
		FROM compliance_checks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to list compliance checks", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list compliance checks: %w", err)
	}
	defer rows.Close()

	var records []*compliance.CheckRecord
	for rows.Next() {
		var rec compliance.CheckRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TransactionID, &rec.CheckType, &rec.Status, &rec.Details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan compliance check row: %w", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compliance check rows: %w", err)
	}

	return records, nil
}
