package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/platform/persistence"
)

// RiskSnapshotRepository implements risk.SnapshotRepository for PostgreSQL
type RiskSnapshotRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRiskSnapshotRepository creates a new PostgreSQL risk snapshot repository
func NewRiskSnapshotRepository(logger *slog.Logger, db *persistence.PostgresDB) risk.SnapshotRepository {
	return &RiskSnapshotRepository{querier: db.Pool(), logger: logger}
}

// WithTx wraps the repository with a transaction
func (r *RiskSnapshotRepository) WithTx(tx pgx.Tx) risk.SnapshotRepository {
	return &RiskSnapshotRepository{querier: tx, logger: r.logger}
}

// Create stores one risk metric snapshot
func (r *RiskSnapshotRepository) Create(ctx context.Context, snapshot *risk.MetricSnapshot) error {
	query := `
		INSERT INTO risk_metric_snapshots (id, account_id, exposure, leverage, loss_ratio, window_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		snapshot.ID,
		snapshot.AccountID,
		snapshot.Exposure,
		snapshot.Leverage,
		snapshot.LossRatio,
		snapshot.WindowDays,
		snapshot.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create risk snapshot", "account_id", snapshot.AccountID.String(), "error", err)
		return fmt.Errorf("failed to create risk snapshot: %w", err)
	}

	return nil
}

// ListByAccount returns the most recent snapshots for an account, newest first
func (r *RiskSnapshotRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*risk.MetricSnapshot, error) {
	query := `
		SELECT id, account_id, exposure, leverage, loss_ratio, window_days, created_at
		FROM risk_metric_snapshots
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit)
	if err != nil {
		r.logger.Error("Failed to list risk snapshots", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list risk snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*risk.MetricSnapshot
	for rows.Next() {
		var s risk.MetricSnapshot
		if err := rows.Scan(&s.ID, &s.AccountID, &s.Exposure, &s.Leverage, &s.LossRatio, &s.WindowDays, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan risk snapshot row: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate risk snapshot rows: %w", err)
	}

	return snapshots, nil
}

// RiskAlertRepository implements risk.AlertRepository for PostgreSQL
type RiskAlertRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRiskAlertRepository creates a new PostgreSQL risk alert repository
func NewRiskAlertRepository(logger *slog.Logger, db *persistence.PostgresDB) risk.AlertRepository {
	return &RiskAlertRepository{querier: db.Pool(), logger: logger}
}

// WithTx wraps the repository with a transaction
func (r *RiskAlertRepository) WithTx(tx pgx.Tx) risk.AlertRepository {
	return &RiskAlertRepository{querier: tx, logger: r.logger}
}

// Create stores one risk alert
func (r *RiskAlertRepository) Create(ctx context.Context, alert *risk.Alert) error {
	query := `
		INSERT INTO risk_alerts (id, account_id, alert_type, severity, details, triggered_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		alert.ID,
		alert.AccountID,
		alert.AlertType,
		alert.Severity,
		alert.Details,
		alert.TriggeredAt,
	)
	if err != nil {
		r.logger.Error("Failed to create risk alert", "alert_type", alert.AlertType, "error", err)
		return fmt.Errorf("failed to create risk alert: %w", err)
	}

	return nil
}

// ListRecent returns alerts ordered by severity rank (critical > high >
// medium > low), then by recency, for operator consumption
func (r *RiskAlertRepository) ListRecent(ctx context.Context, limit int) ([]*risk.Alert, error) {
	query := `
		SELECT id, account_id, alert_type, severity, details, triggered_at, resolved_at, acknowledged_by
		FROM risk_alerts
		ORDER BY
			CASE severity
				WHEN 'critical' THEN 4
				WHEN 'high' THEN 3
				WHEN 'medium' THEN 2
				ELSE 1
			END DESC,
			triggered_at DESC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list risk alerts", "error", err)
		return nil, fmt.Errorf("failed to list risk alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*risk.Alert
	for rows.Next() {
		var a risk.Alert
		if err := rows.Scan(&a.ID, &a.AccountID, &a.AlertType, &a.Severity, &a.Details, &a.TriggeredAt, &a.ResolvedAt, &a.AcknowledgedBy); err != nil {
			return nil, fmt.Errorf("failed to scan risk alert row: %w", err)
		}
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate risk alert rows: %w", err)
	}

	return alerts, nil
}

// Acknowledge records an operator acknowledgement on an alert
func (r *RiskAlertRepository) Acknowledge(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	query := `
		UPDATE risk_alerts
		SET resolved_at = $1, acknowledged_by = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, at, by, id)
	if err != nil {
		r.logger.Error("Failed to acknowledge risk alert", "id", id.String(), "error", err)
		return fmt.Errorf("failed to acknowledge risk alert: %w", err)
	}

	if result.RowsAffected() == 0 {
		return risk.ErrAlertNotFound{AlertID: id}
	}

	return nil
}

// RiskAnomalyRepository implements risk.AnomalyRepository for PostgreSQL
type RiskAnomalyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRiskAnomalyRepository creates a new PostgreSQL anomaly event repository
func NewRiskAnomalyRepository(logger *slog.Logger, db *persistence.PostgresDB) risk.AnomalyRepository {
	return &RiskAnomalyRepository{querier: db.Pool(), logger: logger}
}

// WithTx wraps the repository with a transaction
func (r *RiskAnomalyRepository) WithTx(tx pgx.Tx) risk.AnomalyRepository {
	return &RiskAnomalyRepository{querier: tx, logger: r.logger}
}

// Create stores one anomaly event
func (r *RiskAnomalyRepository) Create(ctx context.Context, event *risk.AnomalyEvent) error {
	query := `
		INSERT INTO risk_anomaly_events (id, transaction_id, account_id, score, threshold, detector_version, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		event.ID,
		event.TransactionID,
		event.AccountID,
		event.Score,
		event.Threshold,
		event.DetectorVersion,
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create anomaly event", "transaction_id", event.TransactionID.String(), "error", err)
		return fmt.Errorf("failed to create anomaly event: %w", err)
	}

	return nil
}
