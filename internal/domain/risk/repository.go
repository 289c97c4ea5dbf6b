package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepository persists risk metric snapshots
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *MetricSnapshot) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*MetricSnapshot, error)
	WithTx(tx pgx.Tx) SnapshotRepository
}

// AlertRepository persists risk alerts
type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error

	// ListRecent returns alerts ordered by severity rank (critical first)
	// then by recency
	ListRecent(ctx context.Context, limit int) ([]*Alert, error)

	// Acknowledge sets the resolution fields on an alert
	Acknowledge(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error

	WithTx(tx pgx.Tx) AlertRepository
}

// AnomalyRepository persists flagged anomaly events
type AnomalyRepository interface {
	Create(ctx context.Context, event *AnomalyEvent) error
	WithTx(tx pgx.Tx) AnomalyRepository
}

// ErrAlertNotFound indicates missing alert
type ErrAlertNotFound struct {
	AlertID uuid.UUID
}

func (e ErrAlertNotFound) Error() string {
	return "alert not found: " + e.AlertID.String()
}
