package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MetricSnapshot records one risk evaluation of an account. Historical
// snapshots are retained for trend queries.
type MetricSnapshot struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Exposure   decimal.Decimal `json:"exposure"`
	Leverage   decimal.Decimal `json:"leverage"`
	LossRatio  decimal.Decimal `json:"loss_ratio"`
	WindowDays int             `json:"window_days"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Alert is an operator-facing risk alert. AccountID is nil for user-level
// alerts such as AML failures. Resolution fields are written by operator
// workflows outside this core.
type Alert struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      *uuid.UUID      `json:"account_id,omitempty"`
	AlertType      string          `json:"alert_type"`
	Severity       shared.Severity `json:"severity"`
	Details        map[string]any  `json:"details"`
	TriggeredAt    time.Time       `json:"triggered_at"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	AcknowledgedBy *uuid.UUID      `json:"acknowledged_by,omitempty"`
}

// AnomalyEvent records one transaction the detector flagged as anomalous
type AnomalyEvent struct {
	ID              uuid.UUID      `json:"id"`
	TransactionID   uuid.UUID      `json:"transaction_id"`
	AccountID       uuid.UUID      `json:"account_id"`
	Score           float64        `json:"score"`
	Threshold       float64        `json:"threshold"`
	DetectorVersion string         `json:"detector_version"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
}
