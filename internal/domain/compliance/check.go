package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CheckType identifies which simulated screen produced a record
type CheckType string

const (
	CheckTypeKYCProfile     CheckType = "kyc-profile"
	CheckTypeAMLTransaction CheckType = "aml-transaction"
)

// CheckStatus is the outcome of a screen
type CheckStatus string

const (
	CheckStatusPending CheckStatus = "pending"
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
)

// CheckRecord is the persisted result of one simulated compliance screen
type CheckRecord struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	TransactionID *uuid.UUID     `json:"transaction_id,omitempty"`
	CheckType     CheckType      `json:"check_type"`
	Status        CheckStatus    `json:"status"`
	Details       map[string]any `json:"details"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Repository persists compliance check records
type Repository interface {
	Create(ctx context.Context, record *CheckRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*CheckRecord, error)
	WithTx(tx pgx.Tx) Repository
}
