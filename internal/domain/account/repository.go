package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// LockForUpdate acquires a pessimistic row lock for transfer processing
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// AdjustBalance applies a signed delta to the balance. Callers must hold
	// the row lock and have verified sufficient funds for negative deltas.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}
