package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds for transfer")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Account represents a bank account. Balances are fixed-point decimals with
// 4 fractional digits and are mutated only through the transfer orchestrator's
// debit/credit operations.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount creates a new account owned by userID with an initial funding balance
func NewAccount(userID uuid.UUID, initialBalance decimal.Decimal, currency string) (*Account, error) {
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if initialBalance.IsNegative() {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   initialBalance.Round(4),
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanWithdraw checks if the account has sufficient funds for a debit
func (a *Account) CanWithdraw(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
