package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Transaction is one leg of a double-entry transfer. Legs are created in
// debit/credit pairs that share the same amount, currency, encrypted payload
// and creation instant, and are immutable once written.
type Transaction struct {
	ID                    uuid.UUID                   `json:"id"`
	AccountID             uuid.UUID                   `json:"account_id"`
	CounterpartyAccountID *uuid.UUID                  `json:"counterparty_account_id,omitempty"`
	Amount                decimal.Decimal             `json:"amount"`
	Currency              string                      `json:"currency"`
	Direction             shared.TransactionDirection `json:"direction"`
	Memo                  string                      `json:"memo,omitempty"`
	EncryptedPayload      []byte                      `json:"encrypted_payload,omitempty"`
	CreatedAt             time.Time                   `json:"created_at"`
}

// NewLeg builds one leg of a transfer pair
func NewLeg(accountID uuid.UUID, counterparty *uuid.UUID, amount decimal.Decimal, currency string, direction shared.TransactionDirection, memo string, payload []byte, at time.Time) *Transaction {
	return &Transaction{
		ID:                    uuid.New(),
		AccountID:             accountID,
		CounterpartyAccountID: counterparty,
		Amount:                amount.Round(4),
		Currency:              currency,
		Direction:             direction,
		Memo:                  memo,
		EncryptedPayload:      payload,
		CreatedAt:             at,
	}
}
