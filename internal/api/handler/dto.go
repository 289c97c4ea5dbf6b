package handler

import (
	"time"

	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest represents a request to open a new account. The
// initial balance models externally injected funding.
type CreateAccountRequest struct {
	UserID         string          `json:"user_id" binding:"required,uuid"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Currency       string          `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateTransferRequest represents a request to move funds between accounts
type CreateTransferRequest struct {
	SourceAccountID      string          `json:"source_account_id" binding:"required,uuid"`
	DestinationAccountID string          `json:"destination_account_id" binding:"required,uuid"`
	Amount               decimal.Decimal `json:"amount" binding:"required"`
	Currency             string          `json:"currency" binding:"required,len=3"`
	Memo                 string          `json:"memo,omitempty"`
}

// TransactionResponse represents one transfer leg in API responses
type TransactionResponse struct {
	ID                    string `json:"id"`
	AccountID             string `json:"account_id"`
	CounterpartyAccountID string `json:"counterparty_account_id,omitempty"`
	Amount                string `json:"amount"`
	Currency              string `json:"currency"`
	Direction             string `json:"direction"`
	Memo                  string `json:"memo,omitempty"`
	CreatedAt             string `json:"created_at"`
}

// RaiseAlertRequest represents an operator request to raise an alert manually
type RaiseAlertRequest struct {
	AccountID string         `json:"account_id,omitempty" binding:"omitempty,uuid"`
	AlertType string         `json:"alert_type" binding:"required"`
	Severity  string         `json:"severity" binding:"required,oneof=low medium high critical"`
	Details   map[string]any `json:"details,omitempty"`
}

// AppendAuditEntryRequest represents a request to append an out-of-band
// audit entry to the chain
type AppendAuditEntryRequest struct {
	EventType string         `json:"event_type" binding:"required"`
	Payload   map[string]any `json:"payload" binding:"required"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		UserID:    acc.UserID.String(),
		Balance:   acc.Balance.StringFixed(4),
		Currency:  acc.Currency,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:        txn.ID.String(),
		AccountID: txn.AccountID.String(),
		Amount:    txn.Amount.StringFixed(4),
		Currency:  txn.Currency,
		Direction: string(txn.Direction),
		Memo:      txn.Memo,
		CreatedAt: txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.CounterpartyAccountID != nil {
		resp.CounterpartyAccountID = txn.CounterpartyAccountID.String()
	}
	return resp
}
