package shared

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRequest carries everything the orchestrator needs to move funds
// between two accounts. Requester is attached by the auth layer.
type TransferRequest struct {
	SourceAccountID      uuid.UUID       `json:"source_account_id"`
	DestinationAccountID uuid.UUID       `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Memo                 string          `json:"memo,omitempty"`
	Requester            Identity        `json:"requester"`
}

// TransactionDirection marks which leg of a double-entry transfer a row records
type TransactionDirection string

const (
	DirectionDebit  TransactionDirection = "debit"
	DirectionCredit TransactionDirection = "credit"
)

// Severity ranks an alert for operator triage
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank returns a sortable weight, critical highest
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}
