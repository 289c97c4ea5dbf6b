// Package transfer orchestrates atomic double-entry transfers between
// accounts: it moves the money, encrypts the payload, anchors the transfer
// in the audit chain, runs compliance screening and evaluates risk for both
// accounts, all inside one unit of work.
package transfer

import (
	"context"

	"github.com/meridianbank/corebank/internal/crypto/envelope"
	"github.com/meridianbank/corebank/internal/domain/compliance"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/meridianbank/corebank/internal/riskengine"
)

// Service executes transfers
type Service interface {
	Execute(ctx context.Context, req shared.TransferRequest) (*Result, error)
}

// Result is everything a committed transfer produced
type Result struct {
	DebitTransaction  *transaction.Transaction  `json:"debit_transaction"`
	CreditTransaction *transaction.Transaction  `json:"credit_transaction"`
	Envelope          *envelope.Envelope        `json:"envelope"`
	ComplianceResults []*compliance.CheckRecord `json:"compliance_results"`
	SourceRisk        *riskengine.Evaluation    `json:"source_risk"`
	DestinationRisk   *riskengine.Evaluation    `json:"destination_risk"`

	// alertsRaised collects every alert the unit of work created, so bus
	// summaries go out only after the transaction has committed
	alertsRaised []*risk.Alert
}
