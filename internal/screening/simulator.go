// Package screening runs the deterministic mock KYC/AML screens. The checks
// stand in for a real compliance provider: same input, same outcome, always.
package screening

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/config"
	"github.com/meridianbank/corebank/internal/domain/compliance"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// kycMockRiskScore is the fixed score the always-passing KYC mock reports
const kycMockRiskScore = 0.1

// Input describes one transfer to screen
type Input struct {
	UserID        uuid.UUID
	TransactionID *uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Memo          string
}

// Simulator persists mock compliance screens and escalates AML failures
type Simulator struct {
	checks          compliance.Repository
	dispatcher      *alerting.Dispatcher
	chain           *auditchain.Chain
	amountThreshold decimal.Decimal
	keywords        []string
	logger          *slog.Logger
}

// NewSimulator creates the compliance simulator
func NewSimulator(cfg config.ComplianceConfig, checks compliance.Repository, dispatcher *alerting.Dispatcher, chain *auditchain.Chain, logger *slog.Logger) *Simulator {
	keywords := make([]string, 0, len(cfg.HighRiskKeywords))
	for _, kw := range cfg.HighRiskKeywords {
		keywords = append(keywords, strings.ToLower(kw))
	}
	return &Simulator{
		checks:          checks,
		dispatcher:      dispatcher,
		chain:           chain,
		amountThreshold: decimal.NewFromFloat(cfg.AMLAmountThreshold),
		keywords:        keywords,
		logger:          logger,
	}
}

// Run executes both screens inside the caller's transaction and returns
// exactly two records: the KYC result first, then the AML result. A failed
// AML screen raises a critical user-scoped alert, returned so the
// transaction owner can publish its summary after commit. The run always
// finishes with a compliance.simulation.completed audit entry.
func (s *Simulator) Run(ctx context.Context, tx pgx.Tx, input Input) ([]*compliance.CheckRecord, []*risk.Alert, error) {
	now := time.Now().UTC()
	repo := s.checks.WithTx(tx)

	kyc := &compliance.CheckRecord{
		ID:            uuid.New(),
		UserID:        input.UserID,
		TransactionID: input.TransactionID,
		CheckType:     compliance.CheckTypeKYCProfile,
		Status:        compliance.CheckStatusPassed,
		Details: map[string]any{
			"provider":   "mock",
			"risk_score": kycMockRiskScore,
		},
		CreatedAt: now,
	}
	if err := repo.Create(ctx, kyc); err != nil {
		return nil, nil, err
	}

	rules := s.evaluateAMLRules(input)
	amlStatus := compliance.CheckStatusPassed
	if rules.failed() {
		amlStatus = compliance.CheckStatusFailed
	}
	aml := &compliance.CheckRecord{
		ID:            uuid.New(),
		UserID:        input.UserID,
		TransactionID: input.TransactionID,
		CheckType:     compliance.CheckTypeAMLTransaction,
		Status:        amlStatus,
		Details: map[string]any{
			"amount":          input.Amount.StringFixed(4),
			"currency":        input.Currency,
			"rules_triggered": rules.asMap(),
		},
		CreatedAt: now,
	}
	if err := repo.Create(ctx, aml); err != nil {
		return nil, nil, err
	}

	var raised []*risk.Alert
	if rules.failed() {
		details := map[string]any{
			"check_id":        aml.ID.String(),
			"user_id":         input.UserID.String(),
			"amount":          input.Amount.StringFixed(4),
			"currency":        input.Currency,
			"rules_triggered": rules.asMap(),
		}
		if input.TransactionID != nil {
			details["transaction_id"] = input.TransactionID.String()
		}
		alert, err := s.dispatcher.RaiseInTx(ctx, tx, alerting.RaiseParams{
			AlertType: "aml_screening_failed",
			Severity:  shared.SeverityCritical,
			Details:   details,
		})
		if err != nil {
			return nil, nil, err
		}
		raised = append(raised, alert)
		s.logger.Warn("aml screening failed",
			"user_id", input.UserID.String(),
			"high_value", rules.HighValue,
			"keywords", rules.KeywordMatches,
		)
	}

	auditPayload := map[string]any{
		"user_id":    input.UserID.String(),
		"kyc_status": string(kyc.Status),
		"aml_status": string(aml.Status),
	}
	if input.TransactionID != nil {
		auditPayload["transaction_id"] = input.TransactionID.String()
	}
	if _, err := s.chain.AppendInTx(ctx, tx, "compliance.simulation.completed", auditPayload); err != nil {
		return nil, nil, err
	}

	return []*compliance.CheckRecord{kyc, aml}, raised, nil
}

// amlRules holds which AML rules a transfer tripped
type amlRules struct {
	HighValue      bool
	KeywordMatches []string
}

func (r amlRules) failed() bool {
	return r.HighValue || len(r.KeywordMatches) > 0
}

func (r amlRules) asMap() map[string]any {
	return map[string]any{
		"high_value":        r.HighValue,
		"high_risk_keyword": len(r.KeywordMatches) > 0,
		"keyword_matches":   r.KeywordMatches,
	}
}

func (s *Simulator) evaluateAMLRules(input Input) amlRules {
	rules := amlRules{
		HighValue:      input.Amount.GreaterThanOrEqual(s.amountThreshold),
		KeywordMatches: []string{},
	}

	memo := strings.ToLower(input.Memo)
	for _, kw := range s.keywords {
		if strings.Contains(memo, kw) {
			rules.KeywordMatches = append(rules.KeywordMatches, kw)
		}
	}
	return rules
}
