package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/crypto/envelope"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/meridianbank/corebank/internal/platform/persistence"
	"github.com/meridianbank/corebank/internal/riskengine"
	"github.com/meridianbank/corebank/internal/screening"
)

// Orchestrator is the transactional core of a transfer. Everything it writes
// commits or rolls back as one unit; only the payload encryption happens
// outside the transaction, because it is deterministic and side-effect-free.
type Orchestrator struct {
	db           persistence.TxRunner
	accounts     account.Repository
	transactions transaction.Repository
	envelopes    *envelope.Service
	chain        *auditchain.Chain
	screens      *screening.Simulator
	risk         *riskengine.Evaluator
	dispatcher   *alerting.Dispatcher
	logger       *slog.Logger
}

// NewOrchestrator creates the transfer orchestrator
func NewOrchestrator(
	db persistence.TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	envelopes *envelope.Service,
	chain *auditchain.Chain,
	screens *screening.Simulator,
	risk *riskengine.Evaluator,
	dispatcher *alerting.Dispatcher,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		envelopes:    envelopes,
		chain:        chain,
		screens:      screens,
		risk:         risk,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// transferPayload is the logical transfer document protected by the envelope
type transferPayload struct {
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Memo                 string `json:"memo,omitempty"`
	RequesterID          string `json:"requester_id"`
}

// Execute runs one transfer end to end. Validation and the authorization
// check run before any row lock is taken; the payload is encrypted once and
// the identical blob is stored on both legs.
func (o *Orchestrator) Execute(ctx context.Context, req shared.TransferRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	// Ownership is checked against an unlocked read so a forbidden request
	// never touches either account's lock path
	source, err := o.accounts.GetByID(ctx, req.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if !req.Requester.Privileged() && source.UserID != req.Requester.ID {
		return nil, shared.ForbiddenError{Reason: "requester does not own the source account"}
	}

	env, err := o.envelopes.Encrypt(ctx, transferPayload{
		SourceAccountID:      req.SourceAccountID.String(),
		DestinationAccountID: req.DestinationAccountID.String(),
		Amount:               req.Amount.StringFixed(4),
		Currency:             req.Currency,
		Memo:                 req.Memo,
		RequesterID:          req.Requester.ID.String(),
	})
	if err != nil {
		return nil, err
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize envelope: %w", err)
	}

	result := &Result{Envelope: env}
	err = o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return o.executeLocked(ctx, tx, req, blob, result)
	})
	if err != nil {
		return nil, err
	}

	// Summaries leave for the bus only now that the unit of work committed
	o.dispatcher.PublishRaised(ctx, result.alertsRaised...)

	o.logger.Info("transfer committed",
		"debit_id", result.DebitTransaction.ID.String(),
		"credit_id", result.CreditTransaction.ID.String(),
		"amount", req.Amount.StringFixed(4),
		"currency", req.Currency,
	)
	return result, nil
}

func (o *Orchestrator) executeLocked(ctx context.Context, tx pgx.Tx, req shared.TransferRequest, blob []byte, result *Result) error {
	accounts := o.accounts.WithTx(tx)

	source, dest, err := lockPair(ctx, accounts, req.SourceAccountID, req.DestinationAccountID)
	if err != nil {
		return err
	}

	if source.Currency != req.Currency {
		return shared.ValidationError{Field: "currency", Reason: fmt.Sprintf("source account holds %s, not %s", source.Currency, req.Currency)}
	}
	if dest.Currency != req.Currency {
		return shared.ValidationError{Field: "currency", Reason: fmt.Sprintf("destination account holds %s, not %s", dest.Currency, req.Currency)}
	}
	if !source.CanWithdraw(req.Amount) {
		return account.ErrInsufficientFunds
	}

	if err := accounts.AdjustBalance(ctx, source.ID, req.Amount.Neg()); err != nil {
		return err
	}
	if err := accounts.AdjustBalance(ctx, dest.ID, req.Amount); err != nil {
		return err
	}

	// Both legs share the amount, currency, blob and creation instant
	now := time.Now().UTC()
	debit := transaction.NewLeg(source.ID, &dest.ID, req.Amount, req.Currency, shared.DirectionDebit, req.Memo, blob, now)
	credit := transaction.NewLeg(dest.ID, &source.ID, req.Amount, req.Currency, shared.DirectionCredit, req.Memo, blob, now)

	transactions := o.transactions.WithTx(tx)
	if err := transactions.Create(ctx, debit); err != nil {
		return err
	}
	if err := transactions.Create(ctx, credit); err != nil {
		return err
	}

	if _, err := o.chain.AppendInTx(ctx, tx, "transaction.transfer", map[string]any{
		"debit_id":       debit.ID.String(),
		"credit_id":      credit.ID.String(),
		"source_id":      source.ID.String(),
		"destination_id": dest.ID.String(),
		"amount":         req.Amount.StringFixed(4),
		"currency":       req.Currency,
	}); err != nil {
		return err
	}

	checks, amlAlerts, err := o.screens.Run(ctx, tx, screening.Input{
		UserID:        source.UserID,
		TransactionID: &debit.ID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Memo:          req.Memo,
	})
	if err != nil {
		return err
	}

	sourceRisk, err := o.risk.EvaluateInTx(ctx, tx, source.ID)
	if err != nil {
		return err
	}
	destRisk, err := o.risk.EvaluateInTx(ctx, tx, dest.ID)
	if err != nil {
		return err
	}

	result.DebitTransaction = debit
	result.CreditTransaction = credit
	result.ComplianceResults = checks
	result.SourceRisk = sourceRisk
	result.DestinationRisk = destRisk

	result.alertsRaised = append(result.alertsRaised, amlAlerts...)
	result.alertsRaised = append(result.alertsRaised, sourceRisk.AlertsRaised...)
	result.alertsRaised = append(result.alertsRaised, destRisk.AlertsRaised...)
	return nil
}

// validateRequest rejects contradictions that need no database access
func validateRequest(req shared.TransferRequest) error {
	if req.SourceAccountID == req.DestinationAccountID {
		return shared.ValidationError{Field: "destination_account_id", Reason: "source and destination accounts must differ"}
	}
	if !req.Amount.IsPositive() {
		return shared.ValidationError{Field: "amount", Reason: "amount must be positive"}
	}
	if len(req.Currency) != 3 {
		return shared.ValidationError{Field: "currency", Reason: "currency must be a 3-letter code"}
	}
	if !shared.ValidRole(req.Requester.Role) {
		return shared.ValidationError{Field: "requester_role", Reason: fmt.Sprintf("unknown role %q", req.Requester.Role)}
	}
	return nil
}

// lockPair acquires both row locks in canonical identifier order, so
// concurrent reverse-direction transfers between the same two accounts
// cannot deadlock
func lockPair(ctx context.Context, repo account.Repository, sourceID, destID uuid.UUID) (*account.Account, *account.Account, error) {
	first, second := sourceID, destID
	if strings.Compare(destID.String(), sourceID.String()) < 0 {
		first, second = destID, sourceID
	}

	locked := make(map[uuid.UUID]*account.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		acct, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		locked[id] = acct
	}
	return locked[sourceID], locked[destID], nil
}
