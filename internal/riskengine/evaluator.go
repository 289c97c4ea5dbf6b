// Package riskengine computes per-account risk metrics over a rolling
// transaction window and escalates threshold breaches and statistical
// anomalies through the alert dispatcher.
package riskengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/config"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/meridianbank/corebank/internal/platform/persistence"
	"github.com/meridianbank/corebank/internal/riskengine/isoforest"
	"github.com/shopspring/decimal"
)

// detectorVersion tags persisted anomaly events with the model that flagged
// them, so scores stay comparable after parameter changes
const detectorVersion = "isoforest/1"

// minHistoryForDetector is the smallest transaction window the detector will
// fit on; below it the ensemble is statistically meaningless
const minHistoryForDetector = 5

// Evaluation is the result of one risk evaluation of an account.
// AnomalyScore is nil when the account's history is too short to score.
type Evaluation struct {
	AccountID    uuid.UUID            `json:"account_id"`
	Exposure     decimal.Decimal      `json:"exposure"`
	Leverage     decimal.Decimal      `json:"leverage"`
	LossRatio    decimal.Decimal      `json:"loss_ratio"`
	AnomalyScore *float64             `json:"anomaly_score,omitempty"`
	Snapshot     *risk.MetricSnapshot `json:"snapshot"`
	AlertsRaised []*risk.Alert        `json:"alerts_raised,omitempty"`
}

// Evaluator computes and persists risk metrics for accounts
type Evaluator struct {
	db           persistence.TxRunner
	accounts     account.Repository
	transactions transaction.Repository
	snapshots    risk.SnapshotRepository
	anomalies    risk.AnomalyRepository
	dispatcher   *alerting.Dispatcher
	cfg          config.RiskConfig
	logger       *slog.Logger
}

// NewEvaluator creates the risk metrics evaluator
func NewEvaluator(
	db persistence.TxRunner,
	accounts account.Repository,
	transactions transaction.Repository,
	snapshots risk.SnapshotRepository,
	anomalies risk.AnomalyRepository,
	dispatcher *alerting.Dispatcher,
	cfg config.RiskConfig,
	logger *slog.Logger,
) *Evaluator {
	return &Evaluator{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		snapshots:    snapshots,
		anomalies:    anomalies,
		dispatcher:   dispatcher,
		cfg:          cfg,
		logger:       logger,
	}
}

// EvaluateInTx evaluates one account inside the caller's transaction. It
// persists a metric snapshot, raises threshold alerts (unless suppressed by
// configuration), then runs the anomaly detector over the same window.
func (e *Evaluator) EvaluateInTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*Evaluation, error) {
	acct, err := e.accounts.WithTx(tx).GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	window, err := e.transactions.WithTx(tx).ListRecentByAccount(ctx, accountID, e.cfg.TransactionWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction window: %w", err)
	}

	eval := e.computeMetrics(acct, window)

	snapshot := &risk.MetricSnapshot{
		ID:         uuid.New(),
		AccountID:  accountID,
		Exposure:   eval.Exposure,
		Leverage:   eval.Leverage,
		LossRatio:  eval.LossRatio,
		WindowDays: e.cfg.WindowDays,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.snapshots.WithTx(tx).Create(ctx, snapshot); err != nil {
		return nil, err
	}
	eval.Snapshot = snapshot

	if err := e.raiseThresholdAlerts(ctx, tx, acct, eval); err != nil {
		return nil, err
	}

	if err := e.detectAnomalies(ctx, tx, acct, window, eval); err != nil {
		return nil, err
	}

	e.logger.Debug("risk evaluation completed",
		"account_id", accountID.String(),
		"exposure", eval.Exposure.String(),
		"leverage", eval.Leverage.String(),
		"loss_ratio", eval.LossRatio.String(),
	)
	return eval, nil
}

// Evaluate evaluates one account in its own transaction, for callers outside
// a transfer's unit of work (e.g. the risk-evaluation API operation). Alert
// summaries go to the bus only once the transaction has committed.
func (e *Evaluator) Evaluate(ctx context.Context, accountID uuid.UUID) (*Evaluation, error) {
	var eval *Evaluation
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var evalErr error
		eval, evalErr = e.EvaluateInTx(ctx, tx, accountID)
		return evalErr
	})
	if err != nil {
		return nil, err
	}

	e.dispatcher.PublishRaised(ctx, eval.AlertsRaised...)
	return eval, nil
}

// computeMetrics derives exposure, leverage and loss ratio from the window.
// Divisors are floored at 1 so fresh or empty accounts produce finite ratios.
func (e *Evaluator) computeMetrics(acct *account.Account, window []*transaction.Transaction) *Evaluation {
	one := decimal.NewFromInt(1)
	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	rollingLoss := decimal.Zero

	for _, txn := range window {
		amount := txn.Amount.Abs()
		switch txn.Direction {
		case shared.DirectionDebit:
			totalDebits = totalDebits.Add(amount)
			rollingLoss = rollingLoss.Add(amount)
		case shared.DirectionCredit:
			totalCredits = totalCredits.Add(amount)
			rollingLoss = rollingLoss.Sub(amount)
		}
	}

	netOutflow := totalDebits.Sub(totalCredits)
	exposure := decimal.Max(decimal.Zero, netOutflow)
	leverage := totalDebits.DivRound(decimal.Max(acct.Balance, one), 6)
	lossRatio := decimal.Max(decimal.Zero, rollingLoss).DivRound(decimal.Max(totalCredits, one), 6)

	return &Evaluation{
		AccountID: acct.ID,
		Exposure:  exposure.Round(4),
		Leverage:  leverage,
		LossRatio: lossRatio,
	}
}

// raiseThresholdAlerts checks the static metric thresholds and raises one
// alert per breach
func (e *Evaluator) raiseThresholdAlerts(ctx context.Context, tx pgx.Tx, acct *account.Account, eval *Evaluation) error {
	if e.cfg.SuppressThresholdAlerts {
		return nil
	}

	type breach struct {
		alertType string
		severity  shared.Severity
		details   map[string]any
	}
	var breaches []breach

	if eval.Leverage.GreaterThan(decimal.NewFromInt(2)) {
		breaches = append(breaches, breach{
			alertType: "excess_leverage",
			severity:  shared.SeverityHigh,
			details:   map[string]any{"leverage": eval.Leverage.String(), "threshold": "2"},
		})
	}
	if eval.LossRatio.GreaterThan(decimal.NewFromFloat(0.1)) {
		breaches = append(breaches, breach{
			alertType: "high_loss_ratio",
			severity:  shared.SeverityMedium,
			details:   map[string]any{"loss_ratio": eval.LossRatio.String(), "threshold": "0.1"},
		})
	}
	halfBalance := acct.Balance.Div(decimal.NewFromInt(2))
	if eval.Exposure.GreaterThan(decimal.Zero) && eval.Exposure.GreaterThan(halfBalance) {
		breaches = append(breaches, breach{
			alertType: "high_exposure",
			severity:  shared.SeverityMedium,
			details: map[string]any{
				"exposure": eval.Exposure.String(),
				"balance":  acct.Balance.String(),
			},
		})
	}

	for _, b := range breaches {
		accountID := acct.ID
		alert, err := e.dispatcher.RaiseInTx(ctx, tx, alerting.RaiseParams{
			AccountID: &accountID,
			AlertType: b.alertType,
			Severity:  b.severity,
			Details:   b.details,
		})
		if err != nil {
			return err
		}
		eval.AlertsRaised = append(eval.AlertsRaised, alert)
	}
	return nil
}

// detectAnomalies fits a fresh ensemble on the window and scores its most
// recent transaction. The model lives only for the duration of this call.
func (e *Evaluator) detectAnomalies(ctx context.Context, tx pgx.Tx, acct *account.Account, window []*transaction.Transaction, eval *Evaluation) error {
	if len(window) < minHistoryForDetector {
		return nil
	}

	forest := isoforest.Fit(featureMatrix(window), isoforest.Config{
		Trees:         e.cfg.AnomalyTrees,
		SubsampleSize: e.cfg.AnomalySubsample,
	})
	if forest == nil {
		return nil
	}

	latest := window[0]
	score := forest.Score(featureVector(latest))
	eval.AnomalyScore = &score

	if score < e.cfg.AnomalyThreshold {
		return nil
	}

	event := &risk.AnomalyEvent{
		ID:              uuid.New(),
		TransactionID:   latest.ID,
		AccountID:       acct.ID,
		Score:           score,
		Threshold:       e.cfg.AnomalyThreshold,
		DetectorVersion: detectorVersion,
		Metadata: map[string]any{
			"window_size": len(window),
			"direction":   string(latest.Direction),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := e.anomalies.WithTx(tx).Create(ctx, event); err != nil {
		return err
	}

	if e.cfg.SuppressThresholdAlerts {
		return nil
	}

	accountID := acct.ID
	alert, err := e.dispatcher.RaiseInTx(ctx, tx, alerting.RaiseParams{
		AccountID: &accountID,
		AlertType: "suspected_anomaly",
		Severity:  shared.SeverityHigh,
		Details: map[string]any{
			"transaction_id": latest.ID.String(),
			"score":          score,
			"threshold":      e.cfg.AnomalyThreshold,
		},
	})
	if err != nil {
		return err
	}
	eval.AlertsRaised = append(eval.AlertsRaised, alert)
	return nil
}
