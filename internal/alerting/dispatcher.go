// Package alerting persists risk alerts, anchors each one in the audit
// chain, and pushes best-effort summaries to the external alert bus.
package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/platform/messaging/producers"
	"github.com/meridianbank/corebank/internal/platform/persistence"
)

// RaiseParams describes one alert to raise. AccountID is nil for user-level
// alerts such as AML failures.
type RaiseParams struct {
	AccountID *uuid.UUID
	AlertType string
	Severity  shared.Severity
	Details   map[string]any
}

// Dispatcher raises and serves risk alerts. Every raised alert is audited
// unconditionally, so alerts stay independently verifiable against the hash
// chain even if alert storage were later altered.
type Dispatcher struct {
	db        persistence.TxRunner
	alerts    risk.AlertRepository
	chain     *auditchain.Chain
	publisher producers.AlertPublisher
	logger    *slog.Logger
}

// NewDispatcher creates the alert dispatcher
func NewDispatcher(db persistence.TxRunner, alerts risk.AlertRepository, chain *auditchain.Chain, publisher producers.AlertPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		db:        db,
		alerts:    alerts,
		chain:     chain,
		publisher: publisher,
		logger:    logger,
	}
}

// RaiseInTx persists the alert and its audit entry inside the caller's
// transaction. It never touches the bus: the transaction may still roll
// back, and a summary must not be published for an alert that never
// committed. The transaction owner publishes after commit via PublishRaised.
func (d *Dispatcher) RaiseInTx(ctx context.Context, tx pgx.Tx, params RaiseParams) (*risk.Alert, error) {
	if shared.SeverityRank(params.Severity) == 0 {
		return nil, shared.ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown severity %q", params.Severity)}
	}
	if params.AlertType == "" {
		return nil, shared.ValidationError{Field: "alert_type", Reason: "alert type is required"}
	}

	alert := &risk.Alert{
		ID:          uuid.New(),
		AccountID:   params.AccountID,
		AlertType:   params.AlertType,
		Severity:    params.Severity,
		Details:     params.Details,
		TriggeredAt: time.Now().UTC(),
	}

	if err := d.alerts.WithTx(tx).Create(ctx, alert); err != nil {
		return nil, err
	}

	auditPayload := map[string]any{
		"alert_id":   alert.ID.String(),
		"alert_type": alert.AlertType,
		"severity":   string(alert.Severity),
	}
	if alert.AccountID != nil {
		auditPayload["account_id"] = alert.AccountID.String()
	}
	if _, err := d.chain.AppendInTx(ctx, tx, "risk.alert.raised", auditPayload); err != nil {
		return nil, err
	}

	d.logger.Info("risk alert raised",
		"alert_id", alert.ID.String(),
		"alert_type", alert.AlertType,
		"severity", string(alert.Severity),
	)
	return alert, nil
}

// Raise persists the alert in its own transaction, for callers outside a
// transfer's unit of work (e.g. the alert-raise API operation)
func (d *Dispatcher) Raise(ctx context.Context, params RaiseParams) (*risk.Alert, error) {
	var alert *risk.Alert
	err := d.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var raiseErr error
		alert, raiseErr = d.RaiseInTx(ctx, tx, params)
		return raiseErr
	})
	if err != nil {
		return nil, err
	}

	d.PublishRaised(ctx, alert)
	return alert, nil
}

// PublishRaised pushes flattened summaries of committed alerts to the bus.
// Failures are logged and swallowed: the bus gives no delivery guarantee,
// and alerting must never fail the financial operation that raised them.
func (d *Dispatcher) PublishRaised(ctx context.Context, alerts ...*risk.Alert) {
	for _, alert := range alerts {
		if alert == nil {
			continue
		}
		d.publishSummary(ctx, alert)
	}
}

// ListRecent returns alerts ordered by severity rank then recency
func (d *Dispatcher) ListRecent(ctx context.Context, limit int) ([]*risk.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	return d.alerts.ListRecent(ctx, limit)
}

// Acknowledge records an operator acknowledgement on an alert
func (d *Dispatcher) Acknowledge(ctx context.Context, alertID, by uuid.UUID) error {
	return d.alerts.Acknowledge(ctx, alertID, by, time.Now().UTC())
}

func (d *Dispatcher) publishSummary(ctx context.Context, alert *risk.Alert) {
	summary := map[string]any{
		"id":           alert.ID.String(),
		"type":         alert.AlertType,
		"severity":     string(alert.Severity),
		"triggered_at": alert.TriggeredAt,
	}
	if alert.AccountID != nil {
		summary["account_id"] = alert.AccountID.String()
	}

	if err := d.publisher.Publish(ctx, alert.ID.String(), summary); err != nil {
		d.logger.Warn("alert bus publish failed, continuing", "alert_id", alert.ID.String(), "error", err)
	}
}
