package handler

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/api/middleware"
	"github.com/meridianbank/corebank/internal/domain/shared"
)

// AlertHandler handles HTTP requests for operator alert workflows
type AlertHandler struct {
	dispatcher *alerting.Dispatcher
	logger     *slog.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(logger *slog.Logger, dispatcher *alerting.Dispatcher) *AlertHandler {
	return &AlertHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// List returns recent alerts, most severe first
func (h *AlertHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			RespondBadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	alerts, err := h.dispatcher.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, alerts)
}

// Raise creates an alert manually. Restricted to operator roles; clients
// only cause alerts indirectly through transfers.
func (h *AlertHandler) Raise(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok || (!identity.Privileged() && identity.Role != shared.RoleAuditor) {
		RespondForbidden(c, "alert raising requires an operator role")
		return
	}

	var req RaiseAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params := alerting.RaiseParams{
		AlertType: req.AlertType,
		Severity:  shared.Severity(req.Severity),
		Details:   req.Details,
	}
	if req.AccountID != "" {
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid account ID")
			return
		}
		params.AccountID = &accountID
	}

	alert, err := h.dispatcher.Raise(c.Request.Context(), params)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, alert)
}

// Acknowledge records the caller's acknowledgement on an alert
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok || (!identity.Privileged() && identity.Role != shared.RoleAuditor) {
		RespondForbidden(c, "alert acknowledgement requires an operator role")
		return
	}

	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid alert ID")
		return
	}

	if err := h.dispatcher.Acknowledge(c.Request.Context(), alertID, identity.ID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, gin.H{"acknowledged": true})
}
