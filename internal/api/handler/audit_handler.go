package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/meridianbank/corebank/internal/api/middleware"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/domain/shared"
)

// AuditHandler handles HTTP requests for the audit chain
type AuditHandler struct {
	chain  *auditchain.Chain
	logger *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(logger *slog.Logger, chain *auditchain.Chain) *AuditHandler {
	return &AuditHandler{
		chain:  chain,
		logger: logger,
	}
}

// Verify replays the full chain and reports whether it is intact
func (h *AuditHandler) Verify(c *gin.Context) {
	result, err := h.chain.Verify(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, result)
}

// Append records an out-of-band audit entry. Restricted to operator roles.
func (h *AuditHandler) Append(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok || (!identity.Privileged() && identity.Role != shared.RoleAuditor) {
		RespondForbidden(c, "audit appends require an operator role")
		return
	}

	var req AppendAuditEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.chain.Append(c.Request.Context(), req.EventType, req.Payload)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, entry)
}
