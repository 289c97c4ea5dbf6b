package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/riskengine"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accounts account.Repository
	risk     *riskengine.Evaluator
	logger   *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accounts account.Repository, risk *riskengine.Evaluator) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		risk:     risk,
		logger:   logger,
	}
}

// Create opens a new account. The initial balance is externally injected
// funding; transfers are the only other way balances move.
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondBadRequest(c, "Invalid user ID")
		return
	}

	acc, err := account.NewAccount(userID, req.InitialBalance, req.Currency)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	if err := h.accounts.Create(c.Request.Context(), acc); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves an account by its ID, returning 404 if not found
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	acc, err := h.accounts.GetByID(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// EvaluateRisk runs an on-demand risk evaluation for an account
func (h *AccountHandler) EvaluateRisk(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	eval, err := h.risk.Evaluate(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, eval)
}
