package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/api/middleware"
	"github.com/meridianbank/corebank/internal/crypto/envelope"
	"github.com/meridianbank/corebank/internal/domain/compliance"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/riskengine"
	"github.com/meridianbank/corebank/internal/transfer"
)

// TransferHandler handles HTTP requests for transfers
type TransferHandler struct {
	transfers transfer.Service
	logger    *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transfers transfer.Service) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		logger:    logger,
	}
}

// TransferResponse represents a committed transfer in API responses
type TransferResponse struct {
	DebitTransaction  TransactionResponse       `json:"debit_transaction"`
	CreditTransaction TransactionResponse       `json:"credit_transaction"`
	Envelope          *envelope.Envelope        `json:"envelope"`
	ComplianceResults []*compliance.CheckRecord `json:"compliance_results"`
	SourceRisk        *riskengine.Evaluation    `json:"source_risk"`
	DestinationRisk   *riskengine.Evaluation    `json:"destination_risk"`
}

// Create executes a transfer between two accounts on behalf of the caller
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		RespondForbidden(c, "missing caller identity")
		return
	}

	sourceID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid source account ID")
		return
	}
	destID, err := uuid.Parse(req.DestinationAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid destination account ID")
		return
	}

	result, err := h.transfers.Execute(c.Request.Context(), shared.TransferRequest{
		SourceAccountID:      sourceID,
		DestinationAccountID: destID,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Memo:                 req.Memo,
		Requester:            identity,
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, TransferResponse{
		DebitTransaction:  mapTransactionToResponse(result.DebitTransaction),
		CreditTransaction: mapTransactionToResponse(result.CreditTransaction),
		Envelope:          result.Envelope,
		ComplianceResults: result.ComplianceResults,
		SourceRisk:        result.SourceRisk,
		DestinationRisk:   result.DestinationRisk,
	})
}
