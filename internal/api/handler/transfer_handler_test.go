package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/domain/account"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
	"github.com/meridianbank/corebank/internal/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransferService struct {
	result  *transfer.Result
	err     error
	request shared.TransferRequest
}

func (s *stubTransferService) Execute(_ context.Context, req shared.TransferRequest) (*transfer.Result, error) {
	s.request = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func transferBody(t *testing.T, source, dest uuid.UUID, amount string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"source_account_id":      source.String(),
		"destination_account_id": dest.String(),
		"amount":                 amount,
		"currency":               "USD",
		"memo":                   "rent",
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestTransferHandler_Create(t *testing.T) {
	sourceID, destID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	amount := decimal.RequireFromString("250.0000")
	debit := transaction.NewLeg(sourceID, &destID, amount, "USD", shared.DirectionDebit, "rent", nil, now)
	credit := transaction.NewLeg(destID, &sourceID, amount, "USD", shared.DirectionCredit, "rent", nil, now)
	stub := &stubTransferService{result: &transfer.Result{
		DebitTransaction:  debit,
		CreditTransaction: credit,
	}}

	h := NewTransferHandler(newTestLogger(), stub)
	router := newTestRouter(func(r *gin.RouterGroup) {
		r.POST("/transfers", h.Create)
	})

	requester := uuid.New()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transfers", transferBody(t, sourceID, destID, "250.0000"))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, requester, shared.RoleClient)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// The handler passes the parsed request plus the header identity through
	assert.Equal(t, sourceID, stub.request.SourceAccountID)
	assert.Equal(t, destID, stub.request.DestinationAccountID)
	assert.True(t, stub.request.Amount.Equal(amount))
	assert.Equal(t, requester, stub.request.Requester.ID)
	assert.Equal(t, shared.RoleClient, stub.request.Requester.Role)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	data := resp.Data.(map[string]any)
	debitResp := data["debit_transaction"].(map[string]any)
	assert.Equal(t, "debit", debitResp["direction"])
	assert.Equal(t, "250.0000", debitResp["amount"])
}

func TestTransferHandler_ErrorMapping(t *testing.T) {
	sourceID, destID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        shared.ValidationError{Field: "amount", Reason: "amount must be positive"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "forbidden",
			err:        shared.ForbiddenError{Reason: "requester does not own the source account"},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "account not found",
			err:        account.ErrAccountNotFound{AccountID: sourceID},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "insufficient funds",
			err:        account.ErrInsufficientFunds,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:       "unexpected failure stays generic",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTransferHandler(newTestLogger(), &stubTransferService{err: tc.err})
			router := newTestRouter(func(r *gin.RouterGroup) {
				r.POST("/transfers", h.Create)
			})

			req, _ := http.NewRequest(http.MethodPost, "/api/v1/transfers", transferBody(t, sourceID, destID, "250.0000"))
			req.Header.Set("Content-Type", "application/json")
			identityHeaders(req, uuid.New(), shared.RoleClient)

			rr := doRequest(router, req)
			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestTransferHandler_RejectsMalformedBody(t *testing.T) {
	h := NewTransferHandler(newTestLogger(), &stubTransferService{})
	router := newTestRouter(func(r *gin.RouterGroup) {
		r.POST("/transfers", h.Create)
	})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(`{"amount": true}`))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleClient)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTransferHandler_RequiresIdentity(t *testing.T) {
	h := NewTransferHandler(newTestLogger(), &stubTransferService{})
	router := newTestRouter(func(r *gin.RouterGroup) {
		r.POST("/transfers", h.Create)
	})

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transfers", transferBody(t, uuid.New(), uuid.New(), "10.0000"))
	req.Header.Set("Content-Type", "application/json")

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
