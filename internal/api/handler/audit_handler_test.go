package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuditRouter(t *testing.T) (*gin.Engine, *fakeAuditRepo) {
	t.Helper()
	auditRepo := &fakeAuditRepo{}
	chain := auditchain.NewChain(newMockRunner(t), auditRepo, newTestLogger())
	h := NewAuditHandler(newTestLogger(), chain)

	router := newTestRouter(func(r *gin.RouterGroup) {
		r.GET("/audit/verify", h.Verify)
		r.POST("/audit/entries", h.Append)
	})
	return router, auditRepo
}

func appendEntry(t *testing.T, eventType string) *bytes.Buffer {
	t.Helper()
	body, _ := json.Marshal(map[string]any{
		"event_type": eventType,
		"payload":    map[string]any{"note": "quarterly review"},
	})
	return bytes.NewBuffer(body)
}

func TestAuditHandler_AppendAndVerify(t *testing.T) {
	router, auditRepo := newAuditRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/audit/entries", appendEntry(t, "operator.note"))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleAuditor)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, "operator.note", auditRepo.entries[0].EventType)

	verifyReq, _ := http.NewRequest(http.MethodGet, "/api/v1/audit/verify", nil)
	identityHeaders(verifyReq, uuid.New(), shared.RoleAuditor)

	verifyRR := doRequest(router, verifyReq)
	require.Equal(t, http.StatusOK, verifyRR.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(verifyRR.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(1), data["entries"])
}

func TestAuditHandler_VerifyReportsTampering(t *testing.T) {
	router, auditRepo := newAuditRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/audit/entries", appendEntry(t, "operator.note"))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleAdmin)
	require.Equal(t, http.StatusCreated, doRequest(router, req).Code)

	auditRepo.entries[0].Payload["note"] = "rewritten"

	verifyReq, _ := http.NewRequest(http.MethodGet, "/api/v1/audit/verify", nil)
	identityHeaders(verifyReq, uuid.New(), shared.RoleAuditor)

	rr := doRequest(router, verifyReq)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["valid"])
	assert.NotEmpty(t, data["broken_at"])
}

func TestAuditHandler_AppendForbiddenForClients(t *testing.T) {
	router, auditRepo := newAuditRouter(t)

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/audit/entries", appendEntry(t, "operator.note"))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleClient)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, auditRepo.entries)
}
