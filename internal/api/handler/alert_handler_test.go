package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meridianbank/corebank/internal/alerting"
	"github.com/meridianbank/corebank/internal/auditchain"
	"github.com/meridianbank/corebank/internal/domain/risk"
	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlertRouter(t *testing.T) (*gin.Engine, *fakeAlertRepo, *fakeAuditRepo) {
	t.Helper()
	alerts := &fakeAlertRepo{}
	auditRepo := &fakeAuditRepo{}
	runner := newMockRunner(t)
	chain := auditchain.NewChain(runner, auditRepo, newTestLogger())
	dispatcher := alerting.NewDispatcher(runner, alerts, chain, noopPublisher{}, newTestLogger())
	h := NewAlertHandler(newTestLogger(), dispatcher)

	router := newTestRouter(func(r *gin.RouterGroup) {
		r.GET("/alerts", h.List)
		r.POST("/alerts", h.Raise)
		r.PATCH("/alerts/:id/ack", h.Acknowledge)
	})
	return router, alerts, auditRepo
}

func TestAlertHandler_Raise(t *testing.T) {
	router, alerts, auditRepo := newAlertRouter(t)

	body, _ := json.Marshal(map[string]any{
		"alert_type": "manual_review",
		"severity":   "high",
		"details":    map[string]any{"reason": "unusual wire pattern"},
	})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/alerts", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleAdmin)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	require.Len(t, alerts.alerts, 1)
	assert.Equal(t, "manual_review", alerts.alerts[0].AlertType)
	assert.Equal(t, shared.SeverityHigh, alerts.alerts[0].Severity)

	// Every raise is anchored in the audit chain
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, "risk.alert.raised", auditRepo.entries[0].EventType)
}

func TestAlertHandler_RaiseForbiddenForClients(t *testing.T) {
	router, alerts, _ := newAlertRouter(t)

	body, _ := json.Marshal(map[string]any{"alert_type": "manual_review", "severity": "low"})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/alerts", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	identityHeaders(req, uuid.New(), shared.RoleClient)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, alerts.alerts)
}

func TestAlertHandler_List(t *testing.T) {
	router, alerts, _ := newAlertRouter(t)
	for i := 0; i < 3; i++ {
		alerts.alerts = append(alerts.alerts, &risk.Alert{
			ID:          uuid.New(),
			AlertType:   "excess_leverage",
			Severity:    shared.SeverityHigh,
			TriggeredAt: time.Now().UTC(),
		})
	}

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/alerts?limit=2", nil)
	identityHeaders(req, uuid.New(), shared.RoleAuditor)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestAlertHandler_ListRejectsBadLimit(t *testing.T) {
	router, _, _ := newAlertRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/alerts?limit=0", nil)
	identityHeaders(req, uuid.New(), shared.RoleAuditor)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAlertHandler_Acknowledge(t *testing.T) {
	router, alerts, _ := newAlertRouter(t)
	alert := &risk.Alert{ID: uuid.New(), AlertType: "excess_leverage", Severity: shared.SeverityHigh}
	alerts.alerts = append(alerts.alerts, alert)

	operator := uuid.New()
	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/alerts/"+alert.ID.String()+"/ack", nil)
	identityHeaders(req, operator, shared.RoleAuditor)

	rr := doRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, operator, *alert.AcknowledgedBy)
}

func TestAlertHandler_AcknowledgeUnknownAlert(t *testing.T) {
	router, _, _ := newAlertRouter(t)

	req, _ := http.NewRequest(http.MethodPatch, "/api/v1/alerts/"+uuid.New().String()+"/ack", nil)
	identityHeaders(req, uuid.New(), shared.RoleAdmin)

	rr := doRequest(router, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
