package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/village-settlement-api/internal/config"
	"github.com/sjperalta/village-settlement-api/internal/jobs"
	"github.com/sjperalta/village-settlement-api/internal/middleware"
	"github.com/sjperalta/village-settlement-api/internal/repository/memory"
	"github.com/sjperalta/village-settlement-api/internal/services"
	"github.com/sjperalta/village-settlement-api/internal/storage"
)

const testSecret = "handler-test-secret"

type apiClient struct {
	t         *testing.T
	router    *gin.Engine
	treasurer string
	resident  string
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	worker := jobs.NewWorker(1)
	t.Cleanup(worker.Shutdown)

	cfg := &config.Config{
		JWTSecret:                testSecret,
		AllowedOrigins:           []string{"*"},
		CandidateAmountTolerance: decimal.Zero,
		CandidateDateWindowDays:  3,
	}
	svcs := services.NewServices(memory.New(), worker, store, cfg)

	treasurer, err := middleware.IssueToken(testSecret, middleware.Claims{UserID: 5, Role: middleware.RoleTreasurer})
	require.NoError(t, err)
	resident, err := middleware.IssueToken(testSecret, middleware.Claims{UserID: 9, Role: middleware.RoleResident})
	require.NoError(t, err)

	return &apiClient{
		t:         t,
		router:    NewRouter(NewHandlers(svcs), cfg),
		treasurer: treasurer,
		resident:  resident,
	}
}

func (a *apiClient) do(token, method, path string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (a *apiClient) mustID(status int, body map[string]any, key string) uint {
	a.t.Helper()
	require.Equal(a.t, http.StatusCreated, status, body)
	obj := body[key].(map[string]any)
	return uint(obj["id"].(float64))
}

func TestSettlementFlowOverHTTP(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(api.treasurer, http.MethodPost, "/api/v1/invoices", gin.H{
		"house_id": 12, "total_amount": "1000.00", "due_date": "2099-01-31", "label": "2099-01",
	})
	invoiceID := api.mustID(status, body, "invoice")

	status, body = api.do(api.resident, http.MethodPost, "/api/v1/payins", gin.H{"payin": gin.H{"house_id": 12, "amount": "800"}})
	payinID := api.mustID(status, body, "payin")

	// residents cannot accept their own pay-in
	status, _ = api.do(api.resident, http.MethodPost, fmt.Sprintf("/api/v1/payins/%d/accept", payinID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(api.treasurer, http.MethodPost, fmt.Sprintf("/api/v1/payins/%d/accept", payinID), nil)
	require.Equal(t, http.StatusOK, status, body)
	ledgerID := uint(body["ledger"].(map[string]any)["id"].(float64))

	status, body = api.do(api.treasurer, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/payments", invoiceID), gin.H{
		"ledger_id": ledgerID, "amount": "600",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = api.do(api.resident, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/outstanding", invoiceID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "400.00", body["outstanding_amount"])

	status, body = api.do(api.treasurer, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/payments", invoiceID), gin.H{
		"ledger_id": ledgerID, "amount": "250",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AMOUNT_EXCEEDS_LEDGER_REMAINING", errorCode(body))

	status, body = api.do(api.treasurer, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/credit_notes", invoiceID), gin.H{
		"amount": "400", "reason": "overcharge",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = api.do(api.treasurer, http.MethodPost, fmt.Sprintf("/api/v1/invoices/%d/credit_notes", invoiceID), gin.H{
		"amount": "50", "reason": "again",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVOICE_FULLY_CREDITED", errorCode(body))

	status, body = api.do(api.resident, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d", invoiceID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CREDITED", body["invoice"].(map[string]any)["status"])
	assert.Len(t, body["events"], 3)

	status, body = api.do(api.treasurer, http.MethodGet, fmt.Sprintf("/api/v1/invoices/%d/verify", invoiceID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["verification"].(map[string]any)["ok"])

	status, body = api.do(api.resident, http.MethodGet, fmt.Sprintf("/api/v1/ledgers/%d", ledgerID), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "200.00", body["ledger"].(map[string]any)["remaining"])
}

func TestErrorResponses(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"no token", "", http.MethodGet, "/api/v1/invoices", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad id", api.resident, http.MethodGet, "/api/v1/invoices/abc", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown invoice", api.resident, http.MethodGet, "/api/v1/invoices/404", nil, http.StatusNotFound, "INVOICE_NOT_FOUND"},
		{"bad due date", api.treasurer, http.MethodPost, "/api/v1/invoices", gin.H{"house_id": 1, "total_amount": "10", "due_date": "31/01/2099"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative total", api.treasurer, http.MethodPost, "/api/v1/invoices", gin.H{"house_id": 1, "total_amount": "-10", "due_date": "2099-01-31"}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"missing ledger", api.treasurer, http.MethodPost, "/api/v1/invoices/1/payments", gin.H{"amount": "10"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"match without payin", api.treasurer, http.MethodPost, "/api/v1/bank_transactions/1/match", gin.H{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown transaction", api.treasurer, http.MethodPost, "/api/v1/bank_transactions/77/unmatch", nil, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
		{"unknown import", api.treasurer, http.MethodPost, "/api/v1/statements/nope/confirm", nil, http.StatusNotFound, "IMPORT_NOT_FOUND"},
		{"jobs need admin", api.treasurer, http.MethodGet, "/api/v1/jobs/status", nil, http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(tt.token, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, body)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestStatementPreviewUpload(t *testing.T) {
	api := newAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "october.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Date,Description,Amount\n2026-10-01,Transfer house 12,1500.00\n2026-10-02,Transfer house 7,600\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/statements/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+api.treasurer)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	preview := body["preview"].(map[string]any)
	assert.EqualValues(t, 2, preview["row_count"])
	assert.Equal(t, "2100.00", preview["total_amount"])
	token := preview["token"].(string)

	status, resp := api.do(api.treasurer, http.MethodPost, "/api/v1/statements/"+token+"/confirm", nil)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "CONFIRMED", resp["statement_import"].(map[string]any)["status"])

	status, resp = api.do(api.treasurer, http.MethodGet, "/api/v1/bank_transactions?match_state=UNMATCHED", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["bank_transactions"], 2)

	status, resp = api.do(api.treasurer, http.MethodPost, "/api/v1/statements/"+token+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "IMPORT_ALREADY_CONFIRMED", errorCode(resp))
}

func TestHealth(t *testing.T) {
	api := newAPI(t)
	status, body := api.do("", http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(services.KindValidation))
	assert.Equal(t, http.StatusNotFound, statusFor(services.KindNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(services.KindConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.KindInvariant))
}
