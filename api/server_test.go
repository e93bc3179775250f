package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/economy"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/store/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	eng := economy.New(memory.New(),
		economy.WithClock(economy.NewManualClock(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))),
		economy.WithoutScheduler(),
		economy.WithFundAllocations(map[fund.Type]int64{
			fund.TypeGrant:   1_000,
			fund.TypeRewards: 1_000,
			fund.TypeReserve: 1_000,
		}),
	)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() { _ = eng.Stop() })

	srv := httptest.NewServer(NewServer(eng, WithMetrics(prometheus.NewRegistry())).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func openAccount(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/accounts", map[string]any{"role": "developer"})
	require.Equal(t, http.StatusCreated, status)
	return body["id"].(string)
}

func errorType(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["type"].(string)
	return s
}

func TestEarningsFlow(t *testing.T) {
	srv := newTestServer(t)
	acct := openAccount(t, srv)

	status, _ := call(t, srv, http.MethodPost, "/accounts/"+acct+"/credit", map[string]any{"amount": 100})
	require.Equal(t, http.StatusCreated, status)

	status, res := call(t, srv, http.MethodPost, "/accounts/"+acct+"/earnings", map[string]any{"amount": 1000})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 50.0, res["tax_amount"])
	assert.Equal(t, 25.0, res["burn"])
	assert.Equal(t, 950.0, res["net"])

	status, bal := call(t, srv, http.MethodGet, "/accounts/"+acct+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1050.0, bal["balance"])

	status, quote := call(t, srv, http.MethodGet, "/accounts/"+acct+"/purchases/quote?price=100", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, quote["tax"])
	assert.Equal(t, 102.0, quote["total"])
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)
	acct := openAccount(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"insufficient balance", http.MethodPost, "/accounts/" + acct + "/debit", map[string]any{"amount": 5000}, http.StatusConflict, "conflict"},
		{"zero amount", http.MethodPost, "/accounts/" + acct + "/credit", map[string]any{"amount": 0}, http.StatusBadRequest, "invalid_request"},
		{"unknown field", http.MethodPost, "/accounts/" + acct + "/credit", map[string]any{"points": 1}, http.StatusBadRequest, "invalid_request"},
		{"malformed id", http.MethodGet, "/accounts/nope", nil, http.StatusBadRequest, "invalid_request"},
		{"missing account", http.MethodGet, "/accounts/" + id.NewAccountID().String(), nil, http.StatusNotFound, "not_found"},
		{"bad window", http.MethodGet, "/stats?window=fortnight", nil, http.StatusBadRequest, "invalid_request"},
		{"bad fund", http.MethodPost, "/funds/treasury/grants", map[string]any{"account_id": acct, "amount": 1}, http.StatusBadRequest, "invalid_request"},
		{"fund exhausted", http.MethodPost, "/funds/grant/grants", map[string]any{"account_id": acct, "amount": 5000}, http.StatusUnprocessableEntity, "fund_exhausted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, errorType(body))
		})
	}
}

func TestGrantIsIdempotentByReference(t *testing.T) {
	srv := newTestServer(t)
	acct := openAccount(t, srv)
	req := map[string]any{"account_id": acct, "amount": 10, "reference": "hackathon-2025"}

	status, _ := call(t, srv, http.MethodPost, "/funds/grant/grants", req)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, http.MethodPost, "/funds/grant/grants", req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["applied"])
}

func TestJobsAndReports(t *testing.T) {
	srv := newTestServer(t)
	openAccount(t, srv)

	status, report := call(t, srv, http.MethodPost, "/jobs/weekly-bonus", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "applied", report["outcome"])
	assert.Equal(t, 1.0, report["applied"])

	status, report = call(t, srv, http.MethodPost, "/jobs/weekly-bonus", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "noop", report["outcome"])

	status, report = call(t, srv, http.MethodPost, "/jobs/annual-adjustment", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "noop", report["outcome"])

	status, stats := call(t, srv, http.MethodGet, "/stats?window=week", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(economy.DefaultAnnualAllocation), stats["total_allocated"])

	status, _ = call(t, srv, http.MethodGet, "/invariants", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
