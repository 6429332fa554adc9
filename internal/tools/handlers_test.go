package tools

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange/sim"
	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/logger"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

func newTestServer(t *testing.T) (*httptest.Server, *execution.Engine, *risk.Engine) {
	t.Helper()

	adapter := sim.NewAdapter(map[string]float64{
		"BTCUSDT": 50000,
		"ETHUSDT": 3000,
	})

	riskEngine, err := risk.NewEngine(adapter, logger.NewDiscardLogger(), risk.DefaultRiskLimits())
	require.NoError(t, err)

	execEngine := execution.NewEngine(adapter, riskEngine, logger.NewDiscardLogger())
	execEngine.Start()
	t.Cleanup(execEngine.Stop)

	mux := http.NewServeMux()
	NewServer(execEngine, riskEngine, logger.NewDiscardLogger()).RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, execEngine, riskEngine
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestSubmitOrder_ReturnsOrderID(t *testing.T) {
	server, eng, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/execution_submit_order", map[string]interface{}{
		"symbol":     "BTCUSDT",
		"side":       "buy",
		"quantity":   0.5,
		"order_type": "market",
		"algorithm":  "immediate",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out submitOrderOutput
	decodeInto(t, resp, &out)
	assert.NotEmpty(t, out.OrderID)
	assert.Equal(t, "BTCUSDT", out.Symbol)
	assert.Equal(t, 1, out.Slices)

	_, ok := eng.GetOrderStatus(out.OrderID)
	assert.True(t, ok)
}

func TestSubmitOrder_ValidationErrorIs400(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/execution_submit_order", map[string]interface{}{
		"symbol":     "BTCUSDT",
		"side":       "buy",
		"quantity":   0.5,
		"order_type": "market",
		"algorithm":  "pov",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorBody
	decodeInto(t, resp, &body)
	assert.Equal(t, "submit_rejected", body.Error)
	assert.Contains(t, body.Message, "algorithm")
}

func TestSubmitOrder_RequiresPost(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/tools/execution_submit_order")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCancelOrder_UnknownOrderIsFalseSuccess(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/execution_cancel_order", map[string]interface{}{
		"order_id": "missing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result execution.CancelResult
	decodeInto(t, resp, &result)
	assert.False(t, result.Success)
	assert.Equal(t, "missing", result.OrderID)
}

func TestGetOrderReport_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/execution_get_order_report", map[string]interface{}{
		"order_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetOrderReport_AfterFill(t *testing.T) {
	server, eng, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/execution_submit_order", map[string]interface{}{
		"symbol":     "ETHUSDT",
		"side":       "buy",
		"quantity":   1.0,
		"order_type": "market",
		"algorithm":  "immediate",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out submitOrderOutput
	decodeInto(t, resp, &out)

	require.Eventually(t, func() bool {
		status, ok := eng.GetOrderStatus(out.OrderID)
		return ok && status == execution.OrderStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	resp = postJSON(t, server.URL+"/tools/execution_get_order_report", map[string]interface{}{
		"order_id": out.OrderID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report execution.ExecutionReport
	decodeInto(t, resp, &report)
	assert.InDelta(t, 1.0, report.Summary.Progress, 1e-9)
	assert.InDelta(t, 3000, report.Summary.AveragePrice, 1e-9)
}

func TestRiskLimits_GetAndSet(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/risk_get_limits", map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var limits risk.RiskLimits
	decodeInto(t, resp, &limits)
	assert.InDelta(t, 50000, limits.MaxOrderValue, 1e-9)

	resp = postJSON(t, server.URL+"/tools/set_risk_limits", map[string]interface{}{
		"max_order_value": 25000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, resp, &limits)
	assert.InDelta(t, 25000, limits.MaxOrderValue, 1e-9)
}

func TestRiskLimits_InvalidUpdateIs400(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/set_risk_limits", map[string]interface{}{
		"var_limit": -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRiskMetrics_DefaultsApplied(t *testing.T) {
	server, _, riskEngine := newTestServer(t)
	riskEngine.SeedPriceHistory("BTCUSDT", []float64{100, 101, 99, 102, 100})

	resp := postJSON(t, server.URL+"/tools/get_risk_metrics", map[string]interface{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var portfolioRisk risk.PortfolioRisk
	decodeInto(t, resp, &portfolioRisk)
	assert.InDelta(t, 100000, portfolioRisk.TotalValue, 1e-9)
	assert.Len(t, portfolioRisk.StressTests, 4)
}

func TestResolveAlert_UnknownIsFalse(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/tools/risk_resolve_alert", map[string]interface{}{
		"alert_id": "missing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out resolveAlertOutput
	decodeInto(t, resp, &out)
	assert.False(t, out.Resolved)
}
