package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthChecker) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestHealthChecker_HealthyWhenConnected(t *testing.T) {
	h := NewHealthChecker()
	h.SetConnected(true)

	code, body := serveHealth(t, h)
	assert.Equal(t, 200, code)
	assert.Equal(t, "healthy", body.Status)
	assert.True(t, body.IsConnected)
}

func TestHealthChecker_DegradedWhenDisconnected(t *testing.T) {
	h := NewHealthChecker()

	code, body := serveHealth(t, h)
	assert.Equal(t, 503, code)
	assert.Equal(t, "degraded", body.Status)
}

func TestHealthChecker_ErrorsOutrankDisconnect(t *testing.T) {
	h := NewHealthChecker()
	h.RecordError("adapter exploded")

	// Disconnected and erroring at once still yields one status code
	code, body := serveHealth(t, h)
	assert.Equal(t, 500, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Errors, "adapter exploded")
}

func TestHealthChecker_RecordsActivity(t *testing.T) {
	h := NewHealthChecker()
	h.SetConnected(true)
	h.RecordDispatch()
	h.RecordRiskCheck()

	_, body := serveHealth(t, h)
	assert.False(t, body.LastDispatch.IsZero())
	assert.False(t, body.LastRiskCheck.IsZero())
}

func TestHealthChecker_ClearErrorsRestoresHealth(t *testing.T) {
	h := NewHealthChecker()
	h.SetConnected(true)
	h.RecordError("transient")
	h.ClearErrors()

	code, body := serveHealth(t, h)
	assert.Equal(t, 200, code)
	assert.Equal(t, "healthy", body.Status)
}
