package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "sim", cfg.Exchange.Name)
	assert.InDelta(t, 50000, cfg.Risk.MaxOrderValue, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Risk.CheckInterval)
	assert.Equal(t, 3, cfg.Execution.MaxRetries)
	assert.Equal(t, 8080, cfg.Monitoring.Port)
	assert.Equal(t, "data/execution_reports.xlsx", cfg.Reporting.ExcelPath)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("EXCHANGE_NAME", "bybit")
	t.Setenv("RISK_MAX_ORDER_VALUE", "25000")
	t.Setenv("RISK_CHECK_INTERVAL", "10s")
	t.Setenv("EXECUTION_MAX_RETRIES", "5")
	t.Setenv("BYBIT_DEMO", "false")
	t.Setenv("EXECUTION_REPORT_PATH", "out/history.xlsx")

	cfg := Load()

	assert.Equal(t, "bybit", cfg.Exchange.Name)
	assert.InDelta(t, 25000, cfg.Risk.MaxOrderValue, 1e-9)
	assert.Equal(t, 10*time.Second, cfg.Risk.CheckInterval)
	assert.Equal(t, 5, cfg.Execution.MaxRetries)
	assert.False(t, cfg.Exchange.Demo)
	assert.Equal(t, "out/history.xlsx", cfg.Reporting.ExcelPath)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("RISK_MAX_ORDER_VALUE", "not-a-number")
	t.Setenv("RISK_CHECK_INTERVAL", "soon")

	cfg := Load()

	assert.InDelta(t, 50000, cfg.Risk.MaxOrderValue, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Risk.CheckInterval)
}
