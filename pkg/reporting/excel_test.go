package reporting

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

func TestWriteExecutionWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "executions.xlsx")

	reports := []*execution.ExecutionReport{
		{
			OrderID:   "order-1",
			Symbol:    "BTCUSDT",
			Side:      "buy",
			Algorithm: execution.AlgorithmTWAP,
			Summary: execution.ReportSummary{
				Status:       execution.OrderStatusCompleted,
				Progress:     1.0,
				FilledQty:    0.6,
				Quantity:     0.6,
				AveragePrice: 50100,
			},
			Timing: execution.ReportTiming{
				CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
				Elapsed:   30 * time.Minute,
			},
		},
	}
	alerts := []risk.RiskAlert{
		{
			AlertID:      "alert-1",
			Type:         risk.AlertTypeVaRBreach,
			Severity:     risk.AlertSeverityHigh,
			Message:      "portfolio VaR95 12000.00 exceeds limit 10000.00",
			CurrentValue: 12000,
			Limit:        10000,
			Timestamp:    time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
		},
	}

	require.NoError(t, NewExcelReporter().WriteExecutionWorkbook(reports, alerts, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	orderID, err := fx.GetCellValue("Orders", "A2")
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)

	symbol, err := fx.GetCellValue("Orders", "B2")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", symbol)

	severity, err := fx.GetCellValue("Risk Alerts", "C2")
	require.NoError(t, err)
	assert.Equal(t, "high", severity)
}

func TestWriteExecutionWorkbook_EmptyInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, NewExcelReporter().WriteExecutionWorkbook(nil, nil, path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	header, err := fx.GetCellValue("Orders", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Order ID", header)
}
