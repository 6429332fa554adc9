package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

// ExcelReporter writes execution history workbooks
type ExcelReporter struct{}

// NewExcelReporter creates an Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteExecutionWorkbook writes one sheet of order reports and one of
// risk alerts to the given path
func (r *ExcelReporter) WriteExecutionWorkbook(reports []*execution.ExecutionReport, alerts []risk.RiskAlert, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const ordersSheet = "Orders"
	const alertsSheet = "Risk Alerts"

	fx.SetSheetName(fx.GetSheetName(0), ordersSheet)
	if _, err := fx.NewSheet(alertsSheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := r.writeOrdersSheet(fx, ordersSheet, reports, headerStyle); err != nil {
		return err
	}
	if err := r.writeAlertsSheet(fx, alertsSheet, alerts, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeOrdersSheet(fx *excelize.File, sheet string, reports []*execution.ExecutionReport, headerStyle int) error {
	headers := []interface{}{
		"Order ID", "Symbol", "Side", "Algorithm", "Status",
		"Quantity", "Filled", "Progress %", "Avg Price",
		"Slippage bps", "Elapsed", "Created",
	}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", fmt.Sprintf("%c1", 'A'+len(headers)-1), headerStyle); err != nil {
		return err
	}

	for i, report := range reports {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			report.OrderID,
			report.Symbol,
			report.Side,
			string(report.Algorithm),
			string(report.Summary.Status),
			report.Summary.Quantity,
			report.Summary.FilledQty,
			report.Summary.Progress * 100,
			report.Summary.AveragePrice,
			report.Performance.SlippageBps,
			report.Timing.Elapsed.Round(time.Second).String(),
			report.Timing.CreatedAt.Format(time.RFC3339),
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "A", 38)
}

func (r *ExcelReporter) writeAlertsSheet(fx *excelize.File, sheet string, alerts []risk.RiskAlert, headerStyle int) error {
	headers := []interface{}{
		"Alert ID", "Type", "Severity", "Symbol", "Message",
		"Current", "Limit", "Resolved", "Raised",
	}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", fmt.Sprintf("%c1", 'A'+len(headers)-1), headerStyle); err != nil {
		return err
	}

	for i, alert := range alerts {
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			alert.AlertID,
			string(alert.Type),
			string(alert.Severity),
			alert.Symbol,
			alert.Message,
			alert.CurrentValue,
			alert.Limit,
			alert.Resolved,
			alert.Timestamp.Format(time.RFC3339),
		}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "E", "E", 60)
}
