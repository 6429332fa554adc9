// Package reporting renders execution and risk summaries for operators:
// console tables for interactive runs and Excel workbooks for record keeping.
package reporting

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

// ConsoleReporter renders tables to stdout
type ConsoleReporter struct{}

// NewConsoleReporter creates a console reporter
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintStartupInfo prints the process configuration at launch
func (r *ConsoleReporter) PrintStartupInfo(exchangeName, environment string, limits risk.RiskLimits, port int) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EXECUTION BOT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🏪 Exchange", exchangeName},
		{"🔧 Environment", environment},
		{"🌐 HTTP Port", fmt.Sprintf("%d", port)},
		{"💰 Max Order Value", fmt.Sprintf("$%.0f", limits.MaxOrderValue)},
		{"💰 Max Position Size", fmt.Sprintf("$%.0f", limits.MaxPositionSize)},
		{"📉 VaR Limit", fmt.Sprintf("$%.0f", limits.VaRLimit)},
		{"📉 Max Drawdown", fmt.Sprintf("%.1f%%", limits.MaxDrawdown*100)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, WidthMax: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintExecutionReport prints one order's execution report
func (r *ConsoleReporter) PrintExecutionReport(report *execution.ExecutionReport) {
	if report == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("ORDER %s", report.OrderID))
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", report.Symbol},
		{"📊 Side", report.Side},
		{"📊 Algorithm", string(report.Algorithm)},
		{"📈 Status", string(report.Summary.Status)},
		{"📈 Progress", fmt.Sprintf("%.1f%%", report.Summary.Progress*100)},
		{"💰 Filled", fmt.Sprintf("%.6f / %.6f", report.Summary.FilledQty, report.Summary.Quantity)},
		{"💰 Avg Price", fmt.Sprintf("%.2f", report.Summary.AveragePrice)},
		{"📉 Slippage", fmt.Sprintf("%.1f bps", report.Performance.SlippageBps)},
		{"⏰ Elapsed", report.Timing.Elapsed.Round(time.Second).String()},
	})

	for status, count := range report.Summary.SliceCounts {
		t.AppendRow(table.Row{"🔄 Slices " + string(status), fmt.Sprintf("%d", count)})
	}

	t.Render()
	fmt.Println()
}

// PrintStatistics prints engine-level execution statistics
func (r *ConsoleReporter) PrintStatistics(stats execution.ExecutionStatistics) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EXECUTION STATISTICS")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔄 Total Orders", fmt.Sprintf("%d", stats.TotalOrders)},
		{"✅ Completed", fmt.Sprintf("%d", stats.CompletedOrders)},
		{"🛑 Cancelled", fmt.Sprintf("%d", stats.CancelledOrders)},
		{"❌ Failed", fmt.Sprintf("%d", stats.FailedOrders)},
		{"🔄 Slices Filled", fmt.Sprintf("%d / %d", stats.FilledSlices, stats.TotalSlices)},
		{"💰 Volume", fmt.Sprintf("%.6f", stats.TotalFilledQty)},
		{"💰 Notional", fmt.Sprintf("$%.2f", stats.TotalNotional)},
	})

	t.Render()
	fmt.Println()
}

// PrintPortfolioRisk prints the latest portfolio risk picture
func (r *ConsoleReporter) PrintPortfolioRisk(portfolioRisk *risk.PortfolioRisk) {
	if portfolioRisk == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO RISK")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Total Value", fmt.Sprintf("$%.2f", portfolioRisk.TotalValue)},
		{"📉 VaR 95%", fmt.Sprintf("$%.2f", portfolioRisk.PortfolioVaR95)},
		{"📉 VaR 99%", fmt.Sprintf("$%.2f", portfolioRisk.PortfolioVaR99)},
		{"📉 Expected Shortfall", fmt.Sprintf("$%.2f", portfolioRisk.ExpectedShortfall95)},
		{"📉 Max Drawdown", fmt.Sprintf("%.2f%%", portfolioRisk.MaxDrawdown*100)},
		{"📊 Sharpe", fmt.Sprintf("%.2f", portfolioRisk.SharpeRatio)},
		{"📊 Sortino", fmt.Sprintf("%.2f", portfolioRisk.SortinoRatio)},
	})
	t.Render()

	if len(portfolioRisk.Positions) > 0 {
		pt := table.NewWriter()
		pt.SetOutputMirror(os.Stdout)
		pt.SetTitle("POSITIONS")
		pt.SetStyle(table.StyleRounded)
		pt.AppendHeader(table.Row{"Symbol", "Size", "Value", "VaR95", "Concentration"})
		for _, pos := range portfolioRisk.Positions {
			pt.AppendRow(table.Row{
				pos.Symbol,
				fmt.Sprintf("%.6f", pos.Size),
				fmt.Sprintf("$%.2f", pos.PositionValue),
				fmt.Sprintf("$%.2f", pos.VaR95),
				fmt.Sprintf("%.1f%%", pos.Concentration*100),
			})
		}
		pt.Render()
	}
	fmt.Println()
}
