package risk

import (
	"context"
	"time"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
)

// OrderRiskResult is the structured outcome of a pre-trade check. A hard
// rejection sets Approved=false with RejectionReasons; warnings never block.
type OrderRiskResult struct {
	Approved         bool         `json:"approved"`
	Warnings         []string     `json:"warnings,omitempty"`
	RejectionReasons []string     `json:"rejection_reasons,omitempty"`
	RiskMetrics      OrderMetrics `json:"risk_metrics"`
}

// OrderMetrics carries the quantities evaluated by the pre-trade gate
type OrderMetrics struct {
	OrderValue         float64 `json:"order_value"`
	PositionValueAfter float64 `json:"position_value_after"`
	PortfolioVaR95     float64 `json:"portfolio_var_95"`
	Concentration      float64 `json:"concentration"`
	ReferencePrice     float64 `json:"reference_price"`
}

// PositionRisk describes the risk attributed to a single open position
type PositionRisk struct {
	Symbol        string  `json:"symbol"`
	Size          float64 `json:"size"`
	PositionValue float64 `json:"position_value"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	VaR95         float64 `json:"var_95"`
	VaR99         float64 `json:"var_99"`
	Concentration float64 `json:"concentration"`
}

// PortfolioRisk is the full portfolio-level risk picture
type PortfolioRisk struct {
	TotalValue          float64                       `json:"total_value"`
	PortfolioVaR95      float64                       `json:"portfolio_var_95"`
	PortfolioVaR99      float64                       `json:"portfolio_var_99"`
	ExpectedShortfall95 float64                       `json:"expected_shortfall_95"`
	MaxDrawdown         float64                       `json:"max_drawdown"`
	SharpeRatio         float64                       `json:"sharpe_ratio"`
	SortinoRatio        float64                       `json:"sortino_ratio"`
	Positions           []PositionRisk                `json:"positions"`
	Correlations        map[string]map[string]float64 `json:"correlations"`
	StressTests         []StressImpact                `json:"stress_tests"`
	Timestamp           time.Time                     `json:"timestamp"`
}

// RiskStatistics summarizes engine activity since construction
type RiskStatistics struct {
	ChecksTotal    int       `json:"checks_total"`
	ChecksApproved int       `json:"checks_approved"`
	ChecksRejected int       `json:"checks_rejected"`
	AlertsTotal    int       `json:"alerts_total"`
	AlertsActive   int       `json:"alerts_active"`
	TrackedSymbols int       `json:"tracked_symbols"`
	LastCheckTime  time.Time `json:"last_check_time"`
	Running        bool      `json:"running"`
}

// MarketSource is the slice of the market adapter the risk engine consumes
type MarketSource interface {
	GetAllMids(ctx context.Context) (map[string]float64, error)
	GetAccountState(ctx context.Context, address string) (*exchange.AccountState, error)
}
