package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
	"github.com/Khrafts/hyper-mcp-sub002/internal/logger"
	"github.com/Khrafts/hyper-mcp-sub002/internal/monitoring"
	"github.com/Khrafts/hyper-mcp-sub002/internal/notifications"
)

const (
	// defaultCheckInterval is the cadence of the background monitoring loop
	defaultCheckInterval = 30 * time.Second

	// portfolioCorrelationFactor combines per-position VaRs into a portfolio
	// figure. A full covariance treatment is out of scope for a pre-trade
	// gate; a fixed diversification haircut bounds tail risk well enough.
	portfolioCorrelationFactor = 0.7
)

// Engine maintains rolling per-symbol price history, computes position and
// portfolio risk, gates orders pre-trade and raises alerts from a background
// monitoring loop. Each instance owns its own state; multiple independent
// engines can coexist.
type Engine struct {
	adapter  MarketSource
	logger   *logger.Logger
	notifier notifications.Notifier
	health   *monitoring.HealthChecker
	address  string

	checkInterval time.Duration

	mu        sync.RWMutex
	limits    RiskLimits
	histories map[string]*priceHistory
	alerts    map[string]*RiskAlert
	alertIDs  []string // insertion order for stable listing

	checksTotal    int
	checksApproved int
	checksRejected int
	lastCheckTime  time.Time

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithCheckInterval overrides the monitoring loop cadence
func WithCheckInterval(interval time.Duration) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.checkInterval = interval
		}
	}
}

// WithNotifier attaches a notifier for critical alerts
func WithNotifier(notifier notifications.Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithHealthChecker surfaces monitoring-cycle activity on the health
// endpoint
func WithHealthChecker(health *monitoring.HealthChecker) Option {
	return func(e *Engine) {
		e.health = health
	}
}

// WithAccountAddress scopes account snapshots to a specific address
func WithAccountAddress(address string) Option {
	return func(e *Engine) {
		e.address = address
	}
}

// NewEngine creates a risk engine with the given limits
func NewEngine(adapter MarketSource, log *logger.Logger, limits RiskLimits, opts ...Option) (*Engine, error) {
	if adapter == nil {
		return nil, fmt.Errorf("market adapter is required")
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk limits: %w", err)
	}

	e := &Engine{
		adapter:       adapter,
		logger:        log,
		limits:        limits,
		checkInterval: defaultCheckInterval,
		histories:     make(map[string]*priceHistory),
		alerts:        make(map[string]*RiskAlert),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Start launches the background monitoring loop. Safe to call repeatedly.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()

	e.wg.Add(1)
	go e.monitorLoop(stopCh)

	e.logger.Risk("Risk engine started (interval: %s)", e.checkInterval)
}

// Stop halts the monitoring loop and waits for it to exit. Safe to call
// repeatedly; no callback runs after Stop returns.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Risk("Risk engine stopped")
}

// monitorLoop drives periodic risk checks until stopped
func (e *Engine) monitorLoop(stopCh chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// A bounded context keeps a hung adapter call from blocking
			// Stop past one cycle
			ctx, cancel := context.WithTimeout(context.Background(), e.checkInterval)
			e.PerformRiskCheck(ctx)
			cancel()
		}
	}
}

// CheckOrderRisk is the synchronous pre-trade gate. It computes the
// hypothetical post-trade position and rejects on hard limit breaches.
// Internal failures fail closed: the order is never silently approved.
func (e *Engine) CheckOrderRisk(ctx context.Context, symbol, side string, quantity, price float64) *OrderRiskResult {
	result := e.checkOrderRisk(ctx, symbol, side, quantity, price)

	e.mu.Lock()
	e.checksTotal++
	if result.Approved {
		e.checksApproved++
	} else {
		e.checksRejected++
	}
	e.mu.Unlock()

	return result
}

func (e *Engine) checkOrderRisk(ctx context.Context, symbol, side string, quantity, price float64) *OrderRiskResult {
	result := &OrderRiskResult{Approved: true}

	if quantity <= 0 {
		return rejectWithSystemError(result, fmt.Sprintf("invalid quantity %v", quantity))
	}

	// Resolve a reference price when the caller did not supply one
	if price <= 0 {
		mids, err := e.adapter.GetAllMids(ctx)
		if err != nil {
			return rejectWithSystemError(result, fmt.Sprintf("failed to fetch mid prices: %v", err))
		}
		mid, ok := mids[symbol]
		if !ok || mid <= 0 {
			return rejectWithSystemError(result, fmt.Sprintf("no price available for %s", symbol))
		}
		price = mid
	}
	result.RiskMetrics.ReferencePrice = price

	account, err := e.adapter.GetAccountState(ctx, e.address)
	if err != nil {
		return rejectWithSystemError(result, fmt.Sprintf("failed to fetch account state: %v", err))
	}

	limits := e.GetRiskLimits()

	orderValue := quantity * price
	result.RiskMetrics.OrderValue = orderValue
	if orderValue > limits.MaxOrderValue {
		result.Approved = false
		result.RejectionReasons = append(result.RejectionReasons,
			fmt.Sprintf("order value %.2f exceeds maximum order value %.2f", orderValue, limits.MaxOrderValue))
	}

	// Hypothetical post-trade position for the traded symbol
	currentSize := 0.0
	for _, pos := range account.Positions {
		if pos.Symbol == symbol {
			currentSize = pos.Size
			break
		}
	}
	delta := quantity
	if side == "sell" {
		delta = -quantity
	}
	positionValueAfter := math.Abs(currentSize+delta) * price
	result.RiskMetrics.PositionValueAfter = positionValueAfter

	if positionValueAfter > limits.MaxPositionSize {
		result.Approved = false
		result.RejectionReasons = append(result.RejectionReasons,
			fmt.Sprintf("resulting position value %.2f exceeds maximum position size %.2f", positionValueAfter, limits.MaxPositionSize))
	}

	// Simulated post-trade portfolio VaR with the traded symbol's exposure replaced
	postVaR := e.simulatePostTradeVaR(account.Positions, symbol, positionValueAfter)
	result.RiskMetrics.PortfolioVaR95 = postVaR
	if postVaR > limits.VaRLimit {
		result.Approved = false
		result.RejectionReasons = append(result.RejectionReasons,
			fmt.Sprintf("simulated portfolio VaR95 %.2f exceeds limit %.2f", postVaR, limits.VaRLimit))
	}

	// Concentration is advisory only
	portfolioValue := account.TotalValue
	if portfolioValue > 0 {
		concentration := positionValueAfter / portfolioValue
		result.RiskMetrics.Concentration = concentration
		if concentration > limits.MaxConcentration {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("resulting concentration %.1f%% exceeds limit %.1f%%", concentration*100, limits.MaxConcentration*100))
		}
	}

	return result
}

func rejectWithSystemError(result *OrderRiskResult, reason string) *OrderRiskResult {
	result.Approved = false
	result.RejectionReasons = append(result.RejectionReasons, "system error: "+reason)
	return result
}

// simulatePostTradeVaR recomputes the correlation-adjusted portfolio VaR with
// the traded symbol's position value replaced by its post-trade value
func (e *Engine) simulatePostTradeVaR(positions []exchange.Position, symbol string, positionValueAfter float64) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sum := 0.0
	seen := false
	for _, pos := range positions {
		value := pos.PositionValue
		if pos.Symbol == symbol {
			value = positionValueAfter
			seen = true
		}
		sum += value * e.symbolVaRLocked(pos.Symbol, 0.95)
	}
	if !seen {
		sum += positionValueAfter * e.symbolVaRLocked(symbol, 0.95)
	}

	return sum * portfolioCorrelationFactor
}

// symbolVaRLocked returns the historical VaR of a symbol's return series.
// Caller must hold at least a read lock. Empty history yields 0.
func (e *Engine) symbolVaRLocked(symbol string, confidence float64) float64 {
	history, ok := e.histories[symbol]
	if !ok {
		return 0
	}
	return HistoricalVaR(history.Returns(), confidence)
}

// CalculatePortfolioRisk computes the full portfolio risk picture from the
// current account snapshot and accumulated price history
func (e *Engine) CalculatePortfolioRisk(ctx context.Context, address string) (*PortfolioRisk, error) {
	return e.CalculatePortfolioRiskWithOptions(ctx, address, 0.95, 1)
}

// CalculatePortfolioRiskWithOptions allows a custom VaR confidence level and
// time horizon. Horizon scaling follows the square-root-of-time rule.
func (e *Engine) CalculatePortfolioRiskWithOptions(ctx context.Context, address string, confidence float64, horizonDays int) (*PortfolioRisk, error) {
	if address == "" {
		address = e.address
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	if horizonDays < 1 {
		horizonDays = 1
	}
	horizonScale := math.Sqrt(float64(horizonDays))

	account, err := e.adapter.GetAccountState(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account state: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	risk := &PortfolioRisk{
		TotalValue:   account.TotalValue,
		Positions:    make([]PositionRisk, 0, len(account.Positions)),
		Correlations: make(map[string]map[string]float64),
		Timestamp:    time.Now(),
	}

	var var95Sum, var99Sum, esSum float64
	symbols := make([]string, 0, len(account.Positions))

	for _, pos := range account.Positions {
		symbols = append(symbols, pos.Symbol)

		var returns []float64
		if history, ok := e.histories[pos.Symbol]; ok {
			returns = history.Returns()
		}

		posVaR95 := pos.PositionValue * HistoricalVaR(returns, confidence) * horizonScale
		posVaR99 := pos.PositionValue * HistoricalVaR(returns, 0.99) * horizonScale
		posES := pos.PositionValue * ExpectedShortfall(returns, confidence) * horizonScale

		concentration := 0.0
		if account.TotalValue > 0 {
			concentration = pos.PositionValue / account.TotalValue
		}

		risk.Positions = append(risk.Positions, PositionRisk{
			Symbol:        pos.Symbol,
			Size:          pos.Size,
			PositionValue: pos.PositionValue,
			EntryPrice:    pos.EntryPrice,
			MarkPrice:     pos.MarkPrice,
			UnrealizedPnL: pos.UnrealizedPnL,
			VaR95:         posVaR95,
			VaR99:         posVaR99,
			Concentration: concentration,
		})

		var95Sum += posVaR95
		var99Sum += posVaR99
		esSum += posES
	}

	risk.PortfolioVaR95 = var95Sum * portfolioCorrelationFactor
	risk.PortfolioVaR99 = var99Sum * portfolioCorrelationFactor
	risk.ExpectedShortfall95 = esSum * portfolioCorrelationFactor

	// Pairwise correlations over the tracked return series
	for _, a := range symbols {
		row := make(map[string]float64, len(symbols))
		var returnsA []float64
		if history, ok := e.histories[a]; ok {
			returnsA = history.Returns()
		}
		for _, b := range symbols {
			if a == b {
				if len(returnsA) >= 2 {
					row[b] = 1
				} else {
					row[b] = 0
				}
				continue
			}
			var returnsB []float64
			if history, ok := e.histories[b]; ok {
				returnsB = history.Returns()
			}
			row[b] = PearsonCorrelation(returnsA, returnsB)
		}
		risk.Correlations[a] = row
	}

	// Portfolio-level path metrics from the aggregate return series
	aggregate := e.aggregateReturnsLocked(symbols)
	risk.MaxDrawdown = MaxDrawdown(aggregate)
	risk.SharpeRatio = SharpeRatio(aggregate)
	risk.SortinoRatio = SortinoRatio(aggregate)

	risk.StressTests = runStressTests(account.Positions, account.TotalValue)

	return risk, nil
}

// aggregateReturnsLocked averages the tracked return series across symbols,
// aligned from the most recent observation backwards
func (e *Engine) aggregateReturnsLocked(symbols []string) []float64 {
	series := make([][]float64, 0, len(symbols))
	minLen := -1
	for _, symbol := range symbols {
		history, ok := e.histories[symbol]
		if !ok {
			continue
		}
		returns := history.Returns()
		if len(returns) == 0 {
			continue
		}
		series = append(series, returns)
		if minLen < 0 || len(returns) < minLen {
			minLen = len(returns)
		}
	}
	if len(series) == 0 || minLen <= 0 {
		return nil
	}

	aggregate := make([]float64, minLen)
	for _, returns := range series {
		offset := len(returns) - minLen
		for i := 0; i < minLen; i++ {
			aggregate[i] += returns[offset+i]
		}
	}
	for i := range aggregate {
		aggregate[i] /= float64(len(series))
	}
	return aggregate
}

// PerformRiskCheck refreshes price history and evaluates alert rules. Errors
// are logged and the cycle is skipped; the loop never crashes.
func (e *Engine) PerformRiskCheck(ctx context.Context) {
	if e.health != nil {
		e.health.RecordRiskCheck()
	}

	if err := e.refreshPriceHistory(ctx); err != nil {
		e.logger.LogError("Risk monitoring cycle: price refresh failed", err)
		return
	}

	portfolioRisk, err := e.CalculatePortfolioRisk(ctx, e.address)
	if err != nil {
		e.logger.LogError("Risk monitoring cycle: portfolio risk failed", err)
		return
	}

	monitoring.UpdatePortfolioVaR(portfolioRisk.PortfolioVaR95)
	e.evaluateAlertRules(portfolioRisk)

	e.mu.Lock()
	e.lastCheckTime = time.Now()
	e.mu.Unlock()
}

// refreshPriceHistory appends the latest mids to the per-symbol ring buffers.
// The monitor loop is the only writer.
func (e *Engine) refreshPriceHistory(ctx context.Context) error {
	mids, err := e.adapter.GetAllMids(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch mids: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for symbol, price := range mids {
		history, ok := e.histories[symbol]
		if !ok {
			history = newPriceHistory(historyCapacity)
			e.histories[symbol] = history
		}
		history.Append(price)
		monitoring.UpdatePrice(symbol, price)
	}
	return nil
}

// evaluateAlertRules raises alerts for every breached threshold. Duplicate
// alerts across cycles are accepted as separate instances.
func (e *Engine) evaluateAlertRules(portfolioRisk *PortfolioRisk) {
	limits := e.GetRiskLimits()

	if portfolioRisk.PortfolioVaR95 > limits.VaRLimit {
		e.raiseAlert(AlertTypeVaRBreach, AlertSeverityHigh, "",
			fmt.Sprintf("portfolio VaR95 %.2f exceeds limit %.2f", portfolioRisk.PortfolioVaR95, limits.VaRLimit),
			portfolioRisk.PortfolioVaR95, limits.VaRLimit)
	}

	if portfolioRisk.MaxDrawdown > limits.MaxDrawdown {
		e.raiseAlert(AlertTypeDrawdown, AlertSeverityCritical, "",
			fmt.Sprintf("max drawdown %.1f%% exceeds limit %.1f%%", portfolioRisk.MaxDrawdown*100, limits.MaxDrawdown*100),
			portfolioRisk.MaxDrawdown, limits.MaxDrawdown)
	}

	for _, pos := range portfolioRisk.Positions {
		if pos.Concentration > limits.MaxConcentration {
			e.raiseAlert(AlertTypeConcentration, AlertSeverityMedium, pos.Symbol,
				fmt.Sprintf("%s concentration %.1f%% exceeds limit %.1f%%", pos.Symbol, pos.Concentration*100, limits.MaxConcentration*100),
				pos.Concentration, limits.MaxConcentration)
		}
	}
}

// raiseAlert records a new alert instance and pushes critical ones out
func (e *Engine) raiseAlert(alertType AlertType, severity AlertSeverity, symbol, message string, currentValue, limit float64) {
	alert := &RiskAlert{
		AlertID:      uuid.NewString(),
		Type:         alertType,
		Severity:     severity,
		Message:      message,
		Symbol:       symbol,
		CurrentValue: currentValue,
		Limit:        limit,
		Timestamp:    time.Now(),
	}

	e.mu.Lock()
	e.alerts[alert.AlertID] = alert
	e.alertIDs = append(e.alertIDs, alert.AlertID)
	e.mu.Unlock()

	e.logger.LogRiskAlert(string(alertType), string(severity), message)
	monitoring.RecordRiskAlert(string(alertType), string(severity))

	if e.notifier != nil && severity == AlertSeverityCritical {
		if err := e.notifier.SendAlert("error", message); err != nil {
			e.logger.LogError("Failed to send alert notification", err)
		}
	}
}

// GetRiskLimits returns a copy of the current limits
func (e *Engine) GetRiskLimits() RiskLimits {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.limits
}

// UpdateRiskLimits applies a partial limits update after validation
func (e *Engine) UpdateRiskLimits(update RiskLimitsUpdate) (RiskLimits, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	updated := update.apply(e.limits)
	if err := updated.Validate(); err != nil {
		return e.limits, err
	}

	e.limits = updated
	return updated, nil
}

// GetActiveAlerts returns every unresolved alert, oldest first
func (e *Engine) GetActiveAlerts() []RiskAlert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := make([]RiskAlert, 0)
	for _, id := range e.alertIDs {
		if alert := e.alerts[id]; alert != nil && !alert.Resolved {
			active = append(active, *alert)
		}
	}
	return active
}

// ResolveAlert marks an alert resolved. Returns false for unknown or
// already-resolved alerts.
func (e *Engine) ResolveAlert(alertID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	alert, ok := e.alerts[alertID]
	if !ok || alert.Resolved {
		return false
	}
	alert.Resolved = true
	return true
}

// PurgeResolvedAlerts removes resolved alerts and returns how many were purged
func (e *Engine) PurgeResolvedAlerts() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	purged := 0
	remaining := e.alertIDs[:0]
	for _, id := range e.alertIDs {
		if alert := e.alerts[id]; alert != nil && alert.Resolved {
			delete(e.alerts, id)
			purged++
			continue
		}
		remaining = append(remaining, id)
	}
	e.alertIDs = remaining
	return purged
}

// GetRiskStatistics summarizes engine activity
func (e *Engine) GetRiskStatistics() RiskStatistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := 0
	for _, alert := range e.alerts {
		if !alert.Resolved {
			active++
		}
	}

	return RiskStatistics{
		ChecksTotal:    e.checksTotal,
		ChecksApproved: e.checksApproved,
		ChecksRejected: e.checksRejected,
		AlertsTotal:    len(e.alerts),
		AlertsActive:   active,
		TrackedSymbols: len(e.histories),
		LastCheckTime:  e.lastCheckTime,
		Running:        e.running,
	}
}

// SeedPriceHistory loads an initial price series for a symbol. Intended for
// warm starts and tests; the monitor loop takes over afterwards.
func (e *Engine) SeedPriceHistory(symbol string, prices []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := newPriceHistory(historyCapacity)
	for _, price := range prices {
		history.Append(price)
	}
	e.histories[symbol] = history
}
