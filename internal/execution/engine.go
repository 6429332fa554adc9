package execution

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Khrafts/hyper-mcp-sub002/internal/errors"
	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
	"github.com/Khrafts/hyper-mcp-sub002/internal/logger"
	"github.com/Khrafts/hyper-mcp-sub002/internal/monitoring"
)

const dispatchTimeout = 30 * time.Second

// RetryConfig bounds the exponential backoff applied to transient
// adapter failures during slice dispatch
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig matches the venue adapter's rate-limit behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// orderRuntime holds the scheduling state of one active order. The
// queue carries slice indices in dispatch order; its capacity covers
// the whole plan so scheduler callbacks never block
type orderRuntime struct {
	order     *ExecutionOrder
	queue     chan int
	cancelCh  chan struct{}
	cancelled bool
	paused    bool
	resumeCh  chan struct{}
}

// Engine owns the order registry and drives per-order dispatch. Each
// instance carries its own state so independent engines can coexist
type Engine struct {
	adapter exchange.MarketAdapter
	gate    RiskGate
	clock   Clock
	logger  *logger.Logger
	health  *monitoring.HealthChecker
	retry   RetryConfig

	mu        sync.RWMutex
	orders    map[string]*ExecutionOrder
	runtimes  map[string]*orderRuntime
	running   bool
	scheduler *Scheduler
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// Option customizes engine construction
type Option func(*Engine)

// WithClock injects a clock, used by tests to control slice timing
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRetryConfig overrides the dispatch retry policy
func WithRetryConfig(cfg RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

// WithHealthChecker wires dispatch activity into the health endpoint
func WithHealthChecker(health *monitoring.HealthChecker) Option {
	return func(e *Engine) { e.health = health }
}

// NewEngine creates an execution engine over the given adapter and
// pre-trade risk gate
func NewEngine(adapter exchange.MarketAdapter, gate RiskGate, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		adapter:  adapter,
		gate:     gate,
		clock:    NewRealClock(),
		logger:   log,
		retry:    DefaultRetryConfig(),
		orders:   make(map[string]*ExecutionOrder),
		runtimes: make(map[string]*orderRuntime),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start brings up the scheduler loop. Repeated calls are no-ops
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.scheduler = NewScheduler(e.clock)
	e.logger.Info("Execution engine started")
}

// Stop shuts the engine down. Every pending slice timer is cancelled
// before Stop returns so no dispatch fires post-shutdown. Idempotent
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	scheduler := e.scheduler
	stopCh := e.stopCh
	e.mu.Unlock()

	scheduler.Stop()
	close(stopCh)
	e.wg.Wait()
	e.logger.Info("Execution engine stopped")
}

// SubmitOrder validates the request, builds the slice plan and starts
// dispatch. Returns the new order's ID
func (e *Engine) SubmitOrder(ctx context.Context, req *OrderRequest) (string, error) {
	if req.TimeInForce == "" {
		req.TimeInForce = exchange.TimeInForceGTC
	}
	if err := ValidateRequest(req); err != nil {
		return "", err
	}

	e.mu.RLock()
	running := e.running
	e.mu.RUnlock()
	if !running {
		return "", errors.New(errors.ErrorCategoryConfiguration, "execution", "submit_order", "engine is not running")
	}

	slices, err := BuildSlicePlan(req, e.clock.Now())
	if err != nil {
		return "", err
	}

	order := &ExecutionOrder{
		OrderID:   uuid.New().String(),
		Request:   *req,
		Status:    OrderStatusPending,
		Slices:    slices,
		CreatedAt: e.clock.Now(),
	}

	// Arrival price is best-effort; execution proceeds without it
	if mids, midErr := e.adapter.GetAllMids(ctx); midErr == nil {
		order.ArrivalPrice = mids[req.Symbol]
	} else if req.OrderType == exchange.OrderTypeLimit {
		order.ArrivalPrice = req.LimitPrice
	}

	rt := &orderRuntime{
		order:    order,
		queue:    make(chan int, len(slices)),
		cancelCh: make(chan struct{}),
	}

	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return "", errors.New(errors.ErrorCategoryConfiguration, "execution", "submit_order", "engine is not running")
	}
	order.Status = OrderStatusScheduling
	e.orders[order.OrderID] = order
	e.runtimes[order.OrderID] = rt
	e.wg.Add(1)
	go e.runOrder(rt)

	for _, s := range slices {
		idx := s.Index
		if req.Algorithm == AlgorithmIceberg && idx > 0 {
			// Iceberg slices chain off the previous slice's terminal state
			break
		}
		e.scheduler.Schedule(s.ScheduledAt, func() {
			select {
			case rt.queue <- idx:
			default:
			}
		})
	}

	order.Status = OrderStatusRunning
	order.StartedAt = e.clock.Now()
	e.mu.Unlock()

	e.logger.Order("Submitted %s %s %s qty=%.6f algorithm=%s slices=%d",
		req.Side, req.OrderType, req.Symbol, req.Quantity, req.Algorithm, len(slices))
	monitoring.RecordOrderSubmitted(req.Symbol, string(req.Algorithm))

	return order.OrderID, nil
}

// runOrder is the per-order worker. Slices within one order dispatch
// strictly in plan order; orders never block each other
func (e *Engine) runOrder(rt *orderRuntime) {
	defer e.wg.Done()

	for {
		select {
		case idx := <-rt.queue:
			if !e.waitIfPaused(rt) {
				return
			}
			e.dispatchSlice(rt, idx)
			if e.finalizeOrder(rt) {
				return
			}
			e.chainNextIcebergSlice(rt, idx)
		case <-rt.cancelCh:
			return
		case <-e.stopCh:
			return
		}
	}
}

// waitIfPaused blocks while the order is paused. Returns false if the
// order was cancelled or the engine stopped while waiting
func (e *Engine) waitIfPaused(rt *orderRuntime) bool {
	for {
		e.mu.RLock()
		paused := rt.paused
		resumeCh := rt.resumeCh
		cancelled := rt.cancelled
		e.mu.RUnlock()

		if cancelled {
			return false
		}
		if !paused {
			return true
		}

		select {
		case <-resumeCh:
		case <-rt.cancelCh:
			return false
		case <-e.stopCh:
			return false
		}
	}
}

// dispatchSlice runs the full dispatch protocol for one slice: risk
// gate, venue placement with bounded backoff, state update
func (e *Engine) dispatchSlice(rt *orderRuntime, idx int) {
	e.mu.Lock()
	order := rt.order
	if idx >= len(order.Slices) {
		e.mu.Unlock()
		return
	}
	slice := order.Slices[idx]
	if rt.cancelled || slice.Status.IsTerminal() || order.Status.IsTerminal() {
		e.mu.Unlock()
		return
	}
	req := order.Request
	refPrice := req.LimitPrice
	if refPrice <= 0 {
		refPrice = order.ArrivalPrice
	}
	size := slice.Size
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	// Pre-trade gate. Hard rejections abort the order; warnings are
	// logged and dispatch proceeds
	result := e.gate.CheckOrderRisk(ctx, req.Symbol, string(req.Side), size, refPrice)
	if e.cancelledDuring(rt, slice) {
		return
	}
	if !result.Approved {
		monitoring.RecordRiskRejection(req.Symbol)
		e.abortOnRiskRejection(rt, slice, result.RejectionReasons)
		return
	}
	for _, warning := range result.Warnings {
		e.logger.Risk("Order %s slice %d warning: %s", order.OrderID, idx, warning)
	}

	spec := exchange.OrderSpec{
		Symbol:      req.Symbol,
		Side:        req.Side,
		Quantity:    size,
		OrderType:   req.OrderType,
		LimitPrice:  req.LimitPrice,
		TimeInForce: req.TimeInForce,
		ClientID:    slice.SliceID,
	}

	e.mu.Lock()
	slice.Status = SliceStatusSubmitted
	slice.SubmittedAt = e.clock.Now()
	e.mu.Unlock()

	ack, err := e.placeWithRetry(ctx, rt, slice, spec)
	cancelledMidFlight := e.cancelledDuring(rt, slice)

	// A cancel that raced the placement never saw the venue order ID, so
	// the resting order must be cancelled here
	venueCancelID := ""

	e.mu.Lock()
	switch {
	case err != nil && cancelledMidFlight:
		slice.Status = SliceStatusCancelled
		e.mu.Unlock()
		return
	case err != nil:
		slice.Status = SliceStatusFailed
		slice.FailureNote = err.Error()
		e.mu.Unlock()
		e.logger.LogError(fmt.Sprintf("Order %s slice %d placement failed", order.OrderID, idx), err)
		monitoring.RecordSliceDispatch(req.Symbol, string(SliceStatusFailed))
		monitoring.RecordError(string(errors.Categorize(err, "execution", "dispatch_slice").Category))
		return
	case ack.FilledQuantity >= size-sizeEpsilon:
		slice.Status = SliceStatusFilled
		slice.FillSize = ack.FilledQuantity
		slice.FillPrice = ack.AvgFillPrice
		slice.FilledAt = e.clock.Now()
	case ack.FilledQuantity > 0:
		slice.Status = SliceStatusPartiallyFilled
		slice.FillSize = ack.FilledQuantity
		slice.FillPrice = ack.AvgFillPrice
		slice.FilledAt = e.clock.Now()
		if cancelledMidFlight {
			venueCancelID = ack.OrderID
		}
	case cancelledMidFlight:
		slice.Status = SliceStatusCancelled
		venueCancelID = ack.OrderID
	default:
		// Resting order with no immediate fill. Dispatch-order holds;
		// fill-order is not required for time-sliced algorithms
		slice.Status = SliceStatusSubmitted
	}
	slice.ExchangeID = ack.OrderID
	status := slice.Status
	fillSize := slice.FillSize
	fillPrice := slice.FillPrice
	e.mu.Unlock()

	if venueCancelID != "" {
		if cancelErr := e.adapter.CancelOrder(ctx, req.Symbol, venueCancelID); cancelErr != nil {
			e.logger.LogError(fmt.Sprintf("Failed to cancel in-flight slice %s", slice.SliceID), cancelErr)
		}
	}

	e.logger.LogSliceDispatch(order.OrderID, slice.SliceID, req.Symbol, fillSize, fillPrice, string(status))
	monitoring.RecordSliceDispatch(req.Symbol, string(status))
	if fillSize > 0 {
		monitoring.RecordSliceFill(req.Symbol, fillSize)
	}
	if e.health != nil {
		e.health.RecordDispatch()
	}
}

// placeWithRetry submits a slice spec with bounded exponential backoff
// on retryable failures. The waits run on the engine clock
func (e *Engine) placeWithRetry(ctx context.Context, rt *orderRuntime, slice *ExecutionSlice, spec exchange.OrderSpec) (*exchange.OrderAck, error) {
	delay := e.retry.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= e.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-e.clock.After(delay):
			case <-rt.cancelCh:
				return nil, lastErr
			case <-e.stopCh:
				return nil, lastErr
			}
			delay = time.Duration(float64(delay) * e.retry.BackoffFactor)
			if delay > e.retry.MaxDelay {
				delay = e.retry.MaxDelay
			}
			e.mu.Lock()
			slice.RetryCount = attempt
			e.mu.Unlock()
		}

		ack, err := e.adapter.PlaceOrder(ctx, spec)
		if err == nil {
			return ack, nil
		}
		lastErr = err
		if !errors.IsRetryable(err) {
			return nil, err
		}
		e.logger.Warning("Retryable placement failure for %s (attempt %d/%d): %v",
			spec.Symbol, attempt+1, e.retry.MaxRetries+1, err)
	}
	return nil, lastErr
}

// cancelledDuring reports whether the order was cancelled while an
// adapter call was in flight and marks the slice cancelled if it never
// reached the venue
func (e *Engine) cancelledDuring(rt *orderRuntime, slice *ExecutionSlice) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !rt.cancelled {
		return false
	}
	if !slice.Status.IsTerminal() && slice.FillSize == 0 {
		slice.Status = SliceStatusCancelled
	}
	return true
}

// abortOnRiskRejection marks the rejected slice failed, cancels every
// remaining slice and fails the order with the rejection reasons
func (e *Engine) abortOnRiskRejection(rt *orderRuntime, slice *ExecutionSlice, reasons []string) {
	e.mu.Lock()
	order := rt.order
	slice.Status = SliceStatusFailed
	slice.FailureNote = "risk rejection: " + strings.Join(reasons, "; ")
	for _, s := range order.Slices {
		if !s.Status.IsTerminal() {
			s.Status = SliceStatusCancelled
		}
	}
	if !order.Status.IsTerminal() {
		order.Status = OrderStatusFailed
		order.FailReasons = append(order.FailReasons, reasons...)
		order.CompletedAt = e.clock.Now()
	}
	e.mu.Unlock()

	e.logger.Risk("Order %s failed pre-trade risk check: %s", order.OrderID, strings.Join(reasons, "; "))
	monitoring.RecordOrderFinished(string(OrderStatusFailed))
}

// chainNextIcebergSlice schedules the next visible slice once the
// previous one reached a terminal state
func (e *Engine) chainNextIcebergSlice(rt *orderRuntime, idx int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order := rt.order
	if order.Request.Algorithm != AlgorithmIceberg || rt.cancelled || order.Status.IsTerminal() {
		return
	}
	if idx+1 >= len(order.Slices) {
		return
	}
	if !order.Slices[idx].Status.IsTerminal() {
		return
	}
	select {
	case rt.queue <- idx + 1:
	default:
	}
}

// finalizeOrder completes the order once every slice is terminal.
// Returns true when the order reached a terminal state
func (e *Engine) finalizeOrder(rt *orderRuntime) bool {
	e.mu.Lock()
	order := rt.order
	if order.Status.IsTerminal() {
		delete(e.runtimes, order.OrderID)
		e.mu.Unlock()
		return true
	}

	// The order is done once no slice remains pending. Resting
	// submitted slices count as dispatched; fill-order is not required
	for _, s := range order.Slices {
		if s.Status == SliceStatusPending {
			e.mu.Unlock()
			return false
		}
	}

	order.Status = OrderStatusCompleted
	order.CompletedAt = e.clock.Now()
	delete(e.runtimes, order.OrderID)

	filledQty := 0.0
	notional := 0.0
	for _, s := range order.Slices {
		filledQty += s.FillSize
		notional += s.FillSize * s.FillPrice
	}
	avgPrice := 0.0
	if filledQty > 0 {
		avgPrice = notional / filledQty
	}
	e.mu.Unlock()

	e.logger.LogOrderCompletion(order.OrderID, string(OrderStatusCompleted), filledQty, order.Request.Quantity, avgPrice)
	monitoring.RecordOrderFinished(string(OrderStatusCompleted))
	return true
}

// CancelOrder cancels all non-terminal slices and marks the order
// cancelled. Unknown or already-terminal orders yield success=false
func (e *Engine) CancelOrder(ctx context.Context, orderID string) CancelResult {
	e.mu.Lock()
	order, ok := e.orders[orderID]
	if !ok || order.Status.IsTerminal() {
		e.mu.Unlock()
		return CancelResult{OrderID: orderID, Success: false, Timestamp: e.clock.Now()}
	}

	rt := e.runtimes[orderID]
	var inFlight []*ExecutionSlice
	for _, s := range order.Slices {
		switch s.Status {
		case SliceStatusPending:
			s.Status = SliceStatusCancelled
		case SliceStatusSubmitted:
			if s.ExchangeID != "" {
				inFlight = append(inFlight, s)
			}
			s.Status = SliceStatusCancelled
		}
	}
	order.Status = OrderStatusCancelled
	order.CompletedAt = e.clock.Now()
	symbol := order.Request.Symbol
	if rt != nil && !rt.cancelled {
		rt.cancelled = true
		close(rt.cancelCh)
		delete(e.runtimes, orderID)
	}
	e.mu.Unlock()

	for _, s := range inFlight {
		if err := e.adapter.CancelOrder(ctx, symbol, s.ExchangeID); err != nil {
			e.logger.LogError(fmt.Sprintf("Failed to cancel resting slice %s", s.SliceID), err)
		}
	}

	e.logger.Order("Cancelled order %s", orderID)
	monitoring.RecordOrderFinished(string(OrderStatusCancelled))
	return CancelResult{OrderID: orderID, Success: true, Timestamp: e.clock.Now()}
}

// Pause suspends dispatch for a running order
func (e *Engine) Pause(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	rt := e.runtimes[orderID]
	if !ok || rt == nil || order.Status != OrderStatusRunning {
		return false
	}
	order.Status = OrderStatusPaused
	rt.paused = true
	rt.resumeCh = make(chan struct{})
	return true
}

// Resume restarts dispatch for a paused order
func (e *Engine) Resume(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	rt := e.runtimes[orderID]
	if !ok || rt == nil || order.Status != OrderStatusPaused {
		return false
	}
	order.Status = OrderStatusRunning
	rt.paused = false
	close(rt.resumeCh)
	return true
}

// GetOrderStatus returns the order's status, or false if unknown
func (e *Engine) GetOrderStatus(orderID string) (OrderStatus, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	order, ok := e.orders[orderID]
	if !ok {
		return "", false
	}
	return order.Status, true
}

// GetExecutionReport derives the current report for an order, or nil
// if unknown
func (e *Engine) GetExecutionReport(orderID string) *ExecutionReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil
	}
	return buildReport(order, e.clock.Now())
}

// GetExecutionReports derives reports for every known order, ordered
// by creation time
func (e *Engine) GetExecutionReports() []*ExecutionReport {
	e.mu.RLock()
	defer e.mu.RUnlock()

	reports := make([]*ExecutionReport, 0, len(e.orders))
	for _, order := range e.orders {
		reports = append(reports, buildReport(order, e.clock.Now()))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timing.CreatedAt.Before(reports[j].Timing.CreatedAt)
	})
	return reports
}

// GetActiveOrders lists every non-terminal order
func (e *Engine) GetActiveOrders() []*ExecutionOrder {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := make([]*ExecutionOrder, 0)
	for _, order := range e.orders {
		if !order.Status.IsTerminal() {
			active = append(active, order)
		}
	}
	return active
}

// GetExecutionStatistics summarizes engine activity across all orders
func (e *Engine) GetExecutionStatistics() ExecutionStatistics {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := ExecutionStatistics{}
	for _, order := range e.orders {
		stats.TotalOrders++
		switch order.Status {
		case OrderStatusCompleted:
			stats.CompletedOrders++
		case OrderStatusCancelled:
			stats.CancelledOrders++
		case OrderStatusFailed:
			stats.FailedOrders++
		default:
			stats.ActiveOrders++
		}
		for _, s := range order.Slices {
			stats.TotalSlices++
			switch s.Status {
			case SliceStatusFilled, SliceStatusPartiallyFilled:
				if s.Status == SliceStatusFilled {
					stats.FilledSlices++
				}
				stats.TotalFilledQty += s.FillSize
				stats.TotalNotional += s.FillSize * s.FillPrice
			case SliceStatusFailed:
				stats.FailedSlices++
			}
		}
	}
	return stats
}

// PurgeTerminal evicts terminal orders from the registry and returns
// how many were removed. Active orders are never touched
func (e *Engine) PurgeTerminal() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	purged := 0
	for id, order := range e.orders {
		if order.Status.IsTerminal() {
			delete(e.orders, id)
			purged++
		}
	}
	return purged
}
