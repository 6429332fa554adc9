// Package sim provides a deterministic in-memory market adapter used by the
// dry-run mode and by tests. Fills are simulated at the configured mid price.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
)

// Adapter is an in-memory implementation of exchange.MarketAdapter
type Adapter struct {
	mu sync.Mutex

	mids      map[string]float64
	account   exchange.AccountState
	connected bool

	// failure injection: the next N PlaceOrder calls fail with failErr
	placeFailures int
	failErr       error
	accountErr    error
	midsErr       error

	placed    []exchange.OrderSpec
	cancelled []string
}

// NewAdapter creates a simulated adapter with the given mid prices
func NewAdapter(mids map[string]float64) *Adapter {
	if mids == nil {
		mids = make(map[string]float64)
	}
	return &Adapter{
		mids: mids,
		account: exchange.AccountState{
			TotalValue:  100000,
			FreeBalance: 100000,
		},
	}
}

// GetName returns the adapter name
func (a *Adapter) GetName() string { return "sim" }

// IsDemo always reports true for the simulator
func (a *Adapter) IsDemo() bool { return true }

// Connect marks the adapter connected
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

// Disconnect marks the adapter disconnected
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

// SetMid sets the mid price for a symbol
func (a *Adapter) SetMid(symbol string, price float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mids[symbol] = price
}

// SetAccountState replaces the account snapshot returned by GetAccountState
func (a *Adapter) SetAccountState(state exchange.AccountState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.account = state
}

// FailNextPlacements makes the next n PlaceOrder calls return err
func (a *Adapter) FailNextPlacements(n int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.placeFailures = n
	a.failErr = err
}

// FailAccountState makes GetAccountState return err until cleared with nil
func (a *Adapter) FailAccountState(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accountErr = err
}

// FailMids makes GetAllMids return err until cleared with nil
func (a *Adapter) FailMids(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.midsErr = err
}

// GetAllMids returns a copy of the configured mid prices
func (a *Adapter) GetAllMids(ctx context.Context) (map[string]float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.midsErr != nil {
		return nil, a.midsErr
	}

	mids := make(map[string]float64, len(a.mids))
	for symbol, price := range a.mids {
		mids[symbol] = price
	}
	return mids, nil
}

// PlaceOrder simulates an immediate full fill at the current mid price
func (a *Adapter) PlaceOrder(ctx context.Context, spec exchange.OrderSpec) (*exchange.OrderAck, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.placeFailures > 0 {
		a.placeFailures--
		return nil, a.failErr
	}

	mid, ok := a.mids[spec.Symbol]
	if !ok {
		return nil, fmt.Errorf("no market for symbol %s", spec.Symbol)
	}

	fillPrice := mid
	if spec.OrderType == exchange.OrderTypeLimit && spec.LimitPrice > 0 {
		fillPrice = spec.LimitPrice
	}

	a.placed = append(a.placed, spec)

	return &exchange.OrderAck{
		OrderID:        uuid.NewString(),
		Status:         "filled",
		FilledQuantity: spec.Quantity,
		AvgFillPrice:   fillPrice,
		Timestamp:      time.Now(),
	}, nil
}

// CancelOrder records the cancellation
func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = append(a.cancelled, orderID)
	return nil
}

// GetAccountState returns the configured account snapshot
func (a *Adapter) GetAccountState(ctx context.Context, address string) (*exchange.AccountState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accountErr != nil {
		return nil, a.accountErr
	}

	state := a.account
	state.Address = address
	state.Timestamp = time.Now()
	state.Positions = append([]exchange.Position(nil), a.account.Positions...)
	return &state, nil
}

// PlacedOrders returns a copy of every order spec accepted so far
func (a *Adapter) PlacedOrders() []exchange.OrderSpec {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]exchange.OrderSpec(nil), a.placed...)
}

// CancelledOrders returns the IDs passed to CancelOrder
func (a *Adapter) CancelledOrders() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.cancelled...)
}
