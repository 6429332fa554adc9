package exchange

import (
	"context"
	"time"
)

// MarketAdapter defines the venue operations consumed by the execution and
// risk engines. Implementations must be safe for concurrent use.
type MarketAdapter interface {
	// Exchange identification
	GetName() string
	IsDemo() bool

	// Market data
	GetAllMids(ctx context.Context) (map[string]float64, error)

	// Trading
	PlaceOrder(ctx context.Context, spec OrderSpec) (*OrderAck, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// Account management
	GetAccountState(ctx context.Context, address string) (*AccountState, error)

	// Connection management
	Connect(ctx context.Context) error
	Disconnect() error
}

// OrderSide represents buy/sell direction
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents different order types
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// OrderSpec holds the parameters of a child order submitted to the venue
type OrderSpec struct {
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Quantity    float64     `json:"quantity"`
	OrderType   OrderType   `json:"order_type"`
	LimitPrice  float64     `json:"limit_price,omitempty"`
	TimeInForce TimeInForce `json:"time_in_force,omitempty"`
	ClientID    string      `json:"client_id,omitempty"`
}

// OrderAck is the venue acknowledgement for a placed order. FilledQuantity
// and AvgFillPrice reflect any immediate execution reported by the venue.
type OrderAck struct {
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	FilledQuantity float64   `json:"filled_quantity"`
	AvgFillPrice   float64   `json:"avg_fill_price"`
	Timestamp      time.Time `json:"timestamp"`
}

// Position represents one open position in the account snapshot
type Position struct {
	Symbol        string  `json:"symbol"`
	Size          float64 `json:"size"` // signed: negative for shorts
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	PositionValue float64 `json:"position_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	Leverage      float64 `json:"leverage"`
}

// AccountState is the account snapshot consumed by the risk engine
type AccountState struct {
	Address     string     `json:"address,omitempty"`
	TotalValue  float64    `json:"total_value"`
	FreeBalance float64    `json:"free_balance"`
	Positions   []Position `json:"positions"`
	Timestamp   time.Time  `json:"timestamp"`
}
