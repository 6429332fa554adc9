package risk

import "fmt"

// RiskLimits holds the per-engine-instance risk configuration. All values are
// positive; every pre-trade check and monitoring cycle reads them.
type RiskLimits struct {
	MaxPositionSize  float64 `json:"max_position_size"` // max notional per position
	MaxLeverage      float64 `json:"max_leverage"`
	MaxDailyLoss     float64 `json:"max_daily_loss"`    // absolute currency amount
	MaxDrawdown      float64 `json:"max_drawdown"`      // fraction, e.g. 0.15
	MaxConcentration float64 `json:"max_concentration"` // fraction of portfolio value
	VaRLimit         float64 `json:"var_limit"`         // absolute currency amount
	StopLossPercent  float64 `json:"stop_loss_percent"`
	MaxOrderValue    float64 `json:"max_order_value"` // max notional per order
}

// DefaultRiskLimits returns conservative default limits
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSize:  100000,
		MaxLeverage:      5,
		MaxDailyLoss:     5000,
		MaxDrawdown:      0.15,
		MaxConcentration: 0.4,
		VaRLimit:         10000,
		StopLossPercent:  0.05,
		MaxOrderValue:    50000,
	}
}

// Validate checks that every limit is positive
func (l RiskLimits) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"max_position_size", l.MaxPositionSize},
		{"max_leverage", l.MaxLeverage},
		{"max_daily_loss", l.MaxDailyLoss},
		{"max_drawdown", l.MaxDrawdown},
		{"max_concentration", l.MaxConcentration},
		{"var_limit", l.VaRLimit},
		{"stop_loss_percent", l.StopLossPercent},
		{"max_order_value", l.MaxOrderValue},
	}

	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("risk limit %s must be positive, got %v", c.name, c.value)
		}
	}
	return nil
}

// RiskLimitsUpdate is a partial update; nil fields are left unchanged
type RiskLimitsUpdate struct {
	MaxPositionSize  *float64 `json:"max_position_size,omitempty"`
	MaxLeverage      *float64 `json:"max_leverage,omitempty"`
	MaxDailyLoss     *float64 `json:"max_daily_loss,omitempty"`
	MaxDrawdown      *float64 `json:"max_drawdown,omitempty"`
	MaxConcentration *float64 `json:"max_concentration,omitempty"`
	VaRLimit         *float64 `json:"var_limit,omitempty"`
	StopLossPercent  *float64 `json:"stop_loss_percent,omitempty"`
	MaxOrderValue    *float64 `json:"max_order_value,omitempty"`
}

// apply returns a copy of l with the non-nil fields of u applied
func (u RiskLimitsUpdate) apply(l RiskLimits) RiskLimits {
	if u.MaxPositionSize != nil {
		l.MaxPositionSize = *u.MaxPositionSize
	}
	if u.MaxLeverage != nil {
		l.MaxLeverage = *u.MaxLeverage
	}
	if u.MaxDailyLoss != nil {
		l.MaxDailyLoss = *u.MaxDailyLoss
	}
	if u.MaxDrawdown != nil {
		l.MaxDrawdown = *u.MaxDrawdown
	}
	if u.MaxConcentration != nil {
		l.MaxConcentration = *u.MaxConcentration
	}
	if u.StopLossPercent != nil {
		l.StopLossPercent = *u.StopLossPercent
	}
	if u.VaRLimit != nil {
		l.VaRLimit = *u.VaRLimit
	}
	if u.MaxOrderValue != nil {
		l.MaxOrderValue = *u.MaxOrderValue
	}
	return l
}
