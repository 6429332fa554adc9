package risk

// historyCapacity bounds the per-symbol observation window
const historyCapacity = 100

// priceHistory is a bounded ring buffer of price observations and the simple
// returns derived from them. It is written only by the engine's monitor loop.
type priceHistory struct {
	prices  []float64
	returns []float64
	cap     int
}

func newPriceHistory(capacity int) *priceHistory {
	if capacity <= 0 {
		capacity = historyCapacity
	}
	return &priceHistory{
		prices:  make([]float64, 0, capacity),
		returns: make([]float64, 0, capacity),
		cap:     capacity,
	}
}

// Append records a new price observation and the return versus the previous one
func (h *priceHistory) Append(price float64) {
	if price <= 0 {
		return
	}

	if n := len(h.prices); n > 0 {
		prev := h.prices[n-1]
		if prev > 0 {
			h.returns = append(h.returns, (price-prev)/prev)
			if len(h.returns) > h.cap {
				h.returns = h.returns[1:]
			}
		}
	}

	h.prices = append(h.prices, price)
	if len(h.prices) > h.cap {
		h.prices = h.prices[1:]
	}
}

// Returns yields a copy of the return series, oldest first
func (h *priceHistory) Returns() []float64 {
	return append([]float64(nil), h.returns...)
}

// LastPrice returns the most recent observation, or 0 when empty
func (h *priceHistory) LastPrice() float64 {
	if len(h.prices) == 0 {
		return 0
	}
	return h.prices[len(h.prices)-1]
}

// Len reports the number of stored price observations
func (h *priceHistory) Len() int {
	return len(h.prices)
}
