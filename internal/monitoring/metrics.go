package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Execution metrics
	ordersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_orders_submitted_total",
			Help: "Total number of parent orders submitted",
		},
		[]string{"symbol", "algorithm"},
	)

	ordersFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_orders_finished_total",
			Help: "Total number of parent orders reaching a terminal state",
		},
		[]string{"status"},
	)

	slicesDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_slices_dispatched_total",
			Help: "Total number of child slices dispatched to the venue",
		},
		[]string{"symbol", "status"},
	)

	sliceFillSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "execution_bot_slice_fill_size",
			Help:    "Distribution of filled slice sizes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// Risk metrics
	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_risk_rejections_total",
			Help: "Total number of slices rejected by the pre-trade gate",
		},
		[]string{"symbol"},
	)

	portfolioVaR95 = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "execution_bot_portfolio_var_95",
			Help: "Latest portfolio 95% value-at-risk from the monitoring cycle",
		},
	)

	riskAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_risk_alerts_total",
			Help: "Total number of risk alerts raised",
		},
		[]string{"type", "severity"},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "execution_bot_current_price",
			Help: "Latest observed mid price per symbol",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "execution_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"type"},
	)
)

func init() {
	// Register metrics
	prometheus.MustRegister(ordersSubmittedTotal)
	prometheus.MustRegister(ordersFinishedTotal)
	prometheus.MustRegister(slicesDispatchedTotal)
	prometheus.MustRegister(sliceFillSize)
	prometheus.MustRegister(riskRejectionsTotal)
	prometheus.MustRegister(portfolioVaR95)
	prometheus.MustRegister(riskAlertsTotal)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordOrderSubmitted records a new parent order
func RecordOrderSubmitted(symbol, algorithm string) {
	ordersSubmittedTotal.WithLabelValues(symbol, algorithm).Inc()
}

// RecordOrderFinished records a parent order reaching a terminal state
func RecordOrderFinished(status string) {
	ordersFinishedTotal.WithLabelValues(status).Inc()
}

// RecordSliceDispatch records a slice dispatch outcome
func RecordSliceDispatch(symbol, status string) {
	slicesDispatchedTotal.WithLabelValues(symbol, status).Inc()
}

// RecordSliceFill records the size of a filled slice
func RecordSliceFill(symbol string, size float64) {
	sliceFillSize.WithLabelValues(symbol).Observe(size)
}

// RecordRiskRejection records a pre-trade gate rejection
func RecordRiskRejection(symbol string) {
	riskRejectionsTotal.WithLabelValues(symbol).Inc()
}

// UpdatePortfolioVaR updates the latest portfolio VaR gauge
func UpdatePortfolioVaR(value float64) {
	portfolioVaR95.Set(value)
}

// RecordRiskAlert records a raised risk alert
func RecordRiskAlert(alertType, severity string) {
	riskAlertsTotal.WithLabelValues(alertType, severity).Inc()
}

// UpdatePrice updates the current price metric
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
