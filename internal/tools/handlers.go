// Package tools exposes the engines as JSON-in/JSON-out tool handlers over
// HTTP. Each route corresponds to one tool operation; unknown entities yield
// a structured not-found result, never a panic.
package tools

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Khrafts/hyper-mcp-sub002/internal/errors"
	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
	"github.com/Khrafts/hyper-mcp-sub002/internal/execution"
	"github.com/Khrafts/hyper-mcp-sub002/internal/logger"
	"github.com/Khrafts/hyper-mcp-sub002/internal/risk"
)

// Server wires the execution and risk engines to tool routes
type Server struct {
	execution *execution.Engine
	risk      *risk.Engine
	logger    *logger.Logger
}

// NewServer creates a tool server over the given engines
func NewServer(exec *execution.Engine, riskEngine *risk.Engine, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Server{
		execution: exec,
		risk:      riskEngine,
		logger:    log,
	}
}

// RegisterRoutes mounts every tool route on the mux
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/tools/execution_submit_order", s.handleSubmitOrder)
	mux.HandleFunc("/tools/execution_cancel_order", s.handleCancelOrder)
	mux.HandleFunc("/tools/execution_get_order_report", s.handleGetOrderReport)
	mux.HandleFunc("/tools/execution_get_statistics", s.handleGetStatistics)
	mux.HandleFunc("/tools/risk_get_limits", s.handleGetLimits)
	mux.HandleFunc("/tools/set_risk_limits", s.handleSetLimits)
	mux.HandleFunc("/tools/get_risk_metrics", s.handleGetRiskMetrics)
	mux.HandleFunc("/tools/risk_get_alerts", s.handleGetAlerts)
	mux.HandleFunc("/tools/risk_resolve_alert", s.handleResolveAlert)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: kind, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// submitOrderInput mirrors the execution_submit_order tool contract
type submitOrderInput struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Quantity    float64 `json:"quantity"`
	OrderType   string  `json:"order_type"`
	LimitPrice  float64 `json:"limit_price,omitempty"`
	TimeInForce string  `json:"time_in_force,omitempty"`
	Algorithm   string  `json:"algorithm"`
	Params      struct {
		DurationSeconds float64 `json:"duration_seconds,omitempty"`
		SliceCount      int     `json:"slice_count,omitempty"`
		Participation   float64 `json:"participation,omitempty"`
		SliceSize       float64 `json:"slice_size,omitempty"`
		Jitter          bool    `json:"jitter,omitempty"`
		Randomize       bool    `json:"randomize,omitempty"`
	} `json:"algorithm_params"`
}

type submitOrderOutput struct {
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	Algorithm string  `json:"algorithm"`
	Slices    int     `json:"slices"`
	Status    string  `json:"status"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var input submitOrderInput
	if !decodeBody(w, r, &input) {
		return
	}

	req := &execution.OrderRequest{
		Symbol:      input.Symbol,
		Side:        exchange.OrderSide(input.Side),
		Quantity:    input.Quantity,
		OrderType:   exchange.OrderType(input.OrderType),
		LimitPrice:  input.LimitPrice,
		TimeInForce: exchange.TimeInForce(input.TimeInForce),
		Algorithm:   execution.Algorithm(input.Algorithm),
		Params: execution.AlgorithmParams{
			Duration:      time.Duration(input.Params.DurationSeconds * float64(time.Second)),
			SliceCount:    input.Params.SliceCount,
			Participation: input.Params.Participation,
			SliceSize:     input.Params.SliceSize,
			Jitter:        input.Params.Jitter,
			Randomize:     input.Params.Randomize,
		},
	}

	orderID, err := s.execution.SubmitOrder(r.Context(), req)
	if err != nil {
		status := http.StatusBadRequest
		if engErr, ok := err.(*errors.EngineError); ok && engErr.Category != errors.ErrorCategoryValidation {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "submit_rejected", err.Error())
		return
	}

	orderStatus, _ := s.execution.GetOrderStatus(orderID)
	slices := 0
	if report := s.execution.GetExecutionReport(orderID); report != nil {
		for _, n := range report.Summary.SliceCounts {
			slices += n
		}
	}
	writeJSON(w, http.StatusOK, submitOrderOutput{
		OrderID:   orderID,
		Symbol:    input.Symbol,
		Side:      input.Side,
		Quantity:  input.Quantity,
		Algorithm: input.Algorithm,
		Slices:    slices,
		Status:    string(orderStatus),
	})
}

type cancelOrderInput struct {
	OrderID string `json:"order_id"`
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var input cancelOrderInput
	if !decodeBody(w, r, &input) {
		return
	}

	result := s.execution.CancelOrder(r.Context(), input.OrderID)
	writeJSON(w, http.StatusOK, result)
}

type orderReportInput struct {
	OrderID string `json:"order_id"`
}

func (s *Server) handleGetOrderReport(w http.ResponseWriter, r *http.Request) {
	var input orderReportInput
	if !decodeBody(w, r, &input) {
		return
	}

	report := s.execution.GetExecutionReport(input.OrderID)
	if report == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown order "+input.OrderID)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.execution.GetExecutionStatistics())
}

func (s *Server) handleGetLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.risk.GetRiskLimits())
}

func (s *Server) handleSetLimits(w http.ResponseWriter, r *http.Request) {
	var update risk.RiskLimitsUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	limits, err := s.risk.UpdateRiskLimits(update)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_limits", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

type riskMetricsInput struct {
	Address            string  `json:"address,omitempty"`
	VaRConfidenceLevel float64 `json:"var_confidence_level,omitempty"`
	VaRTimeHorizonDays int     `json:"var_time_horizon_days,omitempty"`
}

func (s *Server) handleGetRiskMetrics(w http.ResponseWriter, r *http.Request) {
	var input riskMetricsInput
	if !decodeBody(w, r, &input) {
		return
	}

	confidence := input.VaRConfidenceLevel
	if confidence == 0 {
		confidence = 0.95
	}
	horizon := input.VaRTimeHorizonDays
	if horizon == 0 {
		horizon = 1
	}

	portfolioRisk, err := s.risk.CalculatePortfolioRiskWithOptions(r.Context(), input.Address, confidence, horizon)
	if err != nil {
		s.logger.LogError("Portfolio risk calculation failed", err)
		writeError(w, http.StatusServiceUnavailable, "risk_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, portfolioRisk)
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.risk.GetActiveAlerts())
}

type resolveAlertInput struct {
	AlertID string `json:"alert_id"`
}

type resolveAlertOutput struct {
	AlertID  string `json:"alert_id"`
	Resolved bool   `json:"resolved"`
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	var input resolveAlertInput
	if !decodeBody(w, r, &input) {
		return
	}

	writeJSON(w, http.StatusOK, resolveAlertOutput{
		AlertID:  input.AlertID,
		Resolved: s.risk.ResolveAlert(input.AlertID),
	})
}
