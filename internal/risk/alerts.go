package risk

import "time"

// AlertType identifies the rule that raised an alert
type AlertType string

const (
	AlertTypeVaRBreach     AlertType = "var_breach"
	AlertTypeDrawdown      AlertType = "drawdown_breach"
	AlertTypeConcentration AlertType = "concentration_breach"
)

// AlertSeverity ranks alerts for routing and display
type AlertSeverity string

const (
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// RiskAlert records a threshold breach detected by a monitoring cycle.
// Alerts are retained after resolution as a historical record.
type RiskAlert struct {
	AlertID      string        `json:"alert_id"`
	Type         AlertType     `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Symbol       string        `json:"symbol,omitempty"`
	CurrentValue float64       `json:"current_value"`
	Limit        float64       `json:"limit"`
	Timestamp    time.Time     `json:"timestamp"`
	Resolved     bool          `json:"resolved"`
}
