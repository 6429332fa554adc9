package notifications

// Notifier delivers out-of-band alerts raised by the risk and
// execution engines
type Notifier interface {
	// SendAlert sends an alert with the specified level and message
	SendAlert(level, message string) error
}

// NoopNotifier discards every alert. Used when no delivery channel is
// configured
type NoopNotifier struct{}

// NewNoopNotifier returns a notifier that drops all alerts
func NewNoopNotifier() *NoopNotifier { return &NoopNotifier{} }

// SendAlert discards the alert
func (NoopNotifier) SendAlert(level, message string) error { return nil }
