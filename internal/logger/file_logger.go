package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger represents a file logger for execution and risk activities
type Logger struct {
	component string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logDir    string
	debug     bool
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelOrder   LogLevel = "ORDER"
	LogLevelRisk    LogLevel = "RISK"
	LogLevelDebug   LogLevel = "DEBUG"
)

// NewLogger creates a new file logger for the specified component
func NewLogger(component string) (*Logger, error) {
	return NewLoggerWithDebug(component, false)
}

// NewLoggerWithDebug creates a new file logger with optional debug output
func NewLoggerWithDebug(component string, debug bool) (*Logger, error) {
	logDir := "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	filename := fmt.Sprintf("%s_%s.log", component, timestamp)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		component: component,
		logFile:   file,
		logger:    log.New(file, "", 0),
		logDir:    logDir,
		debug:     debug,
	}

	l.writeSessionHeader()

	return l, nil
}

// NewDiscardLogger creates a logger that writes nowhere (used in tests)
func NewDiscardLogger() *Logger {
	return &Logger{
		component: "test",
		logger:    log.New(io.Discard, "", 0),
	}
}

// writeSessionHeader writes a session start header to the log
func (l *Logger) writeSessionHeader() {
	l.mu.Lock()
	defer l.mu.Unlock()

	header := fmt.Sprintf(`
================================================================================
🚀 EXECUTION SESSION STARTED
================================================================================
Component: %s
Started: %s
================================================================================`,
		l.component, time.Now().Format("2006-01-02 15:04:05"))

	l.logger.Print(header)
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if level == LogLevelDebug && !l.debug {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	l.logger.Println(fmt.Sprintf("[%s] [%s] %s", timestamp, level, message))
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Order logs an order lifecycle event
func (l *Logger) Order(format string, args ...interface{}) {
	l.Log(LogLevelOrder, format, args...)
}

// Risk logs a risk engine event
func (l *Logger) Risk(format string, args ...interface{}) {
	l.Log(LogLevelRisk, format, args...)
}

// Debug logs a debug message (suppressed unless debug mode is enabled)
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// LogSliceDispatch logs a slice submission with its outcome
func (l *Logger) LogSliceDispatch(orderID, sliceID, symbol string, size, fillPrice float64, status string) {
	l.Order("Slice dispatched - Order: %s, Slice: %s, Symbol: %s, Size: %.6f, Fill: $%.4f, Status: %s",
		orderID, sliceID, symbol, size, fillPrice, status)
}

// LogOrderCompletion logs final order state with execution summary
func (l *Logger) LogOrderCompletion(orderID string, status string, filledQty, quantity, avgPrice float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")

	summary := fmt.Sprintf(`
[%s] [ORDER] ==================== ORDER %s ====================
✅ Order ID: %s
📦 Filled: %.6f / %.6f
💰 Average Price: $%.4f
=============================================================`,
		timestamp, status, orderID, filledQty, quantity, avgPrice)

	l.logger.Println(summary)
}

// LogRiskAlert logs a raised risk alert
func (l *Logger) LogRiskAlert(alertType, severity, message string) {
	l.Risk("ALERT [%s/%s] %s", alertType, severity, message)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	l.Warning("%s", fmt.Sprintf(context+": "+message, args...))
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		timestamp := time.Now().Format("2006-01-02 15:04:05")
		footer := fmt.Sprintf(`
================================================================================
🛑 EXECUTION SESSION ENDED
================================================================================
Ended: %s
================================================================================

`, timestamp)
		l.logger.Print(footer)

		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	timestamp := time.Now().Format("2006-01-02")
	return filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", l.component, timestamp))
}
