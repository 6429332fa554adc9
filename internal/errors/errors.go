package errors

import (
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Critical errors that should stop the engine
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Structured outcomes of normal operation
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	ErrorCategoryRisk       ErrorCategory = "RISK"
	ErrorCategoryNotFound   ErrorCategory = "NOT_FOUND"

	// Transient errors that can be retried
	ErrorCategoryNetwork   ErrorCategory = "NETWORK"
	ErrorCategoryTimeout   ErrorCategory = "TIMEOUT"
	ErrorCategoryRateLimit ErrorCategory = "RATE_LIMIT"
	ErrorCategoryTemporary ErrorCategory = "TEMPORARY"

	// Venue-side rejections
	ErrorCategoryExchange ErrorCategory = "EXCHANGE"
	ErrorCategoryOrder    ErrorCategory = "ORDER"
)

// EngineError represents a categorized error with component context
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error can be retried
func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop the engine
func (e *EngineError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal ||
		e.Category == ErrorCategoryCredentials ||
		e.Category == ErrorCategoryConfiguration
}

// New creates a new categorized engine error
func New(category ErrorCategory, component, operation, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: isRetryableCategory(category),
	}
}

// Wrap wraps an existing error with engine error context
func Wrap(err error, category ErrorCategory, component, operation string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Retryable:  isRetryableCategory(category),
	}
}

// WithRetryable overrides the retryable flag
func (e *EngineError) WithRetryable(retryable bool) *EngineError {
	e.Retryable = retryable
	return e
}

// isRetryableCategory determines if an error category is generally retryable
func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTemporary, ErrorCategoryRateLimit:
		return true
	default:
		return false
	}
}

// Categorize attempts to classify a generic error from an adapter call
func Categorize(err error, component, operation string) *EngineError {
	if err == nil {
		return nil
	}

	if engineErr, ok := err.(*EngineError); ok {
		return engineErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return Wrap(err, ErrorCategoryTimeout, component, operation)
	}
	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") ||
		strings.Contains(errMsg, "eof") {
		return Wrap(err, ErrorCategoryNetwork, component, operation)
	}
	if strings.Contains(errMsg, "api key") || strings.Contains(errMsg, "signature") ||
		strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "authentication") {
		return Wrap(err, ErrorCategoryCredentials, component, operation)
	}
	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return Wrap(err, ErrorCategoryRateLimit, component, operation)
	}
	if strings.Contains(errMsg, "insufficient") || strings.Contains(errMsg, "balance") {
		return Wrap(err, ErrorCategoryOrder, component, operation).WithRetryable(false)
	}
	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "minimum") ||
		strings.Contains(errMsg, "maximum") {
		return Wrap(err, ErrorCategoryValidation, component, operation).WithRetryable(false)
	}

	// Unknown adapter failures are treated as transient
	return Wrap(err, ErrorCategoryTemporary, component, operation)
}

// IsRetryable reports whether an arbitrary error is worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if engineErr, ok := err.(*EngineError); ok {
		return engineErr.Retryable
	}
	return Categorize(err, "", "").Retryable
}

// Common constructors

func NewValidationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryValidation, component, operation, message)
}

func NewNotFoundError(component, operation, message string) *EngineError {
	return New(ErrorCategoryNotFound, component, operation, message)
}

func NewNetworkError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryNetwork, component, operation)
}

func NewTimeoutError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryTimeout, component, operation)
}

func NewRiskError(component, operation, message string) *EngineError {
	return New(ErrorCategoryRisk, component, operation, message)
}

func NewExchangeError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryExchange, component, operation)
}

func NewConfigurationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

func NewFatalError(component, operation, message string) *EngineError {
	return New(ErrorCategoryFatal, component, operation, message)
}
