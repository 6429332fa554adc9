package bybit

import (
	"fmt"
	"net/http"

	"github.com/Khrafts/hyper-mcp-sub002/internal/errors"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *BybitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeInvalidAPIKey       = 10003
	ErrCodeInvalidSignature    = 10004
	ErrCodeInvalidTimestamp    = 10005
	ErrCodeRateLimitExceeded   = 10006
	ErrCodeOrderNotFound       = 110001
	ErrCodeInvalidOrderType    = 110004
	ErrCodeInsufficientBalance = 110007
	ErrCodeSymbolNotFound      = 110009
	ErrCodeInvalidQuantity     = 110020
	ErrCodeInvalidPrice        = 110021
	ErrCodeMarketClosed        = 110043
)

// IsRetryableError determines if an error should be retried
func IsRetryableError(err error) bool {
	if bybitErr, ok := err.(*BybitError); ok {
		switch bybitErr.Code {
		case ErrCodeRateLimitExceeded,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// IsAuthenticationError checks if the error is related to authentication
func IsAuthenticationError(err error) bool {
	if bybitErr, ok := err.(*BybitError); ok {
		switch bybitErr.Code {
		case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature, ErrCodeInvalidTimestamp:
			return true
		}
	}
	return false
}

// IsOrderNotFoundError checks if the error is due to order not found
func IsOrderNotFoundError(err error) bool {
	if bybitErr, ok := err.(*BybitError); ok {
		return bybitErr.Code == ErrCodeOrderNotFound
	}
	return false
}

// NewBybitError creates a new BybitError
func NewBybitError(code int, message string, details ...string) *BybitError {
	err := &BybitError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WrapAPIError maps a venue failure into the categorized error
// taxonomy. Bybit error codes decide the category and retryability;
// transport errors fall through to message-based categorization.
func WrapAPIError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if bybitErr, ok := err.(*BybitError); ok {
		bybitErr.Details = fmt.Sprintf("Operation: %s", operation)
		switch {
		case IsAuthenticationError(bybitErr):
			return errors.Wrap(bybitErr, errors.ErrorCategoryCredentials, "bybit", operation)
		case IsOrderNotFoundError(bybitErr):
			return errors.Wrap(bybitErr, errors.ErrorCategoryNotFound, "bybit", operation)
		case bybitErr.Code == ErrCodeRateLimitExceeded:
			return errors.Wrap(bybitErr, errors.ErrorCategoryRateLimit, "bybit", operation)
		case IsRetryableError(bybitErr):
			return errors.Wrap(bybitErr, errors.ErrorCategoryTemporary, "bybit", operation)
		default:
			return errors.Wrap(bybitErr, errors.ErrorCategoryExchange, "bybit", operation)
		}
	}

	return errors.Categorize(err, "bybit", operation)
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return NewBybitError(retCode, retMsg)
}
