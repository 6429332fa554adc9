package bybit

import (
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Khrafts/hyper-mcp-sub002/internal/errors"
)

func testAdapter() *Adapter {
	return NewAdapter(Config{APIKey: "key", APISecret: "secret", Testnet: true})
}

func TestParseOrderStatusResponse_FilledOrder(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"orderId":     "abc-123",
					"orderStatus": "Filled",
					"cumExecQty":  "0.5",
					"avgPrice":    "50000.5",
				},
			},
		},
	}

	ack, err := testAdapter().parseOrderStatusResponse(resp, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", ack.OrderID)
	assert.Equal(t, "filled", ack.Status)
	assert.InDelta(t, 0.5, ack.FilledQuantity, 1e-9)
	assert.InDelta(t, 50000.5, ack.AvgFillPrice, 1e-9)
}

func TestParseOrderStatusResponse_RestingOrder(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"list": []map[string]interface{}{
				{
					"orderId":     "abc-123",
					"orderStatus": "New",
					"cumExecQty":  "0",
					"avgPrice":    "",
				},
			},
		},
	}

	ack, err := testAdapter().parseOrderStatusResponse(resp, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "submitted", ack.Status)
	assert.Zero(t, ack.FilledQuantity)
}

func TestParseOrderStatusResponse_OrderMissing(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result:  map[string]interface{}{"list": []map[string]interface{}{}},
	}

	_, err := testAdapter().parseOrderStatusResponse(resp, "abc-123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestOrderStatusFromAPI(t *testing.T) {
	assert.Equal(t, "filled", orderStatusFromAPI("Filled"))
	assert.Equal(t, "partially_filled", orderStatusFromAPI("PartiallyFilled"))
	assert.Equal(t, "cancelled", orderStatusFromAPI("Cancelled"))
	assert.Equal(t, "rejected", orderStatusFromAPI("Rejected"))
	assert.Equal(t, "submitted", orderStatusFromAPI("New"))
}

func TestWrapAPIError_RateLimitIsRetryable(t *testing.T) {
	wrapped := WrapAPIError("place order", NewBybitError(ErrCodeRateLimitExceeded, "too many visits"))

	require.Error(t, wrapped)
	assert.True(t, errors.IsRetryable(wrapped))

	engineErr, ok := wrapped.(*errors.EngineError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCategoryRateLimit, engineErr.Category)
}

func TestWrapAPIError_ServerErrorIsRetryable(t *testing.T) {
	wrapped := WrapAPIError("place order", NewBybitError(502, "bad gateway"))

	assert.True(t, errors.IsRetryable(wrapped))
}

func TestWrapAPIError_AuthErrorIsFatal(t *testing.T) {
	wrapped := WrapAPIError("get all mids", NewBybitError(ErrCodeInvalidAPIKey, "invalid api key"))

	assert.False(t, errors.IsRetryable(wrapped))

	engineErr, ok := wrapped.(*errors.EngineError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCategoryCredentials, engineErr.Category)
	assert.True(t, engineErr.IsFatal())
}

func TestWrapAPIError_OrderNotFound(t *testing.T) {
	wrapped := WrapAPIError("cancel order", NewBybitError(ErrCodeOrderNotFound, "order not exists"))

	assert.False(t, errors.IsRetryable(wrapped))

	engineErr, ok := wrapped.(*errors.EngineError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCategoryNotFound, engineErr.Category)
}

func TestWrapAPIError_VenueRejectionNotRetryable(t *testing.T) {
	wrapped := WrapAPIError("place order", NewBybitError(ErrCodeInsufficientBalance, "insufficient balance"))

	assert.False(t, errors.IsRetryable(wrapped))

	engineErr, ok := wrapped.(*errors.EngineError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCategoryExchange, engineErr.Category)
}
