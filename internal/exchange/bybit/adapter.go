package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/Khrafts/hyper-mcp-sub002/internal/exchange"
)

// Connect verifies API connectivity by requesting the server time
func (a *Adapter) Connect(ctx context.Context) error {
	_, err := a.httpClient.NewUtaBybitServiceNoParams().GetServerTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to bybit: %w", err)
	}
	return nil
}

// Disconnect releases adapter resources. The underlying HTTP client is
// stateless so there is nothing to tear down.
func (a *Adapter) Disconnect() error {
	return nil
}

// GetAllMids returns the latest price for every symbol in the configured category
func (a *Adapter) GetAllMids(ctx context.Context) (map[string]float64, error) {
	params := map[string]interface{}{
		"category": a.category,
	}

	result, err := a.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return nil, WrapAPIError("get all mids", err)
	}

	mids, err := a.parseMidsResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tickers response: %w", err)
	}

	return mids, nil
}

// PlaceOrder submits an order to the venue
func (a *Adapter) PlaceOrder(ctx context.Context, spec exchange.OrderSpec) (*exchange.OrderAck, error) {
	if spec.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if spec.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if spec.OrderType == exchange.OrderTypeLimit && spec.LimitPrice <= 0 {
		return nil, fmt.Errorf("limit price is required for limit orders")
	}

	apiParams := map[string]interface{}{
		"category":  a.category,
		"symbol":    spec.Symbol,
		"side":      sideToAPI(spec.Side),
		"orderType": typeToAPI(spec.OrderType),
		"qty":       strconv.FormatFloat(spec.Quantity, 'f', -1, 64),
	}

	if spec.OrderType == exchange.OrderTypeLimit {
		apiParams["price"] = strconv.FormatFloat(spec.LimitPrice, 'f', -1, 64)
		apiParams["timeInForce"] = tifToAPI(spec.TimeInForce)
	}
	if spec.ClientID != "" {
		apiParams["orderLinkId"] = spec.ClientID
	}

	result, err := a.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, WrapAPIError("place order", err)
	}

	ack, err := a.parseOrderAckResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	// The create endpoint acknowledges without fill details; query the
	// order state so immediate executions surface in the ack. A failed
	// lookup leaves the ack as a resting submission.
	if statusAck, statusErr := a.GetOrderStatus(ctx, spec.Symbol, ack.OrderID); statusErr == nil {
		ack.Status = statusAck.Status
		ack.FilledQuantity = statusAck.FilledQuantity
		ack.AvgFillPrice = statusAck.AvgFillPrice
	}

	return ack, nil
}

// GetOrderStatus queries the realtime order endpoint for the current
// state of one order, including cumulative executed quantity
func (a *Adapter) GetOrderStatus(ctx context.Context, symbol, orderID string) (*exchange.OrderAck, error) {
	params := map[string]interface{}{
		"category": a.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := a.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, WrapAPIError("get order status", err)
	}

	ack, err := a.parseOrderStatusResponse(result, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order status response: %w", err)
	}

	return ack, nil
}

// CancelOrder cancels an existing order
func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := map[string]interface{}{
		"category": a.category,
		"symbol":   symbol,
		"orderId":  orderID,
	}

	result, err := a.httpClient.NewUtaBybitServiceWithParams(params).CancelOrder(ctx)
	if err != nil {
		return WrapAPIError("cancel order", err)
	}

	if serverResp := result; serverResp != nil && serverResp.RetCode != 0 {
		apiErr := ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
		// An order the venue no longer knows is already gone; the cancel
		// is idempotent
		if IsOrderNotFoundError(apiErr) {
			return nil
		}
		return WrapAPIError("cancel order", apiErr)
	}

	return nil
}

// GetAccountState returns the unified account snapshot with open positions.
// The address parameter is accepted for interface compatibility; Bybit scopes
// the snapshot to the API credentials.
func (a *Adapter) GetAccountState(ctx context.Context, address string) (*exchange.AccountState, error) {
	walletParams := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	walletResult, err := a.httpClient.NewUtaBybitServiceWithParams(walletParams).GetAccountWallet(ctx)
	if err != nil {
		return nil, WrapAPIError("get account wallet", err)
	}

	totalValue, freeBalance, err := a.parseWalletResponse(walletResult)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet response: %w", err)
	}

	posParams := map[string]interface{}{
		"category":   a.category,
		"settleCoin": "USDT",
	}

	posResult, err := a.httpClient.NewUtaBybitServiceWithParams(posParams).GetPositionList(ctx)
	if err != nil {
		return nil, WrapAPIError("get position list", err)
	}

	positions, err := a.parsePositionsResponse(posResult)
	if err != nil {
		return nil, fmt.Errorf("failed to parse positions response: %w", err)
	}

	return &exchange.AccountState{
		Address:     address,
		TotalValue:  totalValue,
		FreeBalance: freeBalance,
		Positions:   positions,
		Timestamp:   time.Now(),
	}, nil
}

// parseMidsResponse extracts symbol -> last price from a tickers response
func (a *Adapter) parseMidsResponse(response interface{}) (map[string]float64, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
		} `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	mids := make(map[string]float64, len(tickerResult.List))
	for _, item := range tickerResult.List {
		bid := parseFloat64(item.Bid1Price)
		ask := parseFloat64(item.Ask1Price)
		if bid > 0 && ask > 0 {
			mids[item.Symbol] = (bid + ask) / 2
			continue
		}
		if last := parseFloat64(item.LastPrice); last > 0 {
			mids[item.Symbol] = last
		}
	}

	return mids, nil
}

// parseOrderAckResponse parses a place-order response into an acknowledgement
func (a *Adapter) parseOrderAckResponse(response interface{}) (*exchange.OrderAck, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var orderResult struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}

	if err := json.Unmarshal(resultBytes, &orderResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order result: %w", err)
	}

	if orderResult.OrderID == "" {
		return nil, fmt.Errorf("order response missing orderId")
	}

	return &exchange.OrderAck{
		OrderID:   orderResult.OrderID,
		Status:    "submitted",
		Timestamp: time.Now(),
	}, nil
}

// parseOrderStatusResponse extracts one order's state from a realtime
// order-list response
func (a *Adapter) parseOrderStatusResponse(response interface{}, orderID string) (*exchange.OrderAck, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var statusResult struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderStatus string `json:"orderStatus"`
			CumExecQty  string `json:"cumExecQty"`
			AvgPrice    string `json:"avgPrice"`
		} `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &statusResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order status result: %w", err)
	}

	for _, item := range statusResult.List {
		if item.OrderID != orderID {
			continue
		}
		return &exchange.OrderAck{
			OrderID:        item.OrderID,
			Status:         orderStatusFromAPI(item.OrderStatus),
			FilledQuantity: parseFloat64(item.CumExecQty),
			AvgFillPrice:   parseFloat64(item.AvgPrice),
			Timestamp:      time.Now(),
		}, nil
	}

	return nil, fmt.Errorf("order %s not found in status response", orderID)
}

// parseWalletResponse extracts total equity and available balance
func (a *Adapter) parseWalletResponse(response interface{}) (totalValue, freeBalance float64, err error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return 0, 0, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return 0, 0, ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	var walletResult struct {
		List []struct {
			TotalEquity           string `json:"totalEquity"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
		} `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &walletResult); err != nil {
		return 0, 0, fmt.Errorf("failed to unmarshal wallet result: %w", err)
	}

	if len(walletResult.List) == 0 {
		return 0, 0, fmt.Errorf("wallet response contained no accounts")
	}

	return parseFloat64(walletResult.List[0].TotalEquity),
		parseFloat64(walletResult.List[0].TotalAvailableBalance), nil
}

// parsePositionsResponse converts the venue position list into the adapter model
func (a *Adapter) parsePositionsResponse(response interface{}) ([]exchange.Position, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, ParseAPIError(serverResp.RetCode, serverResp.RetMsg)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var positionResult struct {
		List []struct {
			Symbol        string `json:"symbol"`
			Side          string `json:"side"`
			Size          string `json:"size"`
			PositionValue string `json:"positionValue"`
			EntryPrice    string `json:"entryPrice"`
			MarkPrice     string `json:"markPrice"`
			UnrealisedPnl string `json:"unrealisedPnl"`
			Leverage      string `json:"leverage"`
		} `json:"list"`
	}

	if err := json.Unmarshal(resultBytes, &positionResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position result: %w", err)
	}

	var positions []exchange.Position
	for _, posData := range positionResult.List {
		size := parseFloat64(posData.Size)
		if size == 0 {
			continue
		}
		if posData.Side == "Sell" {
			size = -size
		}

		positions = append(positions, exchange.Position{
			Symbol:        posData.Symbol,
			Size:          size,
			EntryPrice:    parseFloat64(posData.EntryPrice),
			MarkPrice:     parseFloat64(posData.MarkPrice),
			PositionValue: parseFloat64(posData.PositionValue),
			UnrealizedPnL: parseFloat64(posData.UnrealisedPnl),
			Leverage:      parseFloat64(posData.Leverage),
		})
	}

	return positions, nil
}

func sideToAPI(side exchange.OrderSide) string {
	if side == exchange.OrderSideSell {
		return "Sell"
	}
	return "Buy"
}

func typeToAPI(orderType exchange.OrderType) string {
	if orderType == exchange.OrderTypeLimit {
		return "Limit"
	}
	return "Market"
}

func orderStatusFromAPI(status string) string {
	switch status {
	case "Filled":
		return "filled"
	case "PartiallyFilled", "PartiallyFilledCanceled":
		return "partially_filled"
	case "Cancelled":
		return "cancelled"
	case "Rejected":
		return "rejected"
	default:
		return "submitted"
	}
}

func tifToAPI(tif exchange.TimeInForce) string {
	switch tif {
	case exchange.TimeInForceIOC:
		return "IOC"
	case exchange.TimeInForceFOK:
		return "FOK"
	default:
		return "GTC"
	}
}

func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
