package usecase

import "context"

// PlaceOrderRequest is the backend payload for discretionary order
// placement. Price and StopPrice are set only when the order type
// uses them.
type PlaceOrderRequest struct {
	Symbol    string   `json:"symbol"`
	Side      string   `json:"side"`
	Quantity  float64  `json:"quantity"`
	Type      string   `json:"type"`
	Price     *float64 `json:"price,omitempty"`
	StopPrice *float64 `json:"stop_price,omitempty"`
}

// ModifyOrderRequest is the backend payload for order modification.
// OrderType is always sent so the backend can validate which price
// fields apply; IsAutomated distinguishes manual terminal actions
// from strategy-driven ones.
type ModifyOrderRequest struct {
	Qty         *float64 `json:"qty,omitempty"`
	LimitPrice  *float64 `json:"limitPrice,omitempty"`
	StopPrice   *float64 `json:"stopPrice,omitempty"`
	OrderType   string   `json:"orderType"`
	IsAutomated bool     `json:"isAutomated"`
}

// OrderAPI executes trading commands against the backend for one
// account.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, accountID string, req PlaceOrderRequest) (string, error)
	ModifyOrder(ctx context.Context, accountID, orderID string, req ModifyOrderRequest) error
	CancelOrder(ctx context.Context, accountID, orderID string) error
	ClosePosition(ctx context.Context, accountID, positionID string) error
	ReversePosition(ctx context.Context, accountID, positionID string) error
}
