// Package terminal defines the numeric vocabulary and data shapes of
// the external charting terminal's broker API, plus the bidirectional
// mappings between that vocabulary and the backend's string vocabulary.
package terminal

// ConnectionStatus is the terminal's connection state enum.
type ConnectionStatus int

const (
	ConnectionConnected    ConnectionStatus = 1
	ConnectionConnecting   ConnectionStatus = 2
	ConnectionDisconnected ConnectionStatus = 3
	ConnectionError        ConnectionStatus = 4
)

// OrderStatus is the terminal's order status enum.
type OrderStatus int

const (
	OrderStatusCanceled OrderStatus = 1
	OrderStatusFilled   OrderStatus = 2
	OrderStatusInactive OrderStatus = 3
	OrderStatusPlacing  OrderStatus = 4
	OrderStatusRejected OrderStatus = 5
	OrderStatusWorking  OrderStatus = 6
)

// OrderType is the terminal's order type enum.
type OrderType int

const (
	OrderTypeMarket    OrderType = 1
	OrderTypeLimit     OrderType = 2
	OrderTypeStop      OrderType = 3
	OrderTypeStopLimit OrderType = 4
)

// Side is the terminal's order/position direction: +1 buy, -1 sell.
type Side int

const (
	SideBuy  Side = 1
	SideSell Side = -1
)

// NotificationSeverity codes for Host.ShowNotification.
type NotificationSeverity int

const (
	NotifySuccess NotificationSeverity = 0
	NotifyError   NotificationSeverity = 1
)

// Position is a position snapshot in the shape the terminal expects.
// Qty is unsigned; direction is carried by Side.
type Position struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Qty      float64 `json:"qty"`
	Side     Side    `json:"side"`
	AvgPrice float64 `json:"avgPrice"`
	PL       float64 `json:"pl"`
}

// Order is an order snapshot in the shape the terminal expects.
// UpdateTime is unix seconds.
type Order struct {
	ID         string      `json:"id"`
	Symbol     string      `json:"symbol"`
	Type       OrderType   `json:"type"`
	Side       Side        `json:"side"`
	Qty        float64     `json:"qty"`
	LimitPrice float64     `json:"limitPrice,omitempty"`
	StopPrice  float64     `json:"stopPrice,omitempty"`
	Status     OrderStatus `json:"status"`
	FilledQty  float64     `json:"filledQty"`
	AvgPrice   float64     `json:"avgPrice"`
	Duration   string      `json:"duration"`
	UpdateTime float64     `json:"updateTime"`
}

// PreOrder is the terminal's order ticket payload for placement.
// LimitPrice and StopPrice are nil when not applicable to the type.
type PreOrder struct {
	Symbol     string
	Side       Side
	Qty        float64
	Type       OrderType
	LimitPrice *float64
	StopPrice  *float64
}

// AccountMetainfo describes one selectable account to the terminal.
type AccountMetainfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// AccountSummary holds the account manager's summary row values.
type AccountSummary struct {
	Balance float64 `json:"balance"`
	PL      float64 `json:"pl"`
	Equity  float64 `json:"equity"`
}

// SymbolDetails is the instrument metadata the terminal's order ticket
// needs.
type SymbolDetails struct {
	QtyMin      float64 `json:"qtyMin"`
	QtyMax      float64 `json:"qtyMax"`
	QtyStep     float64 `json:"qtyStep"`
	QtyDefault  float64 `json:"qtyDefault"`
	PipSize     float64 `json:"pipSize"`
	PipValue    float64 `json:"pipValue"`
	MinTick     float64 `json:"minTick"`
	Description string  `json:"description"`
}

// Duration is one supported time-in-force option.
type Duration struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderTypeInfo is one supported order type option.
type OrderTypeInfo struct {
	ID   OrderType `json:"id"`
	Name string    `json:"name"`
}

// Host is the terminal-side callback surface the adapter pushes state
// into. The host's per-item update handling is idempotent per id.
type Host interface {
	ConnectionStatusUpdate(status ConnectionStatus)
	PositionUpdate(position Position)
	OrderUpdate(order Order)
	ShowNotification(title, message string, severity NotificationSeverity)
}
