package terminal

import "strings"

// MapOrderStatus converts a backend order status string to the
// terminal enum. Unknown strings map to Working, so an order in a
// status this table does not know stays visible as live instead of
// vanishing from the order list.
func MapOrderStatus(status string) OrderStatus {
	switch strings.ToLower(status) {
	case "canceled", "cancelled", "expired":
		return OrderStatusCanceled
	case "filled":
		return OrderStatusFilled
	case "inactive", "suspended":
		return OrderStatusInactive
	case "placing", "pending", "pendingnew", "pendingsubmit", "pending_submit", "presubmitted":
		return OrderStatusPlacing
	case "rejected":
		return OrderStatusRejected
	default:
		return OrderStatusWorking
	}
}

// MapOrderType converts a backend order type string to the terminal
// enum. Unknown strings map to Market.
func MapOrderType(orderType string) OrderType {
	switch normalizeToken(orderType) {
	case "limit", "lmt":
		return OrderTypeLimit
	case "stop", "stp", "stopmarket":
		return OrderTypeStop
	case "stoplimit", "stplmt":
		return OrderTypeStopLimit
	default:
		return OrderTypeMarket
	}
}

// BackendString returns the backend's order type token.
func (t OrderType) BackendString() string {
	switch t {
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStop:
		return "STOP"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "MARKET"
	}
}

// MapSide converts a backend side value, which may arrive as a string
// token or a signed number, to the terminal enum. Unrecognized values
// default to buy.
func MapSide(v any) Side {
	switch s := v.(type) {
	case string:
		switch strings.ToLower(s) {
		case "sell", "short", "-1":
			return SideSell
		default:
			return SideBuy
		}
	case float64:
		if s < 0 {
			return SideSell
		}
		return SideBuy
	case int:
		if s < 0 {
			return SideSell
		}
		return SideBuy
	default:
		return SideBuy
	}
}

// BackendString returns the backend's side token.
func (s Side) BackendString() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// MapConnectionState converts a backend connection state string to the
// terminal enum. The backend reports several intermediate states while
// a broker session is being established; all of them present as
// Connecting to the terminal. Anything unrecognized presents as
// Disconnected rather than leaving the host spinning.
func MapConnectionState(state string) ConnectionStatus {
	switch normalizeToken(state) {
	case "connected", "authenticated", "ready":
		return ConnectionConnected
	case "connecting", "reconnecting", "validatinguser", "checkingsubscription",
		"checkingbrokeraccess", "connectingtobroker", "authenticating":
		return ConnectionConnecting
	case "error", "failed", "authfailed":
		return ConnectionError
	default:
		return ConnectionDisconnected
	}
}

// normalizeToken lowercases and strips separators so MARKET, Market,
// stop_limit and stop-limit all compare equal.
func normalizeToken(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
