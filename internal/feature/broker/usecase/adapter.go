package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trading_bridge/internal/feature/broker/domain/terminal"
	"trading_bridge/internal/feature/symbols"
	platformhttp "trading_bridge/internal/platform/http"
)

// defaultSettleDelay is how long after construction the adapter waits
// before reporting Connected, giving the feed's initial burst of
// snapshots time to land.
const defaultSettleDelay = 500 * time.Millisecond

// Config binds an Adapter to one account.
type Config struct {
	BrokerID    string
	AccountID   string
	SettleDelay time.Duration

	// OnOrderPlaced is invoked after a successful placement, with the
	// backend order id and the payload that was sent. Optional.
	OnOrderPlaced func(orderID string, req PlaceOrderRequest)
	// OnError is invoked for every failed command. Optional.
	OnError func(err error)

	Logger *slog.Logger
}

// Adapter implements the terminal's broker API for one account. Reads
// are served from the shared account feed; writes go to the backend
// REST API. On every feed event the adapter rebuilds the affected
// snapshot from the feed and republishes it to the host, relying on
// the host's per-id idempotence instead of tracking deltas.
type Adapter struct {
	host    terminal.Host
	feed    AccountFeed
	orders  OrderAPI
	tickers *symbols.Tickers
	cfg     Config
	log     *slog.Logger

	mu          sync.Mutex
	accountName string
	summary     terminal.AccountSummary

	listeners   []listenerHandle
	settleTimer *time.Timer
}

type listenerHandle struct {
	event string
	id    int
}

// NewAdapter registers feed listeners and reports Connecting; the
// status flips to Connected after SettleDelay unless the feed reports
// a connection state first.
func NewAdapter(host terminal.Host, feed AccountFeed, orders OrderAPI, tickers *symbols.Tickers, cfg Config) *Adapter {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	a := &Adapter{
		host:    host,
		feed:    feed,
		orders:  orders,
		tickers: tickers,
		cfg:     cfg,
		log:     cfg.Logger.With("broker", cfg.BrokerID, "account", cfg.AccountID),
	}

	a.listen(FeedEventAccountUpdate, a.onAccountUpdate)
	a.listen(FeedEventPositionUpdate, a.onPositionUpdate)
	a.listen(FeedEventOrderUpdate, a.onOrderUpdate)
	a.listen(FeedEventConnectionState, a.onConnectionState)

	a.refreshAccount()
	a.host.ConnectionStatusUpdate(terminal.ConnectionConnecting)
	a.settleTimer = time.AfterFunc(cfg.SettleDelay, func() {
		a.host.ConnectionStatusUpdate(terminal.ConnectionConnected)
	})
	return a
}

// Destroy unregisters the adapter from the feed and reports
// Disconnected. The adapter must not be used afterwards.
func (a *Adapter) Destroy() {
	a.settleTimer.Stop()
	for _, l := range a.listeners {
		a.feed.RemoveListener(l.event, l.id)
	}
	a.listeners = nil
	a.host.ConnectionStatusUpdate(terminal.ConnectionDisconnected)
}

func (a *Adapter) listen(event string, handler func(FeedEvent)) {
	id := a.feed.On(event, func(ev FeedEvent) {
		if !a.matches(ev) {
			return
		}
		handler(ev)
	})
	a.listeners = append(a.listeners, listenerHandle{event: event, id: id})
}

func (a *Adapter) matches(ev FeedEvent) bool {
	if ev.AccountID != a.cfg.AccountID {
		return false
	}
	return ev.BrokerID == "" || ev.BrokerID == a.cfg.BrokerID
}

func (a *Adapter) onAccountUpdate(FeedEvent) {
	a.refreshAccount()
}

func (a *Adapter) onPositionUpdate(ev FeedEvent) {
	a.refreshAccount()

	for _, pos := range a.Positions() {
		a.host.PositionUpdate(pos)
	}

	// A position that went flat disappears from the feed snapshot, so
	// the republish above never mentions it. Forward the triggering
	// payload with qty 0 so the host drops it.
	if ev.Position == nil {
		return
	}
	pos, err := toTerminalPosition(ev.Position, a.tickers)
	if err != nil {
		a.log.Warn("undecodable position payload", "error", err)
		return
	}
	if pos.Qty == 0 && pos.ID != "" {
		a.host.PositionUpdate(pos)
	}
}

func (a *Adapter) onOrderUpdate(FeedEvent) {
	for _, order := range a.allOrders() {
		a.host.OrderUpdate(order)
	}
}

func (a *Adapter) onConnectionState(ev FeedEvent) {
	status := terminal.MapConnectionState(ev.State)
	if status == terminal.ConnectionConnected {
		a.settleTimer.Stop()
	}
	a.host.ConnectionStatusUpdate(status)
}

func (a *Adapter) refreshAccount() {
	raw, ok := a.feed.AccountData(a.cfg.BrokerID, a.cfg.AccountID)
	if !ok {
		return
	}
	summary, name, err := toAccountSummary(raw)
	if err != nil {
		a.log.Warn("undecodable account payload", "error", err)
		return
	}
	a.mu.Lock()
	a.summary = summary
	if name != "" {
		a.accountName = name
	}
	a.mu.Unlock()
}

// Accounts returns the single bound account.
func (a *Adapter) Accounts() []terminal.AccountMetainfo {
	a.mu.Lock()
	name := a.accountName
	a.mu.Unlock()
	if name == "" {
		name = "Trading Account"
	}
	return []terminal.AccountMetainfo{{ID: a.cfg.AccountID, Name: name, Currency: "USD"}}
}

// AccountInfo returns the latest balance, open P&L and equity.
func (a *Adapter) AccountInfo() terminal.AccountSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.summary
}

// Positions returns the open positions. Flat entries are filtered out.
func (a *Adapter) Positions() []terminal.Position {
	raws := a.feed.Positions(a.cfg.BrokerID, a.cfg.AccountID)
	out := make([]terminal.Position, 0, len(raws))
	for _, raw := range raws {
		pos, err := toTerminalPosition(raw, a.tickers)
		if err != nil {
			a.log.Warn("undecodable position payload", "error", err)
			continue
		}
		if pos.Qty == 0 {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// Orders returns the orders still open for interaction, i.e. those in
// Working or Placing status.
func (a *Adapter) Orders() []terminal.Order {
	var out []terminal.Order
	for _, order := range a.allOrders() {
		if order.Status == terminal.OrderStatusWorking || order.Status == terminal.OrderStatusPlacing {
			out = append(out, order)
		}
	}
	return out
}

func (a *Adapter) allOrders() []terminal.Order {
	raws := a.feed.Orders(a.cfg.BrokerID, a.cfg.AccountID)
	out := make([]terminal.Order, 0, len(raws))
	for _, raw := range raws {
		order, err := toTerminalOrder(raw, a.tickers)
		if err != nil {
			a.log.Warn("undecodable order payload", "error", err)
			continue
		}
		out = append(out, order)
	}
	return out
}

// SymbolInfo returns the order ticket metadata for a display symbol.
func (a *Adapter) SymbolInfo(symbol string) terminal.SymbolDetails {
	c := symbols.Lookup(symbol)
	tick := c.TickSize()
	return terminal.SymbolDetails{
		QtyMin:      1,
		QtyMax:      1000,
		QtyStep:     1,
		QtyDefault:  1,
		PipSize:     tick,
		PipValue:    tick * c.PointValue,
		MinTick:     tick,
		Description: c.Description,
	}
}

// Durations lists the supported time-in-force options.
func (a *Adapter) Durations() []terminal.Duration {
	return []terminal.Duration{
		{Name: "GTC", Value: "GTC"},
		{Name: "DAY", Value: "DAY"},
	}
}

// OrderTypes lists the supported order types.
func (a *Adapter) OrderTypes() []terminal.OrderTypeInfo {
	return []terminal.OrderTypeInfo{
		{ID: terminal.OrderTypeMarket, Name: "Market"},
		{ID: terminal.OrderTypeLimit, Name: "Limit"},
		{ID: terminal.OrderTypeStop, Name: "Stop"},
		{ID: terminal.OrderTypeStopLimit, Name: "Stop Limit"},
	}
}

// PlaceOrder submits a discretionary order and returns the backend
// order id.
func (a *Adapter) PlaceOrder(ctx context.Context, pre terminal.PreOrder) (string, error) {
	req := PlaceOrderRequest{
		Symbol:   a.tickers.Contract(pre.Symbol),
		Side:     pre.Side.BackendString(),
		Quantity: pre.Qty,
		Type:     pre.Type.BackendString(),
	}
	if pre.Type == terminal.OrderTypeLimit || pre.Type == terminal.OrderTypeStopLimit {
		req.Price = pre.LimitPrice
	}
	if pre.Type == terminal.OrderTypeStop || pre.Type == terminal.OrderTypeStopLimit {
		req.StopPrice = pre.StopPrice
	}

	orderID, err := a.orders.PlaceOrder(ctx, a.cfg.AccountID, req)
	if err != nil {
		return "", a.commandFailed("Order Failed", err)
	}
	a.host.ShowNotification("Order Placed",
		fmt.Sprintf("%s %g %s", sideWord(pre.Side), pre.Qty, pre.Symbol),
		terminal.NotifySuccess)
	if a.cfg.OnOrderPlaced != nil {
		a.cfg.OnOrderPlaced(orderID, req)
	}
	return orderID, nil
}

// ModifyOrder updates an open order's quantity and prices. The order
// type is always sent so the backend knows which price fields apply.
func (a *Adapter) ModifyOrder(ctx context.Context, order terminal.Order) error {
	req := ModifyOrderRequest{
		OrderType:   order.Type.BackendString(),
		IsAutomated: false,
	}
	if order.Qty > 0 {
		qty := order.Qty
		req.Qty = &qty
	}
	if order.LimitPrice > 0 {
		limit := order.LimitPrice
		req.LimitPrice = &limit
	}
	if order.StopPrice > 0 {
		stop := order.StopPrice
		req.StopPrice = &stop
	}

	if err := a.orders.ModifyOrder(ctx, a.cfg.AccountID, order.ID, req); err != nil {
		return a.commandFailed("Order Modification Failed", err)
	}
	a.host.ShowNotification("Order Modified", order.Symbol, terminal.NotifySuccess)
	return nil
}

// CancelOrder cancels an open order.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	if err := a.orders.CancelOrder(ctx, a.cfg.AccountID, orderID); err != nil {
		return a.commandFailed("Cancel Failed", err)
	}
	a.host.ShowNotification("Order Canceled", "Order "+orderID+" canceled", terminal.NotifySuccess)
	return nil
}

// ClosePosition flattens a position at market.
func (a *Adapter) ClosePosition(ctx context.Context, positionID string) error {
	if err := a.orders.ClosePosition(ctx, a.cfg.AccountID, positionID); err != nil {
		return a.commandFailed("Close Failed", err)
	}
	a.host.ShowNotification("Position Closed", "Position "+positionID+" closed", terminal.NotifySuccess)
	return nil
}

// ReversePosition flips a position to the opposite side at market.
func (a *Adapter) ReversePosition(ctx context.Context, positionID string) error {
	if err := a.orders.ReversePosition(ctx, a.cfg.AccountID, positionID); err != nil {
		return a.commandFailed("Reverse Failed", err)
	}
	a.host.ShowNotification("Position Reversed", "Position "+positionID+" reversed", terminal.NotifySuccess)
	return nil
}

// commandFailed surfaces a backend error to the terminal, preferring
// the server's detail message when one was returned.
func (a *Adapter) commandFailed(title string, err error) error {
	a.host.ShowNotification(title, errorDetail(err), terminal.NotifyError)
	if a.cfg.OnError != nil {
		a.cfg.OnError(err)
	}
	a.log.Error("broker command failed", "title", title, "error", err)
	return err
}

func errorDetail(err error) string {
	var apiErr *platformhttp.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

func sideWord(s terminal.Side) string {
	if s == terminal.SideSell {
		return "Sell"
	}
	return "Buy"
}
