package adapters

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trading_bridge/internal/feature/broker/usecase"
)

const (
	feedKeepaliveInterval = 30 * time.Second
	feedBackoffBase       = time.Second
	feedBackoffCap        = 30 * time.Second
)

// FeedConn is the minimal websocket surface the feed needs.
type FeedConn interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// FeedDialer opens a FeedConn to the given URL.
type FeedDialer func(url string) (FeedConn, error)

type feedWSConn struct {
	ws *websocket.Conn
}

func (c *feedWSConn) WriteJSON(v any) error { return c.ws.WriteJSON(v) }

func (c *feedWSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *feedWSConn) Close() error { return c.ws.Close() }

// DialFeed opens a gorilla websocket connection.
func DialFeed(rawURL string) (FeedConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(rawURL, nil)
	if err != nil {
		return nil, err
	}
	return &feedWSConn{ws: ws}, nil
}

// FeedURL builds the user-data stream URL for one account.
func FeedURL(baseURL, brokerID, accountID, token string) string {
	u := baseURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.TrimRight(u, "/")
	return u + "/api/v1/ws/" + brokerID + "/" + accountID + "?token=" + url.QueryEscape(token)
}

// WSFeed implements usecase.AccountFeed over per-account websocket
// connections to the backend's user-data stream. Incoming items are
// merged into keyed caches so accessors always return the latest known
// state; every update also fans out to registered listeners.
type WSFeed struct {
	dial        FeedDialer
	baseURL     string
	getToken    TokenGetter
	log         *slog.Logger
	backoffBase time.Duration

	mu        sync.Mutex
	accounts  map[string]map[string]any // brokerID:accountID
	positions map[string]map[string]any // brokerID:accountID:itemID
	orders    map[string]map[string]any // brokerID:accountID:itemID
	conns     map[string]chan struct{}  // stop channel per connection
	listeners map[string]map[int]func(usecase.FeedEvent)
	nextID    int
	wg        sync.WaitGroup
}

// Compile-time check against the adapter's port.
var _ usecase.AccountFeed = (*WSFeed)(nil)

// FeedOptions configures a WSFeed.
type FeedOptions struct {
	BaseURL       string
	GetToken      TokenGetter
	Dialer        FeedDialer
	Logger        *slog.Logger
	ReconnectBase time.Duration
}

// NewWSFeed creates a feed. No connections are opened until Connect.
func NewWSFeed(opts FeedOptions) *WSFeed {
	if opts.Dialer == nil {
		opts.Dialer = DialFeed
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = feedBackoffBase
	}
	return &WSFeed{
		dial:        opts.Dialer,
		baseURL:     opts.BaseURL,
		getToken:    opts.GetToken,
		log:         opts.Logger,
		backoffBase: opts.ReconnectBase,
		accounts:    make(map[string]map[string]any),
		positions:   make(map[string]map[string]any),
		orders:      make(map[string]map[string]any),
		conns:       make(map[string]chan struct{}),
		listeners:   make(map[string]map[int]func(usecase.FeedEvent)),
	}
}

func connKey(brokerID, accountID string) string { return brokerID + ":" + accountID }

// Connect opens (or keeps) the stream for one account. The connection
// is maintained with exponential backoff until Disconnect or Close.
func (f *WSFeed) Connect(brokerID, accountID string) {
	key := connKey(brokerID, accountID)
	f.mu.Lock()
	if _, ok := f.conns[key]; ok {
		f.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	f.conns[key] = stop
	f.mu.Unlock()

	f.wg.Add(1)
	go f.maintain(brokerID, accountID, stop)
}

// Disconnect closes the stream for one account. Cached data for the
// account is kept so accessors stay serviceable.
func (f *WSFeed) Disconnect(brokerID, accountID string) {
	key := connKey(brokerID, accountID)
	f.mu.Lock()
	stop, ok := f.conns[key]
	if ok {
		delete(f.conns, key)
	}
	f.mu.Unlock()
	if ok {
		close(stop)
	}
}

// Close shuts down every connection and waits for the read loops.
func (f *WSFeed) Close() {
	f.mu.Lock()
	for key, stop := range f.conns {
		close(stop)
		delete(f.conns, key)
	}
	f.mu.Unlock()
	f.wg.Wait()
}

func (f *WSFeed) maintain(brokerID, accountID string, stop chan struct{}) {
	defer f.wg.Done()
	log := f.log.With("broker", brokerID, "account", accountID)
	backoff := f.backoffBase

	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, err := f.dial(FeedURL(f.baseURL, brokerID, accountID, f.getToken()))
		if err != nil {
			log.Warn("user-data stream dial failed", "error", err)
			f.emitState(brokerID, accountID, "error")
			if !sleepOrStop(backoff, stop) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = f.backoffBase
		f.emitState(brokerID, accountID, "connected")

		f.readUntilClosed(brokerID, accountID, conn, stop)
		_ = conn.Close()
		f.emitState(brokerID, accountID, "disconnected")

		if !sleepOrStop(backoff, stop) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// readUntilClosed pumps messages until the connection drops or stop
// closes, keeping a keepalive ping going in the background.
func (f *WSFeed) readUntilClosed(brokerID, accountID string, conn FeedConn, stop chan struct{}) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(feedKeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = conn.WriteJSON(map[string]string{"type": "ping"})
			case <-done:
				return
			case <-stop:
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f.handleMessage(brokerID, accountID, data)
	}
}

type feedFrame struct {
	Type  string         `json:"type"`
	State string         `json:"state"`
	Data  map[string]any `json:"data"`
}

func (f *WSFeed) handleMessage(brokerID, accountID string, raw []byte) {
	var frame feedFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		f.log.Warn("unparseable user-data frame", "error", err)
		return
	}

	switch frame.Type {
	case "account_update":
		f.mergeAccount(brokerID, accountID, frame.Data)
	case "position_update":
		f.mergePosition(brokerID, accountID, frame.Data)
	case "order_update":
		f.mergeOrder(brokerID, accountID, frame.Data)
	case "user_data":
		f.handleSync(brokerID, accountID, frame.Data)
	case "connection_state":
		f.emitState(brokerID, accountID, frame.State)
	case "pong":
	default:
		// Unknown frame types are forwarded nowhere; the protocol may
		// grow without breaking older consumers.
	}
}

// handleSync processes the initial snapshot sent right after connect:
// full account, position and order lists.
func (f *WSFeed) handleSync(brokerID, accountID string, data map[string]any) {
	if data == nil {
		return
	}
	for _, item := range itemList(data["accounts"]) {
		f.mergeAccount(brokerID, accountID, item)
	}
	for _, item := range itemList(data["positions"]) {
		f.mergePosition(brokerID, accountID, item)
	}
	for _, item := range itemList(data["orders"]) {
		f.mergeOrder(brokerID, accountID, item)
	}
}

func itemList(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *WSFeed) mergeAccount(brokerID, accountID string, data map[string]any) {
	if data == nil {
		return
	}
	key := connKey(brokerID, accountID)
	f.mu.Lock()
	merged := mergeInto(f.accounts[key], data)
	f.accounts[key] = merged
	f.mu.Unlock()

	f.emit(usecase.FeedEventAccountUpdate, usecase.FeedEvent{
		BrokerID: brokerID, AccountID: accountID, Type: "update",
	})
}

func (f *WSFeed) mergePosition(brokerID, accountID string, data map[string]any) {
	itemID := itemIdentity(data, "positionId", "contractId", "symbol")
	if itemID == "" {
		return
	}
	key := connKey(brokerID, accountID) + ":" + itemID
	f.mu.Lock()
	merged := mergeInto(f.positions[key], data)
	f.positions[key] = merged
	f.mu.Unlock()

	evType := "update"
	if qty, ok := merged["netPos"]; ok && isZeroNumber(qty) {
		evType = "closed"
	}
	f.emit(usecase.FeedEventPositionUpdate, usecase.FeedEvent{
		BrokerID: brokerID, AccountID: accountID, Type: evType, Position: merged,
	})
}

func (f *WSFeed) mergeOrder(brokerID, accountID string, data map[string]any) {
	itemID := itemIdentity(data, "orderId", "id")
	if itemID == "" {
		return
	}
	key := connKey(brokerID, accountID) + ":" + itemID
	f.mu.Lock()
	f.orders[key] = mergeInto(f.orders[key], data)
	f.mu.Unlock()

	f.emit(usecase.FeedEventOrderUpdate, usecase.FeedEvent{
		BrokerID: brokerID, AccountID: accountID, Type: "update",
	})
}

// itemIdentity returns the first present identity field, stringified.
func itemIdentity(data map[string]any, fields ...string) string {
	for _, field := range fields {
		if v, ok := data[field]; ok && v != nil {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}
	return ""
}

func isZeroNumber(v any) bool {
	n, ok := v.(float64)
	return ok && n == 0
}

// mergeInto overlays data onto current, returning a fresh map so
// accessors never observe a half-written merge.
func mergeInto(current, data map[string]any) map[string]any {
	merged := make(map[string]any, len(current)+len(data))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

// AccountData returns the merged account payload for one account.
func (f *WSFeed) AccountData(brokerID, accountID string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[connKey(brokerID, accountID)]
	return data, ok
}

// Positions returns the cached position payloads for one account.
func (f *WSFeed) Positions(brokerID, accountID string) []map[string]any {
	return f.items(f.positions, brokerID, accountID)
}

// Orders returns the cached order payloads for one account.
func (f *WSFeed) Orders(brokerID, accountID string) []map[string]any {
	return f.items(f.orders, brokerID, accountID)
}

func (f *WSFeed) items(cache map[string]map[string]any, brokerID, accountID string) []map[string]any {
	prefix := connKey(brokerID, accountID) + ":"
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for key, item := range cache {
		if strings.HasPrefix(key, prefix) {
			out = append(out, item)
		}
	}
	return out
}

// On registers a listener and returns its id for RemoveListener.
func (f *WSFeed) On(event string, handler func(usecase.FeedEvent)) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if f.listeners[event] == nil {
		f.listeners[event] = make(map[int]func(usecase.FeedEvent))
	}
	f.listeners[event][f.nextID] = handler
	return f.nextID
}

// RemoveListener drops a previously registered listener.
func (f *WSFeed) RemoveListener(event string, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners[event], id)
}

func (f *WSFeed) emit(event string, ev usecase.FeedEvent) {
	f.mu.Lock()
	handlers := make([]func(usecase.FeedEvent), 0, len(f.listeners[event]))
	for _, h := range f.listeners[event] {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *WSFeed) emitState(brokerID, accountID, state string) {
	f.emit(usecase.FeedEventConnectionState, usecase.FeedEvent{
		BrokerID: brokerID, AccountID: accountID, State: state,
	})
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > feedBackoffCap {
		return feedBackoffCap
	}
	return d
}

// sleepOrStop waits for d, returning false if stop closed first.
func sleepOrStop(d time.Duration, stop chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}
