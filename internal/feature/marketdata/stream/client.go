package stream

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"trading_bridge/internal/feature/marketdata/domain/entity"
)

// BarHandler receives a snapshot copy of the latest bar for a channel.
type BarHandler func(entity.Bar)

// channel is the unit of subscription multiplexing, identified by
// (symbol, resolution). Several subscribers may share one channel; the
// wire-level symbol subscription is shared across channels too.
type channel struct {
	symbol     string
	resolution entity.Resolution
	lastBar    *entity.Bar
	handlers   map[string]BarHandler
}

// Options configures a Client. Zero fields take production defaults.
type Options struct {
	URL                  string
	Dialer               Dialer
	Logger               *slog.Logger
	FlushInterval        time.Duration
	KeepaliveInterval    time.Duration
	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	MaxReconnectAttempts int
}

// Client owns the shared data hub connection. All channel state is
// confined to the run loop goroutine: public methods post closures onto
// the loop, so the maps need no locking (Go rendition of the original
// single-threaded event loop).
type Client struct {
	url  string
	dial Dialer
	log  *slog.Logger

	flushInterval     time.Duration
	keepaliveInterval time.Duration
	reconnectBase     time.Duration
	reconnectCap      time.Duration
	maxReconnects     int

	cmds chan func()
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	// Loop-owned state. Never touched outside the run goroutine.
	channels         map[string]*channel
	pending          map[string]entity.Bar
	conn             Conn
	connGen          int
	connecting       bool
	connectAttempt   int
	reconnectTimer   *time.Timer
	reconnectPending bool
}

// NewClient builds a client. Call Start before subscribing.
func NewClient(opts Options) *Client {
	c := &Client{
		url:               opts.URL,
		dial:              opts.Dialer,
		log:               opts.Logger,
		flushInterval:     opts.FlushInterval,
		keepaliveInterval: opts.KeepaliveInterval,
		reconnectBase:     opts.ReconnectBase,
		reconnectCap:      opts.ReconnectCap,
		maxReconnects:     opts.MaxReconnectAttempts,
		cmds:              make(chan func(), 64),
		quit:              make(chan struct{}),
		channels:          make(map[string]*channel),
		pending:           make(map[string]entity.Bar),
	}
	if c.dial == nil {
		c.dial = DialWebSocket
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.flushInterval <= 0 {
		c.flushInterval = defaultFlushInterval
	}
	if c.keepaliveInterval <= 0 {
		c.keepaliveInterval = defaultKeepaliveInterval
	}
	if c.reconnectBase <= 0 {
		c.reconnectBase = defaultReconnectBase
	}
	if c.reconnectCap <= 0 {
		c.reconnectCap = defaultReconnectCap
	}
	if c.maxReconnects <= 0 {
		c.maxReconnects = defaultMaxReconnects
	}
	return c
}

// Start launches the run loop.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.run()
}

// Close tears the client down: the socket is closed and the loop
// exits. Subscribers are not notified; Close is for process shutdown.
func (c *Client) Close() {
	c.once.Do(func() { close(c.quit) })
	c.wg.Wait()
}

// Subscribe registers a subscriber on the (symbol, resolution) channel,
// creating it if absent and seeding its last bar from lastBar when the
// channel has none yet. The shared transport is dialed on first use and
// a symbol-level subscribe frame is sent (idempotent on the hub side).
func (c *Client) Subscribe(symbol string, resolution entity.Resolution, subscriberID string, onBar BarHandler, lastBar *entity.Bar) {
	c.post(func() {
		key := channelKey(symbol, resolution)
		ch, ok := c.channels[key]
		if !ok {
			ch = &channel{
				symbol:     symbol,
				resolution: resolution,
				handlers:   make(map[string]BarHandler),
			}
			c.channels[key] = ch
		}
		ch.handlers[subscriberID] = onBar
		if lastBar != nil && ch.lastBar == nil {
			b := *lastBar
			ch.lastBar = &b
		}
		c.ensureConn()
		c.sendSubscribe(symbol)
	})
}

// Unsubscribe removes the subscriber from whichever channel holds it.
// An emptied channel is dropped; the symbol-level unsubscribe goes out
// only when no other channel references the symbol, and the transport
// is torn down when no channels remain at all.
func (c *Client) Unsubscribe(subscriberID string) {
	c.post(func() {
		for key, ch := range c.channels {
			if _, ok := ch.handlers[subscriberID]; !ok {
				continue
			}
			delete(ch.handlers, subscriberID)
			if len(ch.handlers) == 0 {
				symbol := ch.symbol
				delete(c.channels, key)
				delete(c.pending, key)
				if !c.symbolInUse(symbol) {
					c.sendUnsubscribe(symbol)
				}
			}
			break
		}
		if len(c.channels) == 0 {
			c.teardownTransport()
		}
	})
}

func (c *Client) post(fn func()) {
	select {
	case c.cmds <- fn:
	case <-c.quit:
	}
}

func (c *Client) run() {
	defer c.wg.Done()
	flush := time.NewTicker(c.flushInterval)
	defer flush.Stop()
	keepalive := time.NewTicker(c.keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-flush.C:
			c.flushPending()
		case <-keepalive.C:
			c.sendKeepalive()
		case <-c.quit:
			c.teardownTransport()
			return
		}
	}
}

// --- connection lifecycle ---

// ensureConn dials if there is no live or in-flight connection. The
// attempt counter resets here so a fresh Subscribe after a permanent
// reconnect give-up redials from scratch.
func (c *Client) ensureConn() {
	if c.conn != nil || c.connecting {
		return
	}
	c.connectAttempt = 0
	c.connect()
}

func (c *Client) connect() {
	c.detachConn()
	c.connecting = true
	gen := c.connGen
	c.log.Info("dialing data hub", "attempt", c.connectAttempt)
	go func() {
		conn, err := c.dial(c.url)
		c.post(func() { c.onDialResult(gen, conn, err) })
	}()
}

func (c *Client) onDialResult(gen int, conn Conn, err error) {
	if gen != c.connGen {
		// A teardown or redial raced the dial; discard the result.
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.connecting = false
	if err != nil {
		c.log.Warn("data hub dial failed", "error", err)
		c.scheduleReconnect()
		return
	}

	c.conn = conn
	c.connectAttempt = 0
	c.log.Info("data hub connected")

	// Re-issue one subscribe per distinct symbol across all channels.
	seen := make(map[string]struct{})
	for _, ch := range c.channels {
		if _, ok := seen[ch.symbol]; ok {
			continue
		}
		seen[ch.symbol] = struct{}{}
		c.sendSubscribe(ch.symbol)
	}

	c.wg.Add(1)
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn Conn, gen int) {
	defer c.wg.Done()
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.post(func() { c.onConnClosed(gen) })
			return
		}
		c.post(func() { c.onFrame(gen, data) })
	}
}

// onConnClosed handles an unexpected drop. Intentional closes bump the
// generation first, so their read-loop exit lands here as a stale
// generation and is ignored.
func (c *Client) onConnClosed(gen int) {
	if gen != c.connGen {
		return
	}
	c.log.Warn("data hub connection closed")
	c.conn = nil
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	if c.reconnectPending {
		return
	}
	if len(c.channels) == 0 {
		return
	}
	if c.connectAttempt >= c.maxReconnects {
		c.log.Error("max reconnect attempts reached, giving up", "attempts", c.connectAttempt)
		return
	}

	delay := c.backoffDelay(c.connectAttempt)
	c.log.Info("scheduling reconnect", "delay", delay, "attempt", c.connectAttempt+1)
	c.reconnectPending = true
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.post(func() {
			c.reconnectPending = false
			if len(c.channels) == 0 {
				return
			}
			c.connectAttempt++
			c.connect()
		})
	})
}

// backoffDelay is min(base * 2^attempt, cap).
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := c.reconnectBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.reconnectCap {
			return c.reconnectCap
		}
	}
	if d > c.reconnectCap {
		return c.reconnectCap
	}
	return d
}

// detachConn invalidates the current connection without triggering the
// reconnect path: bumping the generation makes the read loop's close
// notification stale.
func (c *Client) detachConn() {
	c.connGen++
	c.connecting = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) teardownTransport() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.reconnectPending = false
	c.detachConn()
	c.pending = make(map[string]entity.Bar)
}

// --- wire frames ---

type outFrame struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols,omitempty"`
}

type inFrame struct {
	Type string       `json:"type"`
	Data entity.Trade `json:"data"`
}

func (c *Client) sendSubscribe(symbol string) {
	c.write(outFrame{Type: "subscribe", Symbols: []string{symbol}})
}

func (c *Client) sendUnsubscribe(symbol string) {
	c.write(outFrame{Type: "unsubscribe", Symbols: []string{symbol}})
}

func (c *Client) sendKeepalive() {
	c.write(outFrame{Type: "ping"})
}

func (c *Client) write(f outFrame) {
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(f); err != nil {
		c.log.Warn("data hub write failed", "type", f.Type, "error", err)
	}
}

func (c *Client) onFrame(gen int, data []byte) {
	if gen != c.connGen {
		return
	}
	var f inFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	if f.Type != "trade" {
		return
	}
	c.handleTrade(f.Data)
}

// --- aggregation & delivery ---

// handleTrade folds one tick into every channel tracking its symbol.
// A trade at or past the next boundary opens a new bar in the
// slot-aligned interval containing it; otherwise it mutates the current
// bar. Either way the result is staged for the next flush.
func (c *Client) handleTrade(t entity.Trade) {
	for key, ch := range c.channels {
		if ch.symbol != t.Symbol || ch.lastBar == nil {
			continue
		}

		next := entity.NextBarTime(ch.lastBar.Time, ch.resolution)
		var bar entity.Bar
		if t.Timestamp >= next {
			bar = entity.NewBarFrom(t, entity.AlignBarTime(t.Timestamp, next, ch.resolution))
		} else {
			bar = ch.lastBar.Apply(t)
		}

		ch.lastBar = &bar
		c.pending[key] = bar
	}
}

// flushPending delivers at most one bar per channel per flush tick:
// every subscriber on an affected channel gets the latest staged bar,
// then the staging map is cleared.
func (c *Client) flushPending() {
	for key, bar := range c.pending {
		ch, ok := c.channels[key]
		if !ok {
			continue
		}
		for _, h := range ch.handlers {
			h(bar)
		}
	}
	clear(c.pending)
}

func (c *Client) symbolInUse(symbol string) bool {
	for _, ch := range c.channels {
		if ch.symbol == symbol {
			return true
		}
	}
	return false
}

func channelKey(symbol string, resolution entity.Resolution) string {
	return symbol + "_" + string(resolution)
}
