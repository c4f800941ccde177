// Package stream implements the market data streaming client: one
// shared connection to the data hub multiplexing any number of
// (symbol, resolution) subscriptions, aggregating raw trade ticks into
// OHLCV bars and delivering them to subscribers in batched flushes.
package stream

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the minimal surface of the underlying socket the client
// needs. Defined here, on the consumer side, so tests can substitute a
// scripted connection.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer opens a connection to the data hub.
type Dialer func(url string) (Conn, error)

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error {
	return w.conn.WriteJSON(v)
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.conn.ReadMessage()
	return data, err
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}

// DialWebSocket is the production Dialer, backed by gorilla/websocket.
func DialWebSocket(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{})
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

var _ Dialer = DialWebSocket

// HubURL derives the hub's websocket endpoint from its HTTP base URL,
// appending the API key when one is configured.
func HubURL(baseURL, apiKey string) string {
	u := baseURL
	if strings.HasPrefix(u, "http") {
		u = "ws" + strings.TrimPrefix(u, "http")
	}
	u = strings.TrimSuffix(u, "/") + "/ws"
	if apiKey != "" {
		u += "?api_key=" + apiKey
	}
	return u
}

const (
	defaultFlushInterval     = 100 * time.Millisecond
	defaultKeepaliveInterval = 30 * time.Second
	defaultReconnectBase     = time.Second
	defaultReconnectCap      = 30 * time.Second
	defaultMaxReconnects     = 20
)
