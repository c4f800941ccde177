package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_bridge/internal/feature/marketdata/domain/entity"
	"trading_bridge/internal/feature/marketdata/stream"
	"trading_bridge/internal/feature/marketdata/transport/handler"
)

type mockStreamer struct {
	mu            sync.Mutex
	subscribed    []string // symbol_resolution
	unsubscribed  []string // subscriber ids
	subscriberIDs []string
	handler       stream.BarHandler
}

func (m *mockStreamer) Subscribe(symbol string, resolution entity.Resolution, subscriberID string, onBar stream.BarHandler, lastBar *entity.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, symbol+"_"+string(resolution))
	m.subscriberIDs = append(m.subscriberIDs, subscriberID)
	m.handler = onBar
}

func (m *mockStreamer) Unsubscribe(subscriberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, subscriberID)
}

func (m *mockStreamer) pushBar(bar entity.Bar) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(bar)
	}
}

func (m *mockStreamer) snapshot() ([]string, []string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.subscribed...),
		append([]string(nil), m.subscriberIDs...),
		append([]string(nil), m.unsubscribed...)
}

func newBarsServer(t *testing.T, streamer *mockStreamer) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := handler.NewBarsHandler(streamer, nil)
	r := gin.New()
	r.GET("/ws/bars", h.Stream)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestBarsHandler_StreamsBars(t *testing.T) {
	streamer := &mockStreamer{}
	srv := newBarsServer(t, streamer)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/bars?symbol=NQ&resolution=5"), nil)
	require.NoError(t, err)
	defer func() { _ = ws.Close() }()

	require.Eventually(t, func() bool {
		subs, _, _ := streamer.snapshot()
		return len(subs) == 1
	}, time.Second, time.Millisecond)
	subs, ids, _ := streamer.snapshot()
	assert.Equal(t, []string{"NQ_5"}, subs)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0])

	streamer.pushBar(entity.Bar{Time: 1_700_000_000_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10})

	var bar entity.Bar
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, ws.ReadJSON(&bar))
	assert.Equal(t, int64(1_700_000_000_000), bar.Time)
	assert.Equal(t, 1.5, bar.Close)
}

func TestBarsHandler_UnsubscribesOnClose(t *testing.T) {
	streamer := &mockStreamer{}
	srv := newBarsServer(t, streamer)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/bars?symbol=ES&resolution=1"), nil)
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		_, _, unsubs := streamer.snapshot()
		return len(unsubs) == 1
	}, time.Second, time.Millisecond)

	_, ids, unsubs := streamer.snapshot()
	assert.Equal(t, ids, unsubs, "the same subscriber id must be unsubscribed")
}

func TestBarsHandler_RejectsBadRequests(t *testing.T) {
	streamer := &mockStreamer{}
	srv := newBarsServer(t, streamer)

	tests := []struct {
		name string
		path string
	}{
		{"missing symbol", "/ws/bars"},
		{"unsupported resolution", "/ws/bars?symbol=NQ&resolution=7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			subs, _, _ := streamer.snapshot()
			assert.Empty(t, subs, "no subscription on rejected request")
		})
	}
}
