// Package handler exposes the market data stream over this service's
// own websocket surface.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trading_bridge/internal/feature/marketdata/domain/entity"
	"trading_bridge/internal/feature/marketdata/stream"
)

// BarStreamer is the slice of the streaming client this handler needs.
type BarStreamer interface {
	Subscribe(symbol string, resolution entity.Resolution, subscriberID string, onBar stream.BarHandler, lastBar *entity.Bar)
	Unsubscribe(subscriberID string)
}

// BarsHandler bridges websocket clients to the streaming client: one
// subscriber per socket, identified by a fresh uuid.
type BarsHandler struct {
	streamer BarStreamer
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewBarsHandler creates a new BarsHandler.
func NewBarsHandler(streamer BarStreamer, log *slog.Logger) *BarsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BarsHandler{
		streamer: streamer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Stream upgrades the request and pushes aggregated bars until the
// client goes away.
//
// GET /ws/bars?symbol=NQ&resolution=5
func (h *BarsHandler) Stream(c *gin.Context) {
	symbol := c.Query("symbol")
	resolution := entity.Resolution(c.DefaultQuery("resolution", "1"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if !resolution.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported resolution"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	subscriberID := uuid.NewString()
	bars := make(chan entity.Bar, 16)
	h.streamer.Subscribe(symbol, resolution, subscriberID, func(bar entity.Bar) {
		select {
		case bars <- bar:
		default:
			// Slow consumer: drop rather than stall the flush loop.
		}
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.streamer.Unsubscribe(subscriberID)
		_ = ws.Close()
	}()

	for {
		select {
		case bar := <-bars:
			if err := ws.WriteJSON(bar); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
