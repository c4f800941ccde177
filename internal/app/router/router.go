package router

import (
	"github.com/gin-gonic/gin"

	accountshandler "trading_bridge/internal/feature/accounts/transport/handler"
	barshandler "trading_bridge/internal/feature/marketdata/transport/handler"
	"trading_bridge/internal/platform/http/handler"
)

func NewRouter(bars *barshandler.BarsHandler, accounts *accountshandler.AccountsHandler) *gin.Engine {
	r := gin.Default()

	// Liveness probe.
	r.GET("/healthz", handler.Health)

	// Aggregated bar stream for chart consumers.
	r.GET("/ws/bars", bars.Stream)

	api := r.Group("/api/v1")
	{
		api.GET("/accounts", accounts.List)
		api.PATCH("/accounts/:id", accounts.Rename)
		api.DELETE("/accounts/:id", accounts.Remove)
	}

	return r
}
