package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	redisv9 "github.com/redis/go-redis/v9"

	"trading_bridge/internal/app/router"
	accountsadapters "trading_bridge/internal/feature/accounts/adapters"
	accountshandler "trading_bridge/internal/feature/accounts/transport/handler"
	accountsusecase "trading_bridge/internal/feature/accounts/usecase"
	"trading_bridge/internal/feature/marketdata/stream"
	barshandler "trading_bridge/internal/feature/marketdata/transport/handler"
	"trading_bridge/internal/platform/cache"
	"trading_bridge/internal/platform/config"
	platformredis "trading_bridge/internal/platform/redis"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Redis is optional: without it the account cache simply starts
	// cold after a restart.
	var rdb *redisv9.Client
	if cfg.RedisHost == "" {
		log.Println("[WARN] REDIS_HOST not set. Running without warm-start snapshots.")
	} else if tmp, err := platformredis.NewRedisClient(cfg); err != nil {
		log.Println("[WARN] Redis unavailable. Running without warm-start snapshots:", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	getToken := func() string { return cfg.BackendAPIToken }
	if cfg.BackendAPIToken == "" {
		log.Println("[WARN] BACKEND_API_TOKEN is not set. Upstream calls will be unauthenticated.")
	}

	// Accounts: REST client + snapshot store + cache manager.
	brokersAPI := accountsadapters.NewRestBrokerAPI(cfg.BackendAPIURL, getToken)
	snapshots := cache.NewAccountSnapshotStore(rdb, 0, "")
	accounts := accountsusecase.NewManager(brokersAPI, snapshots, logger)
	accounts.WarmStart(context.Background())

	// Market data: shared tick stream with bar aggregation.
	ticks := stream.NewClient(stream.Options{
		URL:    stream.HubURL(cfg.DataHubURL, cfg.DataHubAPIKey),
		Logger: logger,
	})
	ticks.Start()
	defer ticks.Close()

	// Handlers
	barsH := barshandler.NewBarsHandler(ticks, logger)
	accountsH := accountshandler.NewAccountsHandler(accounts)

	r := router.NewRouter(barsH, accountsH)

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
