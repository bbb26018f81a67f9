package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/infrastructure/redis"
	"storefront/internal/metrics"
	"storefront/internal/order"
	"storefront/internal/product"
	"storefront/internal/server"
	"storefront/internal/settings"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	db, err := mysql.NewConnection(startCtx, cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	zapLogger.Info("database connected")

	if cfg.Database.EnsureSchema {
		if err := mysql.EnsureSchema(startCtx, db); err != nil {
			zapLogger.Fatal("ensuring schema", zap.Error(err))
		}
		zapLogger.Info("schema ensured")
	}

	redisClient, err := redis.New(startCtx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	zapLogger.Info("redis connected")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(reg)

	productCtrl := product.NewModule(db, zapLogger)
	settingsCtrl, settingsSvc := settings.NewModule(db, zapLogger)
	orderCtrl := order.NewModule(db, cfg, settingsSvc, appMetrics, zapLogger)

	router := server.NewRouter(server.RouterDeps{
		Orders:         orderCtrl,
		Products:       productCtrl,
		Settings:       settingsCtrl,
		Idempotency:    redisClient,
		IdempotencyTTL: cfg.Idempotency.TTL,
		Observer:       appMetrics,
		Gatherer:       reg,
		Checks: map[string]server.Pinger{
			"mysql": db,
			"redis": server.PingerFunc(redisClient.Ping),
		},
	}, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := multierr.Combine(
		srv.Shutdown(ctx),
		redisClient.Close(),
		db.Close(),
	); err != nil {
		zapLogger.Error("shutdown finished with errors", zap.Error(err))
		return
	}

	zapLogger.Info("server stopped gracefully")
}
