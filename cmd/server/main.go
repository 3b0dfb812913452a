package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/dto"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/mysql"
	"storefront/internal/infrastructure/redis"
	"storefront/internal/order"
	"storefront/internal/product"
	"storefront/internal/product/cache"
	"storefront/internal/server"
)

type catalogCache interface {
	Key(ctx context.Context, search string, page, size int) (string, error)
	Get(ctx context.Context, key string) (*dto.ProductPage, error)
	Set(ctx context.Context, key string, page *dto.ProductPage) error
	Invalidate(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mysql.EnsureSchema(schemaCtx, db); err != nil {
		cancelSchema()
		zapLogger.Fatal("ensuring schema", zap.Error(err))
	}
	cancelSchema()

	var pageCache catalogCache = cache.NoopPageCache{}
	redisClient, err := redis.NewClient(cfg.Redis)
	switch {
	case err != nil:
		zapLogger.Warn("redis unavailable, catalog cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	case redisClient != nil:
		defer redisClient.Close()
		pageCache = cache.NewRedisPageCache(redisClient, cfg.Catalog.CacheTTL)
		zapLogger.Info("catalog cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Catalog.CacheTTL))
	}

	productCtrl := product.NewModule(db, pageCache, zapLogger)
	orderCtrl := order.NewModule(db, cfg, pageCache, zapLogger)

	router := server.NewRouter(productCtrl, orderCtrl, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	if err := srv.Shutdown(context.Background()); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
