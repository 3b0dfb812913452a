package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/internal/apiclient"
	"storefront/internal/config"
	"storefront/internal/console"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/storefront"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// stdout belongs to the console.
	zapLogger, err := logger.NewStderr(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	client := apiclient.New(cfg.Client.APIBaseURL, cfg.Client.HTTPTimeout, zapLogger)

	view := storefront.NewView(client, client, zapLogger, storefront.Options{})
	view.Start()
	defer view.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("storefront started", zap.String("apiBaseUrl", cfg.Client.APIBaseURL), zap.Int("pageSize", storefront.DefaultPageSize))

	done := make(chan error, 1)
	go func() {
		done <- console.New(view, os.Stdin, os.Stdout, zapLogger).Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			zapLogger.Error("console stopped", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("received shutdown signal")
	}
}
