// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"ctf-portal/internal/app"
	"ctf-portal/internal/config"
	"ctf-portal/internal/logging"
	"ctf-portal/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := app.OpenProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	srv := server.New(cfg, provider, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("portal stopped", zap.Error(err))
		return err
	}
	return nil
}
