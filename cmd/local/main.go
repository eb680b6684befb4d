package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"kinobot/internal/app"
	"kinobot/internal/config"
	"kinobot/internal/logger"
)

// Local runner: always long-polls, whatever WEBHOOK_URL says, with a console logger.
func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			fmt.Fprintln(os.Stderr, "❌ Bot tokeni topilmadi! .env faylida TELEGRAM_BOT_TOKEN ni ko'rsating")
		} else {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}
	cfg.WebhookURL = ""
	if cfg.Env == "production" {
		cfg.Env = "development"
	}

	log, err := logger.New(logger.Config{Service: "kinobot-local", Env: cfg.Env})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Errorw("startup failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if err := a.Run(ctx); err != nil {
		log.Errorw("polling stopped with error", "err", err)
	}
}
