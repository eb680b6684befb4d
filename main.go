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

	log, err := logger.New(logger.Config{Service: "kinobot", Env: cfg.Env})
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
		log.Errorw("bot stopped with error", "err", err)
		stop()
		_ = a.Close()
		os.Exit(1)
	}
}
