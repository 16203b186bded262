// Package main запускает бота автоматического одобрения заявок.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"autoapprove/internal/app"
	"autoapprove/internal/config"
	"autoapprove/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	log := logger.New(logger.FromEnv())
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Обработка сигналов
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.NewBotWithFactory(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create bot", zap.Error(err))
	}

	runErr := bot.Start(ctx)
	if ctx.Err() != nil {
		log.Info("Shutdown signal received")
	}

	if err := bot.Stop(); err != nil {
		log.Error("Failed to stop bot cleanly", zap.Error(err))
	}

	if runErr != nil {
		log.Error("Bot stopped with error", zap.Error(runErr))
		os.Exit(1)
	}

	log.Info("Bot stopped successfully")
}
