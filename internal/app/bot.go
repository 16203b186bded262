package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autoapprove/internal/config"
	"autoapprove/internal/external/search"
	"autoapprove/internal/external/telegram"
	"autoapprove/internal/health"
	"autoapprove/internal/middleware"
	"autoapprove/internal/service"
	"autoapprove/internal/storage"

	"go.uber.org/zap"
)

const (
	maxRestartAttempts = 10
	restartDelay       = 10 * time.Second
	maxRestartDelay    = 5 * time.Minute
	cleanupInterval    = 5 * time.Minute
	shutdownTimeout    = 30 * time.Second
)

// Bot представляет основную логику бота
type Bot struct {
	config     *config.Config
	logger     *zap.Logger
	db         *storage.Postgres
	telegram   *telegram.Client
	search     *search.Client
	health     *health.Server
	services   *service.Services
	middleware *middleware.Middleware
	router     telegram.UpdateRouter
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

// NewBot создает новый экземпляр бота
func NewBot(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// NewBotWithFactory создает новый экземпляр бота
func NewBotWithFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	factory := NewComponentFactory(cfg, logger)
	return factory.CreateBot(ctx)
}

// Start запускает фоновые задачи и цикл обновлений; блокируется до отмены ctx или Stop
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting bot")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(b.ctx, cancel)
	defer stop()

	if b.health != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.health.Start(); err != nil {
				b.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	if b.middleware != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.runCleanup(ctx)
		}()
	}

	if b.search != nil {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := b.search.Start(ctx); err != nil {
				b.logger.Error("Search is unavailable", zap.Error(err))
			}
		}()
	}

	if err := b.services.Start(ctx); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}
	b.logger.Info("Bot started successfully")

	restartAttempts := 0
	for {
		err := b.telegram.Start(ctx, b.router)
		if ctx.Err() != nil {
			b.logger.Info("Update loop stopped due to context cancellation")
			return nil
		}

		restartAttempts++
		b.logger.Error("Update loop error",
			zap.Error(err),
			zap.Int("restart_attempt", restartAttempts),
			zap.Int("max_attempts", maxRestartAttempts))

		if restartAttempts > maxRestartAttempts {
			return fmt.Errorf("max restart attempts reached: %w", err)
		}

		delay := min(time.Duration(restartAttempts)*restartDelay, maxRestartDelay)
		b.logger.Info("Waiting before restart", zap.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runCleanup периодически удаляет устаревшие лимитеры и записи дебаунса
func (b *Bot) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.middleware.Cleanup()
		case <-ctx.Done():
			b.logger.Info("Middleware cleanup stopped by context")
			return
		}
	}
}

// Stop gracefully останавливает бота. Повторные вызовы ничего не делают.
func (b *Bot) Stop() error {
	var err error
	b.stopOnce.Do(func() { err = b.stop() })
	return err
}

func (b *Bot) stop() error {
	b.logger.Info("Stopping bot gracefully")

	if b.services != nil {
		b.services.Stop()
	}
	b.cancel()

	var errs []error
	if b.health != nil {
		if err := b.health.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop health check server: %w", err))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.wg.Wait()
	}()

	select {
	case <-done:
		b.logger.Info("All goroutines stopped successfully")
	case <-time.After(shutdownTimeout):
		b.logger.Warn("Graceful shutdown timeout exceeded, forcing stop")
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		b.logger.Error("Bot stopped with errors", zap.Error(err))
		return err
	}
	b.logger.Info("Bot stopped successfully")
	return nil
}
