package app

import (
	"context"
	"fmt"
	"os"

	"autoapprove/internal/config"
	"autoapprove/internal/external/search"
	"autoapprove/internal/external/telegram"
	"autoapprove/internal/handlers"
	"autoapprove/internal/health"
	"autoapprove/internal/keyboard"
	"autoapprove/internal/middleware"
	"autoapprove/internal/service"
	"autoapprove/internal/storage"
	"autoapprove/internal/store"

	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateAppDataDirectory создает директорию данных приложения
func (f *ComponentFactory) CreateAppDataDirectory() error {
	dataDir := f.config.GetAppDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		f.logger.Error("Failed to create app data directory", zap.String("dir", dataDir), zap.Error(err))
		return fmt.Errorf("failed to create app data directory: %w", err)
	}
	f.logger.Info("App data directory ready", zap.String("dir", dataDir))
	return nil
}

// CreateStore создает хранилище документа и слот последнего бэкапа
func (f *ComponentFactory) CreateStore() (*store.ConfigStore, *store.BackupSlot, error) {
	configStore := store.NewConfigStore(f.config.DataFile, f.config.OwnerID, f.logger)
	// первая загрузка создает файл по умолчанию и проверяет права на запись
	if _, err := configStore.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load config document: %w", err)
	}

	f.logger.Info("Config store ready",
		zap.String("data_file", f.config.DataFile),
		zap.String("last_backup_file", f.config.LastBackupFile))
	return configStore, store.NewBackupSlot(f.config.LastBackupFile), nil
}

// CreateDatabase создает подключение к архиву снимков; без DB_DSN возвращает nil
func (f *ComponentFactory) CreateDatabase(ctx context.Context) (*storage.Postgres, error) {
	if f.config.DatabaseURL == "" {
		f.logger.Info("DB_DSN not set, snapshot archive is disabled")
		return nil, nil
	}

	db, err := storage.NewPostgres(ctx, f.config.DatabaseURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateTelegramClient создает клиент Telegram
func (f *ComponentFactory) CreateTelegramClient() (*telegram.Client, error) {
	client, err := telegram.NewClient(f.config.BotToken, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	f.logger.Info("Telegram client created successfully", zap.String("username", client.Username()))
	return client, nil
}

// CreateSearchClient создает клиент поиска; без учетных данных возвращает nil
func (f *ComponentFactory) CreateSearchClient() *search.Client {
	if !f.config.Search.Enabled() {
		return nil
	}
	f.logger.Info("Search client created", zap.String("session_file", f.config.Search.SessionFile))
	return search.NewClient(f.config.Search, f.logger)
}

// CreateServices создает все сервисы. db и searchClient необязательны.
func (f *ComponentFactory) CreateServices(configStore *store.ConfigStore, slot *store.BackupSlot, messenger service.Messenger, db *storage.Postgres, searchClient *search.Client) *service.Services {
	deps := service.Dependencies{
		Store:     configStore,
		Slot:      slot,
		Messenger: messenger,
	}
	if db != nil {
		deps.Archiver = storage.NewSnapshotArchive(db.GetSnapshotRepository(), f.config.ArchiveKeep, f.logger)
	}
	if searchClient != nil {
		deps.Search = searchClient
	}

	services := service.NewServices(f.config, deps, f.logger)
	f.logger.Info("Services created successfully")
	return services
}

// CreateMiddleware создает middleware
func (f *ComponentFactory) CreateMiddleware() *middleware.Middleware {
	middlewareManager := middleware.New(f.config.RateLimit, f.logger)
	f.logger.Info("Middleware created successfully")
	return middlewareManager
}

// CreateHealthServer создает сервер health check; выключенный сервер дает nil
func (f *ComponentFactory) CreateHealthServer(configStore *store.ConfigStore, db *storage.Postgres, scheduler *service.Scheduler) *health.Server {
	if !f.config.HealthCheckEnabled {
		f.logger.Info("Health check server is disabled")
		return nil
	}

	var archive health.Pinger
	if db != nil {
		archive = db
	}
	server := health.NewServer(f.config.HealthPort, configStore, archive, scheduler, f.logger)
	f.logger.Info("Health check server created", zap.String("port", f.config.HealthPort))
	return server
}

// CreateBot создает полный экземпляр бота со всеми зависимостями
func (f *ComponentFactory) CreateBot(ctx context.Context) (*Bot, error) {
	if err := f.CreateAppDataDirectory(); err != nil {
		return nil, err
	}

	configStore, slot, err := f.CreateStore()
	if err != nil {
		return nil, err
	}

	db, err := f.CreateDatabase(ctx)
	if err != nil {
		return nil, err
	}

	tgClient, err := f.CreateTelegramClient()
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}

	searchClient := f.CreateSearchClient()
	services := f.CreateServices(configStore, slot, tgClient, db, searchClient)
	h := handlers.New(services, keyboard.NewManager(), tgClient, f.logger)
	mw := f.CreateMiddleware()

	bot, err := NewBot(f.config, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.db = db
	bot.telegram = tgClient
	bot.search = searchClient
	bot.health = f.CreateHealthServer(configStore, db, services.Scheduler)
	bot.services = services
	bot.middleware = mw
	bot.router = NewRouter(h, mw, f.logger)

	f.logger.Info("Bot created successfully with all dependencies")
	return bot, nil
}
