// Package service содержит бизнес-логику приложения.
package service

import (
	"context"
	"fmt"

	"autoapprove/internal/config"

	"go.uber.org/zap"
)

// Dependencies внешние компоненты, которые нужны сервисам
type Dependencies struct {
	Store     DocumentStore
	Slot      SnapshotSlot
	Messenger Messenger
	// Archiver и Search необязательны
	Archiver Archiver
	Search   SearchProvider
}

// Services содержит все сервисы приложения
type Services struct {
	Store         DocumentStore
	Backup        *BackupManager
	Approvals     *ApprovalScheduler
	Access        *AccessService
	Admin         *AdminService
	Broadcast     *BroadcastService
	Database      *DatabaseService
	Search        *SearchService
	ConfigWatcher *ConfigWatcher
	Scheduler     *Scheduler
}

// NewServices создает все сервисы
func NewServices(cfg *config.Config, deps Dependencies, logger *zap.Logger) *Services {
	scheduler := NewScheduler(logger)

	backup := NewBackupManager(deps.Store, deps.Slot, deps.Messenger, scheduler, deps.Archiver, logger)
	approvals := NewApprovalScheduler(deps.Store, deps.Messenger, scheduler, cfg.NotifyOnApprove, logger)
	gate := NewMembershipGate(deps.Store, deps.Messenger, logger)

	if deps.Search == nil {
		logger.Warn("Search credentials not configured, /search is disabled")
	}

	return &Services{
		Store:         deps.Store,
		Backup:        backup,
		Approvals:     approvals,
		Access:        NewAccessService(deps.Store, gate, approvals, deps.Messenger, logger),
		Admin:         NewAdminService(deps.Store, deps.Messenger, backup, logger),
		Broadcast:     NewBroadcastService(deps.Store, deps.Messenger, logger),
		Database:      NewDatabaseService(deps.Store, backup, logger),
		Search:        NewSearchService(deps.Search, cfg.Search.PageSize, cfg.Search.ResultLimit, cfg.Search.SessionTTL, cfg.Search.Timeout, logger),
		ConfigWatcher: NewConfigWatcher(deps.Store, backup, DefaultWatchInterval, logger),
		Scheduler:     scheduler,
	}
}

// Start применяет сохраненное расписание и запускает фоновые задачи
func (s *Services) Start(ctx context.Context) error {
	doc, err := s.Store.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s.Backup.SyncSchedule(doc.AutoBackup)
	s.Search.ScheduleCleanup(s.Scheduler)

	if err := s.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	go s.ConfigWatcher.Start(ctx)
	return nil
}

// Stop останавливает фоновые задачи
func (s *Services) Stop() {
	s.ConfigWatcher.Stop()
	s.Scheduler.Stop()
}
