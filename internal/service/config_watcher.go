package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWatchInterval период проверки файла данных
const DefaultWatchInterval = 30 * time.Second

// ConfigWatcher отслеживает ручные правки файла данных и применяет настройки автоматического бэкапа
type ConfigWatcher struct {
	store    DocumentStore
	backup   *BackupManager
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewConfigWatcher создает новый наблюдатель конфигурации
func NewConfigWatcher(store DocumentStore, backup *BackupManager, interval time.Duration, logger *zap.Logger) *ConfigWatcher {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	return &ConfigWatcher{
		store:    store,
		backup:   backup,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает наблюдение; блокируется до отмены контекста или Stop
func (w *ConfigWatcher) Start(ctx context.Context) {
	w.logger.Info("Starting config watcher", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Config watcher stopped due to context cancellation")
			return
		case <-w.stopChan:
			w.logger.Info("Config watcher stopped")
			return
		case <-ticker.C:
			w.CheckForChanges()
		}
	}
}

// Stop останавливает наблюдение
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// CheckForChanges перечитывает документ и синхронизирует расписание бэкапа
func (w *ConfigWatcher) CheckForChanges() bool {
	doc, err := w.store.Load()
	if err != nil {
		w.logger.Error("Failed to load config for watching", zap.Error(err))
		return false
	}

	changed := w.backup.SyncSchedule(doc.AutoBackup)
	if changed {
		w.logger.Info("Applied auto-backup settings change",
			zap.Bool("enabled", doc.AutoBackup.Enabled),
			zap.Int("interval_minutes", doc.AutoBackup.IntervalMinutes))
	}
	return changed
}
