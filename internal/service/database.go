package service

import (
	"context"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// DatabaseService выполняет импорт, слияние, очистку и отмену изменений документа
type DatabaseService struct {
	store  DocumentStore
	backup *BackupManager
	logger *zap.Logger
}

// NewDatabaseService создает сервис управления документом
func NewDatabaseService(store DocumentStore, backup *BackupManager, logger *zap.Logger) *DatabaseService {
	return &DatabaseService{
		store:  store,
		backup: backup,
		logger: logger,
	}
}

// Export отправляет текущий документ в чат
func (s *DatabaseService) Export(chatID int64) error {
	return s.backup.Export(chatID)
}

// ImportOverwrite заменяет документ загруженным файлом.
// Если в файле нет auto_backup или sent_backup_messages, сохраняются текущие значения.
func (s *DatabaseService) ImportOverwrite(ctx context.Context, requesterChat int64, data []byte) (*model.Document, error) {
	if err := model.ValidateImport(data); err != nil {
		return nil, err
	}

	current, err := s.backup.TakeBackup(ctx, "pre_import", requesterChat, "📦 Backup before import (overwrite)")
	if err != nil {
		return nil, err
	}

	base := model.Default(s.store.DefaultOwner())
	base.AutoBackup = current.AutoBackup
	// журнал из файла заменяет локальный целиком, а не сливается с ним
	base.SentBackupMessages = nil
	imported, err := model.DecodeDocument(data, base)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	if imported.SentBackupMessages == nil {
		imported.SentBackupMessages = current.Clone().SentBackupMessages
	}
	imported.Backfill(s.store.DefaultOwner())

	saved, err := s.store.Update(func(doc *model.Document) error {
		*doc = *imported
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.backup.ApplySchedule(saved.AutoBackup)
	s.logger.Info("Database imported", zap.Int("owners", len(saved.Owners)), zap.Int("subscribers", len(saved.Subscribers)))
	return saved, nil
}

// ImportMerge объединяет загруженный файл с текущим документом
func (s *DatabaseService) ImportMerge(ctx context.Context, requesterChat int64, data []byte) (MergeSummary, error) {
	if err := model.ValidateImport(data); err != nil {
		return MergeSummary{}, err
	}

	if _, err := s.backup.TakeBackup(ctx, "pre_merge", requesterChat, "📦 Backup before merging DB"); err != nil {
		return MergeSummary{}, err
	}

	// входящий документ без значений по умолчанию: отсутствующие поля не участвуют в слиянии
	incoming, err := model.DecodeDocument(data, &model.Document{})
	if err != nil {
		return MergeSummary{}, model.NewValidationError(err.Error())
	}

	var summary MergeSummary
	_, err = s.store.Update(func(doc *model.Document) error {
		var merged *model.Document
		merged, summary = Merge(doc, incoming)
		*doc = *merged
		return nil
	})
	if err != nil {
		return MergeSummary{}, err
	}

	s.logger.Info("Database merged",
		zap.Int("owners_added", summary.OwnersAdded),
		zap.Int("subs_added", summary.SubsAdded),
		zap.Int("chats_added", summary.ChatsAdded),
		zap.Int("channels_added", summary.ChannelsAdded),
		zap.Bool("delay_changed", summary.DelayChanged))
	return summary, nil
}

// Clear сбрасывает документ к значениям по умолчанию, сохраняя владельцев и журнал отправленных бэкапов
func (s *DatabaseService) Clear(ctx context.Context, requesterChat int64) error {
	if _, err := s.backup.TakeBackup(ctx, "pre_clear", requesterChat, "📦 Backup before clearing DB"); err != nil {
		return err
	}

	saved, err := s.store.Update(func(doc *model.Document) error {
		fresh := model.Default(s.store.DefaultOwner())
		fresh.Owners = doc.Owners
		fresh.SentBackupMessages = doc.SentBackupMessages
		*doc = *fresh
		return nil
	})
	if err != nil {
		return err
	}

	s.backup.ApplySchedule(saved.AutoBackup)
	s.logger.Info("Database cleared", zap.Int("owners", len(saved.Owners)))
	return nil
}

// HasUndo сообщает, есть ли снимок для отмены
func (s *DatabaseService) HasUndo() bool {
	return s.backup.HasLastBackup()
}

// Undo восстанавливает последний снимок
func (s *DatabaseService) Undo() (*model.Document, error) {
	return s.backup.RestoreLastBackup()
}
