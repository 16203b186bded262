package service

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// MaxButtonLabelLength ограничение длины подписи кнопки канала
const MaxButtonLabelLength = 40

const (
	promotedNotice = "🎉 Congratulations! You have been promoted to an owner of this bot."
	demotedNotice  = "ℹ️ You have been removed as an owner of this bot."
)

// AdminService выполняет административные операции над документом
type AdminService struct {
	store     DocumentStore
	messenger Messenger
	backup    *BackupManager
	logger    *zap.Logger
}

// NewAdminService создает сервис администрирования
func NewAdminService(store DocumentStore, messenger Messenger, backup *BackupManager, logger *zap.Logger) *AdminService {
	return &AdminService{
		store:     store,
		messenger: messenger,
		backup:    backup,
		logger:    logger,
	}
}

// Document возвращает текущий документ
func (s *AdminService) Document() (*model.Document, error) {
	return s.store.Load()
}

// AddOwner добавляет владельца и уведомляет его
func (s *AdminService) AddOwner(userID int64) error {
	if userID == 0 {
		return model.NewValidationError("owner id must be a non-zero number", "owners")
	}
	_, err := s.store.Update(func(doc *model.Document) error {
		if doc.IsOwner(userID) {
			return model.ErrAlreadyOwner
		}
		doc.Owners = append(doc.Owners, userID)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Owner added", zap.Int64("user_id", userID))
	if _, err := s.messenger.SendText(userID, promotedNotice); err != nil {
		s.logger.Info("Could not notify new owner", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// RemoveOwnerAt удаляет владельца по индексу. Последнего владельца удалить нельзя.
func (s *AdminService) RemoveOwnerAt(index int) (int64, error) {
	var removed int64
	_, err := s.store.Update(func(doc *model.Document) error {
		if len(doc.Owners) <= 1 {
			return model.ErrLastOwner
		}
		if index < 0 || index >= len(doc.Owners) {
			return model.ErrIndexOutOfRange
		}
		removed = doc.Owners[index]
		doc.Owners = slices.Delete(doc.Owners, index, index+1)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Owner removed", zap.Int64("user_id", removed))
	if _, err := s.messenger.SendText(removed, demotedNotice); err != nil {
		s.logger.Info("Could not notify removed owner", zap.Int64("user_id", removed), zap.Error(err))
	}
	return removed, nil
}

// ToggleForce переключает обязательную подписку. noChannels сообщает, что включено без каналов.
func (s *AdminService) ToggleForce() (enabled bool, noChannels bool, err error) {
	doc, err := s.store.Update(func(doc *model.Document) error {
		doc.Force.Enabled = !doc.Force.Enabled
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return doc.Force.Enabled, doc.Force.Enabled && len(doc.Force.Channels) == 0, nil
}

// ValidateChannelLabel проверяет подпись кнопки канала
func ValidateChannelLabel(label string) error {
	if utf8.RuneCountInString(label) > MaxButtonLabelLength {
		return model.NewValidationError(
			fmt.Sprintf("button text too long (max %d chars)", MaxButtonLabelLength), "join_btn_text")
	}
	return nil
}

// AddChannel добавляет канал обязательной подписки
func (s *AdminService) AddChannel(ref model.ChannelRef) error {
	if !ref.Resolvable() {
		return model.NewValidationError("channel needs a chat id or an invite link", "chat_id", "invite")
	}
	if err := ValidateChannelLabel(ref.JoinButtonLabel); err != nil {
		return err
	}
	_, err := s.store.Update(func(doc *model.Document) error {
		doc.Force.Channels = append(doc.Force.Channels, ref)
		return nil
	})
	if err == nil {
		s.logger.Info("Force-join channel added", zap.String("channel", ref.Key()))
	}
	return err
}

// RemoveChannelAt удаляет канал по индексу
func (s *AdminService) RemoveChannelAt(index int) (model.ChannelRef, error) {
	var removed model.ChannelRef
	_, err := s.store.Update(func(doc *model.Document) error {
		if index < 0 || index >= len(doc.Force.Channels) {
			return model.ErrIndexOutOfRange
		}
		removed = doc.Force.Channels[index]
		doc.Force.Channels = slices.Delete(doc.Force.Channels, index, index+1)
		return nil
	})
	return removed, err
}

// SetDelay задает задержку одобрения в минутах
func (s *AdminService) SetDelay(minutes int) error {
	if minutes < 0 {
		return model.NewValidationError("delay must not be negative", "approval_delay_minutes")
	}
	_, err := s.store.Update(func(doc *model.Document) error {
		doc.ApprovalDelayMinutes = minutes
		return nil
	})
	return err
}

// ToggleAutoBackup переключает автоматический бэкап и обновляет расписание
func (s *AdminService) ToggleAutoBackup() (model.AutoBackup, error) {
	doc, err := s.store.Update(func(doc *model.Document) error {
		doc.AutoBackup.Enabled = !doc.AutoBackup.Enabled
		return nil
	})
	if err != nil {
		return model.AutoBackup{}, err
	}
	s.backup.ApplySchedule(doc.AutoBackup)
	return doc.AutoBackup, nil
}

// SetBackupInterval задает период бэкапа; включенное расписание перепланируется сразу
func (s *AdminService) SetBackupInterval(minutes int) (model.AutoBackup, error) {
	if minutes <= 0 {
		return model.AutoBackup{}, model.NewValidationError("interval must be positive", "auto_backup.interval_minutes")
	}
	doc, err := s.store.Update(func(doc *model.Document) error {
		doc.AutoBackup.IntervalMinutes = minutes
		return nil
	})
	if err != nil {
		return model.AutoBackup{}, err
	}
	if doc.AutoBackup.Enabled {
		s.backup.ScheduleRecurring(minutes)
	}
	return doc.AutoBackup, nil
}
