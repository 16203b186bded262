package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

const (
	// AutoBackupTaskName имя повторяющейся задачи бэкапа
	AutoBackupTaskName = "auto_backup"
	// MinBackupPeriod нижняя граница периода бэкапа
	MinBackupPeriod = 30 * time.Second
	// BackupWarmup задержка первого запуска после планирования
	BackupWarmup = 10 * time.Second

	backupTimestampLayout = "2006-01-02_15-04-05"
	archiveTimeout        = 15 * time.Second
)

// DeliveryReport итог рассылки снимка
type DeliveryReport struct {
	Sent    int
	Failed  int
	Evicted int
}

// BackupManager создает снимки, рассылает их владельцам и управляет слотом отмены
type BackupManager struct {
	store     DocumentStore
	slot      SnapshotSlot
	messenger Messenger
	scheduler TaskScheduler
	archiver  Archiver
	logger    *zap.Logger
	now       func() time.Time
	// deliverMu сериализует рассылки, чтобы порядок ротации совпадал с порядком отправки
	deliverMu sync.Mutex

	scheduleMu sync.Mutex
	applied    *model.AutoBackup
}

// NewBackupManager создает менеджер бэкапов. archiver может быть nil.
func NewBackupManager(store DocumentStore, slot SnapshotSlot, messenger Messenger, scheduler TaskScheduler, archiver Archiver, logger *zap.Logger) *BackupManager {
	return &BackupManager{
		store:     store,
		slot:      slot,
		messenger: messenger,
		scheduler: scheduler,
		archiver:  archiver,
		logger:    logger,
		now:       time.Now,
	}
}

// Snapshot сериализует текущий документ
func (m *BackupManager) Snapshot() ([]byte, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	return EncodeSnapshot(doc)
}

// EncodeSnapshot сериализует документ в формате файла данных
func EncodeSnapshot(doc *model.Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// SetLastBackup перезаписывает слот отмены
func (m *BackupManager) SetLastBackup(data []byte) error {
	return m.slot.Write(data)
}

// HasLastBackup сообщает, есть ли что восстанавливать
func (m *BackupManager) HasLastBackup() bool {
	return m.slot.Exists()
}

// DeliverAndRotate отправляет снимок получателям по порядку, записывает id сообщений
// и удаляет самые старые сверх лимита. Документ сохраняется один раз.
func (m *BackupManager) DeliverAndRotate(data []byte, recipients []int64, caption string) (DeliveryReport, error) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	var report DeliveryReport
	fileName := fmt.Sprintf("auto_backup_%s.json", m.now().Format(backupTimestampLayout))

	type delivered struct {
		chatID    int64
		messageID int
	}
	sent := make([]delivered, 0, len(recipients))

	for _, chatID := range recipients {
		messageID, err := m.messenger.SendDocument(chatID, fileName, data, caption)
		if err != nil {
			report.Failed++
			m.logger.Warn("Failed to deliver backup",
				zap.Error(&model.DeliveryError{ChatID: chatID, Op: "send backup", Err: err}))
			continue
		}
		report.Sent++
		sent = append(sent, delivered{chatID: chatID, messageID: messageID})
	}

	type eviction struct {
		chatID    int64
		messageID int
	}
	var evicted []eviction

	_, err := m.store.Update(func(doc *model.Document) error {
		if doc.SentBackupMessages == nil {
			doc.SentBackupMessages = map[int64][]int{}
		}
		for _, d := range sent {
			log := append(doc.SentBackupMessages[d.chatID], d.messageID)
			for len(log) > model.MaxBackupLogEntries {
				evicted = append(evicted, eviction{chatID: d.chatID, messageID: log[0]})
				log = log[1:]
			}
			doc.SentBackupMessages[d.chatID] = log
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to save backup log: %w", err)
	}

	for _, e := range evicted {
		if err := m.messenger.DeleteMessage(e.chatID, e.messageID); err != nil {
			m.logger.Warn("Could not delete old backup message",
				zap.Int("message_id", e.messageID),
				zap.Error(&model.DeliveryError{ChatID: e.chatID, Op: "delete backup", Err: err}))
			continue
		}
		report.Evicted++
	}

	m.logger.Info("Backup delivered",
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("evicted", report.Evicted))
	return report, nil
}

// RunPeriodic выполняет один цикл автоматического бэкапа
func (m *BackupManager) RunPeriodic(ctx context.Context) {
	doc, err := m.store.Load()
	if err != nil {
		m.notifyFailure(m.fallbackOwners(), err)
		return
	}
	data, err := EncodeSnapshot(doc)
	if err != nil {
		m.notifyFailure(doc.Owners, err)
		return
	}

	if err := m.SetLastBackup(data); err != nil {
		m.logger.Warn("Failed to update last backup slot", zap.Error(err))
	}
	m.archive(ctx, "auto", data)

	caption := fmt.Sprintf("📦 Auto-backup: %s", m.now().Format(backupTimestampLayout))
	if _, err := m.DeliverAndRotate(data, doc.Owners, caption); err != nil {
		m.logger.Error("Auto-backup rotation failed", zap.Error(err))
	}
}

// TakeBackup делает снимок перед изменяющей операцией: пишет слот отмены,
// отправляет файл в чат запроса (при неудаче всем владельцам) и архивирует его.
func (m *BackupManager) TakeBackup(ctx context.Context, reason string, requesterChat int64, caption string) (*model.Document, error) {
	doc, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	data, err := EncodeSnapshot(doc)
	if err != nil {
		return nil, err
	}
	if err := m.SetLastBackup(data); err != nil {
		return nil, err
	}
	m.archive(ctx, reason, data)

	fileName := fmt.Sprintf("%s_backup_%s.json", reason, m.now().Format(backupTimestampLayout))
	if _, err := m.messenger.SendDocument(requesterChat, fileName, data, caption); err != nil {
		m.logger.Warn("Failed to send backup to requester, falling back to owners",
			zap.Error(&model.DeliveryError{ChatID: requesterChat, Op: "send backup", Err: err}))
		for _, owner := range doc.Owners {
			if _, err := m.messenger.SendDocument(owner, fileName, data, caption); err != nil {
				m.logger.Warn("Failed to send backup to owner",
					zap.Error(&model.DeliveryError{ChatID: owner, Op: "send backup", Err: err}))
			}
		}
	}
	return doc, nil
}

// Export отправляет текущий документ в чат
func (m *BackupManager) Export(chatID int64) error {
	data, err := m.Snapshot()
	if err != nil {
		return err
	}
	fileName := fmt.Sprintf("export_%s.json", m.now().Format(backupTimestampLayout))
	if _, err := m.messenger.SendDocument(chatID, fileName, data, "📄 Here is the database export."); err != nil {
		return &model.DeliveryError{ChatID: chatID, Op: "send export", Err: err}
	}
	return nil
}

// RestoreLastBackup заменяет документ содержимым слота отмены.
// Журнал отправленных бэкапов остается текущим: он описывает сообщения, которые реально лежат в чатах.
func (m *BackupManager) RestoreLastBackup() (*model.Document, error) {
	data, err := m.slot.Read()
	if err != nil {
		return nil, err
	}
	if err := model.CheckSnapshot(data); err != nil {
		return nil, err
	}

	restored, err := model.DecodeDocument(data, model.Default(m.store.DefaultOwner()))
	if err != nil {
		return nil, &model.CorruptError{Reason: err.Error()}
	}
	restored.Backfill(m.store.DefaultOwner())

	saved, err := m.store.Update(func(doc *model.Document) error {
		restored.SentBackupMessages = doc.SentBackupMessages
		*doc = *restored
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ApplySchedule(saved.AutoBackup)
	m.logger.Info("Restored last backup", zap.Int("owners", len(saved.Owners)))
	return saved, nil
}

// ScheduleRecurring заменяет задачу автоматического бэкапа
func (m *BackupManager) ScheduleRecurring(intervalMinutes int) {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()
	m.scheduleLocked(intervalMinutes)
}

// ApplySchedule приводит расписание в соответствие с настройками
func (m *BackupManager) ApplySchedule(settings model.AutoBackup) {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()
	m.applyLocked(settings)
}

// SyncSchedule применяет настройки, только если они отличаются от последних примененных
func (m *BackupManager) SyncSchedule(settings model.AutoBackup) bool {
	m.scheduleMu.Lock()
	defer m.scheduleMu.Unlock()
	if m.applied != nil && m.applied.Enabled == settings.Enabled &&
		(!settings.Enabled || m.applied.IntervalMinutes == settings.IntervalMinutes) {
		return false
	}
	m.applyLocked(settings)
	return true
}

func (m *BackupManager) applyLocked(settings model.AutoBackup) {
	if settings.Enabled {
		m.scheduleLocked(settings.IntervalMinutes)
		return
	}
	m.cancelLocked()
}

func (m *BackupManager) scheduleLocked(intervalMinutes int) {
	period := minutesDuration(intervalMinutes)
	if period < MinBackupPeriod {
		period = MinBackupPeriod
	}
	m.scheduler.ScheduleRepeating(AutoBackupTaskName, BackupWarmup, period, func() {
		ctx, cancel := detachedContext(5 * time.Minute)
		defer cancel()
		m.RunPeriodic(ctx)
	})
	m.applied = &model.AutoBackup{Enabled: true, IntervalMinutes: intervalMinutes}
	m.logger.Info("Auto-backup scheduled", zap.Duration("every", period))
}

func (m *BackupManager) cancelLocked() {
	if m.scheduler.Cancel(AutoBackupTaskName) {
		m.logger.Info("Auto-backup cancelled")
	}
	m.applied = &model.AutoBackup{}
}

func (m *BackupManager) archive(ctx context.Context, reason string, data []byte) {
	if m.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()
	if err := m.archiver.Archive(ctx, reason, data); err != nil {
		m.logger.Warn("Failed to archive snapshot", zap.String("reason", reason), zap.Error(err))
	}
}

func (m *BackupManager) fallbackOwners() []int64 {
	return []int64{m.store.DefaultOwner()}
}

func (m *BackupManager) notifyFailure(owners []int64, cause error) {
	m.logger.Error("Auto-backup failed", zap.Error(cause))
	notifyAll(m.messenger, owners, fmt.Sprintf("⚠️ Auto-backup failed: %v", cause), m.logger)
}

// notifyAll отправляет текст каждому получателю, ошибки только логируются
func notifyAll(messenger Messenger, recipients []int64, text string, logger *zap.Logger) (sent, failed int) {
	for _, chatID := range recipients {
		if _, err := messenger.SendText(chatID, text); err != nil {
			failed++
			logger.Warn("Failed to send notification",
				zap.Error(&model.DeliveryError{ChatID: chatID, Op: "send message", Err: err}))
			continue
		}
		sent++
	}
	return sent, failed
}
