package service

import (
	"fmt"

	"go.uber.org/zap"
)

// ApprovalOutcome результат обработки заявки на вступление
type ApprovalOutcome int

const (
	// ApprovalApproved заявка одобрена сразу
	ApprovalApproved ApprovalOutcome = iota
	// ApprovalDeferred одобрение запланировано
	ApprovalDeferred
	// ApprovalAlreadyPending для этой пары уже есть отложенное одобрение
	ApprovalAlreadyPending
	// ApprovalFailed одобрить не удалось, владельцы уведомлены
	ApprovalFailed
	// ApprovalGated пользователь не прошел проверку подписок
	ApprovalGated
)

func (o ApprovalOutcome) String() string {
	switch o {
	case ApprovalApproved:
		return "approved"
	case ApprovalDeferred:
		return "deferred"
	case ApprovalAlreadyPending:
		return "already_pending"
	case ApprovalFailed:
		return "failed"
	case ApprovalGated:
		return "gated"
	default:
		return "unknown"
	}
}

// ApprovedNotice текст уведомления пользователю
const ApprovedNotice = "✅ You have been automatically approved!"

// ApprovalScheduler одобряет заявки сразу или через заданную задержку
type ApprovalScheduler struct {
	store      DocumentStore
	messenger  Messenger
	scheduler  TaskScheduler
	notifyUser bool
	logger     *zap.Logger
}

// NewApprovalScheduler создает планировщик одобрений
func NewApprovalScheduler(store DocumentStore, messenger Messenger, scheduler TaskScheduler, notifyUser bool, logger *zap.Logger) *ApprovalScheduler {
	return &ApprovalScheduler{
		store:      store,
		messenger:  messenger,
		scheduler:  scheduler,
		notifyUser: notifyUser,
		logger:     logger,
	}
}

// ApprovalTaskName имя отложенной задачи для пары чат/пользователь
func ApprovalTaskName(chatID, userID int64) string {
	return fmt.Sprintf("approve-%d-%d", chatID, userID)
}

// Process одобряет заявку сейчас при нулевой задержке, иначе откладывает
func (a *ApprovalScheduler) Process(chatID, userID int64) (ApprovalOutcome, error) {
	doc, err := a.store.Load()
	if err != nil {
		return ApprovalFailed, err
	}

	if doc.ApprovalDelayMinutes <= 0 {
		if a.approve(chatID, userID, false) {
			return ApprovalApproved, nil
		}
		return ApprovalFailed, nil
	}

	delay := minutesDuration(doc.ApprovalDelayMinutes)
	scheduled := a.scheduler.ScheduleOnce(ApprovalTaskName(chatID, userID), delay, func() {
		a.approve(chatID, userID, true)
	})
	if !scheduled {
		a.logger.Info("Approval already pending",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID))
		return ApprovalAlreadyPending, nil
	}
	return ApprovalDeferred, nil
}

func (a *ApprovalScheduler) approve(chatID, userID int64, deferred bool) bool {
	if err := a.messenger.ApproveJoinRequest(chatID, userID); err != nil {
		a.logger.Error("Failed to approve join request",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Bool("deferred", deferred),
			zap.Error(err))
		a.notifyOwners(approvalFailureText(chatID, userID, deferred, err))
		return false
	}

	a.logger.Info("Join request approved",
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID),
		zap.Bool("deferred", deferred))

	if a.notifyUser {
		if _, err := a.messenger.SendText(userID, ApprovedNotice); err != nil {
			a.logger.Debug("Could not notify approved user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return true
}

func (a *ApprovalScheduler) notifyOwners(text string) {
	owners := []int64{a.store.DefaultOwner()}
	if doc, err := a.store.Load(); err == nil {
		owners = doc.Owners
	}
	notifyAll(a.messenger, owners, text, a.logger)
}

func approvalFailureText(chatID, userID int64, deferred bool, err error) string {
	prefix := "❗ Failed to approve user"
	if deferred {
		prefix = "❗ Delayed approval failed for user"
	}
	return fmt.Sprintf("%s %d to chat %d.\n\nError: %v\n\n"+
		"Common causes:\n"+
		"- Bot is not admin in the chat.\n"+
		"- Bot lacks 'Invite Users via Link' permission.", prefix, userID, chatID, err)
}
