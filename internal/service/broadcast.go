package service

import (
	"fmt"

	"go.uber.org/zap"
)

// BroadcastTarget получатели рассылки
type BroadcastTarget string

const (
	BroadcastUsers BroadcastTarget = "users"
	BroadcastChats BroadcastTarget = "chats"
	BroadcastAll   BroadcastTarget = "all"
)

// Valid проверяет значение цели
func (t BroadcastTarget) Valid() bool {
	switch t {
	case BroadcastUsers, BroadcastChats, BroadcastAll:
		return true
	}
	return false
}

// BroadcastReport итог рассылки
type BroadcastReport struct {
	Sent   int
	Failed int
}

func (r BroadcastReport) String() string {
	return fmt.Sprintf("✅ Broadcast done. Sent: %d, Failed: %d", r.Sent, r.Failed)
}

// BroadcastService рассылает сообщение подписчикам и известным чатам
type BroadcastService struct {
	store     DocumentStore
	messenger Messenger
	logger    *zap.Logger
}

// NewBroadcastService создает сервис рассылки
func NewBroadcastService(store DocumentStore, messenger Messenger, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		store:     store,
		messenger: messenger,
		logger:    logger,
	}
}

// Broadcast отправляет текст выбранным получателям. Ошибки доставки считаются, но не прерывают рассылку.
func (s *BroadcastService) Broadcast(target BroadcastTarget, text string) (BroadcastReport, error) {
	if !target.Valid() {
		return BroadcastReport{}, fmt.Errorf("unknown broadcast target %q", target)
	}

	doc, err := s.store.Load()
	if err != nil {
		return BroadcastReport{}, err
	}

	var recipients []int64
	if target == BroadcastUsers || target == BroadcastAll {
		recipients = append(recipients, dedupIDs(doc.Subscribers)...)
	}
	if target == BroadcastChats || target == BroadcastAll {
		for _, chat := range doc.KnownChats {
			recipients = append(recipients, chat.ChatID)
		}
	}

	sent, failed := notifyAll(s.messenger, recipients, text, s.logger)
	report := BroadcastReport{Sent: sent, Failed: failed}

	s.logger.Info("Broadcast finished",
		zap.String("target", string(target)),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}
