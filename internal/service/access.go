package service

import (
	"slices"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// AccessStatus итог проверки доступа для /start и кнопки проверки
type AccessStatus int

const (
	// AccessGranted пользователь добавлен в подписчики
	AccessGranted AccessStatus = iota
	// AccessPrompt пользователю нужно вступить в каналы
	AccessPrompt
	// AccessMisconfigured обязательная подписка включена, но каналов нет
	AccessMisconfigured
)

// AccessResult результат проверки доступа
type AccessResult struct {
	Status      AccessStatus
	Gate        GateResult
	VerifyLabel string
	IsOwner     bool
}

// JoinResult результат обработки заявки на вступление
type JoinResult struct {
	Outcome     ApprovalOutcome
	Gate        GateResult
	VerifyLabel string
}

// AccessService связывает проверку подписок, подписчиков и одобрение заявок
type AccessService struct {
	store     DocumentStore
	gate      *MembershipGate
	approvals *ApprovalScheduler
	messenger Messenger
	logger    *zap.Logger
}

// NewAccessService создает сервис доступа
func NewAccessService(store DocumentStore, gate *MembershipGate, approvals *ApprovalScheduler, messenger Messenger, logger *zap.Logger) *AccessService {
	return &AccessService{
		store:     store,
		gate:      gate,
		approvals: approvals,
		messenger: messenger,
		logger:    logger,
	}
}

// IsOwner проверяет права владельца по текущему документу
func (s *AccessService) IsOwner(userID int64) bool {
	doc, err := s.store.Load()
	if err != nil {
		s.logger.Warn("Failed to load config for owner check", zap.Error(err))
		return userID == s.store.DefaultOwner()
	}
	return doc.IsOwner(userID)
}

// HandleJoinRequest обрабатывает заявку: владельцы одобряются без проверки,
// остальные сначала проходят проверку подписок. Не прошедшие отклоняются и удаляются из подписчиков.
func (s *AccessService) HandleJoinRequest(chatID, userID int64) (JoinResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return JoinResult{Outcome: ApprovalFailed}, err
	}

	if !doc.IsOwner(userID) && doc.Force.Enabled && len(doc.Force.Channels) > 0 {
		gate, err := s.gate.MissingChannels(userID)
		if err != nil {
			return JoinResult{Outcome: ApprovalFailed}, err
		}
		if !gate.Passed() {
			if err := s.removeSubscriber(userID); err != nil {
				s.logger.Error("Failed to remove subscriber", zap.Int64("user_id", userID), zap.Error(err))
			}
			if err := s.messenger.DeclineJoinRequest(chatID, userID); err != nil {
				s.logger.Warn("Failed to decline join request",
					zap.Error(&model.DeliveryError{ChatID: chatID, Op: "decline join request", Err: err}))
			}
			return JoinResult{Outcome: ApprovalGated, Gate: gate, VerifyLabel: doc.Force.VerifyLabel}, nil
		}
	}

	outcome, err := s.approvals.Process(chatID, userID)
	return JoinResult{Outcome: outcome}, err
}

// CheckAccess выполняет проверку для /start и кнопки проверки
func (s *AccessService) CheckAccess(userID int64) (AccessResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return AccessResult{}, err
	}
	result := AccessResult{VerifyLabel: doc.Force.VerifyLabel, IsOwner: doc.IsOwner(userID)}

	if !result.IsOwner && doc.Force.Enabled {
		if len(doc.Force.Channels) == 0 {
			result.Status = AccessMisconfigured
			return result, nil
		}
		gate, err := s.gate.MissingChannels(userID)
		if err != nil {
			return result, err
		}
		result.Gate = gate
		if !gate.Passed() {
			result.Status = AccessPrompt
			return result, s.removeSubscriber(userID)
		}
	}

	result.Status = AccessGranted
	if slices.Contains(doc.Subscribers, userID) {
		return result, nil
	}
	_, err = s.store.Update(func(doc *model.Document) error {
		doc.AddSubscriber(userID)
		return nil
	})
	return result, err
}

// RecordChat запоминает группу или канал
func (s *AccessService) RecordChat(record model.ChatRecord) (bool, error) {
	switch record.Type {
	case "group", "supergroup", "channel":
	default:
		return false, nil
	}

	// быстрая проверка без записи
	doc, err := s.store.Load()
	if err != nil {
		return false, err
	}
	for _, known := range doc.KnownChats {
		if known.ChatID == record.ChatID {
			return false, nil
		}
	}

	added := false
	_, err = s.store.Update(func(doc *model.Document) error {
		added = doc.AddKnownChat(record)
		return nil
	})
	if err == nil && added {
		s.logger.Info("Recorded chat",
			zap.Int64("chat_id", record.ChatID),
			zap.String("title", record.Title),
			zap.String("type", record.Type))
	}
	return added, err
}

func (s *AccessService) removeSubscriber(userID int64) error {
	doc, err := s.store.Load()
	if err != nil {
		return err
	}
	if !slices.Contains(doc.Subscribers, userID) {
		return nil
	}
	_, err = s.store.Update(func(doc *model.Document) error {
		doc.RemoveSubscriber(userID)
		return nil
	})
	return err
}
