package service

import (
	"strings"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// GateResult результат проверки обязательных подписок
type GateResult struct {
	Missing []model.ChannelRef
	// CheckFailed означает, что каналы есть, но ни один запрос не удалось даже начать
	CheckFailed bool
	Total       int
}

// Passed сообщает, выполнены ли все условия
func (r GateResult) Passed() bool {
	return len(r.Missing) == 0 && !r.CheckFailed
}

// JoinedNone сообщает, что пользователь не состоит ни в одном канале
func (r GateResult) JoinedNone() bool {
	return len(r.Missing) >= r.Total
}

// MembershipGate проверяет членство пользователя в каналах обязательной подписки.
// Результаты не кэшируются.
type MembershipGate struct {
	store     DocumentStore
	messenger Messenger
	logger    *zap.Logger
}

// NewMembershipGate создает новую проверку подписок
func NewMembershipGate(store DocumentStore, messenger Messenger, logger *zap.Logger) *MembershipGate {
	return &MembershipGate{
		store:     store,
		messenger: messenger,
		logger:    logger,
	}
}

// MissingChannels возвращает каналы, в которых пользователь не состоит
func (g *MembershipGate) MissingChannels(userID int64) (GateResult, error) {
	doc, err := g.store.Load()
	if err != nil {
		return GateResult{}, err
	}
	return g.check(doc.Force.Channels, userID), nil
}

func (g *MembershipGate) check(channels []model.ChannelRef, userID int64) GateResult {
	result := GateResult{Total: len(channels)}
	if len(channels) == 0 {
		return result
	}

	attempted := false
	for _, ch := range channels {
		target := QueryTarget(ch)
		if target == "" {
			result.Missing = append(result.Missing, ch)
			continue
		}

		attempted = true
		status, err := g.messenger.MemberStatus(target, userID)
		if err != nil {
			g.logger.Warn("Membership query failed",
				zap.String("chat", target),
				zap.Int64("user_id", userID),
				zap.Error(err))
			result.Missing = append(result.Missing, ch)
			continue
		}
		if status == "left" || status == "kicked" {
			result.Missing = append(result.Missing, ch)
		}
	}

	result.CheckFailed = !attempted
	return result
}

// QueryTarget возвращает идентификатор для запроса членства: chat_id,
// иначе @handle из публичной ссылки t.me. Для приватных ссылок возвращает пустую строку.
func QueryTarget(ch model.ChannelRef) string {
	if ch.ChatID != "" {
		return ch.ChatID
	}
	if !strings.Contains(ch.InviteURL, "t.me/") {
		return ""
	}

	parts := strings.Split(strings.TrimRight(ch.InviteURL, "/"), "/")
	tail := parts[len(parts)-1]
	lower := strings.ToLower(tail)
	if tail == "" || strings.HasPrefix(lower, "joinchat") || strings.HasPrefix(lower, "+") {
		return ""
	}
	if strings.HasPrefix(tail, "@") {
		return tail
	}
	return "@" + tail
}
