package handlers

import (
	"strconv"

	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// JoinRequest обрабатывает заявку на вступление в группу или канал
func (h *Handlers) JoinRequest(request *tgbotapi.ChatJoinRequest) {
	h.RecordChat(&request.Chat)

	userID := request.From.ID
	result, err := h.services.Access.HandleJoinRequest(request.Chat.ID, userID)
	if err != nil {
		h.logger.Error("Failed to handle join request",
			zap.Int64("chat_id", request.Chat.ID),
			zap.Int64("user_id", userID),
			zap.Stringer("outcome", result.Outcome),
			zap.Error(err))
		return
	}

	h.logger.Info("Join request processed",
		zap.Int64("chat_id", request.Chat.ID),
		zap.Int64("user_id", userID),
		zap.Stringer("outcome", result.Outcome))

	if result.Outcome == service.ApprovalGated {
		// пользователь мог не начинать диалог с ботом, тогда доставка не удастся
		h.replyGate(userID, result.Gate, result.VerifyLabel)
	}
}

// RecordChat запоминает группу или канал, где появился бот
func (h *Handlers) RecordChat(chat *tgbotapi.Chat) {
	if chat == nil || chat.IsPrivate() {
		return
	}

	title := chat.Title
	if title == "" {
		title = chat.UserName
	}
	if title == "" {
		title = strconv.FormatInt(chat.ID, 10)
	}

	if _, err := h.services.Access.RecordChat(model.ChatRecord{ChatID: chat.ID, Title: title, Type: chat.Type}); err != nil {
		h.logger.Error("Failed to record chat", zap.Int64("chat_id", chat.ID), zap.Error(err))
	}
}

// MyChatMember записывает чат, когда бота добавили или повысили
func (h *Handlers) MyChatMember(update *tgbotapi.ChatMemberUpdated) {
	switch update.NewChatMember.Status {
	case "member", "administrator":
		h.RecordChat(&update.Chat)
	}
}
