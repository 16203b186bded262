// Package handlers содержит обработчики команд, кнопок и диалогов.
package handlers

import (
	"context"
	"errors"

	"autoapprove/internal/external/telegram"
	"autoapprove/internal/keyboard"
	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type callbackFunc func(ctx context.Context, query *tgbotapi.CallbackQuery, action keyboard.Action)

// Handlers содержит все обработчики команд
type Handlers struct {
	services  *service.Services
	keyboard  *keyboard.Manager
	botAPI    telegram.BotAPI
	flows     *FlowStore
	logger    *zap.Logger
	callbacks map[keyboard.ActionKind]callbackFunc
}

// New создает новый экземпляр обработчиков
func New(services *service.Services, kb *keyboard.Manager, botAPI telegram.BotAPI, logger *zap.Logger) *Handlers {
	h := &Handlers{
		services: services,
		keyboard: kb,
		botAPI:   botAPI,
		flows:    NewFlowStore(DefaultFlowTTL),
		logger:   logger,
	}
	h.callbacks = h.callbackTable()
	return h
}

// IsOwner проверяет, является ли пользователь владельцем
func (h *Handlers) IsOwner(userID int64) bool {
	return h.services.Access.IsOwner(userID)
}

// DenyOwnerPanel отвечает пользователю без прав владельца
func (h *Handlers) DenyOwnerPanel(chatID int64) {
	h.reply(chatID, ownerOnlyPanel, nil)
}

// reply отправляет Markdown-сообщение; ошибки доставки только логируются
func (h *Handlers) reply(chatID int64, text string, markup any) {
	if _, err := h.botAPI.SendMessage(chatID, text, markup); err != nil {
		h.logger.Warn("Failed to send reply",
			zap.Error(&model.DeliveryError{ChatID: chatID, Op: "send reply", Err: err}))
	}
}

// replyPlain отправляет текст без разметки, например пользовательский ввод
func (h *Handlers) replyPlain(chatID int64, text string, markup any) {
	if _, err := h.botAPI.SendPlain(chatID, text, markup); err != nil {
		h.logger.Warn("Failed to send reply",
			zap.Error(&model.DeliveryError{ChatID: chatID, Op: "send reply", Err: err}))
	}
}

// edit заменяет сообщение с кнопкой; если это невозможно, отправляет новое
func (h *Handlers) edit(query *tgbotapi.CallbackQuery, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	chatID := callbackChat(query)
	if query.Message != nil {
		err := h.botAPI.EditMessage(chatID, query.Message.MessageID, text, markup)
		if err == nil {
			return
		}
		h.logger.Debug("Failed to edit message, sending a new one", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	if markup != nil {
		h.reply(chatID, text, *markup)
		return
	}
	h.reply(chatID, text, nil)
}

// fail логирует ошибку и сообщает владельцу о сбое
func (h *Handlers) fail(chatID int64, op string, err error) {
	h.logger.Error("Handler failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		h.replyPlain(chatID, "❌ "+validationDetails(verr), nil)
		return
	}
	h.reply(chatID, unexpectedError, h.keyboard.RemoveReply())
}

func callbackChat(query *tgbotapi.CallbackQuery) int64 {
	if query.Message != nil && query.Message.Chat != nil {
		return query.Message.Chat.ID
	}
	return query.From.ID
}

// RegisterBotCommands возвращает меню команд бота
func (h *Handlers) RegisterBotCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "owner", Description: "Open the owner panel"},
		{Command: "search", Description: "Search public channels and groups"},
		{Command: "help", Description: "Show help"},
	}
}
