// Package app содержит маршрутизацию обновлений и сборку приложения.
package app

import (
	"context"
	"strings"

	"autoapprove/internal/handlers"
	"autoapprove/internal/middleware"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ownerCommands команды, доступные только владельцам
var ownerCommands = []string{"owner"}

// Router обрабатывает маршрутизацию обновлений
type Router struct {
	handlers   *handlers.Handlers
	middleware *middleware.Middleware
	logger     *zap.Logger
}

// NewRouter создает новый роутер
func NewRouter(h *handlers.Handlers, mw *middleware.Middleware, logger *zap.Logger) *Router {
	mw.Use(middleware.OwnerOnly(ownerCommands, h.IsOwner, h.DenyOwnerPanel, logger))
	mw.OnDropped(h.AnswerDropped)
	return &Router{
		handlers:   h,
		middleware: mw,
		logger:     logger,
	}
}

// HandleUpdate обрабатывает обновление от Telegram
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	r.middleware.ProcessWithMiddleware(update, func(update tgbotapi.Update) {
		switch {
		case update.Message != nil:
			r.handleMessage(ctx, update.Message)
		case update.ChannelPost != nil:
			r.handlers.RecordChat(update.ChannelPost.Chat)
		case update.CallbackQuery != nil:
			r.handlers.Callback(ctx, update.CallbackQuery)
		case update.ChatJoinRequest != nil:
			r.handlers.JoinRequest(update.ChatJoinRequest)
		case update.MyChatMember != nil:
			r.handlers.MyChatMember(update.MyChatMember)
		}
	})
}

// handleMessage обрабатывает сообщения и команды
func (r *Router) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.Chat == nil {
		return
	}
	if !message.Chat.IsPrivate() {
		r.handlers.RecordChat(message.Chat)
	}

	if !message.IsCommand() {
		if message.Chat.IsPrivate() && message.From != nil && r.handlers.IsOwner(message.From.ID) {
			r.handlers.HandleOwnerInput(ctx, message)
		}
		return
	}

	switch strings.ToLower(message.Command()) {
	case "start":
		r.handlers.Start(message)
	case "owner":
		r.handlers.Owner(message)
	case "help":
		r.handlers.Help(message)
	case "search":
		r.handlers.Search(ctx, message)
	default:
		r.handlers.Unknown(message)
	}
}

// RegisterBotCommands регистрирует команды бота
func (r *Router) RegisterBotCommands() []tgbotapi.BotCommand {
	return r.handlers.RegisterBotCommands()
}
