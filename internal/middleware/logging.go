package middleware

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Logging логирует каждое обновление с контекстом и длительностью обработки
func Logging(logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		start := time.Now()
		requestID := fmt.Sprintf("%d-%d", update.UpdateID, start.UnixNano())

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.Int("update_id", update.UpdateID),
			zap.String("kind", updateKind(update)),
			zap.String("user", getUserIdentifier(update.SentFrom())),
		}
		if chat := update.FromChat(); chat != nil {
			fields = append(fields, zap.Int64("chat_id", chat.ID))
		}
		if update.Message != nil && update.Message.IsCommand() {
			fields = append(fields, zap.String("command", update.Message.Command()))
		}

		logger.Info("Processing update", fields...)
		next(update)
		logger.Info("Update processed",
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)))
	}
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		return "command"
	case update.Message != nil && update.Message.Document != nil:
		return "document"
	case update.Message != nil:
		return "message"
	case update.CallbackQuery != nil:
		return "callback"
	case update.ChatJoinRequest != nil:
		return "join_request"
	case update.MyChatMember != nil:
		return "my_chat_member"
	case update.ChannelPost != nil:
		return "channel_post"
	}
	return "other"
}

// getUserIdentifier возвращает идентификатор пользователя
func getUserIdentifier(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}

	if user.UserName != "" {
		return "@" + user.UserName
	}

	if user.FirstName != "" {
		if user.LastName != "" {
			return user.FirstName + " " + user.LastName
		}
		return user.FirstName
	}

	return fmt.Sprintf("user_%d", user.ID)
}
