package middleware

import (
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// OwnerOnly ограничивает перечисленные команды владельцами.
// deny вызывается для отказа, чтобы пользователь получил ответ.
func OwnerOnly(commands []string, isOwner func(userID int64) bool, deny func(chatID int64), logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		msg := update.Message
		if msg == nil || !msg.IsCommand() || !slices.Contains(commands, msg.Command()) {
			next(update)
			return
		}

		if msg.From == nil {
			logger.Warn("No user information in message", zap.Int("update_id", update.UpdateID))
			return
		}

		if !isOwner(msg.From.ID) {
			logger.Warn("Unauthorized access attempt",
				zap.String("command", msg.Command()),
				zap.String("user", getUserIdentifier(msg.From)),
				zap.Int64("user_id", msg.From.ID))
			deny(msg.Chat.ID)
			return
		}

		next(update)
	}
}
