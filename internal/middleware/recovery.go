package middleware

import (
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Recovery перехватывает панику обработчика; одно обновление не роняет процесс
func Recovery(logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		defer func() {
			if panicErr := recover(); panicErr != nil {
				fields := []zap.Field{
					zap.Int("update_id", update.UpdateID),
					zap.String("user", getUserIdentifier(update.SentFrom())),
					zap.Any("panic", panicErr),
					zap.String("stack", string(debug.Stack())),
				}
				if update.Message != nil {
					fields = append(fields,
						zap.String("command", update.Message.Command()),
						zap.Int64("chat_id", update.Message.Chat.ID))
				}
				logger.Error("Panic recovered in recovery middleware", fields...)
			}
		}()
		next(update)
	}
}
