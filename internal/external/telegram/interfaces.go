package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateRouter определяет интерфейс для роутера обновлений
type UpdateRouter interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
	RegisterBotCommands() []tgbotapi.BotCommand
}

// BotAPI определяет исходящие вызовы, которые нужны обработчикам
type BotAPI interface {
	// SendMessage отправляет Markdown; при ошибке разметки повторяет простым текстом
	SendMessage(chatID int64, text string, markup any) (int, error)
	SendPlain(chatID int64, text string, markup any) (int, error)
	EditMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string) error
	DeleteMessage(chatID int64, messageID int) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	Username() string
}
