// Package telegram содержит интеграцию с Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// MaxDownloadSize предел размера загружаемого файла
	MaxDownloadSize = 20 << 20

	pollTimeout    = 60
	reconnectDelay = 10 * time.Second
)

// AllowedUpdates типы обновлений, которые запрашивает бот
var AllowedUpdates = []string{"message", "channel_post", "callback_query", "chat_join_request", "my_chat_member"}

// Client представляет клиент Telegram Bot API
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

// NewClient создает новый клиент Telegram
func NewClient(botToken string, logger *zap.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false
	logger.Info("Telegram bot created", zap.String("username", bot.Self.UserName))

	return &Client{
		bot:    bot,
		logger: logger,
	}, nil
}

// Username возвращает username бота
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Start регистрирует команды и обрабатывает обновления до отмены контекста
func (c *Client) Start(ctx context.Context, router UpdateRouter) error {
	c.logger.Info("Bot started", zap.String("username", c.bot.Self.UserName))

	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	if _, err := c.bot.Request(tgbotapi.NewSetMyCommands(router.RegisterBotCommands()...)); err != nil {
		// меню команд не критично для работы
		c.logger.Warn("Failed to set bot commands", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = AllowedUpdates

	c.logger.Info("Starting to fetch updates")
	updatesChan := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Update loop cancelled by context")
			return ctx.Err()
		case update, ok := <-updatesChan:
			if !ok {
				c.logger.Warn("Update channel closed, will try to reconnect after delay")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					return fmt.Errorf("update channel closed, reconnecting")
				}
			}

			c.logger.Debug("Processing update",
				zap.Int("update_id", update.UpdateID),
				zap.Int64("user_id", getUserID(update)),
				zap.String("update_type", getUpdateType(update)))
			router.HandleUpdate(ctx, update)
		}
	}
}

// SendText отправляет простой текст
func (c *Client) SendText(chatID int64, text string) (int, error) {
	return c.SendPlain(chatID, text, nil)
}

// SendPlain отправляет сообщение без разметки
func (c *Client) SendPlain(chatID int64, text string, markup any) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendMessage отправляет сообщение с Markdown разметкой
func (c *Client) SendMessage(chatID int64, text string, markup any) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		if isParseError(err) {
			c.logger.Debug("Markdown rejected, resending as plain text", zap.Int64("chat_id", chatID))
			return c.SendPlain(chatID, text, markup)
		}
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage редактирует сообщение с клавиатурой
func (c *Client) EditMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = markup

	if _, err := c.bot.Send(edit); err != nil {
		if isNotModified(err) {
			return nil
		}
		if isParseError(err) {
			edit.ParseMode = ""
			if _, err := c.bot.Send(edit); err == nil {
				return nil
			}
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// AnswerCallback отвечает на callback query
func (c *Client) AnswerCallback(callbackID, text string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

// DeleteMessage удаляет сообщение
func (c *Client) DeleteMessage(chatID int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// SendDocument отправляет файл из памяти
func (c *Client) SendDocument(chatID int64, fileName string, data []byte, caption string) (int, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: data})
	doc.Caption = caption

	sent, err := c.bot.Send(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to send document: %w", err)
	}
	return sent.MessageID, nil
}

// ApproveJoinRequest одобряет заявку на вступление
func (c *Client) ApproveJoinRequest(chatID, userID int64) error {
	req := tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	if _, err := c.bot.Request(req); err != nil {
		return fmt.Errorf("failed to approve join request: %w", err)
	}
	return nil
}

// DeclineJoinRequest отклоняет заявку на вступление
func (c *Client) DeclineJoinRequest(chatID, userID int64) error {
	req := tgbotapi.DeclineChatJoinRequest{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	if _, err := c.bot.Request(req); err != nil {
		return fmt.Errorf("failed to decline join request: %w", err)
	}
	return nil
}

// MemberStatus возвращает статус пользователя в чате. chat это числовой id или @username.
func (c *Client) MemberStatus(chat string, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = chat
	}

	member, err := c.bot.GetChatMember(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to get chat member: %w", err)
	}
	return member.Status, nil
}

// DownloadFile скачивает файл, присланный боту
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.bot.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("file exceeds %d bytes", MaxDownloadSize)
	}
	return data, nil
}

func isParseError(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && strings.Contains(tgErr.Message, "can't parse entities")
}

func isNotModified(err error) bool {
	var tgErr *tgbotapi.Error
	return errors.As(err, &tgErr) && strings.Contains(tgErr.Message, "message is not modified")
}

// getUserID извлекает ID пользователя из обновления
func getUserID(update tgbotapi.Update) int64 {
	if user := update.SentFrom(); user != nil {
		return user.ID
	}
	return 0
}

// getUpdateType определяет тип обновления
func getUpdateType(update tgbotapi.Update) string {
	switch {
	case update.Message != nil:
		if update.Message.IsCommand() {
			return "command"
		}
		if update.Message.Document != nil {
			return "document"
		}
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
	return "unknown"
}
