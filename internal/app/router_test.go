package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autoapprove/internal/config"
	"autoapprove/internal/handlers"
	"autoapprove/internal/keyboard"
	"autoapprove/internal/middleware"
	"autoapprove/internal/model"
	"autoapprove/internal/service"
	"autoapprove/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const owner int64 = 1

// recordingBot запоминает отправленные тексты
type recordingBot struct {
	mu       sync.Mutex
	texts    map[int64][]string
	answered []string
}

func (b *recordingBot) add(chatID int64, text string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.texts == nil {
		b.texts = make(map[int64][]string)
	}
	b.texts[chatID] = append(b.texts[chatID], text)
	return len(b.texts[chatID]), nil
}

func (b *recordingBot) sentTo(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts[chatID]...)
}

func (b *recordingBot) SendMessage(chatID int64, text string, _ any) (int, error) {
	return b.add(chatID, text)
}
func (b *recordingBot) SendPlain(chatID int64, text string, _ any) (int, error) {
	return b.add(chatID, text)
}
func (b *recordingBot) SendText(chatID int64, text string) (int, error) { return b.add(chatID, text) }
func (b *recordingBot) EditMessage(chatID int64, _ int, text string, _ *tgbotapi.InlineKeyboardMarkup) error {
	_, err := b.add(chatID, text)
	return err
}
func (b *recordingBot) AnswerCallback(callbackID, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answered = append(b.answered, callbackID)
	return nil
}
func (b *recordingBot) DeleteMessage(int64, int) error { return nil }
func (b *recordingBot) DownloadFile(context.Context, string) ([]byte, error) {
	return nil, nil
}
func (b *recordingBot) Username() string { return "test_bot" }
func (b *recordingBot) SendDocument(int64, string, []byte, string) (int, error) {
	return 0, nil
}
func (b *recordingBot) ApproveJoinRequest(int64, int64) error      { return nil }
func (b *recordingBot) DeclineJoinRequest(int64, int64) error      { return nil }
func (b *recordingBot) MemberStatus(string, int64) (string, error) { return "member", nil }

func newTestRouter(t *testing.T) (*Router, *recordingBot, *store.ConfigStore) {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	cfg := &config.Config{
		OwnerID:   owner,
		RateLimit: config.RateLimitConfig{PerSecond: 100, Burst: 100},
		Search:    config.SearchConfig{PageSize: 5, ResultLimit: 10, SessionTTL: time.Minute},
	}
	bot := &recordingBot{}
	configStore := store.NewConfigStore(filepath.Join(dir, "data.json"), owner, logger)
	services := service.NewServices(cfg, service.Dependencies{
		Store:     configStore,
		Slot:      store.NewBackupSlot(filepath.Join(dir, "last_backup.json")),
		Messenger: bot,
	}, logger)

	h := handlers.New(services, keyboard.NewManager(), bot, logger)
	return NewRouter(h, middleware.New(cfg.RateLimit, logger), logger), bot, configStore
}

func command(updateID int, userID int64, chat *tgbotapi.Chat, text string) tgbotapi.Update {
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	return tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: updateID,
			From:      &tgbotapi.User{ID: userID},
			Chat:      chat,
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
		},
	}
}

func TestRouter_OwnerCommandIsRestricted(t *testing.T) {
	router, bot, _ := newTestRouter(t)
	ctx := context.Background()

	router.HandleUpdate(ctx, command(1, 7, &tgbotapi.Chat{ID: 7, Type: "private"}, "/owner"))
	assert.Equal(t, []string{"❌ Only owners can access this panel."}, bot.sentTo(7))

	router.HandleUpdate(ctx, command(2, owner, &tgbotapi.Chat{ID: owner, Type: "private"}, "/owner"))
	require.Len(t, bot.sentTo(owner), 1)
	assert.Contains(t, bot.sentTo(owner)[0], "Owner Panel")
}

func TestRouter_RecordsChatsFromGroupsAndChannels(t *testing.T) {
	router, _, configStore := newTestRouter(t)
	ctx := context.Background()

	router.HandleUpdate(ctx, tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: 7},
			Chat:      &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Group"},
			Text:      "hello",
		},
	})
	router.HandleUpdate(ctx, tgbotapi.Update{
		UpdateID:    2,
		ChannelPost: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: -200, Type: "channel", Title: "News"}},
	})

	doc, err := configStore.Load()
	require.NoError(t, err)
	assert.Equal(t, []model.ChatRecord{
		{ChatID: -100, Title: "Group", Type: "supergroup"},
		{ChatID: -200, Title: "News", Type: "channel"},
	}, doc.KnownChats)
}

func TestRouter_PlainTextRoutesOnlyOwners(t *testing.T) {
	router, bot, _ := newTestRouter(t)
	ctx := context.Background()

	router.HandleUpdate(ctx, tgbotapi.Update{
		UpdateID: 1,
		Message:  &tgbotapi.Message{MessageID: 1, From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7, Type: "private"}, Text: "hi"},
	})
	assert.Empty(t, bot.sentTo(7))

	router.HandleUpdate(ctx, tgbotapi.Update{
		UpdateID: 2,
		Message:  &tgbotapi.Message{MessageID: 2, From: &tgbotapi.User{ID: owner}, Chat: &tgbotapi.Chat{ID: owner, Type: "private"}, Text: "hi"},
	})
	assert.Equal(t, []string{"Unknown or expired operation. Use /owner to open owner panel."}, bot.sentTo(owner))
}

func TestRouter_DebouncedCallbackIsAnswered(t *testing.T) {
	router, bot, _ := newTestRouter(t)
	ctx := context.Background()

	press := func(updateID int) tgbotapi.Update {
		return tgbotapi.Update{
			UpdateID: updateID,
			CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      fmt.Sprintf("cb-%d", updateID),
				From:    &tgbotapi.User{ID: owner},
				Data:    "owner_db",
				Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: owner, Type: "private"}},
			},
		}
	}

	router.HandleUpdate(ctx, press(1))
	router.HandleUpdate(ctx, press(2))

	bot.mu.Lock()
	defer bot.mu.Unlock()
	assert.Equal(t, []string{"cb-1", "cb-2"}, bot.answered, "the repeated press is answered without being handled")
	assert.Len(t, bot.texts[owner], 1)
}

func TestRouter_BotCommands(t *testing.T) {
	router, _, _ := newTestRouter(t)

	var names []string
	for _, c := range router.RegisterBotCommands() {
		names = append(names, c.Command)
	}
	assert.Equal(t, []string{"start", "owner", "search", "help"}, names)
}
