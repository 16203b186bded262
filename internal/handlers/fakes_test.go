package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"autoapprove/internal/config"
	"autoapprove/internal/keyboard"
	"autoapprove/internal/model"
	"autoapprove/internal/service"
	"autoapprove/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	testOwner int64 = 1
	testUser  int64 = 7
)

type sentMessage struct {
	chatID int64
	text   string
	markup any
}

type fakeBot struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	edits     []sentMessage
	documents []sentMessage
	answered  []string
	deleted   []int
	approved  []int64
	declined  []int64
	statuses  map[string]string
	files     map[string][]byte
}

func newFakeBot() *fakeBot {
	return &fakeBot{
		statuses: make(map[string]string),
		files:    make(map[string][]byte),
	}
}

func (b *fakeBot) record(chatID int64, text string, markup any) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.sent = append(b.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return b.nextID, nil
}

func (b *fakeBot) SendMessage(chatID int64, text string, markup any) (int, error) {
	return b.record(chatID, text, markup)
}

func (b *fakeBot) SendPlain(chatID int64, text string, markup any) (int, error) {
	return b.record(chatID, text, markup)
}

func (b *fakeBot) SendText(chatID int64, text string) (int, error) {
	return b.record(chatID, text, nil)
}

func (b *fakeBot) EditMessage(chatID int64, _ int, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var m any
	if markup != nil {
		m = *markup
	}
	b.edits = append(b.edits, sentMessage{chatID: chatID, text: text, markup: m})
	return nil
}

func (b *fakeBot) AnswerCallback(callbackID, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answered = append(b.answered, callbackID)
	return nil
}

func (b *fakeBot) DeleteMessage(_ int64, messageID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, messageID)
	return nil
}

func (b *fakeBot) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (b *fakeBot) Username() string { return "autoapprove_bot" }

func (b *fakeBot) SendDocument(chatID int64, fileName string, _ []byte, caption string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.documents = append(b.documents, sentMessage{chatID: chatID, text: fileName + "|" + caption})
	return b.nextID, nil
}

func (b *fakeBot) ApproveJoinRequest(_, userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.approved = append(b.approved, userID)
	return nil
}

func (b *fakeBot) DeclineJoinRequest(_, userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.declined = append(b.declined, userID)
	return nil
}

func (b *fakeBot) MemberStatus(chat string, userID int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status, ok := b.statuses[fmt.Sprintf("%s:%d", chat, userID)]; ok {
		return status, nil
	}
	return "left", nil
}

func (b *fakeBot) setStatus(chat string, userID int64, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses[fmt.Sprintf("%s:%d", chat, userID)] = status
}

// last возвращает последнее сообщение в чат
func (b *fakeBot) last(t *testing.T, chatID int64) sentMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.sent) - 1; i >= 0; i-- {
		if b.sent[i].chatID == chatID {
			return b.sent[i]
		}
	}
	t.Fatalf("no messages sent to %d", chatID)
	return sentMessage{}
}

func (b *fakeBot) lastEdit(t *testing.T) sentMessage {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.edits) == 0 {
		t.Fatal("no messages edited")
	}
	return b.edits[len(b.edits)-1]
}

func (b *fakeBot) textsTo(chatID int64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var texts []string
	for _, m := range b.sent {
		if m.chatID == chatID {
			texts = append(texts, m.text)
		}
	}
	return texts
}

type fakeSearch struct {
	results []model.SearchResult
}

func (s *fakeSearch) Search(_ context.Context, _ string, limit int) ([]model.SearchResult, error) {
	return s.results[:min(limit, len(s.results))], nil
}

type testEnv struct {
	handlers *Handlers
	bot      *fakeBot
	store    *store.ConfigStore
	services *service.Services
}

func newTestEnv(t *testing.T, search service.SearchProvider) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	cfg := &config.Config{
		OwnerID:         testOwner,
		NotifyOnApprove: true,
		Search:          config.SearchConfig{PageSize: 2, ResultLimit: 10, SessionTTL: time.Minute},
	}
	bot := newFakeBot()
	configStore := store.NewConfigStore(filepath.Join(dir, "data.json"), testOwner, logger)
	services := service.NewServices(cfg, service.Dependencies{
		Store:     configStore,
		Slot:      store.NewBackupSlot(filepath.Join(dir, "last_backup.json")),
		Messenger: bot,
		Search:    search,
	}, logger)

	return &testEnv{
		handlers: New(services, keyboard.NewManager(), bot, logger),
		bot:      bot,
		store:    configStore,
		services: services,
	}
}

func (e *testEnv) update(t *testing.T, fn func(doc *model.Document)) {
	t.Helper()
	_, err := e.store.Update(func(doc *model.Document) error {
		fn(doc)
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func (e *testEnv) load(t *testing.T) *model.Document {
	t.Helper()
	doc, err := e.store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return doc
}

func privateChat(userID int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: userID, Type: "private"}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID},
		Chat:      privateChat(userID),
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	return msg
}

func documentMessage(userID int64, fileName, fileID string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 2,
		From:      &tgbotapi.User{ID: userID},
		Chat:      privateChat(userID),
		Document:  &tgbotapi.Document{FileID: fileID, FileName: fileName},
	}
}

func callbackQuery(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-" + data,
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      privateChat(userID),
		},
	}
}
