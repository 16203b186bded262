package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autoapprove/internal/model"
	"autoapprove/internal/store"

	"go.uber.org/zap"
)

var errSendFailed = errors.New("send failed")

type sentDocument struct {
	chatID    int64
	fileName  string
	caption   string
	messageID int
	data      []byte
}

type sentText struct {
	chatID int64
	text   string
}

type deletedMessage struct {
	chatID    int64
	messageID int
}

type joinDecision struct {
	chatID int64
	userID int64
}

// fakeMessenger записывает все исходящие вызовы
type fakeMessenger struct {
	mu          sync.Mutex
	nextID      int
	documents   []sentDocument
	texts       []sentText
	deleted     []deletedMessage
	approved    []joinDecision
	declined    []joinDecision
	failSend    map[int64]bool
	failDelete  bool
	failApprove error
	// statuses: chat -> user -> status
	statuses    map[string]map[int64]string
	statusErr   map[string]error
	statusCalls int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		failSend:  map[int64]bool{},
		statuses:  map[string]map[int64]string{},
		statusErr: map[string]error{},
	}
}

func (f *fakeMessenger) SendText(chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[chatID] {
		return 0, errSendFailed
	}
	f.nextID++
	f.texts = append(f.texts, sentText{chatID: chatID, text: text})
	return f.nextID, nil
}

func (f *fakeMessenger) SendDocument(chatID int64, fileName string, data []byte, caption string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend[chatID] {
		return 0, errSendFailed
	}
	f.nextID++
	f.documents = append(f.documents, sentDocument{
		chatID: chatID, fileName: fileName, caption: caption, messageID: f.nextID, data: data,
	})
	return f.nextID, nil
}

func (f *fakeMessenger) DeleteMessage(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errSendFailed
	}
	f.deleted = append(f.deleted, deletedMessage{chatID: chatID, messageID: messageID})
	return nil
}

func (f *fakeMessenger) ApproveJoinRequest(chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failApprove != nil {
		return f.failApprove
	}
	f.approved = append(f.approved, joinDecision{chatID: chatID, userID: userID})
	return nil
}

func (f *fakeMessenger) DeclineJoinRequest(chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declined = append(f.declined, joinDecision{chatID: chatID, userID: userID})
	return nil
}

func (f *fakeMessenger) MemberStatus(chat string, userID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if err := f.statusErr[chat]; err != nil {
		return "", err
	}
	if users, ok := f.statuses[chat]; ok {
		if status, ok := users[userID]; ok {
			return status, nil
		}
	}
	return "left", nil
}

func (f *fakeMessenger) setStatus(chat string, userID int64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses[chat] == nil {
		f.statuses[chat] = map[int64]string{}
	}
	f.statuses[chat][userID] = status
}

func (f *fakeMessenger) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, t := range f.texts {
		if t.chatID == chatID {
			out = append(out, t.text)
		}
	}
	return out
}

func (f *fakeMessenger) approvedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.approved)
}

// fakeScheduler выполняет задачи только по запросу теста
type fakeScheduler struct {
	mu        sync.Mutex
	repeating map[string]time.Duration
	once      map[string]func()
	delays    map[string]time.Duration
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		repeating: map[string]time.Duration{},
		once:      map[string]func(){},
		delays:    map[string]time.Duration{},
	}
}

func (s *fakeScheduler) ScheduleRepeating(name string, first, every time.Duration, job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeating[name] = every
}

func (s *fakeScheduler) ScheduleOnce(name string, delay time.Duration, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.once[name]; ok {
		return false
	}
	s.once[name] = job
	s.delays[name] = delay
	return true
}

func (s *fakeScheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.repeating[name]
	delete(s.repeating, name)
	return ok
}

func (s *fakeScheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.once[name]
	return ok
}

func (s *fakeScheduler) fire(name string) {
	s.mu.Lock()
	job, ok := s.once[name]
	delete(s.once, name)
	s.mu.Unlock()
	if ok {
		job()
	}
}

type fakeArchiver struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (a *fakeArchiver) Archive(_ context.Context, reason string, payload []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.reasons = append(a.reasons, reason)
	return nil
}

type testEnv struct {
	store     *store.ConfigStore
	slot      *store.BackupSlot
	messenger *fakeMessenger
	scheduler *fakeScheduler
	backup    *BackupManager
}

const testOwner int64 = 1

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	env := &testEnv{
		store:     store.NewConfigStore(filepath.Join(dir, "data.json"), testOwner, logger),
		slot:      store.NewBackupSlot(filepath.Join(dir, "last_backup.json")),
		messenger: newFakeMessenger(),
		scheduler: newFakeScheduler(),
	}
	env.backup = NewBackupManager(env.store, env.slot, env.messenger, env.scheduler, nil, logger)
	env.backup.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return env
}

func (e *testEnv) mustUpdate(t *testing.T, fn func(doc *model.Document)) {
	t.Helper()
	_, err := e.store.Update(func(doc *model.Document) error {
		fn(doc)
		return nil
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func (e *testEnv) mustLoad(t *testing.T) *model.Document {
	t.Helper()
	doc, err := e.store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return doc
}
