package service

import (
	"context"
	"time"

	"autoapprove/internal/model"
)

// DocumentStore определяет интерфейс хранилища документа конфигурации
type DocumentStore interface {
	Load() (*model.Document, error)
	Save(doc *model.Document) error
	Update(fn func(doc *model.Document) error) (*model.Document, error)
	DefaultOwner() int64
}

// SnapshotSlot определяет интерфейс слота последнего бэкапа
type SnapshotSlot interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Exists() bool
}

// Messenger определяет исходящие вызовы Bot API, которые нужны сервисам
type Messenger interface {
	SendText(chatID int64, text string) (int, error)
	SendDocument(chatID int64, fileName string, data []byte, caption string) (int, error)
	DeleteMessage(chatID int64, messageID int) error
	ApproveJoinRequest(chatID, userID int64) error
	DeclineJoinRequest(chatID, userID int64) error
	MemberStatus(chat string, userID int64) (string, error)
}

// Archiver определяет интерфейс внешнего архива снимков
type Archiver interface {
	Archive(ctx context.Context, reason string, payload []byte) error
}

// TaskScheduler определяет интерфейс планировщика именованных задач
type TaskScheduler interface {
	ScheduleRepeating(name string, first, every time.Duration, job func())
	ScheduleOnce(name string, delay time.Duration, job func()) bool
	Cancel(name string) bool
	Pending(name string) bool
}

// SearchProvider определяет интерфейс поиска публичных чатов
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error)
}
