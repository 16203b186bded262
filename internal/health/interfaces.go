package health

import (
	"context"

	"autoapprove/internal/model"
)

// DocumentReader определяет интерфейс проверки читаемости файла данных
type DocumentReader interface {
	Load() (*model.Document, error)
}

// Pinger определяет интерфейс проверки подключения к архиву
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusReporter отдает состояние фоновых задач
type StatusReporter interface {
	GetStatus() map[string]interface{}
}
