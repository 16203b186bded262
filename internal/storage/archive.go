package storage

import (
	"context"
	"fmt"

	"autoapprove/internal/model"

	"go.uber.org/zap"
)

// SnapshotArchive сохраняет снимки документа в репозиторий и ограничивает их количество
type SnapshotArchive struct {
	repo   model.SnapshotRepository
	keep   int
	logger *zap.Logger
}

// NewSnapshotArchive создает архив снимков
func NewSnapshotArchive(repo model.SnapshotRepository, keep int, logger *zap.Logger) *SnapshotArchive {
	return &SnapshotArchive{
		repo:   repo,
		keep:   keep,
		logger: logger,
	}
}

// Archive сохраняет снимок и удаляет старые сверх лимита
func (a *SnapshotArchive) Archive(ctx context.Context, reason string, payload []byte) error {
	snapshot := &model.Snapshot{
		Reason:    reason,
		Payload:   string(payload),
		SizeBytes: len(payload),
	}
	if err := a.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}

	if a.keep > 0 {
		if _, err := a.repo.Prune(ctx, a.keep); err != nil {
			// снимок уже сохранен, очистка повторится при следующем бэкапе
			a.logger.Warn("Failed to prune snapshot archive", zap.Error(err))
		}
	}
	return nil
}

// Latest возвращает последний архивный снимок
func (a *SnapshotArchive) Latest(ctx context.Context) (*model.Snapshot, error) {
	return a.repo.Latest(ctx)
}
