package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Snapshot представляет архивную копию документа в PostgreSQL
type Snapshot struct {
	bun.BaseModel `bun:"table:backup_snapshots"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Reason    string    `bun:"reason,notnull" json:"reason"`
	Payload   string    `bun:"payload,type:jsonb,notnull" json:"payload"`
	SizeBytes int       `bun:"size_bytes,notnull" json:"size_bytes"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// SnapshotRepository определяет интерфейс архива снимков
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Latest(ctx context.Context) (*Snapshot, error)
	Count(ctx context.Context) (int, error)
	Prune(ctx context.Context, keep int) (int, error)
}
