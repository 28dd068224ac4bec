package ports

import (
	"context"
	"time"

	"settlement-ledger/internal/core/domain"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks settlement-ledger/internal/core/ports SnapshotRepository,SnapshotCache

// SnapshotRepository persists serialized ledger snapshots.
type SnapshotRepository interface {
	Save(ctx context.Context, rec *domain.SnapshotRecord) error
	// GetLatest returns the most recent snapshot, or nil when none exists.
	GetLatest(ctx context.Context) (*domain.SnapshotRecord, error)
}

// SnapshotCache caches the latest snapshot payload for fast restore.
// Best-effort: callers fall back to the repository on miss or failure.
type SnapshotCache interface {
	SetLatest(ctx context.Context, payload []byte, ttl time.Duration) error
	// GetLatest returns nil, nil on cache miss.
	GetLatest(ctx context.Context) ([]byte, error)
}
