package integration

import (
	"context"
	"sync"

	"settlement-ledger/internal/core/domain"
)

// inMemorySnapshotRepo is a ports.SnapshotRepository backed by a slice,
// standing in for PostgreSQL in the integration tests. Append order doubles
// as creation order.
type inMemorySnapshotRepo struct {
	mu        sync.RWMutex
	snapshots []*domain.SnapshotRecord
}

func newInMemorySnapshotRepo() *inMemorySnapshotRepo {
	return &inMemorySnapshotRepo{}
}

func (r *inMemorySnapshotRepo) Save(ctx context.Context, rec *domain.SnapshotRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.snapshots = append(r.snapshots, &cp)
	return nil
}

func (r *inMemorySnapshotRepo) GetLatest(ctx context.Context) (*domain.SnapshotRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.snapshots) == 0 {
		return nil, nil
	}
	cp := *r.snapshots[len(r.snapshots)-1]
	return &cp, nil
}
