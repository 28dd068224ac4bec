package postgres

import (
	"context"
	"errors"
	"fmt"

	"settlement-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepo implements ports.SnapshotRepository. Snapshots are append-only;
// every save inserts a new row and restore reads the newest one.
type SnapshotRepo struct {
	pool Pool
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(pool Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Save inserts a snapshot record.
func (r *SnapshotRepo) Save(ctx context.Context, rec *domain.SnapshotRecord) error {
	query := `INSERT INTO ledger_snapshots (id, version, payload, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, rec.ID, rec.Version, rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the most recently created snapshot, or nil when the table
// is empty.
func (r *SnapshotRepo) GetLatest(ctx context.Context) (*domain.SnapshotRecord, error) {
	query := `SELECT id, version, payload, created_at
		FROM ledger_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`

	rec := &domain.SnapshotRecord{}
	err := r.pool.QueryRow(ctx, query).Scan(&rec.ID, &rec.Version, &rec.Payload, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest ledger snapshot: %w", err)
	}
	return rec, nil
}
