package service

import (
	"context"
	"fmt"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/internal/ledger"
	"settlement-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SnapshotSvc persists and restores serialized ledger state. The repository
// is the source of truth; the cache only accelerates restore and every cache
// failure degrades to the repository path.
type SnapshotSvc struct {
	ledger   ports.LedgerSnapshotter
	repo     ports.SnapshotRepository
	cache    ports.SnapshotCache
	cacheTTL time.Duration
	log      zerolog.Logger
}

// NewSnapshotService wires a snapshot service. cache may be nil when no cache
// is configured.
func NewSnapshotService(
	ledgerSnap ports.LedgerSnapshotter,
	repo ports.SnapshotRepository,
	cache ports.SnapshotCache,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *SnapshotSvc {
	return &SnapshotSvc{
		ledger:   ledgerSnap,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Save serializes the current ledger state and persists it as a new snapshot
// record. The cache is refreshed best-effort after a successful write.
func (s *SnapshotSvc) Save(ctx context.Context) (*domain.SnapshotRecord, error) {
	blob, err := s.ledger.Serialize()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("serialize ledger: %w", err))
	}

	rec := &domain.SnapshotRecord{
		ID:        uuid.New(),
		Version:   ledger.SnapshotVersion,
		Payload:   blob,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, blob, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("snapshot cache refresh failed")
		}
	}

	s.log.Info().
		Str("snapshot_id", rec.ID.String()).
		Int("bytes", len(blob)).
		Msg("ledger snapshot saved")
	return rec, nil
}

// Restore loads the latest snapshot into the ledger, preferring the cache.
// The restored state is integrity-checked before Restore reports success.
// Returns false when no snapshot exists yet.
func (s *SnapshotSvc) Restore(ctx context.Context) (bool, error) {
	blob, err := s.latestPayload(ctx)
	if err != nil {
		return false, err
	}
	if blob == nil {
		s.log.Info().Msg("no ledger snapshot found")
		return false, nil
	}

	if err := s.ledger.Deserialize(blob); err != nil {
		return false, err
	}
	if err := s.ledger.CheckIntegrity(); err != nil {
		return false, err
	}

	s.log.Info().Int("bytes", len(blob)).Msg("ledger restored from snapshot")
	return true, nil
}

func (s *SnapshotSvc) latestPayload(ctx context.Context) ([]byte, error) {
	if s.cache != nil {
		blob, err := s.cache.GetLatest(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("snapshot cache read failed")
		} else if blob != nil {
			return blob, nil
		}
	}

	rec, err := s.repo.GetLatest(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec.Payload, nil
}
