package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports/mocks"
	"settlement-ledger/internal/ledger"
	"settlement-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testCacheTTL = time.Hour

// populatedLedger returns a ledger with the reconciliation wallets and a few
// settled transfers on it.
func populatedLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	r, l := newTestReconciler(t)
	_, err := r.OnchainReceive(25_000, true, "aa01")
	require.NoError(t, err)
	_, err = r.LightningReceive(4000, true, "hash1")
	require.NoError(t, err)
	return l
}

func TestSnapshotSave(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := populatedLedger(t)
	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)

	var saved *domain.SnapshotRecord
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.SnapshotRecord) error {
			saved = rec
			return nil
		})
	cache.EXPECT().SetLatest(gomock.Any(), gomock.Any(), testCacheTTL).Return(nil)

	svc := NewSnapshotService(l, repo, cache, testCacheTTL, zerolog.Nop())
	rec, err := svc.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, saved, rec)
	assert.Equal(t, ledger.SnapshotVersion, rec.Version)
	assert.NotEqual(t, rec.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.NotEmpty(t, rec.Payload)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestSnapshotSave_RepositoryError(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := populatedLedger(t)
	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)

	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("pg down"))

	svc := NewSnapshotService(l, repo, cache, testCacheTTL, zerolog.Nop())
	_, err := svc.Save(context.Background())
	require.Error(t, err)
}

func TestSnapshotSave_CacheFailureIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := populatedLedger(t)
	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)

	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	cache.EXPECT().SetLatest(gomock.Any(), gomock.Any(), testCacheTTL).Return(errors.New("redis down"))

	svc := NewSnapshotService(l, repo, cache, testCacheTTL, zerolog.Nop())
	rec, err := svc.Save(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestSnapshotRestore_FromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := populatedLedger(t)
	blob, err := source.Serialize()
	require.NoError(t, err)

	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)
	cache.EXPECT().GetLatest(gomock.Any()).Return(blob, nil)

	target := ledger.New()
	svc := NewSnapshotService(target, repo, cache, testCacheTTL, zerolog.Nop())
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)

	assert.Equal(t, source.Transactions(), target.Transactions())
	got, err := target.WalletBalance(domain.WalletOnchain)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Available: 25_000}, got)
}

func TestSnapshotRestore_CacheMissFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := populatedLedger(t)
	blob, err := source.Serialize()
	require.NoError(t, err)

	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)
	cache.EXPECT().GetLatest(gomock.Any()).Return(nil, nil)
	repo.EXPECT().GetLatest(gomock.Any()).Return(&domain.SnapshotRecord{
		ID:      uuid.New(),
		Version: ledger.SnapshotVersion,
		Payload: blob,
	}, nil)

	target := ledger.New()
	svc := NewSnapshotService(target, repo, cache, testCacheTTL, zerolog.Nop())
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Len(t, target.Transactions(), 2)
}

func TestSnapshotRestore_CacheErrorFallsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := populatedLedger(t)
	blob, err := source.Serialize()
	require.NoError(t, err)

	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)
	cache.EXPECT().GetLatest(gomock.Any()).Return(nil, errors.New("redis down"))
	repo.EXPECT().GetLatest(gomock.Any()).Return(&domain.SnapshotRecord{
		ID:      uuid.New(),
		Version: ledger.SnapshotVersion,
		Payload: blob,
	}, nil)

	target := ledger.New()
	svc := NewSnapshotService(target, repo, cache, testCacheTTL, zerolog.Nop())
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
}

func TestSnapshotRestore_NoSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSnapshotRepository(ctrl)
	cache := mocks.NewMockSnapshotCache(ctrl)
	cache.EXPECT().GetLatest(gomock.Any()).Return(nil, nil)
	repo.EXPECT().GetLatest(gomock.Any()).Return(nil, nil)

	svc := NewSnapshotService(ledger.New(), repo, cache, testCacheTTL, zerolog.Nop())
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
}

func TestSnapshotRestore_NilCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := populatedLedger(t)
	blob, err := source.Serialize()
	require.NoError(t, err)

	repo := mocks.NewMockSnapshotRepository(ctrl)
	repo.EXPECT().GetLatest(gomock.Any()).Return(&domain.SnapshotRecord{
		ID:      uuid.New(),
		Version: ledger.SnapshotVersion,
		Payload: blob,
	}, nil)

	svc := NewSnapshotService(ledger.New(), repo, nil, 0, zerolog.Nop())
	restored, err := svc.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
}

func TestSnapshotRestore_UnsupportedVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockSnapshotRepository(ctrl)
	repo.EXPECT().GetLatest(gomock.Any()).Return(&domain.SnapshotRecord{
		ID:      uuid.New(),
		Version: 99,
		Payload: []byte(`{"metadata":{"version":99},"data":{"wallets":{},"transactions":[]}}`),
	}, nil)

	svc := NewSnapshotService(ledger.New(), repo, nil, 0, zerolog.Nop())
	_, err := svc.Restore(context.Background())
	assertCode(t, err, apperror.CodeUnsupportedSnapshotVersion)
}
