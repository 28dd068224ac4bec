package ports

import (
	"context"
	"encoding/json"

	"settlement-ledger/internal/core/domain"
)

// LedgerReader exposes the read side of the ledger engine to transport layers.
type LedgerReader interface {
	WalletBalance(name string) (domain.Balance, error)
	Transaction(id int64) (domain.Transaction, error)
	Transactions() []domain.Transaction
	CheckIntegrity() error
}

// LedgerEngine is the full ledger surface the reconciler drives.
type LedgerEngine interface {
	LedgerReader
	AddWallet(name string) error
	PostTransfer(from, to domain.AccountRef, amountSat int64, metadata json.RawMessage) (int64, error)
}

// LedgerSnapshotter is the serialization surface of the ledger engine.
type LedgerSnapshotter interface {
	Serialize() ([]byte, error)
	Deserialize(blob []byte) error
	CheckIntegrity() error
}

// ReconciliationService converts external settlement events into ledger
// entries using the two-phase hold/confirm pattern.
type ReconciliationService interface {
	SyncHistory(h domain.History) error
	ConfirmTransaction(id int64) (int64, error)
	RevertTransaction(id int64) (int64, error)
}

// SnapshotService orchestrates snapshot persistence for a ledger instance.
type SnapshotService interface {
	Save(ctx context.Context) (*domain.SnapshotRecord, error)
	// Restore loads the latest snapshot into the ledger; the bool is false
	// when no snapshot exists yet.
	Restore(ctx context.Context) (bool, error)
}
