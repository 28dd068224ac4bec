package ledger

import (
	"encoding/json"
	"fmt"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/pkg/apperror"
)

// SnapshotVersion is the current serialized snapshot format version. The
// loader refuses anything else instead of misinterpreting an old shape.
const SnapshotVersion = 1

type snapshotDoc struct {
	Metadata snapshotMeta `json:"metadata"`
	Data     snapshotData `json:"data"`
}

type snapshotMeta struct {
	Version int `json:"version"`
}

type snapshotData struct {
	Wallets      map[string]domain.Balance `json:"wallets"`
	Transactions []domain.Transaction      `json:"transactions"`
}

// Serialize produces a versioned snapshot of the full ledger state. All
// amounts are whole sats, so the round trip is integer-exact.
func (l *Ledger) Serialize() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	doc := snapshotDoc{
		Metadata: snapshotMeta{Version: SnapshotVersion},
		Data: snapshotData{
			Wallets:      make(map[string]domain.Balance, len(l.wallets)),
			Transactions: make([]domain.Transaction, 0, len(l.log)),
		},
	}
	for name, b := range l.wallets {
		doc.Data.Wallets[name] = b.external()
	}
	for _, r := range l.log {
		doc.Data.Transactions = append(doc.Data.Transactions, r.external())
	}

	blob, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return blob, nil
}

// Deserialize replaces the entire ledger state with the snapshot's. Snapshots
// with an unknown version fail with UnsupportedSnapshotVersion before any
// state is touched.
func (l *Ledger) Deserialize(blob []byte) error {
	var doc snapshotDoc
	if err := json.Unmarshal(blob, &doc); err != nil {
		return fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if doc.Metadata.Version != SnapshotVersion {
		return apperror.ErrUnsupportedSnapshotVersion(doc.Metadata.Version)
	}

	wallets := make(map[string]*balances, len(doc.Data.Wallets))
	for name, b := range doc.Data.Wallets {
		internal := internalBalances(b)
		wallets[name] = &internal
	}

	log := make([]record, 0, len(doc.Data.Transactions))
	for i, tx := range doc.Data.Transactions {
		if tx.ID != int64(i) {
			return fmt.Errorf("snapshot transaction at position %d has id %d", i, tx.ID)
		}
		log = append(log, record{
			id:        tx.ID,
			timestamp: tx.Timestamp,
			from:      tx.From,
			to:        tx.To,
			amount:    tx.Amount * msatPerSat,
			before: [2]balances{
				internalBalances(tx.BalancesBefore.From),
				internalBalances(tx.BalancesBefore.To),
			},
			metadata: tx.Metadata,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets = wallets
	l.log = log
	return nil
}
