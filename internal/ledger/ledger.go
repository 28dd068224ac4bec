// Package ledger implements an append-only, double-entry transaction log with
// per-wallet available/hold subaccounts. A Ledger is a plain in-process
// instance; hosts that need more than one (tests, multi-tenant setups) simply
// construct more.
package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/pkg/apperror"
)

// msatPerSat is the internal fixed-point scale. Engine arithmetic runs in
// millisats; the boundary only ever sees whole sats, so internal rounding can
// never leak outward.
const msatPerSat = 1000

// balances is one wallet's internal state, in millisats.
type balances struct {
	available int64
	hold      int64
}

func (b balances) external() domain.Balance {
	return domain.Balance{
		Available: b.available / msatPerSat,
		Hold:      b.hold / msatPerSat,
	}
}

func internalBalances(b domain.Balance) balances {
	return balances{
		available: b.Available * msatPerSat,
		hold:      b.Hold * msatPerSat,
	}
}

// add applies a signed delta to the named subaccount. Subaccount validity is
// checked before any record is written, so this never misses.
func (b *balances) add(sub domain.Subaccount, delta int64) {
	if sub == domain.SubaccountHold {
		b.hold += delta
		return
	}
	b.available += delta
}

// record is one internal log entry. Amounts and the before snapshot are in
// millisats; external() converts back to sats.
type record struct {
	id        int64
	timestamp int64 // Unix millis
	from      domain.AccountRef
	to        domain.AccountRef
	amount    int64
	before    [2]balances // source, destination as they stood pre-transfer
	metadata  json.RawMessage
}

func (r record) external() domain.Transaction {
	return domain.Transaction{
		ID:        r.id,
		Timestamp: r.timestamp,
		From:      r.from,
		To:        r.to,
		Amount:    r.amount / msatPerSat,
		BalancesBefore: domain.BalancesBefore{
			From: r.before[0].external(),
			To:   r.before[1].external(),
		},
		Metadata: r.metadata,
	}
}

// Ledger owns the wallet set and the transaction log. All mutations are
// serialized behind one lock; reads may run concurrently with each other but
// never with a mutation.
type Ledger struct {
	mu      sync.RWMutex
	clock   func() time.Time
	wallets map[string]*balances
	log     []record
}

// New creates an empty ledger.
func New() *Ledger {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty ledger with a custom clock, used to pin
// transaction timestamps in tests.
func NewWithClock(clock func() time.Time) *Ledger {
	return &Ledger{
		clock:   clock,
		wallets: make(map[string]*balances),
	}
}

// AddWallet registers a wallet with both subaccounts at zero. Wallets are
// never deleted.
func (l *Ledger) AddWallet(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.wallets[name]; exists {
		return apperror.ErrDuplicateWallet(name)
	}
	l.wallets[name] = &balances{}
	return nil
}

// PostTransfer atomically moves amountSat from one subaccount to another and
// appends a transaction with the next sequential id, snapshotting both
// wallets' pre-transfer balances. metadata is stored opaquely and returned
// verbatim. On any validation error the log and balances are untouched.
func (l *Ledger) PostTransfer(from, to domain.AccountRef, amountSat int64, metadata json.RawMessage) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal, ok := l.wallets[from.Wallet]
	if !ok {
		return 0, apperror.ErrUnknownWallet(from.Wallet)
	}
	if !from.Subaccount.Valid() {
		return 0, apperror.ErrUnknownSubaccount(string(from.Subaccount))
	}
	toBal, ok := l.wallets[to.Wallet]
	if !ok {
		return 0, apperror.ErrUnknownWallet(to.Wallet)
	}
	if !to.Subaccount.Valid() {
		return 0, apperror.ErrUnknownSubaccount(string(to.Subaccount))
	}
	if amountSat < 0 {
		return 0, apperror.ErrInvalidAmount(amountSat)
	}

	amount := amountSat * msatPerSat
	id := int64(len(l.log))

	l.log = append(l.log, record{
		id:        id,
		timestamp: l.clock().UnixMilli(),
		from:      from,
		to:        to,
		amount:    amount,
		before:    [2]balances{*fromBal, *toBal},
		metadata:  metadata,
	})

	fromBal.add(from.Subaccount, -amount)
	toBal.add(to.Subaccount, amount)

	return id, nil
}

// WalletBalance returns the wallet's current subaccount balances in sats.
func (l *Ledger) WalletBalance(name string) (domain.Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	b, ok := l.wallets[name]
	if !ok {
		return domain.Balance{}, apperror.ErrUnknownWallet(name)
	}
	return b.external(), nil
}

// Transaction returns the externalized view of one transaction.
func (l *Ledger) Transaction(id int64) (domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if id < 0 || id >= int64(len(l.log)) {
		return domain.Transaction{}, apperror.ErrUnknownTransaction(id)
	}
	return l.log[id].external(), nil
}

// Transactions returns the full ordered transaction log.
func (l *Ledger) Transactions() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Transaction, len(l.log))
	for i, r := range l.log {
		out[i] = r.external()
	}
	return out
}
