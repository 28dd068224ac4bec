package ledger

import (
	"settlement-ledger/internal/core/domain"
	"settlement-ledger/pkg/apperror"
)

// CheckIntegrity replays the whole log from an all-zero wallet set and
// verifies the live state is reachable from it: every transaction's recorded
// balances-before must match the replay so far, the final replay state must
// equal the live balances, and the grand total across all subaccounts must be
// zero. Live state is never mutated; the check can run at any time.
func (l *Ledger) CheckIntegrity() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	replay := make(map[string]*balances, len(l.wallets))
	for name := range l.wallets {
		replay[name] = &balances{}
	}

	for _, r := range l.log {
		fromState := replay[r.from.Wallet]
		toState := replay[r.to.Wallet]
		if fromState == nil || toState == nil {
			// The log references a wallet the live set does not know.
			return apperror.ErrSnapshotMismatch(r.id)
		}
		if *fromState != r.before[0] || *toState != r.before[1] {
			return apperror.ErrSnapshotMismatch(r.id)
		}

		fromState.add(r.from.Subaccount, -r.amount)
		toState.add(r.to.Subaccount, r.amount)
	}

	for name, live := range l.wallets {
		rep := replay[name]
		if rep.available != live.available {
			return apperror.ErrBalanceMismatch(name, string(domain.SubaccountAvailable))
		}
		if rep.hold != live.hold {
			return apperror.ErrBalanceMismatch(name, string(domain.SubaccountHold))
		}
	}

	var sum int64
	for _, b := range replay {
		sum += b.available + b.hold
	}
	if sum != 0 {
		return apperror.ErrNonZeroSum(sum / msatPerSat)
	}

	return nil
}
