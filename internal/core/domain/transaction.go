package domain

import "encoding/json"

// BalancesBefore snapshots both subaccounts of the source and destination
// wallets exactly as they stood before the transfer was applied.
type BalancesBefore struct {
	From Balance `json:"from"`
	To   Balance `json:"to"`
}

// Transaction is one immutable double-entry ledger record. Ids are sequential
// from 0 and never reused; amounts and balance snapshots are whole sats.
// Metadata is owned by the caller: the ledger stores and returns it verbatim.
type Transaction struct {
	ID             int64           `json:"id"`
	Timestamp      int64           `json:"timestamp"` // Unix millis
	From           AccountRef      `json:"from"`
	To             AccountRef      `json:"to"`
	Amount         int64           `json:"amount"`
	BalancesBefore BalancesBefore  `json:"balances_before"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// IsHold reports whether the transaction parked value in a hold subaccount.
func (t Transaction) IsHold() bool {
	return t.To.Subaccount == SubaccountHold
}
