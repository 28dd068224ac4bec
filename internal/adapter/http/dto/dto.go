package dto

import (
	"encoding/json"

	"settlement-ledger/internal/core/domain"
)

// SyncRequest is the request body for a history sync. Its shape mirrors the
// batches the external wallet collaborators produce: on-chain history keyed by
// txid, lightning events in flat lists.
type SyncRequest struct {
	ChannelCloses []ChannelCloseEvent     `json:"channel_closes"`
	ChannelOpens  []ChannelOpenEvent      `json:"channel_opens"`
	Claims        []PaymentClaimEvent     `json:"claims"`
	Sent          []PaymentSentEvent      `json:"sent"`
	Onchain       map[string]OnchainEvent `json:"onchain"`
}

// OnchainEvent is one on-chain wallet transaction in a sync batch.
type OnchainEvent struct {
	TxID             string `json:"txid" binding:"required"`
	ValueSat         int64  `json:"value_sat"`
	Direction        string `json:"direction" binding:"required,oneof=sent received"`
	ConfirmTimestamp int64  `json:"confirm_timestamp"`
	Timestamp        int64  `json:"timestamp"`
}

// PaymentClaimEvent is one incoming lightning payment in a sync batch.
type PaymentClaimEvent struct {
	PaymentHash   string `json:"payment_hash" binding:"required"`
	AmountSat     int64  `json:"amount_sat"`
	State         string `json:"state" binding:"required,oneof=pending successful failed"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// PaymentSentEvent is one outgoing lightning payment in a sync batch.
type PaymentSentEvent struct {
	PaymentHash   string `json:"payment_hash" binding:"required"`
	AmountSat     int64  `json:"amount_sat"`
	FeePaidSat    int64  `json:"fee_paid_sat"`
	State         string `json:"state" binding:"required,oneof=pending successful failed"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// ChannelOpenEvent is one known lightning channel in a sync batch.
type ChannelOpenEvent struct {
	ChannelID      string `json:"channel_id" binding:"required"`
	BalanceSat     int64  `json:"balance_sat"`
	IsChannelReady bool   `json:"is_channel_ready"`
	UnixTimestamp  int64  `json:"unix_timestamp"`
}

// ChannelCloseEvent is one closed channel in a sync batch.
type ChannelCloseEvent struct {
	ChannelID     string `json:"channel_id" binding:"required"`
	ClaimableSat  int64  `json:"claimable_sat"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// ToHistory converts a sync request into the domain history batch.
func (r SyncRequest) ToHistory() domain.History {
	h := domain.History{}

	for _, e := range r.ChannelCloses {
		h.ChannelCloses = append(h.ChannelCloses, domain.ChannelCloseEvent{
			ChannelID:     e.ChannelID,
			ClaimableSat:  e.ClaimableSat,
			UnixTimestamp: e.UnixTimestamp,
		})
	}
	for _, e := range r.ChannelOpens {
		h.ChannelOpens = append(h.ChannelOpens, domain.ChannelOpenEvent{
			ChannelID:      e.ChannelID,
			BalanceSat:     e.BalanceSat,
			IsChannelReady: e.IsChannelReady,
			UnixTimestamp:  e.UnixTimestamp,
		})
	}
	for _, e := range r.Claims {
		h.Claims = append(h.Claims, domain.PaymentClaimEvent{
			PaymentHash:   e.PaymentHash,
			AmountSat:     e.AmountSat,
			State:         domain.PaymentState(e.State),
			UnixTimestamp: e.UnixTimestamp,
		})
	}
	for _, e := range r.Sent {
		h.Sent = append(h.Sent, domain.PaymentSentEvent{
			PaymentHash:   e.PaymentHash,
			AmountSat:     e.AmountSat,
			FeePaidSat:    e.FeePaidSat,
			State:         domain.PaymentState(e.State),
			UnixTimestamp: e.UnixTimestamp,
		})
	}
	if len(r.Onchain) > 0 {
		h.Onchain = make(map[string]domain.OnchainEvent, len(r.Onchain))
		for txid, e := range r.Onchain {
			h.Onchain[txid] = domain.OnchainEvent{
				TxID:             e.TxID,
				ValueSat:         e.ValueSat,
				Direction:        domain.OnchainDirection(e.Direction),
				ConfirmTimestamp: e.ConfirmTimestamp,
				Timestamp:        e.Timestamp,
			}
		}
	}
	return h
}

// AccountRef identifies one subaccount in responses.
type AccountRef struct {
	Wallet     string `json:"wallet"`
	Subaccount string `json:"subaccount"`
}

// BalanceResponse is the response body for a wallet balance query.
type BalanceResponse struct {
	Wallet    string `json:"wallet"`
	Available int64  `json:"available"`
	Hold      int64  `json:"hold"`
}

// TransactionResponse is the response body for a single ledger transaction.
type TransactionResponse struct {
	ID             int64           `json:"id"`
	Timestamp      int64           `json:"timestamp"`
	From           AccountRef      `json:"from"`
	To             AccountRef      `json:"to"`
	Amount         int64           `json:"amount"`
	BalancesBefore BalancesBefore  `json:"balances_before"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// BalancesBefore snapshots both endpoints' balances taken before a transfer.
type BalancesBefore struct {
	From BalanceSnapshot `json:"from"`
	To   BalanceSnapshot `json:"to"`
}

// BalanceSnapshot is one wallet's balance inside a transaction record.
type BalanceSnapshot struct {
	Available int64 `json:"available"`
	Hold      int64 `json:"hold"`
}

// TransferResponse carries the id of a newly posted transfer.
type TransferResponse struct {
	TransactionID int64 `json:"transaction_id"`
}

// IntegrityResponse is the response body for an integrity check.
type IntegrityResponse struct {
	Status       string `json:"status"`
	Transactions int    `json:"transactions"`
}

// SnapshotResponse describes a persisted snapshot.
type SnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
	Version    int    `json:"version"`
	Bytes      int    `json:"bytes"`
	CreatedAt  string `json:"created_at"`
}

// FromTransaction converts a domain transaction into its response shape.
func FromTransaction(tx domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        tx.ID,
		Timestamp: tx.Timestamp,
		From:      AccountRef{Wallet: tx.From.Wallet, Subaccount: string(tx.From.Subaccount)},
		To:        AccountRef{Wallet: tx.To.Wallet, Subaccount: string(tx.To.Subaccount)},
		Amount:    tx.Amount,
		BalancesBefore: BalancesBefore{
			From: BalanceSnapshot{Available: tx.BalancesBefore.From.Available, Hold: tx.BalancesBefore.From.Hold},
			To:   BalanceSnapshot{Available: tx.BalancesBefore.To.Available, Hold: tx.BalancesBefore.To.Hold},
		},
		Metadata: tx.Metadata,
	}
}
