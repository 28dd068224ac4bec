package service

import (
	"fmt"
	"sort"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/core/ports"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// Metadata annotations carried on follow-up transfers.
const (
	descConfirmed = "settlement confirmed"
	descReverted  = "transfer reverted"
)

// Reconciler maps asynchronous external settlement events onto the ledger
// using the two-phase hold/confirm pattern. It owns the fixed four-wallet
// topology and never bypasses ledger validation.
type Reconciler struct {
	ledger ports.LedgerEngine
	log    zerolog.Logger
}

// NewReconciler creates a Reconciler on top of a ledger engine.
func NewReconciler(ledger ports.LedgerEngine, log zerolog.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, log: log}
}

// InitWallets registers the four reconciliation wallets on a fresh ledger.
// Not needed when the ledger was restored from a snapshot.
func (r *Reconciler) InitWallets() error {
	for _, name := range []string{
		domain.WalletOnchain,
		domain.WalletOnchainRemote,
		domain.WalletLightning,
		domain.WalletLightningRemote,
	} {
		if err := r.ledger.AddWallet(name); err != nil {
			return err
		}
	}
	return nil
}

// ---- Domain primitives ----
//
// Each posts a single transfer. Confirmed value lands in the settled
// endpoints directly; unconfirmed value is parked in the local wallet's hold
// subaccount until a later event confirms it.

// OnchainSend records an outgoing on-chain transfer.
func (r *Reconciler) OnchainSend(amountSat int64, confirmed bool, txid string) (int64, error) {
	to := holdOr(confirmed, domain.WalletOnchain, domain.WalletOnchainRemote)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletOnchain, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementOnchain, TxID: txid},
	)
}

// OnchainReceive records an incoming on-chain transfer.
func (r *Reconciler) OnchainReceive(amountSat int64, confirmed bool, txid string) (int64, error) {
	to := holdOr(confirmed, domain.WalletOnchain, domain.WalletOnchain)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletOnchainRemote, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementOnchain, TxID: txid},
	)
}

// LightningSend records an outgoing lightning payment (amount includes fee).
func (r *Reconciler) LightningSend(amountSat int64, confirmed bool, paymentHash string) (int64, error) {
	to := holdOr(confirmed, domain.WalletLightning, domain.WalletLightningRemote)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletLightning, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementLightning, PaymentHash: paymentHash},
	)
}

// LightningReceive records an incoming lightning payment.
func (r *Reconciler) LightningReceive(amountSat int64, confirmed bool, paymentHash string) (int64, error) {
	to := holdOr(confirmed, domain.WalletLightning, domain.WalletLightning)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletLightningRemote, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementLightning, PaymentHash: paymentHash},
	)
}

// ChannelOpen records a channel funding the local lightning wallet. The
// settled balance may be zero.
func (r *Reconciler) ChannelOpen(amountSat int64, ready bool, channelID string) (int64, error) {
	to := holdOr(ready, domain.WalletLightning, domain.WalletLightning)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletLightningRemote, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementChannel, ChannelID: channelID},
	)
}

// ChannelClose records a channel returning its claimable balance to the
// network side.
func (r *Reconciler) ChannelClose(amountSat int64, confirmed bool, channelID string) (int64, error) {
	to := holdOr(confirmed, domain.WalletLightning, domain.WalletLightningRemote)
	return r.post(
		domain.AccountRef{Wallet: domain.WalletLightning, Subaccount: domain.SubaccountAvailable},
		to, amountSat,
		domain.SettlementMetadata{Domain: domain.SettlementChannel, ChannelID: channelID},
	)
}

// holdOr returns the destination: confirmed value settles to settledWallet's
// available subaccount, unconfirmed value parks in holdWallet's hold.
func holdOr(confirmed bool, holdWallet, settledWallet string) domain.AccountRef {
	if confirmed {
		return domain.AccountRef{Wallet: settledWallet, Subaccount: domain.SubaccountAvailable}
	}
	return domain.AccountRef{Wallet: holdWallet, Subaccount: domain.SubaccountHold}
}

func (r *Reconciler) post(from, to domain.AccountRef, amountSat int64, meta domain.SettlementMetadata) (int64, error) {
	raw, err := meta.Encode()
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("encode settlement metadata: %w", err))
	}
	id, err := r.ledger.PostTransfer(from, to, amountSat, raw)
	if err != nil {
		return 0, err
	}
	r.log.Debug().
		Int64("tx_id", id).
		Str("domain", string(meta.Domain)).
		Str("key", meta.ExternalKey()).
		Str("to_wallet", to.Wallet).
		Str("to_subaccount", string(to.Subaccount)).
		Int64("amount", amountSat).
		Msg("settlement transfer posted")
	return id, nil
}

// ---- Confirm / revert ----

// ConfirmTransaction moves a hold transfer's amount to its settlement
// destination: value held in a local wallet settles to the paired remote
// wallet and vice versa, keyed off the original transfer's source. The new
// transfer carries a copy of the metadata annotated with a confirmation note.
func (r *Reconciler) ConfirmTransaction(id int64) (int64, error) {
	tx, err := r.ledger.Transaction(id)
	if err != nil {
		return 0, err
	}
	if !tx.IsHold() {
		return 0, apperror.ErrNotAHoldTransaction(id)
	}

	meta, ok := domain.DecodeSettlementMetadata(tx.Metadata)
	if !ok {
		return 0, apperror.ErrInconsistentHistory(
			fmt.Sprintf("transaction %d", id), "hold transfer carries no settlement metadata")
	}

	var toWallet string
	switch meta.Domain {
	case domain.SettlementOnchain:
		toWallet = pairedWallet(tx.From.Wallet, domain.WalletOnchain, domain.WalletOnchainRemote)
	default:
		toWallet = pairedWallet(tx.From.Wallet, domain.WalletLightning, domain.WalletLightningRemote)
	}

	confirmed := meta
	confirmed.Desc = descConfirmed

	newID, err := r.post(
		tx.To,
		domain.AccountRef{Wallet: toWallet, Subaccount: domain.SubaccountAvailable},
		tx.Amount, confirmed,
	)
	if err != nil {
		return 0, err
	}

	r.log.Info().
		Int64("hold_tx_id", id).
		Int64("confirm_tx_id", newID).
		Str("key", meta.ExternalKey()).
		Msg("hold transfer confirmed")
	return newID, nil
}

// RevertTransaction posts the exact inverse of a hold transfer. History is
// never erased; the reversal is an offsetting entry.
func (r *Reconciler) RevertTransaction(id int64) (int64, error) {
	tx, err := r.ledger.Transaction(id)
	if err != nil {
		return 0, err
	}
	if !tx.IsHold() {
		return 0, apperror.ErrNotAHoldTransaction(id)
	}

	raw := tx.Metadata
	if meta, ok := domain.DecodeSettlementMetadata(tx.Metadata); ok {
		reverted := meta
		reverted.Desc = descReverted
		if raw, err = reverted.Encode(); err != nil {
			return 0, apperror.InternalError(fmt.Errorf("encode settlement metadata: %w", err))
		}
	}

	newID, err := r.ledger.PostTransfer(tx.To, tx.From, tx.Amount, raw)
	if err != nil {
		return 0, err
	}

	r.log.Info().
		Int64("hold_tx_id", id).
		Int64("revert_tx_id", newID).
		Msg("hold transfer reverted")
	return newID, nil
}

// pairedWallet maps a hold transfer's source wallet to its settlement
// destination within a local/remote pair.
func pairedWallet(fromWallet, local, remote string) string {
	if fromWallet == local {
		return remote
	}
	return local
}

// ---- History sync ----

// SyncHistory merges the five event collections into one timestamp-ordered
// sequence and dispatches each event to its domain handler. Processing is
// stateful (hold transfers are matched to later confirmations), so order
// matters; replaying an identical batch is a no-op for events already fully
// reconciled. The first reconciliation error aborts the sync.
func (r *Reconciler) SyncHistory(h domain.History) error {
	events := mergeEvents(h)

	r.log.Info().Int("events", len(events)).Msg("history sync started")

	for _, e := range events {
		var err error
		switch ev := e.(type) {
		case domain.OnchainEvent:
			err = r.handleOnchain(ev)
		case domain.PaymentClaimEvent:
			err = r.handlePayment(ev.PaymentHash, ev.AmountSat, ev.State, false)
		case domain.PaymentSentEvent:
			err = r.handlePayment(ev.PaymentHash, ev.AmountSat+ev.FeePaidSat, ev.State, true)
		case domain.ChannelOpenEvent:
			err = r.handleChannelOpen(ev)
		case domain.ChannelCloseEvent:
			err = r.handleChannelClose(ev)
		default:
			err = apperror.InternalError(fmt.Errorf("unhandled event kind %q", e.Kind()))
		}
		if err != nil {
			r.log.Error().Err(err).Str("kind", string(e.Kind())).Msg("history sync aborted")
			return err
		}
	}

	r.log.Info().Int("events", len(events)).Msg("history sync finished")
	return nil
}

// mergeEvents flattens a history batch into a single slice ordered by event
// time. The on-chain map is flattened in txid order and the sort is stable,
// so identical input always yields identical processing order.
func mergeEvents(h domain.History) []domain.Event {
	size := len(h.ChannelCloses) + len(h.ChannelOpens) + len(h.Claims) + len(h.Sent) + len(h.Onchain)
	events := make([]domain.Event, 0, size)

	for _, e := range h.ChannelCloses {
		events = append(events, e)
	}
	for _, e := range h.ChannelOpens {
		events = append(events, e)
	}
	for _, e := range h.Claims {
		events = append(events, e)
	}
	for _, e := range h.Sent {
		events = append(events, e)
	}

	txids := make([]string, 0, len(h.Onchain))
	for txid := range h.Onchain {
		txids = append(txids, txid)
	}
	sort.Strings(txids)
	for _, txid := range txids {
		events = append(events, h.Onchain[txid])
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].EventMillis() < events[j].EventMillis()
	})
	return events
}

// ---- Domain handlers ----

func (r *Reconciler) handleOnchain(ev domain.OnchainEvent) error {
	recs := r.settlementRecords(domain.SettlementOnchain, ev.TxID, nil)
	key := "txid " + ev.TxID

	switch len(recs) {
	case 0:
		amount := ev.ValueSat
		if amount < 0 {
			amount = -amount
		}
		var err error
		if ev.Direction == domain.OnchainSent {
			_, err = r.OnchainSend(amount, ev.Confirmed(), ev.TxID)
		} else {
			_, err = r.OnchainReceive(amount, ev.Confirmed(), ev.TxID)
		}
		return err
	case 1:
		if recs[0].IsHold() && ev.Confirmed() {
			_, err := r.ConfirmTransaction(recs[0].ID)
			return err
		}
		return nil
	case 2:
		return validateHoldConfirmPair(recs, key)
	default:
		return apperror.ErrDuplicateSettlement(key, len(recs))
	}
}

func (r *Reconciler) handlePayment(hash string, amountSat int64, state domain.PaymentState, sent bool) error {
	if state == domain.PaymentStateFailed {
		r.log.Debug().Str("payment_hash", hash).Msg("failed payment skipped")
		return nil
	}
	if amountSat <= 0 {
		return apperror.ErrInvalidAmount(amountSat)
	}

	recs := r.settlementRecords(domain.SettlementLightning, hash, nil)
	key := "payment_hash " + hash
	confirmed := state == domain.PaymentStateSuccessful

	switch len(recs) {
	case 0:
		var err error
		if sent {
			_, err = r.LightningSend(amountSat, confirmed, hash)
		} else {
			_, err = r.LightningReceive(amountSat, confirmed, hash)
		}
		return err
	case 1:
		if recs[0].IsHold() && confirmed {
			_, err := r.ConfirmTransaction(recs[0].ID)
			return err
		}
		return nil
	case 2:
		return validateHoldConfirmPair(recs, key)
	default:
		return apperror.ErrDuplicateSettlement(key, len(recs))
	}
}

func (r *Reconciler) handleChannelOpen(ev domain.ChannelOpenEvent) error {
	// Close records share the channel id but always target the remote
	// wallet; matching only open-direction records keeps an already-closed
	// channel resyncable.
	recs := r.settlementRecords(domain.SettlementChannel, ev.ChannelID, func(tx domain.Transaction) bool {
		return tx.To.Wallet == domain.WalletLightning
	})
	key := "channel_id " + ev.ChannelID

	switch len(recs) {
	case 0:
		_, err := r.ChannelOpen(ev.BalanceSat, ev.IsChannelReady, ev.ChannelID)
		return err
	case 1:
		if recs[0].IsHold() && ev.IsChannelReady {
			_, err := r.ConfirmTransaction(recs[0].ID)
			return err
		}
		return nil
	case 2:
		return validateHoldConfirmPair(recs, key)
	default:
		return apperror.ErrDuplicateSettlement(key, len(recs))
	}
}

func (r *Reconciler) handleChannelClose(ev domain.ChannelCloseEvent) error {
	recs := r.settlementRecords(domain.SettlementChannel, ev.ChannelID, nil)
	if len(recs) == 0 {
		return apperror.ErrInconsistentHistory(
			"channel_id "+ev.ChannelID, "close reported for a channel with no open record")
	}

	// Closes are idempotent per channel id.
	if recs[len(recs)-1].To.Wallet == domain.WalletLightningRemote {
		r.log.Debug().Str("channel_id", ev.ChannelID).Msg("channel already closed")
		return nil
	}

	_, err := r.ChannelClose(ev.ClaimableSat, true, ev.ChannelID)
	return err
}

// validateHoldConfirmPair checks that two existing records for one external
// key are, in order, a hold transfer and its confirmation. Nothing is
// re-applied; a third record for the key is never legal.
func validateHoldConfirmPair(recs []domain.Transaction, key string) error {
	if !recs[0].IsHold() {
		return apperror.ErrInconsistentHistory(key, "first of two records is not a hold transfer")
	}
	if recs[1].To.Subaccount != domain.SubaccountAvailable {
		return apperror.ErrInconsistentHistory(key, "second of two records is not a confirmation")
	}
	return nil
}

// settlementRecords returns, in log order, the transactions tagged with the
// given domain and external key. filter, when non-nil, further restricts the
// match.
func (r *Reconciler) settlementRecords(dom domain.SettlementDomain, key string, filter func(domain.Transaction) bool) []domain.Transaction {
	var out []domain.Transaction
	for _, tx := range r.ledger.Transactions() {
		meta, ok := domain.DecodeSettlementMetadata(tx.Metadata)
		if !ok || meta.Domain != dom || meta.ExternalKey() != key {
			continue
		}
		if filter != nil && !filter(tx) {
			continue
		}
		out = append(out, tx)
	}
	return out
}
