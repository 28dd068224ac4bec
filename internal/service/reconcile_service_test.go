package service

import (
	"testing"
	"time"

	"settlement-ledger/internal/core/domain"
	"settlement-ledger/internal/ledger"
	"settlement-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (*Reconciler, *ledger.Ledger) {
	t.Helper()
	base := time.UnixMilli(1_700_000_000_000)
	l := ledger.NewWithClock(func() time.Time { return base })
	r := NewReconciler(l, zerolog.Nop())
	require.NoError(t, r.InitWallets())
	return r, l
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func balance(t *testing.T, l *ledger.Ledger, wallet string) domain.Balance {
	t.Helper()
	b, err := l.WalletBalance(wallet)
	require.NoError(t, err)
	return b
}

func TestInitWallets(t *testing.T) {
	r, l := newTestReconciler(t)

	for _, name := range []string{
		domain.WalletOnchain,
		domain.WalletOnchainRemote,
		domain.WalletLightning,
		domain.WalletLightningRemote,
	} {
		assert.Equal(t, domain.Balance{}, balance(t, l, name))
	}

	// A restored ledger already has the wallets.
	assertCode(t, r.InitWallets(), apperror.CodeDuplicateWallet)
}

func TestSyncHistory_UnconfirmedReceiveThenConfirm(t *testing.T) {
	r, l := newTestReconciler(t)

	unconfirmed := domain.History{Onchain: map[string]domain.OnchainEvent{
		"aa01": {TxID: "aa01", ValueSat: 50_000, Direction: domain.OnchainReceived, Timestamp: 1000},
	}}
	require.NoError(t, r.SyncHistory(unconfirmed))

	require.Len(t, l.Transactions(), 1)
	assert.Equal(t, domain.Balance{Hold: 50_000}, balance(t, l, domain.WalletOnchain))
	assert.Equal(t, domain.Balance{Available: -50_000}, balance(t, l, domain.WalletOnchainRemote))

	// Resync after the transaction confirmed: the hold is released.
	confirmed := domain.History{Onchain: map[string]domain.OnchainEvent{
		"aa01": {TxID: "aa01", ValueSat: 50_000, Direction: domain.OnchainReceived, ConfirmTimestamp: 2000, Timestamp: 1000},
	}}
	require.NoError(t, r.SyncHistory(confirmed))

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, domain.Balance{Available: 50_000}, balance(t, l, domain.WalletOnchain))
	assert.Equal(t, domain.Balance{Available: -50_000}, balance(t, l, domain.WalletOnchainRemote))

	meta, ok := domain.DecodeSettlementMetadata(txs[1].Metadata)
	require.True(t, ok)
	assert.Equal(t, "aa01", meta.TxID)
	assert.Equal(t, descConfirmed, meta.Desc)

	// A third sync of the same history changes nothing.
	require.NoError(t, r.SyncHistory(confirmed))
	assert.Len(t, l.Transactions(), 2)
	require.NoError(t, l.CheckIntegrity())
}

func TestSyncHistory_ConfirmedReceiveSettlesDirectly(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{Onchain: map[string]domain.OnchainEvent{
		"bb02": {TxID: "bb02", ValueSat: 10_000, Direction: domain.OnchainReceived, ConfirmTimestamp: 1, Timestamp: 1000},
	}}
	require.NoError(t, r.SyncHistory(h))

	require.Len(t, l.Transactions(), 1)
	assert.Equal(t, domain.Balance{Available: 10_000}, balance(t, l, domain.WalletOnchain))
}

func TestSyncHistory_SendUsesAbsoluteValue(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{Onchain: map[string]domain.OnchainEvent{
		"cc03": {TxID: "cc03", ValueSat: -7000, Direction: domain.OnchainSent, ConfirmTimestamp: 1, Timestamp: 1000},
	}}
	require.NoError(t, r.SyncHistory(h))

	assert.Equal(t, domain.Balance{Available: -7000}, balance(t, l, domain.WalletOnchain))
	assert.Equal(t, domain.Balance{Available: 7000}, balance(t, l, domain.WalletOnchainRemote))
}

func TestSyncHistory_LightningSentIncludesFee(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{Sent: []domain.PaymentSentEvent{
		{PaymentHash: "hash1", AmountSat: 1000, FeePaidSat: 2, State: domain.PaymentStateSuccessful, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(h))

	assert.Equal(t, domain.Balance{Available: -1002}, balance(t, l, domain.WalletLightning))
	assert.Equal(t, domain.Balance{Available: 1002}, balance(t, l, domain.WalletLightningRemote))
}

func TestSyncHistory_PendingClaimHeldThenConfirmed(t *testing.T) {
	r, l := newTestReconciler(t)

	pending := domain.History{Claims: []domain.PaymentClaimEvent{
		{PaymentHash: "hash2", AmountSat: 500, State: domain.PaymentStatePending, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(pending))
	assert.Equal(t, domain.Balance{Hold: 500}, balance(t, l, domain.WalletLightning))

	settled := domain.History{Claims: []domain.PaymentClaimEvent{
		{PaymentHash: "hash2", AmountSat: 500, State: domain.PaymentStateSuccessful, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(settled))
	assert.Equal(t, domain.Balance{Available: 500}, balance(t, l, domain.WalletLightning))
	assert.Len(t, l.Transactions(), 2)
}

func TestSyncHistory_FailedPaymentSkipped(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{Sent: []domain.PaymentSentEvent{
		{PaymentHash: "hash3", AmountSat: 1000, State: domain.PaymentStateFailed, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(h))
	assert.Empty(t, l.Transactions())
}

func TestSyncHistory_NonPositivePaymentAmount(t *testing.T) {
	r, _ := newTestReconciler(t)

	h := domain.History{Claims: []domain.PaymentClaimEvent{
		{PaymentHash: "hash4", AmountSat: 0, State: domain.PaymentStatePending, UnixTimestamp: 10},
	}}
	assertCode(t, r.SyncHistory(h), apperror.CodeInvalidAmount)
}

func TestSyncHistory_ChannelLifecycle(t *testing.T) {
	r, l := newTestReconciler(t)

	// Channel known but not yet ready: balance parks in hold.
	opening := domain.History{ChannelOpens: []domain.ChannelOpenEvent{
		{ChannelID: "chan1", BalanceSat: 100_000, IsChannelReady: false, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(opening))
	assert.Equal(t, domain.Balance{Hold: 100_000}, balance(t, l, domain.WalletLightning))

	// Ready on resync: the hold settles.
	open := domain.History{ChannelOpens: []domain.ChannelOpenEvent{
		{ChannelID: "chan1", BalanceSat: 100_000, IsChannelReady: true, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(open))
	assert.Equal(t, domain.Balance{Available: 100_000}, balance(t, l, domain.WalletLightning))
	require.Len(t, l.Transactions(), 2)

	// Close with a lower claimable balance: the difference stays local.
	closed := domain.History{
		ChannelOpens: open.ChannelOpens,
		ChannelCloses: []domain.ChannelCloseEvent{
			{ChannelID: "chan1", ClaimableSat: 99_000, UnixTimestamp: 20},
		},
	}
	require.NoError(t, r.SyncHistory(closed))
	require.Len(t, l.Transactions(), 3)
	assert.Equal(t, domain.Balance{Available: 1000}, balance(t, l, domain.WalletLightning))
	assert.Equal(t, domain.Balance{Available: -1000}, balance(t, l, domain.WalletLightningRemote))

	// The full history stays replayable after the close.
	require.NoError(t, r.SyncHistory(closed))
	assert.Len(t, l.Transactions(), 3)
	require.NoError(t, l.CheckIntegrity())
}

func TestSyncHistory_ChannelOpenZeroBalance(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{ChannelOpens: []domain.ChannelOpenEvent{
		{ChannelID: "chan2", BalanceSat: 0, IsChannelReady: true, UnixTimestamp: 10},
	}}
	require.NoError(t, r.SyncHistory(h))
	require.Len(t, l.Transactions(), 1)
	assert.Equal(t, domain.Balance{}, balance(t, l, domain.WalletLightning))
}

func TestSyncHistory_CloseWithoutOpen(t *testing.T) {
	r, _ := newTestReconciler(t)

	h := domain.History{ChannelCloses: []domain.ChannelCloseEvent{
		{ChannelID: "ghost", ClaimableSat: 100, UnixTimestamp: 10},
	}}
	assertCode(t, r.SyncHistory(h), apperror.CodeInconsistentHistory)
}

func TestSyncHistory_DuplicateSettlement(t *testing.T) {
	r, _ := newTestReconciler(t)

	for i := 0; i < 3; i++ {
		_, err := r.OnchainReceive(100, true, "dd04")
		require.NoError(t, err)
	}

	h := domain.History{Onchain: map[string]domain.OnchainEvent{
		"dd04": {TxID: "dd04", ValueSat: 100, Direction: domain.OnchainReceived, ConfirmTimestamp: 1, Timestamp: 1000},
	}}
	assertCode(t, r.SyncHistory(h), apperror.CodeDuplicateSettlement)
}

func TestSyncHistory_TwoRecordsNotAHoldConfirmPair(t *testing.T) {
	r, _ := newTestReconciler(t)

	// Two direct settlements for one txid can never come from hold/confirm.
	for i := 0; i < 2; i++ {
		_, err := r.OnchainReceive(100, true, "ee05")
		require.NoError(t, err)
	}

	h := domain.History{Onchain: map[string]domain.OnchainEvent{
		"ee05": {TxID: "ee05", ValueSat: 100, Direction: domain.OnchainReceived, ConfirmTimestamp: 1, Timestamp: 1000},
	}}
	assertCode(t, r.SyncHistory(h), apperror.CodeInconsistentHistory)
}

func TestSyncHistory_BatchIsIdempotent(t *testing.T) {
	r, l := newTestReconciler(t)

	h := domain.History{
		ChannelOpens: []domain.ChannelOpenEvent{
			{ChannelID: "chan3", BalanceSat: 200_000, IsChannelReady: true, UnixTimestamp: 5},
		},
		Claims: []domain.PaymentClaimEvent{
			{PaymentHash: "hash5", AmountSat: 1500, State: domain.PaymentStateSuccessful, UnixTimestamp: 10},
		},
		Sent: []domain.PaymentSentEvent{
			{PaymentHash: "hash6", AmountSat: 700, FeePaidSat: 1, State: domain.PaymentStateSuccessful, UnixTimestamp: 20},
		},
		Onchain: map[string]domain.OnchainEvent{
			"ff06": {TxID: "ff06", ValueSat: 30_000, Direction: domain.OnchainReceived, ConfirmTimestamp: 1, Timestamp: 15_000},
		},
	}

	require.NoError(t, r.SyncHistory(h))
	first := l.Transactions()

	require.NoError(t, r.SyncHistory(h))
	assert.Equal(t, first, l.Transactions())
	require.NoError(t, l.CheckIntegrity())
}

func TestMergeEvents_Ordering(t *testing.T) {
	h := domain.History{
		Claims: []domain.PaymentClaimEvent{
			{PaymentHash: "late", UnixTimestamp: 30},
			{PaymentHash: "early", UnixTimestamp: 1},
		},
		Onchain: map[string]domain.OnchainEvent{
			"b": {TxID: "b", Timestamp: 5000},
			"a": {TxID: "a", Timestamp: 5000},
		},
	}

	events := mergeEvents(h)
	require.Len(t, events, 4)
	assert.Equal(t, "early", events[0].(domain.PaymentClaimEvent).PaymentHash)
	// Equal timestamps: on-chain events keep txid order, after earlier kinds.
	assert.Equal(t, "a", events[1].(domain.OnchainEvent).TxID)
	assert.Equal(t, "b", events[2].(domain.OnchainEvent).TxID)
	assert.Equal(t, "late", events[3].(domain.PaymentClaimEvent).PaymentHash)
}

func TestConfirmTransaction(t *testing.T) {
	r, l := newTestReconciler(t)

	id, err := r.LightningReceive(2000, false, "hash7")
	require.NoError(t, err)

	confirmID, err := r.ConfirmTransaction(id)
	require.NoError(t, err)
	assert.Equal(t, id+1, confirmID)
	assert.Equal(t, domain.Balance{Available: 2000}, balance(t, l, domain.WalletLightning))

	tx, err := l.Transaction(confirmID)
	require.NoError(t, err)
	meta, ok := domain.DecodeSettlementMetadata(tx.Metadata)
	require.True(t, ok)
	assert.Equal(t, "hash7", meta.PaymentHash)
	assert.Equal(t, descConfirmed, meta.Desc)
}

func TestConfirmTransaction_SendHoldSettlesRemote(t *testing.T) {
	r, l := newTestReconciler(t)

	id, err := r.OnchainSend(4000, false, "gg07")
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Available: -4000, Hold: 4000}, balance(t, l, domain.WalletOnchain))

	_, err = r.ConfirmTransaction(id)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Available: -4000}, balance(t, l, domain.WalletOnchain))
	assert.Equal(t, domain.Balance{Available: 4000}, balance(t, l, domain.WalletOnchainRemote))
}

func TestConfirmTransaction_NotAHold(t *testing.T) {
	r, _ := newTestReconciler(t)

	id, err := r.OnchainReceive(100, true, "hh08")
	require.NoError(t, err)

	_, err = r.ConfirmTransaction(id)
	assertCode(t, err, apperror.CodeNotAHoldTransaction)
}

func TestConfirmTransaction_Unknown(t *testing.T) {
	r, _ := newTestReconciler(t)

	_, err := r.ConfirmTransaction(42)
	assertCode(t, err, apperror.CodeUnknownTransaction)
}

func TestConfirmTransaction_MissingMetadata(t *testing.T) {
	r, l := newTestReconciler(t)

	id, err := l.PostTransfer(
		domain.AccountRef{Wallet: domain.WalletOnchainRemote, Subaccount: domain.SubaccountAvailable},
		domain.AccountRef{Wallet: domain.WalletOnchain, Subaccount: domain.SubaccountHold},
		100, nil,
	)
	require.NoError(t, err)

	_, err = r.ConfirmTransaction(id)
	assertCode(t, err, apperror.CodeInconsistentHistory)
}

func TestRevertTransaction(t *testing.T) {
	r, l := newTestReconciler(t)

	id, err := r.OnchainReceive(3000, false, "ii09")
	require.NoError(t, err)

	revertID, err := r.RevertTransaction(id)
	require.NoError(t, err)

	assert.Equal(t, domain.Balance{}, balance(t, l, domain.WalletOnchain))
	assert.Equal(t, domain.Balance{}, balance(t, l, domain.WalletOnchainRemote))
	require.Len(t, l.Transactions(), 2)

	tx, err := l.Transaction(revertID)
	require.NoError(t, err)
	meta, ok := domain.DecodeSettlementMetadata(tx.Metadata)
	require.True(t, ok)
	assert.Equal(t, descReverted, meta.Desc)
	require.NoError(t, l.CheckIntegrity())
}

func TestRevertTransaction_NotAHold(t *testing.T) {
	r, _ := newTestReconciler(t)

	id, err := r.LightningReceive(100, true, "hash8")
	require.NoError(t, err)

	_, err = r.RevertTransaction(id)
	assertCode(t, err, apperror.CodeNotAHoldTransaction)
}
