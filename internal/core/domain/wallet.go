package domain

// Subaccount names one of the two balance partitions within a wallet.
type Subaccount string

const (
	// SubaccountAvailable holds spendable, settled value.
	SubaccountAvailable Subaccount = "available"
	// SubaccountHold holds provisional value awaiting confirmation.
	SubaccountHold Subaccount = "hold"
)

// Valid reports whether s is one of the two known subaccounts.
func (s Subaccount) Valid() bool {
	return s == SubaccountAvailable || s == SubaccountHold
}

// AccountRef addresses one subaccount of one wallet.
type AccountRef struct {
	Wallet     string     `json:"wallet"`
	Subaccount Subaccount `json:"subaccount"`
}

// Balance holds the two subaccount balances of a wallet, in sats.
type Balance struct {
	Available int64 `json:"available"`
	Hold      int64 `json:"hold"`
}

// Fixed reconciliation wallet topology. The *_remote wallets carry the
// counterparty side of value not yet settled locally, so every transfer stays
// double-entry-valid even though the underlying events are only partially
// observed.
const (
	WalletOnchain         = "onchain"
	WalletOnchainRemote   = "onchain_remote"
	WalletLightning       = "lightning"
	WalletLightningRemote = "lightning_remote"
)
