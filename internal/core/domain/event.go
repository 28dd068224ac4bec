package domain

// EventKind discriminates settlement events. Every collaborator tags its own
// events explicitly; sync dispatch never guesses from field shapes.
type EventKind string

const (
	EventKindOnchain      EventKind = "onchain"
	EventKindPaymentClaim EventKind = "payment_claim"
	EventKindPaymentSent  EventKind = "payment_sent"
	EventKindChannelOpen  EventKind = "channel_open"
	EventKindChannelClose EventKind = "channel_close"
)

// PaymentState is the lifecycle state of a lightning payment.
type PaymentState string

const (
	PaymentStatePending    PaymentState = "pending"
	PaymentStateSuccessful PaymentState = "successful"
	PaymentStateFailed     PaymentState = "failed"
)

// OnchainDirection is the direction of an on-chain transfer as seen from the
// local wallet.
type OnchainDirection string

const (
	OnchainSent     OnchainDirection = "sent"
	OnchainReceived OnchainDirection = "received"
)

// Event is a settlement event from an external history collaborator. Events
// are processed strictly in EventMillis order during sync.
type Event interface {
	Kind() EventKind
	EventMillis() int64
}

// OnchainEvent describes one on-chain wallet transaction. Timestamps are
// already in milliseconds.
type OnchainEvent struct {
	TxID             string           `json:"txid"`
	ValueSat         int64            `json:"value_sat"` // signed
	Direction        OnchainDirection `json:"direction"`
	ConfirmTimestamp int64            `json:"confirm_timestamp"` // 0 = unconfirmed
	Timestamp        int64            `json:"timestamp"`
}

func (e OnchainEvent) Kind() EventKind    { return EventKindOnchain }
func (e OnchainEvent) EventMillis() int64 { return e.Timestamp }

// Confirmed reports whether the transaction has a confirmation timestamp.
func (e OnchainEvent) Confirmed() bool { return e.ConfirmTimestamp > 0 }

// PaymentClaimEvent describes an incoming lightning payment.
type PaymentClaimEvent struct {
	PaymentHash   string       `json:"payment_hash"`
	AmountSat     int64        `json:"amount_sat"`
	State         PaymentState `json:"state"`
	UnixTimestamp int64        `json:"unix_timestamp"` // seconds
}

func (e PaymentClaimEvent) Kind() EventKind    { return EventKindPaymentClaim }
func (e PaymentClaimEvent) EventMillis() int64 { return e.UnixTimestamp * 1000 }

// PaymentSentEvent describes an outgoing lightning payment. The settled
// amount includes the routing fee.
type PaymentSentEvent struct {
	PaymentHash   string       `json:"payment_hash"`
	AmountSat     int64        `json:"amount_sat"`
	FeePaidSat    int64        `json:"fee_paid_sat"`
	State         PaymentState `json:"state"`
	UnixTimestamp int64        `json:"unix_timestamp"` // seconds
}

func (e PaymentSentEvent) Kind() EventKind    { return EventKindPaymentSent }
func (e PaymentSentEvent) EventMillis() int64 { return e.UnixTimestamp * 1000 }

// ChannelOpenEvent describes a lightning channel known to the local node.
type ChannelOpenEvent struct {
	ChannelID      string `json:"channel_id"`
	BalanceSat     int64  `json:"balance_sat"` // may be 0
	IsChannelReady bool   `json:"is_channel_ready"`
	UnixTimestamp  int64  `json:"unix_timestamp"` // seconds
}

func (e ChannelOpenEvent) Kind() EventKind    { return EventKindChannelOpen }
func (e ChannelOpenEvent) EventMillis() int64 { return e.UnixTimestamp * 1000 }

// ChannelCloseEvent describes a channel monitor reporting a closed channel.
// ClaimableSat is the total of the monitor's claimable balances.
type ChannelCloseEvent struct {
	ChannelID     string `json:"channel_id"`
	ClaimableSat  int64  `json:"claimable_sat"`
	UnixTimestamp int64  `json:"unix_timestamp"` // seconds
}

func (e ChannelCloseEvent) Kind() EventKind    { return EventKindChannelClose }
func (e ChannelCloseEvent) EventMillis() int64 { return e.UnixTimestamp * 1000 }

// History bundles one sync batch from the external collaborators. Onchain is
// keyed by txid, matching the on-chain wallet's history shape.
type History struct {
	ChannelCloses []ChannelCloseEvent     `json:"channel_closes"`
	ChannelOpens  []ChannelOpenEvent      `json:"channel_opens"`
	Claims        []PaymentClaimEvent     `json:"claims"`
	Sent          []PaymentSentEvent      `json:"sent"`
	Onchain       map[string]OnchainEvent `json:"onchain"`
}
