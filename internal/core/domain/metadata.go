package domain

import "encoding/json"

// SettlementDomain tags which external system a ledger record reconciles.
type SettlementDomain string

const (
	SettlementOnchain   SettlementDomain = "onchain"
	SettlementLightning SettlementDomain = "lightning"
	SettlementChannel   SettlementDomain = "lightning_channel"
)

// SettlementMetadata is attached to every transfer the reconciler posts. The
// ledger engine treats it as opaque data; only the reconciler interprets it.
// Once attached it is immutable: follow-up transfers carry a modified copy.
type SettlementMetadata struct {
	Domain      SettlementDomain `json:"domain"`
	TxID        string           `json:"txid,omitempty"`
	PaymentHash string           `json:"payment_hash,omitempty"`
	ChannelID   string           `json:"channel_id,omitempty"`
	Desc        string           `json:"desc,omitempty"`
}

// ExternalKey returns the domain-specific identifier used to match events
// across repeated syncs.
func (m SettlementMetadata) ExternalKey() string {
	switch m.Domain {
	case SettlementOnchain:
		return m.TxID
	case SettlementLightning:
		return m.PaymentHash
	case SettlementChannel:
		return m.ChannelID
	}
	return ""
}

// Encode marshals the metadata for attachment to a ledger transfer.
func (m SettlementMetadata) Encode() (json.RawMessage, error) {
	return json.Marshal(m)
}

// DecodeSettlementMetadata parses raw transaction metadata. The second return
// is false when the transaction carries no reconciliation metadata.
func DecodeSettlementMetadata(raw json.RawMessage) (SettlementMetadata, bool) {
	if len(raw) == 0 {
		return SettlementMetadata{}, false
	}
	var m SettlementMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return SettlementMetadata{}, false
	}
	return m, m.Domain != ""
}
