package model

import "encoding/json"

// BalanceResult is the normalized output of a chain balance lookup.
// Balance, when non-nil, is a decimal integer string in the chain's smallest
// unit: no scientific notation, no float strings, no leading zeros.
type BalanceResult struct {
	Chain    Chain           `json:"chain"`
	Balance  *string         `json:"balance"`
	Unit     string          `json:"unit"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	NodeID   string          `json:"nodeId,omitempty"`
	Provider string          `json:"provider"`
}

// BroadcastResult is the normalized output of a transaction broadcast.
// Broadcast is fire-once: no retries are implied by this entity.
type BroadcastResult struct {
	Chain    Chain           `json:"chain"`
	TxID     *string         `json:"txId,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	NodeID   string          `json:"nodeId,omitempty"`
	Provider string          `json:"provider"`
}

// StringPtr returns a pointer to s. Balance results carry *string so an
// indeterminate balance can be encoded as JSON null.
func StringPtr(s string) *string {
	return &s
}
