package model

import (
	"encoding/json"
)

// QuoteRecord is the journaled form of a computed quote.
type QuoteRecord struct {
	ChainID     uint64   `json:"chain_id,omitempty"`
	PoolAddress string   `json:"pool_address"`
	PoolKind    PoolKind `json:"pool_kind"`
	BlockNumber uint64   `json:"block_number,omitempty"`
	Operation   string   `json:"operation"`
	TokenIn     string   `json:"token_in,omitempty"`
	TokenOut    string   `json:"token_out,omitempty"`
	Amount      string   `json:"amount"`
	Result      string   `json:"result,omitempty"`
	Amounts     []string `json:"amounts,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// MarshalJSON ensures QuoteRecord is encoded with stable field names.
func (qr QuoteRecord) MarshalJSON() ([]byte, error) {
	type Alias QuoteRecord
	return json.Marshal(Alias(qr))
}

// UnmarshalJSON decodes a QuoteRecord from JSON.
func (qr *QuoteRecord) UnmarshalJSON(data []byte) error {
	type Alias QuoteRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*qr = QuoteRecord(a)
	return nil
}
