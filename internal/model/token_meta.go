package model

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// TokenSnapshot is one token of a pool snapshot.
type TokenSnapshot struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint8  `json:"decimals"`
	Balance  string `json:"balance"`
	// Weight is the normalized weight of a weighted pool token, e.g. "0.8".
	Weight string `json:"weight,omitempty"`
	// PriceRate scales MetaStable and wrapped Linear tokens. Empty means 1.
	PriceRate string `json:"price_rate,omitempty"`
}
