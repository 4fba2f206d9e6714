package model

// PoolKind names a pool variant.
type PoolKind string

const (
	KindWeighted      PoolKind = "weighted"
	KindStable        PoolKind = "stable"
	KindMetaStable    PoolKind = "meta_stable"
	KindStablePhantom PoolKind = "stable_phantom"
	KindLinear        PoolKind = "linear"
)

// PoolSnapshot is the state of a pool at a block, with every amount as a
// human decimal string in its token's native precision.
type PoolSnapshot struct {
	ChainID     uint64          `json:"chain_id,omitempty"`
	Address     string          `json:"address"`
	PoolID      string          `json:"pool_id,omitempty"`
	Kind        PoolKind        `json:"kind"`
	BlockNumber uint64          `json:"block_number,omitempty"`
	SwapFee     string          `json:"swap_fee"`
	TotalShares string          `json:"total_shares"`
	Tokens      []TokenSnapshot `json:"tokens"`

	// Stable kinds. Amp is the unscaled amplification parameter.
	Amp string `json:"amp,omitempty"`

	// Linear.
	MainIndex    *int   `json:"main_index,omitempty"`
	WrappedIndex *int   `json:"wrapped_index,omitempty"`
	LowerTarget  string `json:"lower_target,omitempty"`
	UpperTarget  string `json:"upper_target,omitempty"`
}
