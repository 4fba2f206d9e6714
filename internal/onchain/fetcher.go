// Package onchain reads Balancer pool state over JSON-RPC into snapshots the
// pool package can load.
package onchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"balancerScope/internal/errs"
	"balancerScope/internal/model"
	"balancerScope/internal/scaling"
)

// Caller is the chain access the fetcher needs. *chain.Client implements it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Config holds fetcher settings.
type Config struct {
	Vault        common.Address
	MaxRetries   int
	RetryBackoff time.Duration
}

// Fetcher builds pool snapshots from contract calls.
type Fetcher struct {
	caller Caller
	cfg    Config
	tokens *TokenCache
	logger *zap.Logger
}

// NewFetcher returns a fetcher reading through caller.
func NewFetcher(caller Caller, cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{caller: caller, cfg: cfg, tokens: NewTokenCache(), logger: logger}
}

// Fetch reads the state of the pool at address as a pool of the given kind.
// A zero block reads at the latest block, which is recorded in the snapshot.
func (f *Fetcher) Fetch(ctx context.Context, address common.Address, kind model.PoolKind, block uint64) (model.PoolSnapshot, error) {
	switch kind {
	case model.KindWeighted, model.KindStable, model.KindMetaStable, model.KindStablePhantom, model.KindLinear:
	default:
		return model.PoolSnapshot{}, fmt.Errorf("pool kind %q: %w", kind, errs.ErrUnsupportedPoolKind)
	}
	if f.caller == nil {
		return model.PoolSnapshot{}, fmt.Errorf("chain caller is nil")
	}

	poolABI, err := PoolABI()
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}
	vaultABI, err := VaultABI()
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("parse vault abi: %w", err)
	}

	var chainID *big.Int
	if err := f.retry(ctx, func(ctx context.Context) (err error) {
		chainID, err = f.caller.GetChainID(ctx)
		return err
	}); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("chain id: %w", err)
	}
	if block == 0 {
		if err := f.retry(ctx, func(ctx context.Context) (err error) {
			block, err = f.caller.LatestBlockNumber(ctx)
			return err
		}); err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("latest block: %w", err)
		}
	}

	r := &reader{f: f, ctx: ctx, pool: address, abi: poolABI, block: new(big.Int).SetUint64(block)}

	values, err := r.call("getPoolId")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	poolID, ok := values[0].([32]byte)
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("pool id: unsupported type %T", values[0])
	}

	values, err = f.call(ctx, f.cfg.Vault, vaultABI, "getPoolTokens", r.block, poolID)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	addresses, err := asAddresses(values[0])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("pool tokens: %w", err)
	}
	balances, err := asBigInts(values[1])
	if err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("pool balances: %w", err)
	}
	if len(addresses) != len(balances) {
		return model.PoolSnapshot{}, fmt.Errorf("pool tokens: %w", errs.ErrInputLengthMismatch)
	}

	fee, err := r.integer("getSwapFeePercentage")
	if err != nil {
		return model.PoolSnapshot{}, err
	}

	snap := model.PoolSnapshot{
		ChainID:     chainID.Uint64(),
		Address:     address.Hex(),
		PoolID:      common.Hash(poolID).Hex(),
		Kind:        kind,
		BlockNumber: block,
		Tokens:      make([]model.TokenSnapshot, len(addresses)),
	}
	if snap.SwapFee, err = formatUnits(fee, scaling.MaxDecimals); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("swap fee: %w", err)
	}

	for i, token := range addresses {
		meta, err := f.tokenMeta(ctx, token)
		if err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("token %s: %w", token.Hex(), err)
		}
		balance, err := formatUnits(balances[i], meta.Decimals)
		if err != nil {
			return model.PoolSnapshot{}, fmt.Errorf("token %s balance: %w", token.Hex(), err)
		}
		snap.Tokens[i] = model.TokenSnapshot{
			Address:  token.Hex(),
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
			Balance:  balance,
		}
	}

	// Pools with pre-minted BPT report the circulating supply separately.
	var supply *big.Int
	switch kind {
	case model.KindStablePhantom, model.KindLinear:
		supply, err = r.firstInteger("getVirtualSupply", "getActualSupply", "totalSupply")
	case model.KindWeighted:
		supply, err = r.firstInteger("getActualSupply", "totalSupply")
	default:
		supply, err = r.integer("totalSupply")
	}
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if snap.TotalShares, err = formatUnits(supply, scaling.MaxDecimals); err != nil {
		return model.PoolSnapshot{}, fmt.Errorf("total shares: %w", err)
	}

	switch kind {
	case model.KindWeighted:
		err = r.weights(&snap)
	case model.KindStable:
		err = r.amp(&snap)
	case model.KindMetaStable:
		if err = r.amp(&snap); err == nil {
			err = r.priceRates(&snap)
		}
	case model.KindStablePhantom:
		if err = r.amp(&snap); err == nil {
			err = r.priceRates(&snap)
		}
		if err == nil {
			err = r.bptIndex(&snap)
		}
	case model.KindLinear:
		err = r.linear(&snap)
	}
	if err != nil {
		return model.PoolSnapshot{}, err
	}

	f.logger.Info("pool fetched",
		zap.String("pool", snap.Address),
		zap.String("kind", string(kind)),
		zap.Uint64("block", block),
		zap.Int("tokens", len(snap.Tokens)),
	)
	return snap, nil
}

func (f *Fetcher) retry(ctx context.Context, fn func(context.Context) error) error {
	return withRetry(ctx, f.cfg.MaxRetries, f.cfg.RetryBackoff, fn)
}

func (f *Fetcher) call(ctx context.Context, target common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	err := f.retry(ctx, func(ctx context.Context) (err error) {
		values, err = callMethod(ctx, f.caller, target, parsed, method, block, args...)
		return err
	})
	return values, err
}

func (f *Fetcher) tokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := f.tokens.Get(token); ok {
		return meta, nil
	}
	var meta model.TokenMeta
	if err := f.retry(ctx, func(ctx context.Context) (err error) {
		meta, err = FetchTokenMeta(ctx, f.caller, token, f.logger)
		return err
	}); err != nil {
		return model.TokenMeta{}, err
	}
	f.tokens.Set(token, meta)
	return meta, nil
}

// reader issues pool getter calls pinned to one block.
type reader struct {
	f     *Fetcher
	ctx   context.Context
	pool  common.Address
	abi   abi.ABI
	block *big.Int
}

func (r *reader) call(method string) ([]interface{}, error) {
	return r.f.call(r.ctx, r.pool, r.abi, method, r.block)
}

func (r *reader) integer(method string) (*big.Int, error) {
	values, err := r.call(method)
	if err != nil {
		return nil, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

// firstInteger returns the first getter among methods the pool implements.
func (r *reader) firstInteger(methods ...string) (*big.Int, error) {
	var lastErr error
	for _, method := range methods {
		v, err := r.integer(method)
		if err == nil {
			return v, nil
		}
		if !reverted(err) {
			return nil, err
		}
		r.f.logger.Debug("getter not implemented", zap.String("pool", r.pool.Hex()), zap.String("method", method))
		lastErr = err
	}
	return nil, lastErr
}

func (r *reader) integers(method string, n int) ([]*big.Int, error) {
	values, err := r.call(method)
	if err != nil {
		return nil, err
	}
	out, err := asBigInts(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) != n {
		return nil, fmt.Errorf("%s: %w", method, errs.ErrInputLengthMismatch)
	}
	return out, nil
}

func (r *reader) weights(snap *model.PoolSnapshot) error {
	weights, err := r.integers("getNormalizedWeights", len(snap.Tokens))
	if err != nil {
		return err
	}
	for i, w := range weights {
		if snap.Tokens[i].Weight, err = formatUnits(w, scaling.MaxDecimals); err != nil {
			return fmt.Errorf("weight %d: %w", i, err)
		}
	}
	return nil
}

func (r *reader) amp(snap *model.PoolSnapshot) error {
	values, err := r.call("getAmplificationParameter")
	if err != nil {
		return err
	}
	if len(values) < 3 {
		return fmt.Errorf("getAmplificationParameter: short result")
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return fmt.Errorf("amp value: %w", err)
	}
	precision, err := asBigInt(values[2])
	if err != nil {
		return fmt.Errorf("amp precision: %w", err)
	}
	if precision.Sign() == 0 {
		return fmt.Errorf("amp precision: %w", errs.ErrZeroDivision)
	}
	snap.Amp = decimal.NewFromBigInt(value, 0).Div(decimal.NewFromBigInt(precision, 0)).String()
	return nil
}

// priceRates recovers each token's rate from its scaling factor, which is
// 10^(18-decimals) times the 18-decimal rate.
func (r *reader) priceRates(snap *model.PoolSnapshot) error {
	factors, err := r.integers("getScalingFactors", len(snap.Tokens))
	if err != nil {
		return err
	}
	for i, factor := range factors {
		if snap.Tokens[i].Decimals > scaling.MaxDecimals {
			return fmt.Errorf("token %s: %w", snap.Tokens[i].Address, errs.ErrInvalidDecimals)
		}
		unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scaling.MaxDecimals-snap.Tokens[i].Decimals)), nil)
		rate := new(big.Int).Quo(factor, unit)
		if snap.Tokens[i].PriceRate, err = formatUnits(rate, scaling.MaxDecimals); err != nil {
			return fmt.Errorf("price rate %d: %w", i, err)
		}
	}
	return nil
}

func (r *reader) bptIndex(snap *model.PoolSnapshot) error {
	idx, err := r.integer("getBptIndex")
	if err != nil {
		return err
	}
	if !idx.IsInt64() || idx.Int64() >= int64(len(snap.Tokens)) || snap.Tokens[idx.Int64()].Address != snap.Address {
		return fmt.Errorf("bpt index %s: %w", idx, errs.ErrTokenNotFound)
	}
	return nil
}

func (r *reader) linear(snap *model.PoolSnapshot) error {
	mainIndex, err := r.index("getMainIndex", len(snap.Tokens))
	if err != nil {
		return err
	}
	wrappedIndex, err := r.index("getWrappedIndex", len(snap.Tokens))
	if err != nil {
		return err
	}
	snap.MainIndex, snap.WrappedIndex = &mainIndex, &wrappedIndex

	values, err := r.call("getTargets")
	if err != nil {
		return err
	}
	if len(values) < 2 {
		return fmt.Errorf("getTargets: short result")
	}
	lower, err := asBigInt(values[0])
	if err != nil {
		return fmt.Errorf("lower target: %w", err)
	}
	upper, err := asBigInt(values[1])
	if err != nil {
		return fmt.Errorf("upper target: %w", err)
	}
	// Targets are stored upscaled to 18 decimals.
	if snap.LowerTarget, err = formatUnits(lower, scaling.MaxDecimals); err != nil {
		return fmt.Errorf("lower target: %w", err)
	}
	if snap.UpperTarget, err = formatUnits(upper, scaling.MaxDecimals); err != nil {
		return fmt.Errorf("upper target: %w", err)
	}

	rate, err := r.integer("getWrappedTokenRate")
	if err != nil {
		return err
	}
	if snap.Tokens[wrappedIndex].PriceRate, err = formatUnits(rate, scaling.MaxDecimals); err != nil {
		return fmt.Errorf("wrapped token rate: %w", err)
	}
	return nil
}

func (r *reader) index(method string, n int) (int, error) {
	v, err := r.integer(method)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() || v.Int64() >= int64(n) {
		return 0, fmt.Errorf("%s %s: %w", method, v, errs.ErrTokenNotFound)
	}
	return int(v.Int64()), nil
}

func formatUnits(v *big.Int, decimals uint8) (string, error) {
	if v == nil || v.Sign() < 0 {
		return "", errs.ErrInvalidAmount
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return "", errs.ErrInvalidAmount
	}
	return scaling.FormatNative(u, decimals), nil
}
