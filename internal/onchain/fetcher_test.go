package onchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
	"balancerScope/internal/model"
	"balancerScope/internal/pool"
)

var (
	vault   = common.HexToAddress("0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	poolAt  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	daiAt   = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	usdcAt  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	aDaiAt  = common.HexToAddress("0x028171bCA77440897B824Ca71D1c56caC55b68A3")
	testPID = [32]byte{31: 0x01}
)

// fakeChain answers eth_call from canned ABI-encoded results keyed by target
// and selector. Unknown calls revert.
type fakeChain struct {
	chainID   int64
	latest    uint64
	results   map[common.Address]map[[4]byte][]byte
	transient int
	calls     int
	blocks    []*big.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{chainID: 1, latest: 19000000, results: make(map[common.Address]map[[4]byte][]byte)}
}

func (c *fakeChain) on(t *testing.T, target common.Address, parsed abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m, ok := parsed.Methods[method]
	require.True(t, ok, method)
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	if c.results[target] == nil {
		c.results[target] = make(map[[4]byte][]byte)
	}
	c.results[target][[4]byte(m.ID)] = out
}

func (c *fakeChain) token(t *testing.T, target common.Address, symbol string, decimals uint8) {
	t.Helper()
	parsed, err := erc20ABIString.get()
	require.NoError(t, err)
	c.on(t, target, parsed, "decimals", decimals)
	c.on(t, target, parsed, "symbol", symbol)
}

func (c *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	c.calls++
	if c.transient > 0 {
		c.transient--
		return nil, errors.New("connection reset by peer")
	}
	c.blocks = append(c.blocks, block)
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	out, ok := c.results[*msg.To][[4]byte(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (c *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(c.chainID), nil
}

func (c *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	return c.latest, nil
}

func e(n int64, decimals int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(decimals), nil))
}

func abis(t *testing.T) (abi.ABI, abi.ABI) {
	t.Helper()
	poolABI, err := PoolABI()
	require.NoError(t, err)
	vaultABI, err := VaultABI()
	require.NoError(t, err)
	return poolABI, vaultABI
}

func weightedChain(t *testing.T) *fakeChain {
	poolABI, vaultABI := abis(t)
	c := newFakeChain()
	c.on(t, poolAt, poolABI, "getPoolId", testPID)
	c.on(t, vault, vaultABI, "getPoolTokens", []common.Address{daiAt, usdcAt}, []*big.Int{e(100, 18), e(100, 6)}, big.NewInt(1))
	c.on(t, poolAt, poolABI, "getSwapFeePercentage", e(3, 15))
	c.on(t, poolAt, poolABI, "totalSupply", e(100, 18))
	c.on(t, poolAt, poolABI, "getNormalizedWeights", []*big.Int{e(5, 17), e(5, 17)})
	c.token(t, daiAt, "DAI", 18)
	c.token(t, usdcAt, "USDC", 6)
	return c
}

func newTestFetcher(c *fakeChain, retries int) *Fetcher {
	return NewFetcher(c, Config{Vault: vault, MaxRetries: retries, RetryBackoff: time.Millisecond}, nil)
}

func TestFetchWeighted(t *testing.T) {
	c := weightedChain(t)
	snap, err := newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindWeighted, 0)
	require.NoError(t, err)

	require.Equal(t, uint64(1), snap.ChainID)
	require.Equal(t, uint64(19000000), snap.BlockNumber)
	require.Equal(t, common.Hash(testPID).Hex(), snap.PoolID)
	require.Equal(t, "0.003", snap.SwapFee)
	require.Equal(t, "100", snap.TotalShares)
	require.Equal(t, []model.TokenSnapshot{
		{Address: daiAt.Hex(), Symbol: "DAI", Decimals: 18, Balance: "100", Weight: "0.5"},
		{Address: usdcAt.Hex(), Symbol: "USDC", Decimals: 6, Balance: "100", Weight: "0.5"},
	}, snap.Tokens)

	// Every call is pinned to the recorded block.
	for _, block := range c.blocks {
		if block != nil {
			require.Equal(t, uint64(19000000), block.Uint64())
		}
	}

	p, err := pool.FromSnapshot(snap)
	require.NoError(t, err)
	q, err := p.SwapGivenIn("DAI", "USDC", "10")
	require.NoError(t, err)
	require.Equal(t, "9.066108", q.Result)
}

func TestFetchMetaStable(t *testing.T) {
	poolABI, vaultABI := abis(t)
	c := newFakeChain()
	c.on(t, poolAt, poolABI, "getPoolId", testPID)
	c.on(t, vault, vaultABI, "getPoolTokens", []common.Address{daiAt, usdcAt}, []*big.Int{e(1000, 18), e(1000, 6)}, big.NewInt(1))
	c.on(t, poolAt, poolABI, "getSwapFeePercentage", e(4, 14))
	c.on(t, poolAt, poolABI, "totalSupply", e(2000, 18))
	c.on(t, poolAt, poolABI, "getAmplificationParameter", big.NewInt(200000), false, big.NewInt(1000))
	c.on(t, poolAt, poolABI, "getScalingFactors", []*big.Int{e(11, 17), e(1, 30)})
	c.token(t, daiAt, "DAI", 18)
	c.token(t, usdcAt, "USDC", 6)

	snap, err := newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindMetaStable, 18000000)
	require.NoError(t, err)
	require.Equal(t, uint64(18000000), snap.BlockNumber)
	require.Equal(t, "200", snap.Amp)
	require.Equal(t, "1.1", snap.Tokens[0].PriceRate)
	require.Equal(t, "1", snap.Tokens[1].PriceRate)

	_, err = pool.FromSnapshot(snap)
	require.NoError(t, err)
}

func TestFetchLinear(t *testing.T) {
	poolABI, vaultABI := abis(t)
	c := newFakeChain()
	c.on(t, poolAt, poolABI, "getPoolId", testPID)
	c.on(t, vault, vaultABI, "getPoolTokens",
		[]common.Address{daiAt, poolAt, aDaiAt},
		[]*big.Int{e(1500, 18), e(5192296858534827, 18), e(500, 18)},
		big.NewInt(1))
	c.on(t, poolAt, poolABI, "getSwapFeePercentage", e(2, 16))
	c.on(t, poolAt, poolABI, "getVirtualSupply", e(2000, 18))
	c.on(t, poolAt, poolABI, "getMainIndex", big.NewInt(0))
	c.on(t, poolAt, poolABI, "getWrappedIndex", big.NewInt(2))
	c.on(t, poolAt, poolABI, "getTargets", e(1000, 18), e(2000, 18))
	c.on(t, poolAt, poolABI, "getWrappedTokenRate", e(1, 18))
	c.token(t, daiAt, "DAI", 18)
	c.token(t, poolAt, "bb-a-DAI", 18)
	c.token(t, aDaiAt, "aDAI", 18)

	snap, err := newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindLinear, 0)
	require.NoError(t, err)
	require.Equal(t, "2000", snap.TotalShares)
	require.NotNil(t, snap.MainIndex)
	require.NotNil(t, snap.WrappedIndex)
	require.Equal(t, 0, *snap.MainIndex)
	require.Equal(t, 2, *snap.WrappedIndex)
	require.Equal(t, "1000", snap.LowerTarget)
	require.Equal(t, "2000", snap.UpperTarget)
	require.Equal(t, "1", snap.Tokens[2].PriceRate)

	p, err := pool.FromSnapshot(snap)
	require.NoError(t, err)
	q, err := p.SwapGivenIn("DAI", "bb-a-DAI", "600")
	require.NoError(t, err)
	require.Equal(t, "598", q.Result)
}

func TestFetchPhantomBptIndex(t *testing.T) {
	poolABI, vaultABI := abis(t)
	c := newFakeChain()
	c.on(t, poolAt, poolABI, "getPoolId", testPID)
	c.on(t, vault, vaultABI, "getPoolTokens",
		[]common.Address{daiAt, poolAt, usdcAt},
		[]*big.Int{e(1000, 18), e(1000, 18), e(1000, 6)},
		big.NewInt(1))
	c.on(t, poolAt, poolABI, "getSwapFeePercentage", e(4, 14))
	c.on(t, poolAt, poolABI, "getActualSupply", e(2000, 18))
	c.on(t, poolAt, poolABI, "getAmplificationParameter", big.NewInt(100000), false, big.NewInt(1000))
	c.on(t, poolAt, poolABI, "getScalingFactors", []*big.Int{e(1, 18), e(1, 18), e(1, 30)})
	c.on(t, poolAt, poolABI, "getBptIndex", big.NewInt(1))
	c.token(t, daiAt, "DAI", 18)
	c.token(t, poolAt, "bb-a-USD", 18)
	c.token(t, usdcAt, "USDC", 6)

	snap, err := newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindStablePhantom, 0)
	require.NoError(t, err)
	require.Equal(t, "2000", snap.TotalShares)
	p, err := pool.FromSnapshot(snap)
	require.NoError(t, err)
	require.Len(t, p.Tokens(), 2)

	c.on(t, poolAt, poolABI, "getBptIndex", big.NewInt(0))
	_, err = newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindStablePhantom, 0)
	require.ErrorIs(t, err, errs.ErrTokenNotFound)
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	c := weightedChain(t)
	c.transient = 2
	_, err := newTestFetcher(c, 3).Fetch(context.Background(), poolAt, model.KindWeighted, 0)
	require.NoError(t, err)

	c.transient = 1
	_, err = newTestFetcher(c, 0).Fetch(context.Background(), poolAt, model.KindWeighted, 0)
	require.ErrorContains(t, err, "connection reset")
}

func TestFetchDoesNotRetryReverts(t *testing.T) {
	poolABI, _ := abis(t)
	c := newFakeChain()
	c.on(t, poolAt, poolABI, "getSwapFeePercentage", e(3, 15))

	_, err := newTestFetcher(c, 5).Fetch(context.Background(), poolAt, model.KindWeighted, 0)
	require.ErrorContains(t, err, "execution reverted")
	require.Equal(t, 1, c.calls)
}

func TestFetchUnknownKind(t *testing.T) {
	_, err := newTestFetcher(newFakeChain(), 0).Fetch(context.Background(), poolAt, "gyro", 0)
	require.ErrorIs(t, err, errs.ErrUnsupportedPoolKind)
}

func TestTokenCache(t *testing.T) {
	c := newFakeChain()
	c.token(t, daiAt, "DAI", 18)
	f := newTestFetcher(c, 0)

	meta, err := f.tokenMeta(context.Background(), daiAt)
	require.NoError(t, err)
	require.Equal(t, model.TokenMeta{Address: daiAt.Hex(), Symbol: "DAI", Decimals: 18}, meta)

	calls := c.calls
	_, err = f.tokenMeta(context.Background(), daiAt)
	require.NoError(t, err)
	require.Equal(t, calls, c.calls)
}
