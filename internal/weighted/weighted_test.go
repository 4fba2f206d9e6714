package weighted

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

var (
	half      = fp.New(0.5e18)
	hundred   = fp.MustParse("100000000000000000000")
	ten       = fp.New(10e18)
	swapFee   = fp.New(0.003e18)
	zeroFee   = fp.New(0)
	evenPool  = []*uint256.Int{hundred, hundred}
	evenShare = []*uint256.Int{half, half}
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(fp.New(n), fp.One)
}

func plusOne(v *uint256.Int) *uint256.Int {
	return new(uint256.Int).AddUint64(v, 1)
}

func within(t *testing.T, want, got *uint256.Int, tolerance uint64) {
	t.Helper()
	diff := new(uint256.Int)
	if got.Gt(want) {
		diff.Sub(got, want)
	} else {
		diff.Sub(want, got)
	}
	require.True(t, diff.Cmp(fp.New(tolerance)) <= 0, "want %s got %s", want.Dec(), got.Dec())
}

func TestInvariantEvenPool(t *testing.T) {
	inv, err := Invariant(evenShare, evenPool)
	require.NoError(t, err)
	require.Equal(t, "99999999999997999760", inv.Dec())
	within(t, hundred, inv, 1e7)
}

func TestInvariantZero(t *testing.T) {
	_, err := Invariant(evenShare, []*uint256.Int{fp.New(0), hundred})
	require.ErrorIs(t, err, errs.ErrZeroInvariant)

	_, err = Invariant(evenShare, []*uint256.Int{hundred})
	require.ErrorIs(t, err, errs.ErrInputLengthMismatch)
}

func TestInvariantMonotonic(t *testing.T) {
	weights := []*uint256.Int{fp.New(0.2e18), fp.New(0.3e18), fp.New(0.5e18)}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		balances := []*uint256.Int{
			new(uint256.Int).Add(e18(rng.Uint64()%1000), fp.New(rng.Uint64()%1e18+1e18)),
			new(uint256.Int).Add(e18(rng.Uint64()%1000), fp.New(rng.Uint64()%1e18+1e18)),
			new(uint256.Int).Add(e18(rng.Uint64()%1000), fp.New(rng.Uint64()%1e18+1e18)),
		}
		before, err := Invariant(weights, balances)
		require.NoError(t, err)

		idx := rng.Intn(len(balances))
		grown := fp.Clone(balances)
		grown[idx] = new(uint256.Int).Add(grown[idx], new(uint256.Int).Div(grown[idx], fp.New(10)))
		after, err := Invariant(weights, grown)
		require.NoError(t, err)
		require.True(t, after.Gt(before), "invariant must grow: %s -> %s", before.Dec(), after.Dec())
	}
}

func TestSwapGivenInEvenPool(t *testing.T) {
	out, err := SwapGivenIn(hundred, half, hundred, half, ten, zeroFee)
	require.NoError(t, err)
	require.Equal(t, "9090909090908181600", out.Dec())
	within(t, fp.New(9090909090909090909), out, 1e7)

	withFee, err := SwapGivenIn(hundred, half, hundred, half, ten, swapFee)
	require.NoError(t, err)
	require.Equal(t, "9066108938800581700", withFee.Dec())
	require.True(t, withFee.Lt(out))
}

func TestSwapGivenOutEvenPool(t *testing.T) {
	in, err := SwapGivenOut(hundred, half, hundred, half, fp.New(9090909090909090909), zeroFee)
	require.NoError(t, err)
	require.Equal(t, "10000000000001099900", in.Dec())
}

func TestSwapRoundTripIsNotProfitable(t *testing.T) {
	wIn, wOut := fp.New(0.8e18), fp.New(0.2e18)
	balanceOut := e18(50)
	amountIn := fp.New(2e18)

	out, err := SwapGivenIn(hundred, wIn, balanceOut, wOut, amountIn, swapFee)
	require.NoError(t, err)
	require.Equal(t, "3796858330419319800", out.Dec())

	back, err := SwapGivenOut(hundred, wIn, balanceOut, wOut, out, swapFee)
	require.NoError(t, err)
	require.Equal(t, "2000000000000767302", back.Dec())
	require.True(t, back.Cmp(amountIn) >= 0)

	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 30; i++ {
		amount := fp.New(rng.Uint64()%18e18 + 1e15)
		out, err := SwapGivenIn(hundred, half, hundred, half, amount, swapFee)
		require.NoError(t, err)
		back, err := SwapGivenOut(hundred, half, hundred, half, out, swapFee)
		require.NoError(t, err)
		require.True(t, back.Cmp(amount) >= 0, "round trip gained: %s -> %s", amount.Dec(), back.Dec())
	}
}

func TestSwapRatioLimits(t *testing.T) {
	_, err := CalcOutGivenIn(hundred, half, hundred, half, plusOne(e18(30)))
	require.ErrorIs(t, err, errs.ErrMaxInRatio)

	_, err = CalcInGivenOut(hundred, half, hundred, half, plusOne(e18(30)))
	require.ErrorIs(t, err, errs.ErrMaxOutRatio)

	_, err = CalcOutGivenIn(hundred, half, hundred, half, e18(30))
	require.NoError(t, err)
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(evenShare))
	require.NoError(t, ValidateWeights([]*uint256.Int{fp.New(0.01e18), fp.New(0.99e18)}))

	require.ErrorIs(t, ValidateWeights([]*uint256.Int{fp.New(0.5e18), fp.New(0.5e18 - 1)}), errs.ErrNormalizedWeightInvariant)
	require.ErrorIs(t, ValidateWeights([]*uint256.Int{fp.New(0.5e18), fp.New(0.5e18 + 1)}), errs.ErrNormalizedWeightInvariant)
	require.ErrorIs(t, ValidateWeights([]*uint256.Int{fp.One}), errs.ErrMinTokens)
	require.ErrorIs(t, ValidateWeights([]*uint256.Int{fp.New(0.009e18), fp.New(0.991e18)}), errs.ErrMinWeight)

	nine := make([]*uint256.Int, 9)
	for i := range nine {
		nine[i] = fp.New(0.1e18)
	}
	require.ErrorIs(t, ValidateWeights(nine), errs.ErrMaxTokens)
}

func TestBptOutGivenExactTokensIn(t *testing.T) {
	proportional, err := BptOutGivenExactTokensIn(evenPool, evenShare, []*uint256.Int{ten, ten}, hundred, swapFee)
	require.NoError(t, err)
	require.Equal(t, "9999999999997799100", proportional.Dec())

	single, err := BptOutGivenExactTokensIn(evenPool, evenShare, []*uint256.Int{ten, fp.New(0)}, hundred, swapFee)
	require.NoError(t, err)
	require.Equal(t, "4873733603794043500", single.Dec())

	none, err := BptOutGivenExactTokensIn(evenPool, evenShare, []*uint256.Int{fp.New(0), fp.New(0)}, hundred, swapFee)
	require.NoError(t, err)
	require.True(t, none.IsZero())
}

func TestTokenInGivenExactBptOut(t *testing.T) {
	in, err := TokenInGivenExactBptOut(hundred, half, ten, hundred, swapFee)
	require.NoError(t, err)
	require.Equal(t, "21031594784354270798", in.Dec())

	_, err = TokenInGivenExactBptOut(hundred, half, fp.MustParse("200000000000000000001"), hundred, swapFee)
	require.ErrorIs(t, err, errs.ErrMaxOutBptForTokenIn)
}

func TestBptInGivenExactTokensOut(t *testing.T) {
	bpt, err := BptInGivenExactTokensOut(evenPool, evenShare, []*uint256.Int{ten, fp.New(0)}, hundred, swapFee)
	require.NoError(t, err)
	require.Equal(t, "5139600008965710900", bpt.Dec())

	// Burning for a single token costs more BPT than joining with it mints.
	minted, err := BptOutGivenExactTokensIn(evenPool, evenShare, []*uint256.Int{ten, fp.New(0)}, hundred, swapFee)
	require.NoError(t, err)
	require.True(t, bpt.Gt(minted))

	_, err = BptInGivenExactTokensOut(evenPool, evenShare, []*uint256.Int{fp.MustParse("100000000000000000001"), fp.New(0)}, hundred, swapFee)
	require.ErrorIs(t, err, errs.ErrSubOverflow)
}

func TestTokenOutGivenExactBptIn(t *testing.T) {
	out, err := TokenOutGivenExactBptIn(hundred, half, ten, hundred, swapFee)
	require.NoError(t, err)
	require.Equal(t, "18971499999999191115", out.Dec())

	_, err = TokenOutGivenExactBptIn(hundred, half, e18(31), hundred, swapFee)
	require.ErrorIs(t, err, errs.ErrMinBptInForTokenOut)
}

func TestProportionalJoinExit(t *testing.T) {
	ins, err := AllTokensInGivenExactBptOut([]*uint256.Int{hundred, fp.New(3)}, ten, hundred)
	require.NoError(t, err)
	require.Equal(t, uint64(10e18), ins[0].Uint64())
	require.Equal(t, uint64(1), ins[1].Uint64())

	outs, err := TokensOutGivenExactBptIn([]*uint256.Int{hundred, fp.New(3)}, ten, hundred)
	require.NoError(t, err)
	require.Equal(t, uint64(10e18), outs[0].Uint64())
	require.True(t, outs[1].IsZero())
}

func TestDueTokenProtocolSwapFeeAmount(t *testing.T) {
	fee, err := DueTokenProtocolSwapFeeAmount(hundred, half, hundred, fp.MustParse("101000000000000000000"), half)
	require.NoError(t, err)
	require.Equal(t, "985197529653465200", fee.Dec())

	none, err := DueTokenProtocolSwapFeeAmount(hundred, half, hundred, hundred, half)
	require.NoError(t, err)
	require.True(t, none.IsZero())
}

func TestBptZeroPriceImpact(t *testing.T) {
	bpt, err := BptZeroPriceImpact(evenPool, evenShare, []*uint256.Int{ten, ten}, hundred)
	require.NoError(t, err)
	require.Equal(t, uint64(10e18), bpt.Uint64())

	// Slippage means a real join mints less than the zero impact amount.
	actual, err := BptOutGivenExactTokensIn(evenPool, evenShare, []*uint256.Int{ten, fp.New(0)}, hundred, swapFee)
	require.NoError(t, err)
	ideal, err := BptZeroPriceImpact(evenPool, evenShare, []*uint256.Int{ten, fp.New(0)}, hundred)
	require.NoError(t, err)
	require.True(t, actual.Lt(ideal))
}

func TestSpotPrice(t *testing.T) {
	price, err := SpotPrice(hundred, half, hundred, half, zeroFee)
	require.NoError(t, err)
	require.Equal(t, uint64(1e18), price.Uint64())

	price, err = SpotPrice(hundred, fp.New(0.8e18), e18(50), fp.New(0.2e18), zeroFee)
	require.NoError(t, err)
	require.Equal(t, uint64(0.5e18), price.Uint64())
}
