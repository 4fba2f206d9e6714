package stable

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

func TestBptOutGivenExactTokensIn(t *testing.T) {
	supply := e18(3000)

	proportional, err := BptOutGivenExactTokensIn(amp100, threeEven(), []*uint256.Int{e18(10), e18(10), e18(10)}, supply, swapFee)
	require.NoError(t, err)
	require.Equal(t, "29999999999999997000", proportional.Dec())

	single, err := BptOutGivenExactTokensIn(amp100, threeEven(), []*uint256.Int{e18(10), fp.New(0), fp.New(0)}, supply, swapFee)
	require.NoError(t, err)
	require.Equal(t, "9997005289173450000", single.Dec())

	_, err = BptOutGivenExactTokensIn(amp100, threeEven(), []*uint256.Int{e18(10)}, supply, swapFee)
	require.ErrorIs(t, err, errs.ErrInputLengthMismatch)
}

func TestTokenInGivenExactBptOut(t *testing.T) {
	in, err := TokenInGivenExactBptOut(amp100, threeEven(), 0, e18(10), e18(3000), swapFee)
	require.NoError(t, err)
	require.Equal(t, "10002996061522292719", in.Dec())
}

func TestBptInGivenExactTokensOut(t *testing.T) {
	bpt, err := BptInGivenExactTokensOut(amp100, threeEven(), []*uint256.Int{e18(10), fp.New(0), fp.New(0)}, e18(3000), swapFee)
	require.NoError(t, err)
	require.Equal(t, "10002999797488896000", bpt.Dec())
}

func TestTokenOutGivenExactBptIn(t *testing.T) {
	out, err := TokenOutGivenExactBptIn(amp100, threeEven(), 0, e18(10), e18(3000), swapFee)
	require.NoError(t, err)
	require.Equal(t, "9997001557791987721", out.Dec())

	// Exiting and re-joining single-sided is never profitable.
	in, err := TokenInGivenExactBptOut(amp100, threeEven(), 0, e18(10), e18(3000), swapFee)
	require.NoError(t, err)
	require.True(t, in.Gt(out))
}

func TestProportionalAmounts(t *testing.T) {
	ins, err := AllTokensInGivenExactBptOut(threeEven(), e18(30), e18(3000))
	require.NoError(t, err)
	outs, err := TokensOutGivenExactBptIn(threeEven(), e18(30), e18(3000))
	require.NoError(t, err)
	for i := range ins {
		require.Equal(t, e18(10).Dec(), ins[i].Dec())
		require.Equal(t, e18(10).Dec(), outs[i].Dec())
	}
}

func TestDueProtocolSwapFeeAmount(t *testing.T) {
	balances := []*uint256.Int{e18(1000), e18(1200)}
	last, err := Invariant(amp100, []*uint256.Int{e18(1000), e18(1190)}, true)
	require.NoError(t, err)

	idx := HighestBalanceIndex(balances)
	require.Equal(t, 1, idx)

	fee, err := DueProtocolSwapFeeAmount(amp100, balances, last, idx, fp.New(0.5e18))
	require.NoError(t, err)
	require.Equal(t, "4999999999999999296", fee.Dec())

	// A last invariant above the current one owes nothing.
	current, err := Invariant(amp100, balances, true)
	require.NoError(t, err)
	higher := new(uint256.Int).Add(current, e18(1))
	none, err := DueProtocolSwapFeeAmount(amp100, balances, higher, idx, fp.New(0.5e18))
	require.NoError(t, err)
	require.True(t, none.IsZero())
}

func TestBptSpotPrice(t *testing.T) {
	price, err := BptSpotPrice(amp100, threeEven(), e18(3000), 0)
	require.NoError(t, err)
	require.Equal(t, fp.One.Dec(), price.Dec())

	price, err = BptSpotPrice(amp100, []*uint256.Int{e18(1000), e18(1200)}, e18(2200), 0)
	require.NoError(t, err)
	require.Equal(t, "1000998145175019729", price.Dec())

	_, err = BptSpotPrice(amp100, threeEven(), e18(3000), 5)
	require.ErrorIs(t, err, errs.ErrTokenNotFound)
}

func TestBptZeroPriceImpact(t *testing.T) {
	ideal, err := BptZeroPriceImpact(amp100, threeEven(), []*uint256.Int{e18(10), fp.New(0), fp.New(0)}, e18(3000))
	require.NoError(t, err)
	require.Equal(t, e18(10).Dec(), ideal.Dec())

	balances := []*uint256.Int{e18(1000), e18(1200)}
	amounts := []*uint256.Int{e18(10), e18(10)}
	ideal, err = BptZeroPriceImpact(amp100, balances, amounts, e18(2200))
	require.NoError(t, err)
	require.Equal(t, "20001663575291699560", ideal.Dec())

	actual, err := BptOutGivenExactTokensIn(amp100, balances, amounts, e18(2200), swapFee)
	require.NoError(t, err)
	require.Equal(t, "20001291841940789600", actual.Dec())
	require.True(t, actual.Lt(ideal))
}
