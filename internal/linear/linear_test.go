package linear

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(fp.New(n), fp.One)
}

func params() Params {
	return Params{Fee: fp.New(0.02e18), LowerTarget: e18(1000), UpperTarget: e18(2000)}
}

var (
	mainBalance    = e18(1500)
	wrappedBalance = e18(500)
	bptSupply      = e18(2000)
)

func TestNominal(t *testing.T) {
	p := params()
	for _, tc := range []struct {
		balance, nominal string
	}{
		{"500000000000000000000", "490000000000000000000"},
		{"1500000000000000000000", "1500000000000000000000"},
		{"2500000000000000000000", "2490000000000000000000"},
	} {
		balance := fp.MustParse(tc.balance)
		nominal, err := ToNominal(balance, p)
		require.NoError(t, err)
		require.Equal(t, tc.nominal, nominal.Dec())

		back, err := FromNominal(nominal, p)
		require.NoError(t, err)
		require.Equal(t, tc.balance, back.Dec())
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, params().Validate())

	inverted := Params{Fee: fp.New(0), LowerTarget: e18(2), UpperTarget: e18(1)}
	require.ErrorIs(t, inverted.Validate(), errs.ErrOutOfBounds)

	require.ErrorIs(t, Params{}.Validate(), errs.ErrInvalidAmount)
}

func TestMainSwapsOutsideBand(t *testing.T) {
	p := params()

	// 600 main in moves the balance 100 past the upper target.
	bptOut, err := BptOutPerMainIn(e18(600), mainBalance, wrappedBalance, bptSupply, p)
	require.NoError(t, err)
	require.Equal(t, e18(598).Dec(), bptOut.Dec())

	wrappedOut, err := WrappedOutPerMainIn(e18(600), mainBalance, p)
	require.NoError(t, err)
	require.Equal(t, e18(598).Dec(), wrappedOut.Dec())

	bptIn, err := BptInPerMainOut(e18(600), mainBalance, wrappedBalance, bptSupply, p)
	require.NoError(t, err)
	require.Equal(t, e18(602).Dec(), bptIn.Dec())

	wrappedIn, err := WrappedInPerMainOut(e18(600), mainBalance, p)
	require.NoError(t, err)
	require.Equal(t, e18(602).Dec(), wrappedIn.Dec())

	mainOut, err := MainOutPerWrappedIn(e18(1000), mainBalance, p)
	require.NoError(t, err)
	require.Equal(t, "990196078431372549020", mainOut.Dec())
}

func TestSwapsInsideBandAreFeeFree(t *testing.T) {
	p := params()
	amount := e18(100)

	for name, fn := range map[string]func() (*uint256.Int, error){
		"MainInPerBptOut":     func() (*uint256.Int, error) { return MainInPerBptOut(amount, mainBalance, wrappedBalance, bptSupply, p) },
		"MainOutPerBptIn":     func() (*uint256.Int, error) { return MainOutPerBptIn(amount, mainBalance, wrappedBalance, bptSupply, p) },
		"MainOutPerWrappedIn": func() (*uint256.Int, error) { return MainOutPerWrappedIn(amount, mainBalance, p) },
		"MainInPerWrappedOut": func() (*uint256.Int, error) { return MainInPerWrappedOut(amount, mainBalance, p) },
		"BptOutPerWrappedIn":  func() (*uint256.Int, error) { return BptOutPerWrappedIn(amount, mainBalance, wrappedBalance, bptSupply, p) },
		"BptInPerWrappedOut":  func() (*uint256.Int, error) { return BptInPerWrappedOut(amount, mainBalance, wrappedBalance, bptSupply, p) },
		"WrappedInPerBptOut":  func() (*uint256.Int, error) { return WrappedInPerBptOut(amount, mainBalance, wrappedBalance, bptSupply, p) },
		"WrappedOutPerBptIn":  func() (*uint256.Int, error) { return WrappedOutPerBptIn(amount, mainBalance, wrappedBalance, bptSupply, p) },
	} {
		got, err := fn()
		require.NoError(t, err, name)
		require.Equal(t, amount.Dec(), got.Dec(), name)
	}
}

func TestEmptyPool(t *testing.T) {
	p := params()
	zero := fp.New(0)

	bpt, err := BptOutPerMainIn(e18(500), zero, zero, zero, p)
	require.NoError(t, err)
	require.Equal(t, e18(490).Dec(), bpt.Dec())

	mainIn, err := MainInPerBptOut(e18(490), zero, zero, zero, p)
	require.NoError(t, err)
	require.Equal(t, e18(500).Dec(), mainIn.Dec())

	bpt, err = BptOutPerWrappedIn(e18(7), zero, zero, zero, p)
	require.NoError(t, err)
	require.Equal(t, e18(7).Dec(), bpt.Dec())
}

func TestOverdraw(t *testing.T) {
	p := params()
	_, err := WrappedInPerMainOut(e18(1501), mainBalance, p)
	require.ErrorIs(t, err, errs.ErrSubOverflow)

	_, err = WrappedOutPerBptIn(e18(2001), mainBalance, wrappedBalance, bptSupply, p)
	require.ErrorIs(t, err, errs.ErrSubOverflow)
}
