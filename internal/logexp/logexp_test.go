package logexp

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
)

func e18(s string) *big.Int {
	return mustBig(s)
}

func TestExpKnownValues(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"0", "1000000000000000000"},
		{"1000000000000000000", "2718281828459045235"},
		{"-1000000000000000000", "367879441171442321"},
		{"-41000000000000000000", "1"},
	}
	for _, tc := range cases {
		got, err := Exp(e18(tc.in))
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got.String(), tc.in)
	}
}

func TestExpBounds(t *testing.T) {
	_, err := Exp(e18("130000000000000000001"))
	require.ErrorIs(t, err, errs.ErrInvalidExponent)

	_, err = Exp(e18("-41000000000000000001"))
	require.ErrorIs(t, err, errs.ErrInvalidExponent)

	_, err = Exp(MaxNaturalExponent)
	require.NoError(t, err)
}

func TestLnKnownValues(t *testing.T) {
	got, err := Ln(e18("1000000000000000000"))
	require.NoError(t, err)
	require.Zero(t, got.Sign())

	got, err = Ln(e18("10000000000000000000"))
	require.NoError(t, err)
	require.Equal(t, "2302585092994045683", got.String())

	got, err = Ln(e18("2718281828459045235"))
	require.NoError(t, err)
	require.Equal(t, "999999999999999999", got.String())

	got, err = Ln(big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, "-41446531673892822312", got.String())
}

func TestLnRejectsNonPositive(t *testing.T) {
	_, err := Ln(big.NewInt(0))
	require.ErrorIs(t, err, errs.ErrOutOfBounds)

	_, err = Ln(big.NewInt(-5))
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
}

func TestLog(t *testing.T) {
	got, err := Log(e18("100000000000000000000"), e18("10000000000000000000"))
	require.NoError(t, err)
	diff := new(big.Int).Sub(got, big.NewInt(2e18))
	require.LessOrEqual(t, diff.CmpAbs(big.NewInt(10)), 0, got.String())

	_, err = Log(e18("2000000000000000000"), e18("1000000000000000000"))
	require.ErrorIs(t, err, errs.ErrZeroDivision)
}

func TestPowKnownValues(t *testing.T) {
	got, err := Pow(uint256.NewInt(2e18), uint256.NewInt(2e18))
	require.NoError(t, err)
	require.Equal(t, "3999999999999999996", got.Dec())

	got, err = Pow(uint256.NewInt(0.9e18), uint256.NewInt(2e18))
	require.NoError(t, err)
	require.Equal(t, "810000000000000000", got.Dec())

	got, err = Pow(uint256.NewInt(4e18), uint256.NewInt(0.5e18))
	require.NoError(t, err)
	require.Equal(t, "1999999999999999998", got.Dec())
}

func TestPowEdges(t *testing.T) {
	got, err := Pow(uint256.NewInt(123), new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, uint64(1e18), got.Uint64())

	got, err = Pow(new(uint256.Int), uint256.NewInt(3e18))
	require.NoError(t, err)
	require.True(t, got.IsZero())

	x := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	_, err = Pow(x, uint256.NewInt(1e18))
	require.ErrorIs(t, err, errs.ErrXOutOfBounds)

	y, _ := uint256.FromBig(MildExponentBound)
	_, err = Pow(uint256.NewInt(2e18), y)
	require.ErrorIs(t, err, errs.ErrYOutOfBounds)

	// ln(1e12) * 100 is far outside the exp domain.
	base, _ := uint256.FromDecimal("1000000000000000000000000000000")
	exp, _ := uint256.FromDecimal("100000000000000000000")
	_, err = Pow(base, exp)
	require.ErrorIs(t, err, errs.ErrProductOutOfBounds)
}

func TestPowDoesNotMutateInputs(t *testing.T) {
	x := uint256.NewInt(1.05e18)
	y := uint256.NewInt(3e18)
	_, err := Pow(x, y)
	require.NoError(t, err)
	require.Equal(t, uint64(1.05e18), x.Uint64())
	require.Equal(t, uint64(3e18), y.Uint64())
}
