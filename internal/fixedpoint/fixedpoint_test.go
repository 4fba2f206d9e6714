package fixedpoint

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"balancerScope/internal/errs"
)

func TestDivUpRoundsTinyQuotientToOneWei(t *testing.T) {
	got, err := DivUp(New(1), New(3e18))
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.Uint64())

	got, err = DivDown(New(1), New(3e18))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestMulDownAndUp(t *testing.T) {
	a := New(1.5e18)
	b := New(3)

	down, err := MulDown(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(4), down.Uint64())

	up, err := MulUp(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(5), up.Uint64())

	zero, err := MulUp(New(0), b)
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestDivisionByZero(t *testing.T) {
	for _, fn := range []func(a, b *uint256.Int) (*uint256.Int, error){DivDown, DivUp, DivDownInt, DivUpInt} {
		_, err := fn(One, New(0))
		require.ErrorIs(t, err, errs.ErrZeroDivision)
	}
	got, err := DivUp(New(0), New(7))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestCheckedAddSubMul(t *testing.T) {
	maxU := new(uint256.Int).SetAllOne()

	_, err := Add(maxU, New(1))
	require.ErrorIs(t, err, errs.ErrAddOverflow)

	_, err = Sub(New(1), New(2))
	require.ErrorIs(t, err, errs.ErrSubOverflow)

	_, err = Mul(maxU, New(2))
	require.ErrorIs(t, err, errs.ErrMulOverflow)

	_, err = MulDown(maxU, One)
	require.ErrorIs(t, err, errs.ErrMulOverflow)

	_, err = DivDown(maxU, One)
	require.ErrorIs(t, err, errs.ErrMulOverflow)

	got, err := Sub(New(5), New(5))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestDivUpIntCeil(t *testing.T) {
	got, err := DivUpInt(New(7), New(2))
	require.NoError(t, err)
	require.Equal(t, uint64(4), got.Uint64())

	got, err = DivInt(New(7), New(2), false)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Uint64())

	got, err = DivUpInt(New(0), New(2))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestComplement(t *testing.T) {
	require.Equal(t, uint64(0.3e18), Complement(New(0.7e18)).Uint64())
	require.True(t, Complement(One).IsZero())
	require.True(t, Complement(Two).IsZero())
	require.Equal(t, uint64(1e18), Complement(New(0)).Uint64())
}

func TestPowBracketsExactValue(t *testing.T) {
	exact := New(0.81e18)

	down, err := PowDown(New(0.9e18), Two)
	require.NoError(t, err)
	up, err := PowUp(New(0.9e18), Two)
	require.NoError(t, err)

	require.True(t, down.Cmp(exact) <= 0, down.Dec())
	require.True(t, up.Cmp(exact) >= 0, up.Dec())
	require.Equal(t, "809999999999991899", down.Dec())
	require.Equal(t, "810000000000008101", up.Dec())
}

func TestPowDownClampsAtZero(t *testing.T) {
	// 1e-9 ^ 1.975 rounds to a single wei, below the error band.
	got, err := PowDown(New(1e9), New(1.975e18))
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestRoundingConsistency(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a := New(rng.Uint64())
		b := New(rng.Uint64()>>1 + 1)

		mulDown, err := MulDown(a, b)
		require.NoError(t, err)
		mulUp, err := MulUp(a, b)
		require.NoError(t, err)
		require.True(t, mulDown.Cmp(mulUp) <= 0)

		spread := new(uint256.Int).Sub(mulUp, mulDown)
		require.True(t, spread.Cmp(New(1)) <= 0)

		divDown, err := DivDown(a, b)
		require.NoError(t, err)
		divUp, err := DivUp(a, b)
		require.NoError(t, err)
		require.True(t, divDown.Cmp(divUp) <= 0)
		spread = new(uint256.Int).Sub(divUp, divDown)
		require.True(t, spread.Cmp(New(1)) <= 0)
	}
}

func TestOperationsDoNotMutateInputs(t *testing.T) {
	a := New(3e18)
	b := New(7e17)
	_, _ = MulUp(a, b)
	_, _ = DivUp(a, b)
	_, _ = Add(a, b)
	_, _ = Sub(a, b)
	_ = Complement(b)
	require.Equal(t, uint64(3e18), a.Uint64())
	require.Equal(t, uint64(7e17), b.Uint64())
	require.Equal(t, uint64(1e18), One.Uint64())
}

func TestSumAndClone(t *testing.T) {
	values := []*uint256.Int{New(1), New(2), New(3)}
	total, err := Sum(values)
	require.NoError(t, err)
	require.Equal(t, uint64(6), total.Uint64())

	cp := Clone(values)
	cp[0].SetUint64(99)
	require.Equal(t, uint64(1), values[0].Uint64())

	_, err = Sum([]*uint256.Int{new(uint256.Int).SetAllOne(), New(1)})
	require.ErrorIs(t, err, errs.ErrAddOverflow)
}

func TestParse(t *testing.T) {
	v, err := Parse("1000000000000000000")
	require.NoError(t, err)
	require.Equal(t, One.Uint64(), v.Uint64())

	_, err = Parse("-1")
	require.ErrorIs(t, err, errs.ErrInvalidAmount)

	_, err = Parse("1.5")
	require.ErrorIs(t, err, errs.ErrInvalidAmount)
}
