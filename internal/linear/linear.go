// Package linear implements the swap math of linear pools, which trade a
// main token, its yield-bearing wrapped counterpart and the pool's own BPT.
//
// Main token balances are converted to a "nominal" value that charges the
// swap fee whenever a trade moves the main balance outside the
// [LowerTarget, UpperTarget] band. Wrapped amounts must already be scaled by
// the wrapped token's rate.
package linear

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

// Params holds the fee and target band of a linear pool.
type Params struct {
	Fee         *uint256.Int
	LowerTarget *uint256.Int
	UpperTarget *uint256.Int
}

// Validate checks that the band is well formed.
func (p Params) Validate() error {
	if p.Fee == nil || p.LowerTarget == nil || p.UpperTarget == nil {
		return errs.ErrInvalidAmount
	}
	if p.LowerTarget.Gt(p.UpperTarget) {
		return errs.ErrOutOfBounds
	}
	if !p.Fee.Lt(fp.One) {
		return errs.ErrOutOfBounds
	}
	return nil
}

// ToNominal applies the band fee to a real main balance. Fees round down.
func ToNominal(balance *uint256.Int, p Params) (*uint256.Int, error) {
	switch {
	case balance.Lt(p.LowerTarget):
		fees, err := fp.MulDown(new(uint256.Int).Sub(p.LowerTarget, balance), p.Fee)
		if err != nil {
			return nil, err
		}
		return fp.Sub(balance, fees)
	case !balance.Gt(p.UpperTarget):
		return balance.Clone(), nil
	default:
		fees, err := fp.MulDown(new(uint256.Int).Sub(balance, p.UpperTarget), p.Fee)
		if err != nil {
			return nil, err
		}
		return fp.Sub(balance, fees)
	}
}

// FromNominal reverses ToNominal.
func FromNominal(nominal *uint256.Int, p Params) (*uint256.Int, error) {
	switch {
	case nominal.Lt(p.LowerTarget):
		offset, err := fp.MulDown(p.LowerTarget, p.Fee)
		if err != nil {
			return nil, err
		}
		num, err := fp.Add(nominal, offset)
		if err != nil {
			return nil, err
		}
		den, err := fp.Add(fp.One, p.Fee)
		if err != nil {
			return nil, err
		}
		return fp.DivDown(num, den)
	case !nominal.Gt(p.UpperTarget):
		return nominal.Clone(), nil
	default:
		offset, err := fp.MulDown(p.UpperTarget, p.Fee)
		if err != nil {
			return nil, err
		}
		num, err := fp.Sub(nominal, offset)
		if err != nil {
			return nil, err
		}
		return fp.DivDown(num, fp.Complement(p.Fee))
	}
}

// invariant is the pool value in nominal main units.
func invariant(nominalMain, wrapped *uint256.Int) (*uint256.Int, error) {
	return fp.Add(nominalMain, wrapped)
}

func nominalDelta(mainBalance, newMainBalance *uint256.Int, p Params) (*uint256.Int, error) {
	before, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	after, err := ToNominal(newMainBalance, p)
	if err != nil {
		return nil, err
	}
	if after.Gt(before) {
		return new(uint256.Int).Sub(after, before), nil
	}
	return new(uint256.Int).Sub(before, after), nil
}

// BptOutPerMainIn returns BPT minted for depositing mainIn.
func BptOutPerMainIn(mainIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		// The first deposit mints BPT one to one with the nominal amount.
		return ToNominal(mainIn, p)
	}
	newMain, err := fp.Add(mainBalance, mainIn)
	if err != nil {
		return nil, err
	}
	delta, err := nominalDelta(mainBalance, newMain, p)
	if err != nil {
		return nil, err
	}
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	inv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	num, err := fp.Mul(bptSupply, delta)
	if err != nil {
		return nil, err
	}
	return fp.DivDownInt(num, inv)
}

// BptInPerMainOut returns BPT burned for withdrawing mainOut.
func BptInPerMainOut(mainOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	newMain, err := fp.Sub(mainBalance, mainOut)
	if err != nil {
		return nil, err
	}
	delta, err := nominalDelta(mainBalance, newMain, p)
	if err != nil {
		return nil, err
	}
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	inv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	num, err := fp.Mul(bptSupply, delta)
	if err != nil {
		return nil, err
	}
	return fp.DivUpInt(num, inv)
}

// WrappedOutPerMainIn returns wrapped tokens paid for depositing mainIn.
func WrappedOutPerMainIn(mainIn, mainBalance *uint256.Int, p Params) (*uint256.Int, error) {
	newMain, err := fp.Add(mainBalance, mainIn)
	if err != nil {
		return nil, err
	}
	return nominalDelta(mainBalance, newMain, p)
}

// WrappedInPerMainOut returns wrapped tokens charged for withdrawing mainOut.
func WrappedInPerMainOut(mainOut, mainBalance *uint256.Int, p Params) (*uint256.Int, error) {
	newMain, err := fp.Sub(mainBalance, mainOut)
	if err != nil {
		return nil, err
	}
	return nominalDelta(mainBalance, newMain, p)
}

// MainInPerBptOut returns main tokens charged for minting bptOut.
func MainInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return FromNominal(bptOut, p)
	}
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	inv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	num, err := fp.Mul(inv, bptOut)
	if err != nil {
		return nil, err
	}
	delta, err := fp.DivUpInt(num, bptSupply)
	if err != nil {
		return nil, err
	}
	after, err := fp.Add(nominalMain, delta)
	if err != nil {
		return nil, err
	}
	newMain, err := FromNominal(after, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(newMain, mainBalance)
}

// MainOutPerBptIn returns main tokens paid for burning bptIn.
func MainOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	inv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	num, err := fp.Mul(inv, bptIn)
	if err != nil {
		return nil, err
	}
	delta, err := fp.DivDownInt(num, bptSupply)
	if err != nil {
		return nil, err
	}
	after, err := fp.Sub(nominalMain, delta)
	if err != nil {
		return nil, err
	}
	newMain, err := FromNominal(after, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(mainBalance, newMain)
}

// MainOutPerWrappedIn returns main tokens paid for depositing wrappedIn.
func MainOutPerWrappedIn(wrappedIn, mainBalance *uint256.Int, p Params) (*uint256.Int, error) {
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	after, err := fp.Sub(nominalMain, wrappedIn)
	if err != nil {
		return nil, err
	}
	newMain, err := FromNominal(after, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(mainBalance, newMain)
}

// MainInPerWrappedOut returns main tokens charged for withdrawing wrappedOut.
func MainInPerWrappedOut(wrappedOut, mainBalance *uint256.Int, p Params) (*uint256.Int, error) {
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	after, err := fp.Add(nominalMain, wrappedOut)
	if err != nil {
		return nil, err
	}
	newMain, err := FromNominal(after, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(newMain, mainBalance)
}

// BptOutPerWrappedIn returns BPT minted for depositing wrappedIn.
func BptOutPerWrappedIn(wrappedIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return wrappedIn.Clone(), nil
	}
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	prevInv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	newWrapped, err := fp.Add(wrappedBalance, wrappedIn)
	if err != nil {
		return nil, err
	}
	newInv, err := invariant(nominalMain, newWrapped)
	if err != nil {
		return nil, err
	}
	newSupply, err := scaleSupply(bptSupply, newInv, prevInv)
	if err != nil {
		return nil, err
	}
	return fp.Sub(newSupply, bptSupply)
}

// BptInPerWrappedOut returns BPT burned for withdrawing wrappedOut.
func BptInPerWrappedOut(wrappedOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	prevInv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	newWrapped, err := fp.Sub(wrappedBalance, wrappedOut)
	if err != nil {
		return nil, err
	}
	newInv, err := invariant(nominalMain, newWrapped)
	if err != nil {
		return nil, err
	}
	newSupply, err := scaleSupply(bptSupply, newInv, prevInv)
	if err != nil {
		return nil, err
	}
	return fp.Sub(bptSupply, newSupply)
}

// WrappedInPerBptOut returns wrapped tokens charged for minting bptOut.
func WrappedInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	if bptSupply.IsZero() {
		return bptOut.Clone(), nil
	}
	newSupply, err := fp.Add(bptSupply, bptOut)
	if err != nil {
		return nil, err
	}
	newWrapped, err := wrappedForSupply(newSupply, mainBalance, wrappedBalance, bptSupply, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(newWrapped, wrappedBalance)
}

// WrappedOutPerBptIn returns wrapped tokens paid for burning bptIn.
func WrappedOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	newSupply, err := fp.Sub(bptSupply, bptIn)
	if err != nil {
		return nil, err
	}
	newWrapped, err := wrappedForSupply(newSupply, mainBalance, wrappedBalance, bptSupply, p)
	if err != nil {
		return nil, err
	}
	return fp.Sub(wrappedBalance, newWrapped)
}

// scaleSupply returns floor(supply * newInv / prevInv).
func scaleSupply(supply, newInv, prevInv *uint256.Int) (*uint256.Int, error) {
	num, err := fp.Mul(supply, newInv)
	if err != nil {
		return nil, err
	}
	return fp.DivDownInt(num, prevInv)
}

// wrappedForSupply returns the wrapped balance at which the invariant per
// BPT is unchanged after moving the supply to newSupply. It rounds up.
func wrappedForSupply(newSupply, mainBalance, wrappedBalance, bptSupply *uint256.Int, p Params) (*uint256.Int, error) {
	nominalMain, err := ToNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	prevInv, err := invariant(nominalMain, wrappedBalance)
	if err != nil {
		return nil, err
	}
	num, err := fp.Mul(newSupply, prevInv)
	if err != nil {
		return nil, err
	}
	target, err := fp.DivUpInt(num, bptSupply)
	if err != nil {
		return nil, err
	}
	return fp.Sub(target, nominalMain)
}
