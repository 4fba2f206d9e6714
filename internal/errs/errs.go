// Package errs defines the terminal error kinds raised by the pool math engine.
//
// Every math function either returns a valid value or one of the sentinel
// errors below. Callers can match them with errors.Is and surface Code to end
// users so a rejected quote explains why it was rejected.
package errs

import "errors"

// Category groups error kinds by the envelope they protect.
type Category string

const (
	CategoryArithmetic  Category = "arithmetic"
	CategoryPool        Category = "pool"
	CategoryRatioLimit  Category = "ratio_limit"
	CategoryConvergence Category = "convergence"
	CategoryInput       Category = "input"
)

// Error is a math or pool-domain failure identified by a stable code.
type Error struct {
	Code     string
	Category Category
}

func (e *Error) Error() string {
	return e.Code
}

func newError(category Category, code string) *Error {
	return &Error{Code: code, Category: category}
}

// Arithmetic domain errors.
var (
	ErrSubOverflow        = newError(CategoryArithmetic, "SUB_OVERFLOW")
	ErrAddOverflow        = newError(CategoryArithmetic, "ADD_OVERFLOW")
	ErrMulOverflow        = newError(CategoryArithmetic, "MUL_OVERFLOW")
	ErrZeroDivision       = newError(CategoryArithmetic, "ZERO_DIVISION")
	ErrProductOutOfBounds = newError(CategoryArithmetic, "PRODUCT_OUT_OF_BOUNDS")
	ErrXOutOfBounds       = newError(CategoryArithmetic, "X_OUT_OF_BOUNDS")
	ErrYOutOfBounds       = newError(CategoryArithmetic, "Y_OUT_OF_BOUNDS")
	ErrInvalidExponent    = newError(CategoryArithmetic, "INVALID_EXPONENT")
	ErrOutOfBounds        = newError(CategoryArithmetic, "OUT_OF_BOUNDS")
)

// Pool domain errors.
var (
	ErrMinWeight                 = newError(CategoryPool, "MIN_WEIGHT")
	ErrNormalizedWeightInvariant = newError(CategoryPool, "NORMALIZED_WEIGHT_INVARIANT")
	ErrMinTokens                 = newError(CategoryPool, "MIN_TOKENS")
	ErrMaxTokens                 = newError(CategoryPool, "MAX_TOKENS")
	ErrMinAmp                    = newError(CategoryPool, "MIN_AMP")
	ErrMaxAmp                    = newError(CategoryPool, "MAX_AMP")
	ErrMaxStableTokens           = newError(CategoryPool, "MAX_STABLE_TOKENS")
	ErrZeroInvariant             = newError(CategoryPool, "ZERO_INVARIANT")
	ErrUnsupportedPoolKind       = newError(CategoryPool, "UNSUPPORTED_POOL_KIND")
	ErrTokenNotFound             = newError(CategoryPool, "TOKEN_NOT_FOUND")
	ErrInputLengthMismatch       = newError(CategoryPool, "INPUT_LENGTH_MISMATCH")
	ErrUnsupportedOperation      = newError(CategoryPool, "UNSUPPORTED_OPERATION")
	ErrStaleQuote                = newError(CategoryPool, "STALE_QUOTE")
)

// Ratio limit errors.
var (
	ErrMaxInRatio          = newError(CategoryRatioLimit, "MAX_IN_RATIO")
	ErrMaxOutRatio         = newError(CategoryRatioLimit, "MAX_OUT_RATIO")
	ErrMaxOutBptForTokenIn = newError(CategoryRatioLimit, "MAX_OUT_BPT_FOR_TOKEN_IN")
	ErrMinBptInForTokenOut = newError(CategoryRatioLimit, "MIN_BPT_IN_FOR_TOKEN_OUT")
)

// Convergence errors.
var (
	ErrStableInvariantDidNotConverge  = newError(CategoryConvergence, "STABLE_INVARIANT_DIDNT_CONVERGE")
	ErrStableGetBalanceDidNotConverge = newError(CategoryConvergence, "STABLE_GET_BALANCE_DIDNT_CONVERGE")
)

// Input errors raised at the scaling boundary.
var (
	ErrInvalidAmount   = newError(CategoryInput, "INVALID_AMOUNT")
	ErrInvalidDecimals = newError(CategoryInput, "INVALID_DECIMALS")
)

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// CategoryOf returns the category of the first *Error in err's chain.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}
