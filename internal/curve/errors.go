// internal/curve/errors.go
package curve

import "errors"

// Oracle errors.
var (
	ErrOracle        = errors.New("price oracle has an internal error")
	ErrOracleOffline = errors.New("price oracle is offline")
	ErrNegativePrice = errors.New("normalized oracle price is not positive")
)

// Arithmetic errors.
var (
	ErrNumOverflowing    = errors.New("numeric overflow")
	ErrInvalidMultiplier = errors.New("value multiplier must be positive")
)

// Liquidity errors.
var (
	ErrInsufficientActiveX = errors.New("insufficient active X liquidity")
	ErrInsufficientActiveY = errors.New("insufficient active Y liquidity")
)

// Configuration errors.
var (
	ErrInvalidConcentration    = errors.New("invalid concentration argument")
	ErrInvalidFeeConfig        = errors.New("invalid fee configuration")
	ErrMissingAnchor           = errors.New("trading pair has no equilibrium anchor")
	ErrWrongVariant            = errors.New("operation not supported by pool variant")
	ErrMismatchedTokenMint     = errors.New("mismatched token mint")
	ErrNoLendingReserveForMint = errors.New("no lending reserve found for mint")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInvalidAccountData      = errors.New("invalid account data")
)

// IsLiquidityError reports whether err is a liquidity ceiling failure. Callers
// may resubmit a smaller input after such an error.
func IsLiquidityError(err error) bool {
	return errors.Is(err, ErrInsufficientActiveX) || errors.Is(err, ErrInsufficientActiveY)
}

// IsOracleError reports whether err came from price normalization.
func IsOracleError(err error) bool {
	return errors.Is(err, ErrOracle) || errors.Is(err, ErrOracleOffline) || errors.Is(err, ErrNegativePrice)
}
