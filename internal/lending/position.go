// internal/lending/position.go
package lending

import (
	"errors"
	"fmt"
)

// ErrZeroCollateralSupply is returned when a reserve has no collateral minted yet.
var ErrZeroCollateralSupply = errors.New("collateral mint supply is zero")

// Position is the pool's net exposure on the lending market, one deposit and
// one borrow figure per token. Flow-target pools derive their equilibrium
// from it.
type Position struct {
	DepositX uint64
	BorrowX  uint64
	DepositY uint64
	BorrowY  uint64
}

// NetX returns DepositX - BorrowX as a signed figure.
func (p Position) NetX() int64 {
	return int64(p.DepositX) - int64(p.BorrowX)
}

// NetY returns DepositY - BorrowY as a signed figure.
func (p Position) NetY() int64 {
	return int64(p.DepositY) - int64(p.BorrowY)
}

func (p Position) String() string {
	return fmt.Sprintf("deposit_x=%d borrow_x=%d deposit_y=%d borrow_y=%d",
		p.DepositX, p.BorrowX, p.DepositY, p.BorrowY)
}
