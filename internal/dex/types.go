// ==========================================
// File: internal/dex/types.go
// ==========================================
package dex

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
)

// QuoteResult is one pool's answer to a routed quote request.
type QuoteResult struct {
	Pool  solana.PublicKey
	Label string
	Quote *model.Quote
	Err   error
}

// Usable reports whether the result can be filled.
func (r QuoteResult) Usable() bool {
	return r.Err == nil && r.Quote != nil && !r.Quote.NotEnoughLiquidity && r.Quote.OutAmount > 0
}
