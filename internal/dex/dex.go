// =============================
// File: internal/dex/dex.go
// =============================
package dex

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/oracle-amm/internal/dex/model"
)

// AMM is a quotable pool kept in sync from raw account snapshots.
// Implementations are not safe for concurrent Update; Clone before mutating
// a pool that other goroutines may be quoting.
type AMM interface {
	// Label is the venue name shown to users.
	Label() string
	// Key is the pool account address.
	Key() solana.PublicKey
	// ProgramID is the owner of the pool account.
	ProgramID() solana.PublicKey
	// ReserveMints returns the X and Y mints.
	ReserveMints() []solana.PublicKey
	// AccountsToUpdate lists the accounts the next Update needs.
	AccountsToUpdate() []solana.PublicKey
	// Update applies a snapshot of AccountsToUpdate atomically.
	Update(accounts map[solana.PublicKey][]byte) error
	// Quote prices a swap against the last applied snapshot.
	Quote(params model.QuoteParams) (*model.Quote, error)
	// Clone returns an independent copy.
	Clone() AMM
}
