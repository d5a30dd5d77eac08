// internal/blockchain/blockchain.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountReader is the read-only view of the chain the quoter needs.
type AccountReader interface {
	// GetMultipleAccounts fetches keys in one logical request. Accounts that
	// do not exist are absent from the result.
	GetMultipleAccounts(ctx context.Context, keys []solana.PublicKey) (map[solana.PublicKey]*Account, error)
	// GetAccountInfo fetches a single account.
	GetAccountInfo(ctx context.Context, key solana.PublicKey) (*Account, error)
	// GetProgramAccounts lists accounts owned by programID whose data starts
	// with discriminator and, when size is non-zero, is exactly size bytes.
	GetProgramAccounts(ctx context.Context, programID solana.PublicKey, discriminator []byte, size uint64) ([]KeyedAccount, error)
}
