// internal/blockchain/types.go
package blockchain

import "github.com/gagliardetto/solana-go"

// Account is the part of an on-chain account the quoter reads.
type Account struct {
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

// KeyedAccount pairs an account with its address.
type KeyedAccount struct {
	Key solana.PublicKey
	Account
}

// DataMap flattens fetched accounts into the raw snapshot pool adapters consume.
func DataMap(accounts map[solana.PublicKey]*Account) map[solana.PublicKey][]byte {
	out := make(map[solana.PublicKey][]byte, len(accounts))
	for key, acc := range accounts {
		if acc != nil {
			out[key] = acc.Data
		}
	}
	return out
}
