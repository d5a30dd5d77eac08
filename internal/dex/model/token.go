// internal/dex/model/token.go
package model

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	bin "github.com/rovshanmuradov/oracle-amm/internal/utils/binary"
)

const (
	// TokenAccountAmountOffset is where an SPL token account stores its balance.
	TokenAccountAmountOffset = 64
	// TokenAccountSize is the size of an SPL token account.
	TokenAccountSize = 165
	// MintDecimalsOffset is where an SPL mint stores its decimal count.
	MintDecimalsOffset = 44
	// MintSize is the size of an SPL mint account.
	MintSize = 82
)

// TokenAccount holds the fields of an SPL token account the pools read.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// ParseTokenAccount decodes mint, owner and balance of an SPL token account.
func ParseTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < TokenAccountAmountOffset+8 {
		return TokenAccount{}, fmt.Errorf("token account is %d bytes", len(data))
	}
	r := bin.NewReader(data, 0)
	acc := TokenAccount{
		Mint:  r.PubKey(),
		Owner: r.PubKey(),
	}
	if err := r.Err(); err != nil {
		return TokenAccount{}, err
	}

	amount, err := bin.ReadUint64LittleEndian(data, TokenAccountAmountOffset)
	if err != nil {
		return TokenAccount{}, err
	}
	acc.Amount = amount
	return acc, nil
}

// ParseMintDecimals reads the decimal count of an SPL mint.
func ParseMintDecimals(data []byte) (uint8, error) {
	if len(data) < MintSize {
		return 0, fmt.Errorf("mint account is %d bytes, need %d", len(data), MintSize)
	}
	return bin.ReadUint8(data, MintDecimalsOffset)
}

// EncodeTokenAccount builds a minimal token account image.
func EncodeTokenAccount(acc TokenAccount) []byte {
	data := make([]byte, TokenAccountSize)
	w := bin.NewWriter(data, 0)
	w.PubKey(acc.Mint)
	w.PubKey(acc.Owner)
	w.Uint64(acc.Amount)
	return data
}

// EncodeMint builds a minimal mint image carrying only the decimal count.
func EncodeMint(decimals uint8) []byte {
	data := make([]byte, MintSize)
	w := bin.NewWriter(data, MintDecimalsOffset)
	w.Uint8(decimals)
	data[MintDecimalsOffset+1] = 1 // is_initialized
	return data
}
