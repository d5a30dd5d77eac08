// internal/dex/model/quote.go
package model

import "github.com/gagliardetto/solana-go"

// QuoteParams is a request to price selling Amount of InputMint for OutputMint.
type QuoteParams struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     uint64
}

// Quote is the aggregator-facing answer of a pool.
type Quote struct {
	InAmount  uint64
	OutAmount uint64

	// FeeAmount is the total fee kept by the pool, in FeeMint units.
	FeeAmount   uint64
	FeeMint     solana.PublicKey
	ProtocolFee uint64
	LPFee       uint64
	Rebate      uint64

	// NotEnoughLiquidity is set instead of an error when the output would
	// reach the pool's liquidity ceiling.
	NotEnoughLiquidity bool
}
