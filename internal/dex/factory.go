// =============================
// File: internal/dex/factory.go
// =============================
package dex

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/oracle-amm/internal/blockchain"
	"github.com/rovshanmuradov/oracle-amm/internal/dex/obric"
	"github.com/rovshanmuradov/oracle-amm/internal/utils/metrics"
)

var ErrUnsupportedProgram = errors.New("unsupported pool program")

// Options configure the pools the factory builds.
type Options struct {
	V2ProgramID     solana.PublicKey
	V3ProgramID     solana.PublicKey
	LendingReserves map[solana.PublicKey]solana.PublicKey
	Logger          *zap.Logger
	Metrics         *metrics.Collector
}

// obricPool adapts *obric.AMM to the AMM interface.
type obricPool struct {
	*obric.AMM
}

func (p obricPool) Clone() AMM {
	return obricPool{p.AMM.Clone()}
}

// NewAMM builds the adapter for a pool account. The program is selected by
// the account owner; an unknown (zero) owner falls back to the account size.
func NewAMM(key solana.PublicKey, acc *blockchain.Account, opts Options) (AMM, error) {
	if acc == nil {
		return nil, fmt.Errorf("pool %s: account is nil", key)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	programID := acc.Owner
	switch {
	case programID == opts.V2ProgramID, programID == opts.V3ProgramID:
	case programID.IsZero():
		version, err := obric.VersionOf(acc.Data)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", key, err)
		}
		programID = opts.V2ProgramID
		if version == obric.V3 {
			programID = opts.V3ProgramID
		}
	default:
		return nil, fmt.Errorf("pool %s owned by %s: %w", key, programID, ErrUnsupportedProgram)
	}

	amm, err := obric.New(key, acc.Data, obric.Options{
		ProgramID:       programID,
		LendingReserves: opts.LendingReserves,
		Logger:          opts.Logger,
		Metrics:         opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return obricPool{amm}, nil
}
