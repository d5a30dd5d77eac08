// internal/dex/obric/layout.go
package obric

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	"github.com/rovshanmuradov/oracle-amm/internal/lending"
	bin "github.com/rovshanmuradov/oracle-amm/internal/utils/binary"
)

// Version identifies one of the two incompatible pool account layouts.
type Version uint8

const (
	// V2 pools use a static reserve-X target.
	V2 Version = 2
	// V3 pools derive their target from a lending position.
	V3 Version = 3
)

const (
	// V2AccountSize is the serialized size of a v2 pool, discriminator included.
	V2AccountSize = 666
	// V3AccountSize is the serialized size of a v3 pool, discriminator included.
	V3AccountSize = 762

	discriminatorSize = 8
	v2PaddingBytes    = 32 * 8
	v3PaddingBytes    = 6 + 15*8 + 16*8
)

// Discriminator prefixes every pool account: sha256("account:SSTradingPair")[:8].
var Discriminator = accountDiscriminator("SSTradingPair")

func accountDiscriminator(name string) [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}

func (v Version) String() string {
	switch v {
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return fmt.Sprintf("v%d", uint8(v))
	}
}

// Size returns the serialized account size of the version.
func (v Version) Size() int {
	if v == V3 {
		return V3AccountSize
	}
	return V2AccountSize
}

// VersionOf infers the layout from the account size.
func VersionOf(data []byte) (Version, error) {
	switch len(data) {
	case V2AccountSize:
		return V2, nil
	case V3AccountSize:
		return V3, nil
	default:
		return 0, fmt.Errorf("pool account of %d bytes: %w", len(data), curve.ErrInvalidAccountData)
	}
}

// PoolAccounts are the addresses a pool record points at. The ctoken
// reserves only exist in v3.
type PoolAccounts struct {
	XPriceFeed     solana.PublicKey
	YPriceFeed     solana.PublicKey
	ReserveX       solana.PublicKey
	ReserveY       solana.PublicKey
	ReserveXCToken solana.PublicKey
	ReserveYCToken solana.PublicKey
	ProtocolFeeX   solana.PublicKey
	ProtocolFeeY   solana.PublicKey
}

// PoolState is a decoded pool account.
type PoolState struct {
	Version       Version
	IsInitialized bool
	Bump          uint8
	Accounts      PoolAccounts
	Pair          *curve.TradingPair
}

// Decode parses a pool account of either version.
func Decode(data []byte) (*PoolState, error) {
	version, err := VersionOf(data)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data[:discriminatorSize], Discriminator[:]) {
		return nil, fmt.Errorf("discriminator %x: %w", data[:discriminatorSize], curve.ErrInvalidAccountData)
	}

	r := bin.NewReader(data, discriminatorSize)
	var st *PoolState
	if version == V2 {
		st = decodeV2(r)
	} else {
		st = decodeV3(r)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("decode %s pool: %v: %w", version, err, curve.ErrInvalidAccountData)
	}
	if r.Offset() != len(data) {
		return nil, fmt.Errorf("decode %s pool: %d trailing bytes: %w", version, len(data)-r.Offset(), curve.ErrInvalidAccountData)
	}
	return st, nil
}

func decodeV2(r *bin.Reader) *PoolState {
	st := &PoolState{Version: V2, Pair: &curve.TradingPair{}}
	tp := st.Pair

	st.IsInitialized = r.Bool()
	st.Accounts.XPriceFeed = r.PubKey()
	st.Accounts.YPriceFeed = r.PubKey()
	st.Accounts.ReserveX = r.PubKey()
	st.Accounts.ReserveY = r.PubKey()
	st.Accounts.ProtocolFeeX = r.PubKey()
	st.Accounts.ProtocolFeeY = r.PubKey()
	st.Bump = r.Uint8()
	tp.MintX = r.PubKey()
	tp.MintY = r.PubKey()
	tp.Concentration = r.Uint64()
	tp.BigK = r.Uint128()
	tp.Anchor = &curve.StaticTarget{TargetX: r.Uint64()}
	tp.CumulativeVolume = r.Uint64()
	tp.MultX = r.Uint64()
	tp.MultY = r.Uint64()
	tp.FeeMillionth = r.Uint64()
	tp.RebatePercentage = r.Uint64()
	tp.ProtocolFeeShareThousandth = r.Uint64()
	for i := range tp.VolumeRecords {
		tp.VolumeRecords[i] = r.Uint64()
	}
	r.Skip(v2PaddingBytes)

	return st
}

func decodeV3(r *bin.Reader) *PoolState {
	st := &PoolState{Version: V3, Pair: &curve.TradingPair{}}
	tp := st.Pair

	st.IsInitialized = r.Bool()
	st.Accounts.XPriceFeed = r.PubKey()
	st.Accounts.YPriceFeed = r.PubKey()
	st.Accounts.ReserveX = r.PubKey()
	st.Accounts.ReserveY = r.PubKey()
	st.Accounts.ReserveXCToken = r.PubKey()
	st.Accounts.ReserveYCToken = r.PubKey()
	st.Accounts.ProtocolFeeX = r.PubKey()
	st.Accounts.ProtocolFeeY = r.PubKey()
	st.Bump = r.Uint8()
	tp.MintX = r.PubKey()
	tp.MintY = r.PubKey()

	anchor := &curve.FlowTarget{}
	anchor.Position = lending.Position{
		DepositX: r.Uint64(),
		BorrowX:  r.Uint64(),
		DepositY: r.Uint64(),
		BorrowY:  r.Uint64(),
	}
	anchor.TargetY = r.Uint64()
	tp.Anchor = anchor

	tp.Concentration = r.Uint64()
	tp.BigK = r.Uint128()
	tp.CumulativeVolume = r.Uint64()
	tp.MultX = r.Uint64()
	tp.MultY = r.Uint64()
	tp.FeeMillionth = r.Uint64()
	tp.RebatePercentage = r.Uint64()
	tp.ProtocolFeeShareThousandth = r.Uint64()
	tp.DecimalsX = r.Uint8()
	tp.DecimalsY = r.Uint8()
	for i := range tp.VolumeRecords {
		tp.VolumeRecords[i] = r.Uint64()
	}
	r.Skip(v3PaddingBytes)

	return st
}

// Encode serializes the pool in the layout of st.Version. Padding is zeroed.
func Encode(st *PoolState) ([]byte, error) {
	tp := st.Pair
	if tp == nil {
		return nil, fmt.Errorf("encode %s pool: %w", st.Version, curve.ErrMissingAnchor)
	}

	data := make([]byte, st.Version.Size())
	copy(data, Discriminator[:])
	w := bin.NewWriter(data, discriminatorSize)

	switch st.Version {
	case V2:
		anchor, ok := tp.Anchor.(*curve.StaticTarget)
		if !ok {
			return nil, fmt.Errorf("encode v2 pool with %s anchor: %w", tp.Variant(), curve.ErrWrongVariant)
		}
		w.Bool(st.IsInitialized)
		w.PubKey(st.Accounts.XPriceFeed)
		w.PubKey(st.Accounts.YPriceFeed)
		w.PubKey(st.Accounts.ReserveX)
		w.PubKey(st.Accounts.ReserveY)
		w.PubKey(st.Accounts.ProtocolFeeX)
		w.PubKey(st.Accounts.ProtocolFeeY)
		w.Uint8(st.Bump)
		w.PubKey(tp.MintX)
		w.PubKey(tp.MintY)
		w.Uint64(tp.Concentration)
		w.Uint128(&tp.BigK)
		w.Uint64(anchor.TargetX)
		w.Uint64(tp.CumulativeVolume)
		w.Uint64(tp.MultX)
		w.Uint64(tp.MultY)
		w.Uint64(tp.FeeMillionth)
		w.Uint64(tp.RebatePercentage)
		w.Uint64(tp.ProtocolFeeShareThousandth)
		for _, v := range tp.VolumeRecords {
			w.Uint64(v)
		}
		w.Skip(v2PaddingBytes)

	case V3:
		anchor, ok := tp.Anchor.(*curve.FlowTarget)
		if !ok {
			return nil, fmt.Errorf("encode v3 pool with %s anchor: %w", tp.Variant(), curve.ErrWrongVariant)
		}
		w.Bool(st.IsInitialized)
		w.PubKey(st.Accounts.XPriceFeed)
		w.PubKey(st.Accounts.YPriceFeed)
		w.PubKey(st.Accounts.ReserveX)
		w.PubKey(st.Accounts.ReserveY)
		w.PubKey(st.Accounts.ReserveXCToken)
		w.PubKey(st.Accounts.ReserveYCToken)
		w.PubKey(st.Accounts.ProtocolFeeX)
		w.PubKey(st.Accounts.ProtocolFeeY)
		w.Uint8(st.Bump)
		w.PubKey(tp.MintX)
		w.PubKey(tp.MintY)
		w.Uint64(anchor.DepositX)
		w.Uint64(anchor.BorrowX)
		w.Uint64(anchor.DepositY)
		w.Uint64(anchor.BorrowY)
		w.Uint64(anchor.TargetY)
		w.Uint64(tp.Concentration)
		w.Uint128(&tp.BigK)
		w.Uint64(tp.CumulativeVolume)
		w.Uint64(tp.MultX)
		w.Uint64(tp.MultY)
		w.Uint64(tp.FeeMillionth)
		w.Uint64(tp.RebatePercentage)
		w.Uint64(tp.ProtocolFeeShareThousandth)
		w.Uint8(tp.DecimalsX)
		w.Uint8(tp.DecimalsY)
		for _, v := range tp.VolumeRecords {
			w.Uint64(v)
		}
		w.Skip(v3PaddingBytes)

	default:
		return nil, fmt.Errorf("unknown pool version %s: %w", st.Version, curve.ErrInvalidAccountData)
	}

	if err := w.Err(); err != nil {
		return nil, fmt.Errorf("encode %s pool: %w", st.Version, err)
	}
	if w.Offset() != len(data) {
		return nil, fmt.Errorf("encode %s pool: wrote %d of %d bytes: %w", st.Version, w.Offset(), len(data), curve.ErrInvalidAccountData)
	}
	return data, nil
}
