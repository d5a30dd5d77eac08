// internal/pyth/price.go
package pyth

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
	bin "github.com/rovshanmuradov/oracle-amm/internal/utils/binary"
)

const (
	// Magic marks every Pyth v2 account.
	Magic uint32 = 0xa1b2c3d4
	// Version is the only account version this decoder understands.
	Version uint32 = 2
	// AccountTypePrice is the account type tag of a price account.
	AccountTypePrice uint32 = 3

	// headerSize covers the fixed fields up to and including the aggregate
	// price; publisher components that follow are not decoded.
	headerSize = 240
)

// PriceInfo is one price/confidence pair published by the feed.
type PriceInfo struct {
	Price   int64
	Conf    uint64
	Status  curve.PriceStatus
	PubSlot uint64
}

// PriceAccount is the decoded fixed part of a Pyth v2 price account.
type PriceAccount struct {
	Expo           int32
	LastSlot       uint64
	ValidSlot      uint64
	Timestamp      int64
	ProductAccount solana.PublicKey
	PrevSlot       uint64
	PrevPrice      int64
	PrevConf       uint64
	PrevTimestamp  int64
	Agg            PriceInfo
}

// Decode parses a raw price account. Any malformed input is reported as an
// oracle error, never as a panic.
func Decode(data []byte) (*PriceAccount, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("price account is %d bytes, need %d: %w", len(data), headerSize, curve.ErrOracle)
	}

	r := bin.NewReader(data, 0)
	if magic := r.Uint32(); magic != Magic {
		return nil, fmt.Errorf("bad magic %#x: %w", magic, curve.ErrOracle)
	}
	if ver := r.Uint32(); ver != Version {
		return nil, fmt.Errorf("unsupported version %d: %w", ver, curve.ErrOracle)
	}
	if atype := r.Uint32(); atype != AccountTypePrice {
		return nil, fmt.Errorf("account type %d is not a price account: %w", atype, curve.ErrOracle)
	}
	r.Skip(4 + 4) // size, price type

	acc := &PriceAccount{}
	acc.Expo = r.Int32()
	r.Skip(4 + 4) // num, num_qt
	acc.LastSlot = r.Uint64()
	acc.ValidSlot = r.Uint64()
	r.Skip(24 + 24) // ema price, ema conf
	acc.Timestamp = r.Int64()
	r.Skip(1 + 1 + 2 + 4) // min_pub, drv2, drv3, drv4
	acc.ProductAccount = r.PubKey()
	r.Skip(solana.PublicKeyLength) // next price account
	acc.PrevSlot = r.Uint64()
	acc.PrevPrice = r.Int64()
	acc.PrevConf = r.Uint64()
	acc.PrevTimestamp = r.Int64()

	acc.Agg.Price = r.Int64()
	acc.Agg.Conf = r.Uint64()
	acc.Agg.Status = curve.PriceStatus(r.Uint32())
	r.Skip(4) // corp_act
	acc.Agg.PubSlot = r.Uint64()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, curve.ErrOracle)
	}
	return acc, nil
}

// Reading returns the aggregate price in the form the curve consumes.
func (a *PriceAccount) Reading() curve.PriceReading {
	return curve.PriceReading{
		Price:  a.Agg.Price,
		Conf:   a.Agg.Conf,
		Expo:   a.Expo,
		Status: a.Agg.Status,
	}
}

// DecodeReading is Decode followed by Reading.
func DecodeReading(data []byte) (curve.PriceReading, error) {
	acc, err := Decode(data)
	if err != nil {
		return curve.PriceReading{}, err
	}
	return acc.Reading(), nil
}

// Encode writes the fixed part of the account back into a headerSize buffer.
// It is the inverse of Decode and is used to build fixtures.
func (a *PriceAccount) Encode() []byte {
	data := make([]byte, headerSize)
	w := bin.NewWriter(data, 0)
	w.Uint32(Magic)
	w.Uint32(Version)
	w.Uint32(AccountTypePrice)
	w.Uint32(headerSize)
	w.Uint32(1) // price type
	w.Uint32(uint32(a.Expo))
	w.Skip(4 + 4)
	w.Uint64(a.LastSlot)
	w.Uint64(a.ValidSlot)
	w.Skip(24 + 24)
	w.Uint64(uint64(a.Timestamp))
	w.Skip(1 + 1 + 2 + 4)
	w.PubKey(a.ProductAccount)
	w.Skip(solana.PublicKeyLength)
	w.Uint64(a.PrevSlot)
	w.Uint64(uint64(a.PrevPrice))
	w.Uint64(a.PrevConf)
	w.Uint64(uint64(a.PrevTimestamp))
	w.Uint64(uint64(a.Agg.Price))
	w.Uint64(a.Agg.Conf)
	w.Uint32(uint32(a.Agg.Status))
	w.Skip(4)
	w.Uint64(a.Agg.PubSlot)
	return data
}
