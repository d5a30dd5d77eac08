// internal/pyth/price_test.go
package pyth

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/oracle-amm/internal/curve"
)

func samplePriceAccount() *PriceAccount {
	return &PriceAccount{
		Expo:           -8,
		LastSlot:       250_000_100,
		ValidSlot:      250_000_099,
		Timestamp:      1_700_000_000,
		ProductAccount: solana.MustPublicKeyFromBase58("H6ARHf6YXhGYeQfUzQNGk6rDNnLBQKrenN712K4AQJEG"),
		PrevSlot:       250_000_098,
		PrevPrice:      2_345_000_000,
		PrevConf:       1_200_000,
		PrevTimestamp:  1_699_999_999,
		Agg: PriceInfo{
			Price:   2_351_234_567,
			Conf:    1_100_000,
			Status:  curve.PriceStatusTrading,
			PubSlot: 250_000_100,
		},
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	want := samplePriceAccount()

	got, err := Decode(want.Encode())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	price, err := curve.NormalizePrice(got.Reading())
	require.NoError(t, err)
	assert.Equal(t, uint64(23_512), price)
}

func TestDecodeKnownOffsets(t *testing.T) {
	data := samplePriceAccount().Encode()

	assert.Equal(t, []byte{0xd4, 0xc3, 0xb2, 0xa1}, data[0:4])
	assert.Equal(t, byte(AccountTypePrice), data[8])
	assert.Equal(t, []byte{0xf8, 0xff, 0xff, 0xff}, data[20:24])
	assert.Equal(t, byte(curve.PriceStatusTrading), data[224])
}

func TestDecodeRejectsMalformed(t *testing.T) {
	good := samplePriceAccount().Encode()

	corrupt := func(offset int, b byte) []byte {
		data := append([]byte(nil), good...)
		data[offset] = b
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated", data: good[:200]},
		{name: "bad magic", data: corrupt(0, 0)},
		{name: "bad version", data: corrupt(4, 3)},
		{name: "product account", data: corrupt(8, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			assert.ErrorIs(t, err, curve.ErrOracle)
		})
	}
}

func TestDecodeReadingCarriesStatus(t *testing.T) {
	acc := samplePriceAccount()
	acc.Agg.Status = curve.PriceStatusHalted

	r, err := DecodeReading(acc.Encode())
	require.NoError(t, err)
	assert.Equal(t, curve.PriceStatusHalted, r.Status)

	_, err = curve.NormalizePrice(r)
	assert.ErrorIs(t, err, curve.ErrOracleOffline)
}
