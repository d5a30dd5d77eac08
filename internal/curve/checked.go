// internal/curve/checked.go
package curve

import (
	"github.com/holiman/uint256"
)

// width is the number of bits a checked result must fit into. The on-chain
// program mixes u64 and u128 arithmetic, and overflow has to be detected at the
// same boundaries.
type width int

const (
	bits64  width = 64
	bits128 width = 128
)

// MaxUint128 is the largest value a persisted invariant can hold.
var MaxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func fits(z *uint256.Int, w width) bool {
	return z.BitLen() <= int(w)
}

func checkedAdd(x, y *uint256.Int, w width) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow || !fits(z, w) {
		return nil, ErrNumOverflowing
	}
	return z, nil
}

func checkedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrNumOverflowing
	}
	return z, nil
}

func checkedMul(x, y *uint256.Int, w width) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow || !fits(z, w) {
		return nil, ErrNumOverflowing
	}
	return z, nil
}

// checkedDiv is floor division. Division by zero is reported as an overflow,
// matching checked_div returning None.
func checkedDiv(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrNumOverflowing
	}
	return new(uint256.Int).Div(x, y), nil
}

func isqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

func narrow64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, ErrNumOverflowing
	}
	return x.Uint64(), nil
}

// mulDiv64 computes a*b/d with the product checked at 64 bits, as the fee
// path does on-chain.
func mulDiv64(a, b, d uint64) (uint64, error) {
	p, err := checkedMul(u256(a), u256(b), bits64)
	if err != nil {
		return 0, err
	}
	q, err := checkedDiv(p, u256(d))
	if err != nil {
		return 0, err
	}
	return narrow64(q)
}

func sub64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrNumOverflowing
	}
	return a - b, nil
}

func pow10(exp uint8) (uint64, error) {
	result := uint64(1)
	for i := uint8(0); i < exp; i++ {
		next, err := checkedMul(u256(result), u256(10), bits64)
		if err != nil {
			return 0, err
		}
		result = next.Uint64()
	}
	return result, nil
}
