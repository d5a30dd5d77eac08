// internal/utils/binary/binary.go
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// ErrShortBuffer is returned when a field would read or write past the end of the data.
var ErrShortBuffer = errors.New("buffer too short")

// Reader decodes fixed-layout little-endian fields in order. The first
// out-of-range access is latched in Err and every later read returns zero.
type Reader struct {
	data   []byte
	offset int
	err    error
}

// NewReader starts reading data at offset.
func NewReader(data []byte, offset int) *Reader {
	return &Reader{data: data, offset: offset}
}

// Offset returns the position of the next field.
func (r *Reader) Offset() int { return r.offset }

// Err returns the first read error, if any.
func (r *Reader) Err() error { return r.err }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.offset < 0 || r.offset+n > len(r.data) {
		r.err = fmt.Errorf("read %d bytes at offset %d of %d: %w", n, r.offset, len(r.data), ErrShortBuffer)
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

// Skip advances past n bytes of padding.
func (r *Reader) Skip(n int) { r.take(n) }

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.Uint8() != 0 }

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

// Uint128 reads a little-endian u128 as lo, hi words.
func (r *Reader) Uint128() uint256.Int {
	lo := r.Uint64()
	hi := r.Uint64()
	return uint256.Int{lo, hi, 0, 0}
}

func (r *Reader) PubKey() solana.PublicKey {
	b := r.take(solana.PublicKeyLength)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

// Writer encodes fixed-layout little-endian fields in order into a
// preallocated buffer.
type Writer struct {
	data   []byte
	offset int
	err    error
}

// NewWriter starts writing into data at offset.
func NewWriter(data []byte, offset int) *Writer {
	return &Writer{data: data, offset: offset}
}

func (w *Writer) Offset() int { return w.offset }

func (w *Writer) Err() error { return w.err }

func (w *Writer) next(n int) []byte {
	if w.err != nil {
		return nil
	}
	if w.offset < 0 || w.offset+n > len(w.data) {
		w.err = fmt.Errorf("write %d bytes at offset %d of %d: %w", n, w.offset, len(w.data), ErrShortBuffer)
		return nil
	}
	b := w.data[w.offset : w.offset+n]
	w.offset += n
	return b
}

// Skip leaves n bytes untouched.
func (w *Writer) Skip(n int) { w.next(n) }

func (w *Writer) Uint8(v uint8) {
	if b := w.next(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

func (w *Writer) Uint32(v uint32) {
	if b := w.next(4); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (w *Writer) Uint64(v uint64) {
	if b := w.next(8); b != nil {
		binary.LittleEndian.PutUint64(b, v)
	}
}

// Uint128 writes the low 128 bits of v.
func (w *Writer) Uint128(v *uint256.Int) {
	w.Uint64(v[0])
	w.Uint64(v[1])
}

func (w *Writer) PubKey(key solana.PublicKey) {
	if b := w.next(solana.PublicKeyLength); b != nil {
		copy(b, key[:])
	}
}

// ReadUint64LittleEndian reads a uint64 at offset, or returns ErrShortBuffer.
func ReadUint64LittleEndian(data []byte, offset int) (uint64, error) {
	r := NewReader(data, offset)
	v := r.Uint64()
	return v, r.Err()
}

// ReadUint8 reads the byte at offset, or returns ErrShortBuffer.
func ReadUint8(data []byte, offset int) (uint8, error) {
	r := NewReader(data, offset)
	v := r.Uint8()
	return v, r.Err()
}
