package types

import (
	"errors"
	"fmt"
	"math/big"
)

// Uint128Size is the width of a serialised unsigned 128-bit value.
const Uint128Size = 16

var (
	// ErrUint128Range is returned when a value cannot be represented as an
	// unsigned 128-bit integer.
	ErrUint128Range = errors.New("types: value outside unsigned 128-bit range")
	// ErrUint128Overflow is returned by checked addition when the sum leaves
	// the unsigned 128-bit range. Ledger totals treat this as a hard error.
	ErrUint128Overflow = errors.New("types: unsigned 128-bit overflow")
	// ErrUint128Underflow is returned by checked subtraction when the result
	// would be negative.
	ErrUint128Underflow = errors.New("types: unsigned 128-bit underflow")
	// ErrUint128Length is returned when a serialised value is not exactly
	// Uint128Size bytes.
	ErrUint128Length = errors.New("types: uint128 must be 16 bytes")
)

// fitsUint128 reports whether v is a non-negative integer within 128 bits.
// A nil value counts as zero.
func fitsUint128(v *big.Int) bool {
	if v == nil {
		return true
	}
	return v.Sign() >= 0 && v.BitLen() <= 128
}

// Uint128ToLE serialises v as exactly 16 little-endian bytes.
func Uint128ToLE(v *big.Int) ([]byte, error) {
	return AppendUint128LE(make([]byte, 0, Uint128Size), v)
}

// AppendUint128LE appends the 16-byte little-endian form of v to dst.
func AppendUint128LE(dst []byte, v *big.Int) ([]byte, error) {
	if !fitsUint128(v) {
		return nil, ErrUint128Range
	}
	var be [Uint128Size]byte
	if v != nil {
		v.FillBytes(be[:])
	}
	for i := Uint128Size - 1; i >= 0; i-- {
		dst = append(dst, be[i])
	}
	return dst, nil
}

// Uint128FromLE parses exactly 16 little-endian bytes. Responses of any
// other length are rejected so callers can distinguish "unavailable" from a
// valid zero.
func Uint128FromLE(buf []byte) (*big.Int, error) {
	if len(buf) != Uint128Size {
		return nil, fmt.Errorf("%w, got %d", ErrUint128Length, len(buf))
	}
	var be [Uint128Size]byte
	for i := 0; i < Uint128Size; i++ {
		be[i] = buf[Uint128Size-1-i]
	}
	return new(big.Int).SetBytes(be[:]), nil
}

// CheckedAdd returns a+b, failing if either operand or the sum leaves the
// unsigned 128-bit range. Used for every ledger-mutating total.
func CheckedAdd(a, b *big.Int) (*big.Int, error) {
	if !fitsUint128(a) || !fitsUint128(b) {
		return nil, ErrUint128Range
	}
	sum := new(big.Int).Add(bigOrZero(a), bigOrZero(b))
	if sum.BitLen() > 128 {
		return nil, ErrUint128Overflow
	}
	return sum, nil
}

// CheckedSub returns a-b, failing if the result would be negative.
func CheckedSub(a, b *big.Int) (*big.Int, error) {
	if !fitsUint128(a) || !fitsUint128(b) {
		return nil, ErrUint128Range
	}
	diff := new(big.Int).Sub(bigOrZero(a), bigOrZero(b))
	if diff.Sign() < 0 {
		return nil, ErrUint128Underflow
	}
	return diff, nil
}

// SaturatingSub returns max(a-b, 0). Only derived read-only quantities may
// use it; ledger totals go through CheckedSub.
func SaturatingSub(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(bigOrZero(a), bigOrZero(b))
	if diff.Sign() < 0 {
		return big.NewInt(0)
	}
	return diff
}
