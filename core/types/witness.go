package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcutil/bech32"
)

// WitnessSize is the width of an owner fingerprint derived from a locking
// script or supplied as two 128-bit halves.
const WitnessSize = 32

// WitnessPrefix is the human-readable part used when rendering a witness.
const WitnessPrefix = "orb"

// ErrInvalidWitness is returned when raw witness bytes are not exactly
// WitnessSize long.
var ErrInvalidWitness = errors.New("types: witness must be 32 bytes")

// Witness is the fixed-width fingerprint that keys the per-owner staked-asset
// index.
type Witness [WitnessSize]byte

// WitnessFromBytes copies exactly WitnessSize bytes into a Witness.
func WitnessFromBytes(b []byte) (Witness, error) {
	var w Witness
	if len(b) != WitnessSize {
		return w, ErrInvalidWitness
	}
	copy(w[:], b)
	return w, nil
}

// WitnessFromLimbs builds a witness from two unsigned 128-bit halves, high
// half first, each serialised little-endian.
func WitnessFromLimbs(hi, lo *big.Int) (Witness, error) {
	var w Witness
	buf, err := AppendUint128LE(make([]byte, 0, WitnessSize), hi)
	if err != nil {
		return w, fmt.Errorf("types: witness high half: %w", err)
	}
	buf, err = AppendUint128LE(buf, lo)
	if err != nil {
		return w, fmt.Errorf("types: witness low half: %w", err)
	}
	copy(w[:], buf)
	return w, nil
}

// ParseWitness decodes a bech32 witness string produced by String.
func ParseWitness(s string) (Witness, error) {
	var w Witness
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return w, fmt.Errorf("types: decode witness: %w", err)
	}
	if hrp != WitnessPrefix {
		return w, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidWitness, hrp)
	}
	conv, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return w, fmt.Errorf("types: decode witness: %w", err)
	}
	return WitnessFromBytes(conv)
}

// Bytes returns a copy of the raw fingerprint.
func (w Witness) Bytes() []byte {
	out := make([]byte, WitnessSize)
	copy(out, w[:])
	return out
}

// IsZero reports whether the witness is entirely zero.
func (w Witness) IsZero() bool {
	for _, b := range w {
		if b != 0 {
			return false
		}
	}
	return true
}

// String renders the witness as a bech32 string for logs, events, and RPC
// responses.
func (w Witness) String() string {
	conv, err := bech32.ConvertBits(w[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(WitnessPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}
