package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// AssetIDSize is the width of a serialised asset identifier: two
// little-endian 128-bit halves, collection block first.
const AssetIDSize = 2 * Uint128Size

// ErrInvalidAssetKey is returned when a serialised asset identifier is not
// exactly AssetIDSize bytes.
var ErrInvalidAssetKey = errors.New("types: asset key must be 32 bytes")

// ErrInvalidAssetText is returned when a textual "block:tx" identifier cannot
// be parsed.
var ErrInvalidAssetText = errors.New("types: malformed asset identifier")

// AssetID identifies a single orbital as a (collection block, sequence) pair.
// Both halves are unsigned 128-bit quantities.
type AssetID struct {
	Block *big.Int
	Tx    *big.Int
}

// NewAssetID builds an identifier from two small components. Helper for
// tests and configuration defaults.
func NewAssetID(block, tx uint64) AssetID {
	return AssetID{Block: new(big.Int).SetUint64(block), Tx: new(big.Int).SetUint64(tx)}
}

// Key serialises the identifier as block||tx, each half 16 bytes
// little-endian. The result is the canonical per-asset store key.
func (id AssetID) Key() ([]byte, error) {
	buf := make([]byte, 0, AssetIDSize)
	buf, err := AppendUint128LE(buf, id.Block)
	if err != nil {
		return nil, fmt.Errorf("types: asset block: %w", err)
	}
	buf, err = AppendUint128LE(buf, id.Tx)
	if err != nil {
		return nil, fmt.Errorf("types: asset tx: %w", err)
	}
	return buf, nil
}

// AssetIDFromKey parses a canonical 32-byte key back into an identifier.
func AssetIDFromKey(key []byte) (AssetID, error) {
	if len(key) != AssetIDSize {
		return AssetID{}, ErrInvalidAssetKey
	}
	block, err := Uint128FromLE(key[:Uint128Size])
	if err != nil {
		return AssetID{}, err
	}
	tx, err := Uint128FromLE(key[Uint128Size:])
	if err != nil {
		return AssetID{}, err
	}
	return AssetID{Block: block, Tx: tx}, nil
}

// String renders the identifier in its textual "block:tx" form.
func (id AssetID) String() string {
	return fmt.Sprintf("%s:%s", bigOrZero(id.Block).String(), bigOrZero(id.Tx).String())
}

// ParseAssetID parses the textual "block:tx" form. Both halves must be
// unsigned decimal integers within 128 bits; anything else is rejected.
func ParseAssetID(s string) (AssetID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return AssetID{}, fmt.Errorf("%w: %q", ErrInvalidAssetText, s)
	}
	block, ok := new(big.Int).SetString(parts[0], 10)
	if !ok || block.Sign() < 0 || block.BitLen() > 128 {
		return AssetID{}, fmt.Errorf("%w: %q", ErrInvalidAssetText, s)
	}
	tx, ok := new(big.Int).SetString(parts[1], 10)
	if !ok || tx.Sign() < 0 || tx.BitLen() > 128 {
		return AssetID{}, fmt.Errorf("%w: %q", ErrInvalidAssetText, s)
	}
	return AssetID{Block: block, Tx: tx}, nil
}

// Equal reports whether two identifiers name the same asset.
func (id AssetID) Equal(other AssetID) bool {
	return bigOrZero(id.Block).Cmp(bigOrZero(other.Block)) == 0 &&
		bigOrZero(id.Tx).Cmp(bigOrZero(other.Tx)) == 0
}

// IsZero reports whether both halves are zero. The zero identifier doubles
// as the tombstone value in sparse slot mappings.
func (id AssetID) IsZero() bool {
	return bigOrZero(id.Block).Sign() == 0 && bigOrZero(id.Tx).Sign() == 0
}

// Copy returns a deep copy so callers can mutate the halves safely.
func (id AssetID) Copy() AssetID {
	return AssetID{Block: new(big.Int).Set(bigOrZero(id.Block)), Tx: new(big.Int).Set(bigOrZero(id.Tx))}
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
