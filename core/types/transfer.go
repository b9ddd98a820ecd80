package types

import "math/big"

// Transfer describes an asset quantity moving into or out of the vault as
// part of a single call.
type Transfer struct {
	ID    AssetID
	Value *big.Int
}

// NewTransfer builds a transfer of the given value.
func NewTransfer(id AssetID, value uint64) Transfer {
	return Transfer{ID: id.Copy(), Value: new(big.Int).SetUint64(value)}
}

// Copy returns a deep copy of the transfer.
func (t Transfer) Copy() Transfer {
	return Transfer{ID: t.ID.Copy(), Value: new(big.Int).Set(bigOrZero(t.Value))}
}
