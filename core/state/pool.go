package state

import (
	"fmt"
	"math/big"

	"orbitalvault/core/types"
)

func poolSlotKey(index *big.Int) ([]byte, error) {
	raw, err := types.Uint128ToLE(index)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(poolSlotPrefix)+len(raw))
	key = append(key, poolSlotPrefix...)
	key = append(key, raw...)
	return key, nil
}

// PoolDepositIndex returns the next slot the pool will write.
func (m *Manager) PoolDepositIndex() (*big.Int, error) {
	return m.loadBigInt(poolDepositIndexKey)
}

// SetPoolDepositIndex persists the next slot the pool will write.
func (m *Manager) SetPoolDepositIndex(index *big.Int) error {
	return m.writeBigInt(poolDepositIndexKey, index)
}

// PoolRetrieveIndex returns the slot the next dispense scan starts from.
func (m *Manager) PoolRetrieveIndex() (*big.Int, error) {
	return m.loadBigInt(poolRetrieveIndexKey)
}

// SetPoolRetrieveIndex persists the slot the next dispense scan starts from.
func (m *Manager) SetPoolRetrieveIndex(index *big.Int) error {
	return m.writeBigInt(poolRetrieveIndexKey, index)
}

// PoolBalance returns the number of assets currently held by the pool.
func (m *Manager) PoolBalance() (*big.Int, error) {
	return m.loadBigInt(poolBalanceKey)
}

// SetPoolBalance persists the number of assets currently held by the pool.
func (m *Manager) SetPoolBalance(balance *big.Int) error {
	return m.writeBigInt(poolBalanceKey, balance)
}

// PoolSlotGet returns the asset stored at a slot. Cleared and never written
// slots both report absent.
func (m *Manager) PoolSlotGet(index *big.Int) (types.AssetID, bool, error) {
	key, err := poolSlotKey(index)
	if err != nil {
		return types.AssetID{}, false, err
	}
	var raw []byte
	ok, err := m.KVGet(key, &raw)
	if err != nil {
		return types.AssetID{}, false, err
	}
	if !ok || len(raw) == 0 {
		return types.AssetID{}, false, nil
	}
	id, err := types.AssetIDFromKey(raw)
	if err != nil {
		return types.AssetID{}, false, fmt.Errorf("state: corrupt pool slot %s: %w", index, err)
	}
	return id, true, nil
}

// PoolSlotPut stores an asset at a slot.
func (m *Manager) PoolSlotPut(index *big.Int, id types.AssetID) error {
	key, err := poolSlotKey(index)
	if err != nil {
		return err
	}
	raw, err := id.Key()
	if err != nil {
		return err
	}
	return m.KVPut(key, raw)
}

// PoolSlotClear tombstones a dispensed slot so later scans skip it.
func (m *Manager) PoolSlotClear(index *big.Int) error {
	key, err := poolSlotKey(index)
	if err != nil {
		return err
	}
	return m.KVPut(key, []byte{})
}
