package state

import (
	"bytes"
	"fmt"
	"math/big"

	"orbitalvault/core/types"
	"orbitalvault/native/stake"
)

// storedStakeRecord mirrors stake.Record for RLP encoding.
type storedStakeRecord struct {
	StakedAt    *big.Int
	UnstakedAt  *big.Int
	TotalBlocks *big.Int
}

func stakeRecordKey(id types.AssetID) ([]byte, error) {
	raw, err := id.Key()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(stakeRecordPrefix)+len(raw))
	key = append(key, stakeRecordPrefix...)
	key = append(key, raw...)
	return key, nil
}

func stakeIndexKey(owner types.Witness) []byte {
	key := make([]byte, 0, len(stakeIndexPrefix)+types.WitnessSize)
	key = append(key, stakeIndexPrefix...)
	key = append(key, owner.Bytes()...)
	return key
}

func receiptBindingKey(receipt types.AssetID) ([]byte, error) {
	raw, err := receipt.Key()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(receiptBindingPrefix)+len(raw))
	key = append(key, receiptBindingPrefix...)
	key = append(key, raw...)
	return key, nil
}

func receiptInstanceKey(index *big.Int) ([]byte, error) {
	raw, err := types.Uint128ToLE(index)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(receiptInstancePrefix)+len(raw))
	key = append(key, receiptInstancePrefix...)
	key = append(key, raw...)
	return key, nil
}

// lockScriptKey joins the owner fingerprint and the asset key, matching the
// archive layout of the timelock ledger.
func lockScriptKey(owner types.Witness, id types.AssetID) ([]byte, error) {
	raw, err := id.Key()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(lockScriptPrefix)+types.WitnessSize+len(raw))
	key = append(key, lockScriptPrefix...)
	key = append(key, owner.Bytes()...)
	key = append(key, raw...)
	return key, nil
}

// StakeRecordGet loads the lifecycle record of an asset.
func (m *Manager) StakeRecordGet(id types.AssetID) (*stake.Record, bool, error) {
	key, err := stakeRecordKey(id)
	if err != nil {
		return nil, false, err
	}
	var stored storedStakeRecord
	ok, err := m.KVGet(key, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record := &stake.Record{
		StakedAt:    stored.StakedAt,
		UnstakedAt:  stored.UnstakedAt,
		TotalBlocks: stored.TotalBlocks,
	}
	return record.Copy(), true, nil
}

// StakeRecordPut persists the lifecycle record of an asset.
func (m *Manager) StakeRecordPut(id types.AssetID, record *stake.Record) error {
	if record == nil {
		return fmt.Errorf("state: nil stake record")
	}
	key, err := stakeRecordKey(id)
	if err != nil {
		return err
	}
	clone := record.Copy()
	return m.KVPut(key, &storedStakeRecord{
		StakedAt:    clone.StakedAt,
		UnstakedAt:  clone.UnstakedAt,
		TotalBlocks: clone.TotalBlocks,
	})
}

// StakeIndexAppend adds an asset to the owner's staked set.
func (m *Manager) StakeIndexAppend(owner types.Witness, id types.AssetID) error {
	raw, err := id.Key()
	if err != nil {
		return err
	}
	return m.KVAppend(stakeIndexKey(owner), raw)
}

// StakeIndexRemove filters the asset out of the owner's staked set by exact
// match and reports whether anything was removed.
func (m *Manager) StakeIndexRemove(owner types.Witness, id types.AssetID) (bool, error) {
	raw, err := id.Key()
	if err != nil {
		return false, err
	}
	key := stakeIndexKey(owner)
	var entries [][]byte
	if err := m.KVGetList(key, &entries); err != nil {
		return false, err
	}
	kept := make([][]byte, 0, len(entries))
	removed := false
	for _, entry := range entries {
		if bytes.Equal(entry, raw) {
			removed = true
			continue
		}
		kept = append(kept, entry)
	}
	if !removed {
		return false, nil
	}
	return true, m.KVPut(key, kept)
}

// StakeIndexList returns the assets in the owner's staked set.
func (m *Manager) StakeIndexList(owner types.Witness) ([]types.AssetID, error) {
	var entries [][]byte
	if err := m.KVGetList(stakeIndexKey(owner), &entries); err != nil {
		return nil, err
	}
	ids := make([]types.AssetID, 0, len(entries))
	for _, entry := range entries {
		id, err := types.AssetIDFromKey(entry)
		if err != nil {
			return nil, fmt.Errorf("state: corrupt stake index entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// StakeIndexContains reports whether the owner's staked set holds the asset.
func (m *Manager) StakeIndexContains(owner types.Witness, id types.AssetID) (bool, error) {
	raw, err := id.Key()
	if err != nil {
		return false, err
	}
	var entries [][]byte
	if err := m.KVGetList(stakeIndexKey(owner), &entries); err != nil {
		return false, err
	}
	for _, entry := range entries {
		if bytes.Equal(entry, raw) {
			return true, nil
		}
	}
	return false, nil
}

// ReceiptBindingGet resolves the original bound to a receipt. A cleared
// binding reads as absent.
func (m *Manager) ReceiptBindingGet(receipt types.AssetID) (types.AssetID, bool, error) {
	key, err := receiptBindingKey(receipt)
	if err != nil {
		return types.AssetID{}, false, err
	}
	var raw []byte
	ok, err := m.KVGet(key, &raw)
	if err != nil || !ok {
		return types.AssetID{}, false, err
	}
	if len(raw) == 0 {
		return types.AssetID{}, false, nil
	}
	id, err := types.AssetIDFromKey(raw)
	if err != nil {
		return types.AssetID{}, false, fmt.Errorf("state: corrupt receipt binding: %w", err)
	}
	return id, true, nil
}

// ReceiptBindingPut records, or replaces, the original bound to a receipt.
func (m *Manager) ReceiptBindingPut(receipt, original types.AssetID) error {
	key, err := receiptBindingKey(receipt)
	if err != nil {
		return err
	}
	raw, err := original.Key()
	if err != nil {
		return err
	}
	return m.KVPut(key, raw)
}

// ReceiptBindingClear erases the binding by writing an empty value.
func (m *Manager) ReceiptBindingClear(receipt types.AssetID) error {
	key, err := receiptBindingKey(receipt)
	if err != nil {
		return err
	}
	return m.KVPut(key, []byte{})
}

// ReceiptInstanceGet returns the receipt registered at a mint index.
func (m *Manager) ReceiptInstanceGet(index *big.Int) (types.AssetID, bool, error) {
	key, err := receiptInstanceKey(index)
	if err != nil {
		return types.AssetID{}, false, err
	}
	var raw []byte
	ok, err := m.KVGet(key, &raw)
	if err != nil || !ok {
		return types.AssetID{}, false, err
	}
	if len(raw) == 0 {
		return types.AssetID{}, false, nil
	}
	id, err := types.AssetIDFromKey(raw)
	if err != nil {
		return types.AssetID{}, false, fmt.Errorf("state: corrupt receipt instance: %w", err)
	}
	return id, true, nil
}

// ReceiptInstancePut registers a receipt at a mint index.
func (m *Manager) ReceiptInstancePut(index *big.Int, receipt types.AssetID) error {
	key, err := receiptInstanceKey(index)
	if err != nil {
		return err
	}
	raw, err := receipt.Key()
	if err != nil {
		return err
	}
	return m.KVPut(key, raw)
}

// ReceiptInstanceCount returns how many receipts the registry holds.
func (m *Manager) ReceiptInstanceCount() (*big.Int, error) {
	return m.loadBigInt(receiptInstanceCountKey)
}

// SetReceiptInstanceCount persists the registry size.
func (m *Manager) SetReceiptInstanceCount(count *big.Int) error {
	return m.writeBigInt(receiptInstanceCountKey, count)
}

// LockScriptPut archives the locking script of a timelock stake.
func (m *Manager) LockScriptPut(owner types.Witness, id types.AssetID, script []byte) error {
	key, err := lockScriptKey(owner, id)
	if err != nil {
		return err
	}
	return m.KVPut(key, script)
}

// LockScriptGet returns the archived locking script for an owner and asset.
func (m *Manager) LockScriptGet(owner types.Witness, id types.AssetID) ([]byte, bool, error) {
	key, err := lockScriptKey(owner, id)
	if err != nil {
		return nil, false, err
	}
	var script []byte
	ok, err := m.KVGet(key, &script)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(script) == 0 {
		return nil, false, nil
	}
	return script, true, nil
}

// TotalStaked returns the global staked counter.
func (m *Manager) TotalStaked() (*big.Int, error) {
	return m.loadBigInt(totalStakedKey)
}

// SetTotalStaked persists the global staked counter.
func (m *Manager) SetTotalStaked(total *big.Int) error {
	return m.writeBigInt(totalStakedKey, total)
}

// TotalUnstaked returns the receipt release counter.
func (m *Manager) TotalUnstaked() (*big.Int, error) {
	return m.loadBigInt(totalUnstakedKey)
}

// SetTotalUnstaked persists the receipt release counter.
func (m *Manager) SetTotalUnstaked(total *big.Int) error {
	return m.writeBigInt(totalUnstakedKey, total)
}

// TotalRewards returns the globally credited reward blocks.
func (m *Manager) TotalRewards() (*big.Int, error) {
	return m.loadBigInt(totalRewardsKey)
}

// SetTotalRewards persists the globally credited reward blocks.
func (m *Manager) SetTotalRewards(total *big.Int) error {
	return m.writeBigInt(totalRewardsKey, total)
}
