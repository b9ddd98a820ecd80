package state

import (
	"math/big"

	"orbitalvault/core/types"
)

// TokenMetadata carries the display identity of the vault's fungible token.
type TokenMetadata struct {
	Name   string
	Symbol string
}

type storedTokenMeta struct {
	Name   string
	Symbol string
}

func claimRecordKey(id types.AssetID) ([]byte, error) {
	raw, err := id.Key()
	if err != nil {
		return nil, err
	}
	key := make([]byte, 0, len(claimRecordPrefix)+len(raw))
	key = append(key, claimRecordPrefix...)
	key = append(key, raw...)
	return key, nil
}

// TokenMetaPut persists the token identity.
func (m *Manager) TokenMetaPut(meta TokenMetadata) error {
	return m.KVPut(tokenMetaKey, &storedTokenMeta{Name: meta.Name, Symbol: meta.Symbol})
}

// TokenMetaGet returns the token identity, empty when never written.
func (m *Manager) TokenMetaGet() (TokenMetadata, error) {
	var stored storedTokenMeta
	if _, err := m.KVGet(tokenMetaKey, &stored); err != nil {
		return TokenMetadata{}, err
	}
	return TokenMetadata{Name: stored.Name, Symbol: stored.Symbol}, nil
}

// Initialized reports whether one-time setup has run.
func (m *Manager) Initialized() (bool, error) {
	return m.KVGet(initializedKey, nil)
}

// SetInitialized marks one-time setup as done.
func (m *Manager) SetInitialized() error {
	return m.KVPut(initializedKey, true)
}

// IssuedSupply returns the amount of fungible token in circulation.
func (m *Manager) IssuedSupply() (*big.Int, error) {
	return m.loadBigInt(issuedSupplyKey)
}

// SetIssuedSupply persists the circulating amount.
func (m *Manager) SetIssuedSupply(supply *big.Int) error {
	return m.writeBigInt(issuedSupplyKey, supply)
}

// ClaimedAmount returns the lifetime amount claimed against an asset.
func (m *Manager) ClaimedAmount(id types.AssetID) (*big.Int, error) {
	key, err := claimRecordKey(id)
	if err != nil {
		return nil, err
	}
	return m.loadBigInt(key)
}

// SetClaimedAmount persists the lifetime amount claimed against an asset.
func (m *Manager) SetClaimedAmount(id types.AssetID, amount *big.Int) error {
	key, err := claimRecordKey(id)
	if err != nil {
		return err
	}
	return m.writeBigInt(key, amount)
}

// TotalClaimed returns the amount claimed across all assets.
func (m *Manager) TotalClaimed() (*big.Int, error) {
	return m.loadBigInt(totalClaimedKey)
}

// SetTotalClaimed persists the amount claimed across all assets.
func (m *Manager) SetTotalClaimed(total *big.Int) error {
	return m.writeBigInt(totalClaimedKey, total)
}
