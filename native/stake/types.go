package stake

import (
	"fmt"
	"math/big"

	"orbitalvault/core/types"
)

// Record tracks the staking lifecycle of a single asset. Heights and the
// accumulated block count are unsigned 128-bit quantities; a zero StakedAt
// means the asset is not currently staked.
type Record struct {
	StakedAt    *big.Int
	UnstakedAt  *big.Int
	TotalBlocks *big.Int
}

// NewRecord returns a zeroed lifecycle record.
func NewRecord() *Record {
	return &Record{
		StakedAt:    big.NewInt(0),
		UnstakedAt:  big.NewInt(0),
		TotalBlocks: big.NewInt(0),
	}
}

// Staked reports whether the asset is currently held by the engine.
func (r *Record) Staked() bool {
	return r != nil && r.StakedAt != nil && r.StakedAt.Sign() != 0
}

// Copy returns an independent copy of the record.
func (r *Record) Copy() *Record {
	if r == nil {
		return nil
	}
	clone := NewRecord()
	if r.StakedAt != nil {
		clone.StakedAt.Set(r.StakedAt)
	}
	if r.UnstakedAt != nil {
		clone.UnstakedAt.Set(r.UnstakedAt)
	}
	if r.TotalBlocks != nil {
		clone.TotalBlocks.Set(r.TotalBlocks)
	}
	return clone
}

func (r *Record) normalize() {
	if r.StakedAt == nil {
		r.StakedAt = big.NewInt(0)
	}
	if r.UnstakedAt == nil {
		r.UnstakedAt = big.NewInt(0)
	}
	if r.TotalBlocks == nil {
		r.TotalBlocks = big.NewInt(0)
	}
}

// TimelockPolicy configures commitment staking: the caller proves an
// external time lock instead of accruing custody time, and the lock period
// is credited as reward up front.
type TimelockPolicy struct {
	Enabled bool
	// MinHeightDiff is the smallest acceptable distance between the lock
	// height and the current height.
	MinHeightDiff uint64
}

// ReceiptPolicy configures receipt issuance: each stake mints or reuses a
// transferable receipt asset bound to the staked original.
type ReceiptPolicy struct {
	Enabled bool
	// MaxInstances caps how many distinct receipts may ever be minted.
	// Zero means unlimited.
	MaxInstances uint64
}

// Policy carries the engine's staking rules.
type Policy struct {
	// ValuePerStake is the exact transfer value required per staked asset.
	ValuePerStake *big.Int
	Timelock      TimelockPolicy
	Receipts      ReceiptPolicy
}

// DefaultPolicy returns the base configuration: one unit per stake, no
// time lock, no receipts.
func DefaultPolicy() Policy {
	return Policy{ValuePerStake: big.NewInt(1)}
}

// Validate rejects configurations the engine cannot serve.
func (p Policy) Validate() error {
	if p.ValuePerStake == nil || p.ValuePerStake.Sign() <= 0 {
		return fmt.Errorf("stake: value per stake must be positive")
	}
	if p.Timelock.Enabled && p.Receipts.Enabled {
		return fmt.Errorf("stake: timelock and receipt modes are mutually exclusive")
	}
	return nil
}

func (p Policy) clone() Policy {
	clone := p
	if p.ValuePerStake != nil {
		clone.ValuePerStake = new(big.Int).Set(p.ValuePerStake)
	} else {
		clone.ValuePerStake = big.NewInt(1)
	}
	return clone
}

// LockProof carries the externally verified time-lock data accompanying a
// commitment stake.
type LockProof struct {
	// LockHeight is the absolute height until which the asset is locked.
	LockHeight uint64
	// Script is the locking script the proof was extracted from. It is
	// archived verbatim for later audit.
	Script []byte
}

// StakeResult reports the outcome of staking one asset.
type StakeResult struct {
	Asset    types.AssetID
	StakedAt uint64
	// Receipt is the outgoing receipt transfer in receipt mode, nil
	// otherwise.
	Receipt *types.Transfer
	// LockBlocks is the reward credited up front in timelock mode, nil
	// otherwise.
	LockBlocks *big.Int
}

// UnstakeResult reports the outcome of releasing one asset.
type UnstakeResult struct {
	Asset types.AssetID
	// Returned is the custody transfer handing the original back to the
	// caller.
	Returned types.Transfer
	// PeriodBlocks is the span credited by this release.
	PeriodBlocks *big.Int
	// TotalBlocks is the record's accumulated total after the release.
	TotalBlocks *big.Int
}
