package events

import (
	"math/big"
	"strconv"

	"orbitalvault/core/types"
)

const (
	// TypeStakeLocked is emitted when an asset enters custody.
	TypeStakeLocked = "stake.locked"
	// TypeStakeReleased is emitted when a staked asset is returned to its owner.
	TypeStakeReleased = "stake.released"
	// TypeRewardsClaimed is emitted after a successful batch claim.
	TypeRewardsClaimed = "rewards.claimed"
	// TypeSupplyCapHit signals that the hard supply cap rejected a mint.
	TypeSupplyCapHit = "token.capHit"
	// TypePoolDeposited is emitted when assets join the swap pool inventory.
	TypePoolDeposited = "pool.deposited"
	// TypePoolDispensed is emitted when custodied assets leave the pool for
	// fungible tokens.
	TypePoolDispensed = "pool.dispensed"
	// TypePoolAbsorbed is emitted when assets are swapped in for fungible
	// tokens.
	TypePoolAbsorbed = "pool.absorbed"
)

// StakeLocked captures a single asset entering custody.
type StakeLocked struct {
	Owner      types.Witness
	Asset      types.AssetID
	Height     uint64
	Receipt    *types.AssetID
	LockBlocks *big.Int
}

// EventType satisfies the Event interface.
func (StakeLocked) EventType() string { return TypeStakeLocked }

// Event converts the structured payload into a broadcastable event.
func (e StakeLocked) Event() *types.Event {
	attrs := map[string]string{
		"owner":  e.Owner.String(),
		"asset":  e.Asset.String(),
		"height": strconv.FormatUint(e.Height, 10),
	}
	if e.Receipt != nil {
		attrs["receipt"] = e.Receipt.String()
	}
	if e.LockBlocks != nil {
		attrs["lockBlocks"] = formatAmount(e.LockBlocks)
	}
	return &types.Event{Type: TypeStakeLocked, Attributes: attrs}
}

// StakeReleased captures an asset leaving custody.
type StakeReleased struct {
	Owner        types.Witness
	Asset        types.AssetID
	Height       uint64
	PeriodBlocks *big.Int
	TotalBlocks  *big.Int
	Receipt      *types.AssetID
}

// EventType satisfies the Event interface.
func (StakeReleased) EventType() string { return TypeStakeReleased }

// Event converts the structured payload into a broadcastable event.
func (e StakeReleased) Event() *types.Event {
	attrs := map[string]string{
		"owner":        e.Owner.String(),
		"asset":        e.Asset.String(),
		"height":       strconv.FormatUint(e.Height, 10),
		"periodBlocks": formatAmount(e.PeriodBlocks),
		"totalBlocks":  formatAmount(e.TotalBlocks),
	}
	if e.Receipt != nil {
		attrs["receipt"] = e.Receipt.String()
	}
	return &types.Event{Type: TypeStakeReleased, Attributes: attrs}
}

// RewardsClaimed captures a successful batch claim and the minted total.
type RewardsClaimed struct {
	Owner  types.Witness
	Assets int
	Minted *big.Int
	Height uint64
}

// EventType satisfies the Event interface.
func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e RewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeRewardsClaimed, Attributes: map[string]string{
		"owner":  e.Owner.String(),
		"assets": strconv.Itoa(e.Assets),
		"minted": formatAmount(e.Minted),
		"height": strconv.FormatUint(e.Height, 10),
	}}
}

// SupplyCapHit records a mint rejected by the hard supply cap.
type SupplyCapHit struct {
	Requested *big.Int
	Issued    *big.Int
	Cap       *big.Int
}

// EventType satisfies the Event interface.
func (SupplyCapHit) EventType() string { return TypeSupplyCapHit }

// Event converts the structured payload into a broadcastable event.
func (e SupplyCapHit) Event() *types.Event {
	return &types.Event{Type: TypeSupplyCapHit, Attributes: map[string]string{
		"requested": formatAmount(e.Requested),
		"issued":    formatAmount(e.Issued),
		"cap":       formatAmount(e.Cap),
	}}
}

// PoolDeposited captures assets appended to the swap pool inventory.
type PoolDeposited struct {
	Owner     types.Witness
	Assets    int
	FirstSlot *big.Int
	Balance   *big.Int
}

// EventType satisfies the Event interface.
func (PoolDeposited) EventType() string { return TypePoolDeposited }

// Event converts the structured payload into a broadcastable event.
func (e PoolDeposited) Event() *types.Event {
	return &types.Event{Type: TypePoolDeposited, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"assets":    strconv.Itoa(e.Assets),
		"firstSlot": formatAmount(e.FirstSlot),
		"balance":   formatAmount(e.Balance),
	}}
}

// PoolDispensed captures custodied assets dispensed for burned fungible
// tokens.
type PoolDispensed struct {
	Owner     types.Witness
	Assets    int
	Burned    *big.Int
	Remainder *big.Int
	Balance   *big.Int
}

// EventType satisfies the Event interface.
func (PoolDispensed) EventType() string { return TypePoolDispensed }

// Event converts the structured payload into a broadcastable event.
func (e PoolDispensed) Event() *types.Event {
	return &types.Event{Type: TypePoolDispensed, Attributes: map[string]string{
		"owner":     e.Owner.String(),
		"assets":    strconv.Itoa(e.Assets),
		"burned":    formatAmount(e.Burned),
		"remainder": formatAmount(e.Remainder),
		"balance":   formatAmount(e.Balance),
	}}
}

// PoolAbsorbed captures assets swapped into the pool for minted fungible
// tokens.
type PoolAbsorbed struct {
	Owner   types.Witness
	Assets  int
	Minted  *big.Int
	Balance *big.Int
}

// EventType satisfies the Event interface.
func (PoolAbsorbed) EventType() string { return TypePoolAbsorbed }

// Event converts the structured payload into a broadcastable event.
func (e PoolAbsorbed) Event() *types.Event {
	return &types.Event{Type: TypePoolAbsorbed, Attributes: map[string]string{
		"owner":   e.Owner.String(),
		"assets":  strconv.Itoa(e.Assets),
		"minted":  formatAmount(e.Minted),
		"balance": formatAmount(e.Balance),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
