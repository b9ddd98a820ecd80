package stake

import (
	"fmt"
	"math/big"

	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

// Membership reports whether an asset belongs to the collection the engine
// accepts.
type Membership interface {
	IsEligible(id types.AssetID) (bool, error)
}

// Querier issues read-only calls into other contracts.
type Querier interface {
	StaticCall(target types.AssetID, opcode uint64, inputs []*big.Int, fuel uint64) ([]byte, error)
}

// ReceiptFactory instantiates a fresh receipt asset for a mint index.
type ReceiptFactory interface {
	Instantiate(index *big.Int, fuel uint64) (types.AssetID, error)
}

type engineState interface {
	StakeRecordGet(id types.AssetID) (*Record, bool, error)
	StakeRecordPut(id types.AssetID, record *Record) error
	StakeIndexAppend(owner types.Witness, id types.AssetID) error
	StakeIndexRemove(owner types.Witness, id types.AssetID) (bool, error)
	StakeIndexList(owner types.Witness) ([]types.AssetID, error)
	StakeIndexContains(owner types.Witness, id types.AssetID) (bool, error)
	ReceiptBindingGet(receipt types.AssetID) (types.AssetID, bool, error)
	ReceiptBindingPut(receipt types.AssetID, original types.AssetID) error
	ReceiptBindingClear(receipt types.AssetID) error
	ReceiptInstanceGet(index *big.Int) (types.AssetID, bool, error)
	ReceiptInstancePut(index *big.Int, receipt types.AssetID) error
	ReceiptInstanceCount() (*big.Int, error)
	SetReceiptInstanceCount(count *big.Int) error
	LockScriptPut(owner types.Witness, id types.AssetID, script []byte) error
	LockScriptGet(owner types.Witness, id types.AssetID) ([]byte, bool, error)
	TotalStaked() (*big.Int, error)
	SetTotalStaked(total *big.Int) error
	TotalUnstaked() (*big.Int, error)
	SetTotalUnstaked(total *big.Int) error
	TotalRewards() (*big.Int, error)
	SetTotalRewards(total *big.Int) error
}

// Engine runs the staking lifecycle for collection assets: custody, per-asset
// lifecycle records, owner indexes and the receipt registry. All state access
// goes through the injected backend.
type Engine struct {
	policy     Policy
	state      engineState
	membership Membership
	querier    Querier
	factory    ReceiptFactory
	emitter    events.Emitter
}

// NewEngine constructs an engine for the supplied policy.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy.clone(), emitter: events.NoopEmitter{}}, nil
}

// Policy returns a copy of the engine's configuration.
func (e *Engine) Policy() Policy {
	if e == nil {
		return Policy{}
	}
	return e.policy.clone()
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetMembership wires the collection verifier consulted before custody
// changes.
func (e *Engine) SetMembership(membership Membership) { e.membership = membership }

// SetQuerier wires the read-only cross-contract capability used to fetch
// mint indexes from asset contracts.
func (e *Engine) SetQuerier(querier Querier) { e.querier = querier }

// SetReceiptFactory wires the factory that mints fresh receipt assets.
func (e *Engine) SetReceiptFactory(factory ReceiptFactory) { e.factory = factory }

// SetEmitter wires the event sink. Passing nil restores the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

// Stake takes custody of the incoming assets for the caller. Every transfer
// must carry exactly the policy value and reference an eligible asset that is
// not already staked; any violation aborts the whole batch. In timelock mode
// the single incoming asset must come with a lock proof at least the minimum
// distance ahead of the current height, and the lock period is credited as
// reward immediately. In receipt mode every staked asset yields a bound
// receipt transfer.
func (e *Engine) Stake(caller types.Witness, height uint64, incoming []types.Transfer, proof *LockProof, fuel uint64) ([]StakeResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.membership == nil {
		return nil, errNilVerifier
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	if len(incoming) == 0 {
		return nil, ErrNoIncoming
	}

	var lockBlocks *big.Int
	var lockScript []byte
	if e.policy.Timelock.Enabled {
		if len(incoming) != 1 {
			return nil, ErrLockSingleAsset
		}
		if proof == nil {
			return nil, ErrLockProofRequired
		}
		if proof.LockHeight < height {
			return nil, fmt.Errorf("%w: lock height %d already passed at height %d", ErrLockTooShort, proof.LockHeight, height)
		}
		diff := proof.LockHeight - height
		if diff < e.policy.Timelock.MinHeightDiff {
			return nil, fmt.Errorf("%w: lock height %d at height %d", ErrLockTooShort, proof.LockHeight, height)
		}
		lockBlocks = new(big.Int).SetUint64(diff)
		lockScript = append([]byte(nil), proof.Script...)
	}

	// Validate the whole batch before touching state.
	seen := make(map[string]struct{}, len(incoming))
	for _, transfer := range incoming {
		if err := e.checkStakeable(caller, transfer); err != nil {
			return nil, err
		}
		key := transfer.ID.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyStaked, transfer.ID)
		}
		seen[key] = struct{}{}
	}

	results := make([]StakeResult, 0, len(incoming))
	for _, transfer := range incoming {
		result, err := e.stakeOne(caller, height, transfer.ID, lockBlocks, lockScript, fuel)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := e.addCounter(e.state.TotalStaked, e.state.SetTotalStaked, int64(len(incoming))); err != nil {
		return nil, fmt.Errorf("stake: advance total staked: %w", err)
	}
	if lockBlocks != nil {
		if err := e.addBig(e.state.TotalRewards, e.state.SetTotalRewards, lockBlocks); err != nil {
			return nil, fmt.Errorf("stake: credit total rewards: %w", err)
		}
	}
	return results, nil
}

func (e *Engine) checkStakeable(caller types.Witness, transfer types.Transfer) error {
	if transfer.Value == nil || transfer.Value.Cmp(e.policy.ValuePerStake) != 0 {
		return fmt.Errorf("%w: asset %s", ErrStakeValue, transfer.ID)
	}
	eligible, err := e.membership.IsEligible(transfer.ID)
	if err != nil {
		return fmt.Errorf("stake: verify %s: %w", transfer.ID, err)
	}
	if !eligible {
		return fmt.Errorf("%w: %s", ErrNotEligible, transfer.ID)
	}
	record, _, err := e.state.StakeRecordGet(transfer.ID)
	if err != nil {
		return err
	}
	if record.Staked() {
		return fmt.Errorf("%w: %s", ErrAlreadyStaked, transfer.ID)
	}
	if !e.policy.Receipts.Enabled {
		indexed, err := e.state.StakeIndexContains(caller, transfer.ID)
		if err != nil {
			return err
		}
		if indexed {
			return fmt.Errorf("%w: %s", ErrAlreadyStaked, transfer.ID)
		}
	}
	return nil
}

func (e *Engine) stakeOne(caller types.Witness, height uint64, id types.AssetID, lockBlocks *big.Int, lockScript []byte, fuel uint64) (StakeResult, error) {
	record, ok, err := e.state.StakeRecordGet(id)
	if err != nil {
		return StakeResult{}, err
	}
	if !ok {
		record = NewRecord()
	}
	record.normalize()
	record.StakedAt = new(big.Int).SetUint64(height)

	result := StakeResult{Asset: id.Copy(), StakedAt: height}
	if lockBlocks != nil {
		total, err := types.CheckedAdd(record.TotalBlocks, lockBlocks)
		if err != nil {
			return StakeResult{}, fmt.Errorf("stake: credit lock period for %s: %w", id, err)
		}
		record.TotalBlocks = total
		if err := e.state.LockScriptPut(caller, id, lockScript); err != nil {
			return StakeResult{}, err
		}
		result.LockBlocks = new(big.Int).Set(lockBlocks)
	}
	if err := e.state.StakeRecordPut(id, record); err != nil {
		return StakeResult{}, err
	}
	if !e.policy.Receipts.Enabled {
		if err := e.state.StakeIndexAppend(caller, id); err != nil {
			return StakeResult{}, err
		}
	} else {
		receipt, err := e.issueReceipt(id, fuel)
		if err != nil {
			return StakeResult{}, err
		}
		result.Receipt = &types.Transfer{ID: receipt, Value: big.NewInt(1)}
	}

	evt := &events.StakeLocked{
		Owner:      caller,
		Asset:      result.Asset,
		Height:     height,
		LockBlocks: result.LockBlocks,
	}
	if result.Receipt != nil {
		receiptID := result.Receipt.ID.Copy()
		evt.Receipt = &receiptID
	}
	e.emit(evt)
	return result, nil
}

// issueReceipt resolves the receipt for a staked original: it asks the asset
// contract for its mint index, reuses the registry entry at that index when
// one exists, otherwise mints a fresh receipt through the factory. The
// binding receipt->original is written either way.
func (e *Engine) issueReceipt(original types.AssetID, fuel uint64) (types.AssetID, error) {
	if e.querier == nil {
		return types.AssetID{}, errNilQuerier
	}
	data, err := e.querier.StaticCall(original, OpAssetMintIndex, nil, fuel)
	if err != nil {
		return types.AssetID{}, fmt.Errorf("stake: query mint index of %s: %w", original, err)
	}
	index, err := types.Uint128FromLE(data)
	if err != nil {
		return types.AssetID{}, fmt.Errorf("stake: decode mint index of %s: %w", original, err)
	}
	receipt, ok, err := e.state.ReceiptInstanceGet(index)
	if err != nil {
		return types.AssetID{}, err
	}
	if !ok {
		if e.factory == nil {
			return types.AssetID{}, errNilFactory
		}
		if max := e.policy.Receipts.MaxInstances; max > 0 && index.Cmp(new(big.Int).SetUint64(max)) >= 0 {
			return types.AssetID{}, fmt.Errorf("%w: index %s", ErrReceiptsExhausted, index)
		}
		receipt, err = e.factory.Instantiate(index, fuel)
		if err != nil {
			return types.AssetID{}, fmt.Errorf("stake: instantiate receipt at index %s: %w", index, err)
		}
		if err := e.state.ReceiptInstancePut(index, receipt); err != nil {
			return types.AssetID{}, err
		}
		if err := e.addBig(e.state.ReceiptInstanceCount, e.state.SetReceiptInstanceCount, big.NewInt(1)); err != nil {
			return types.AssetID{}, fmt.Errorf("stake: advance instance count: %w", err)
		}
	}
	if err := e.state.ReceiptBindingPut(receipt, original); err != nil {
		return types.AssetID{}, err
	}
	return receipt, nil
}

// Unstake releases a staked asset back to the caller. The asset must be
// eligible, staked, and present in the caller's index. While receipt mode is
// active the bound receipt must be presented instead.
func (e *Engine) Unstake(caller types.Witness, height uint64, id types.AssetID) (*UnstakeResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.policy.Receipts.Enabled {
		return nil, ErrReceiptRequired
	}
	if e.membership == nil {
		return nil, errNilVerifier
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	eligible, err := e.membership.IsEligible(id)
	if err != nil {
		return nil, fmt.Errorf("stake: verify %s: %w", id, err)
	}
	if !eligible {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, id)
	}
	staked, err := e.state.StakeIndexContains(caller, id)
	if err != nil {
		return nil, err
	}
	if !staked {
		return nil, fmt.Errorf("%w: %s", ErrNotStakedByCaller, id)
	}

	result, err := e.release(caller, height, id)
	if err != nil {
		return nil, err
	}
	removed, err := e.state.StakeIndexRemove(caller, id)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("%w: %s missing from index of %s", ErrIndexMismatch, id, caller)
	}
	if err := e.addCounter(e.state.TotalStaked, e.state.SetTotalStaked, -1); err != nil {
		return nil, fmt.Errorf("stake: decrement total staked: %w", err)
	}
	return result, nil
}

// UnstakeReceipt releases the original bound to an incoming receipt. The
// input must be exactly one receipt of value one; the receipt itself is the
// authorization, no owner check applies.
func (e *Engine) UnstakeReceipt(caller types.Witness, height uint64, incoming []types.Transfer) (*UnstakeResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if !e.policy.Receipts.Enabled {
		return nil, ErrReceiptsDisabled
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	if len(incoming) != 1 {
		return nil, ErrReceiptInput
	}
	receipt := incoming[0]
	if receipt.Value == nil || receipt.Value.Cmp(big.NewInt(1)) != 0 {
		return nil, ErrReceiptInput
	}
	original, ok, err := e.state.ReceiptBindingGet(receipt.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnboundReceipt, receipt.ID)
	}

	result, err := e.release(caller, height, original)
	if err != nil {
		return nil, err
	}
	if err := e.state.ReceiptBindingClear(receipt.ID); err != nil {
		return nil, err
	}
	if err := e.addCounter(e.state.TotalUnstaked, e.state.SetTotalUnstaked, 1); err != nil {
		return nil, fmt.Errorf("stake: advance total unstaked: %w", err)
	}
	return result, nil
}

// release performs the shared record mutation of every unstake path: credit
// the elapsed period, stamp the release height and zero the stake height.
func (e *Engine) release(caller types.Witness, height uint64, id types.AssetID) (*UnstakeResult, error) {
	record, ok, err := e.state.StakeRecordGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || !record.Staked() {
		return nil, fmt.Errorf("%w: %s", ErrNotStaked, id)
	}
	record.normalize()

	heightBig := new(big.Int).SetUint64(height)
	period := types.SaturatingSub(heightBig, record.StakedAt)
	if e.policy.Timelock.Enabled {
		// The lock period was credited at stake time.
		period = big.NewInt(0)
	}
	total, err := types.CheckedAdd(record.TotalBlocks, period)
	if err != nil {
		return nil, fmt.Errorf("stake: accumulate staked period for %s: %w", id, err)
	}
	record.TotalBlocks = total
	record.UnstakedAt = heightBig
	record.StakedAt = big.NewInt(0)
	if err := e.state.StakeRecordPut(id, record); err != nil {
		return nil, err
	}
	if period.Sign() > 0 {
		if err := e.addBig(e.state.TotalRewards, e.state.SetTotalRewards, period); err != nil {
			return nil, fmt.Errorf("stake: credit total rewards: %w", err)
		}
	}

	result := &UnstakeResult{
		Asset:        id.Copy(),
		Returned:     types.Transfer{ID: id.Copy(), Value: big.NewInt(1)},
		PeriodBlocks: period,
		TotalBlocks:  new(big.Int).Set(record.TotalBlocks),
	}
	e.emit(&events.StakeReleased{
		Owner:        caller,
		Asset:        result.Asset,
		Height:       height,
		PeriodBlocks: new(big.Int).Set(period),
		TotalBlocks:  new(big.Int).Set(record.TotalBlocks),
	})
	return result, nil
}

func (e *Engine) addCounter(get func() (*big.Int, error), set func(*big.Int) error, delta int64) error {
	if delta >= 0 {
		return e.addBig(get, set, big.NewInt(delta))
	}
	current, err := get()
	if err != nil {
		return err
	}
	updated, err := types.CheckedSub(current, big.NewInt(-delta))
	if err != nil {
		return err
	}
	return set(updated)
}

func (e *Engine) addBig(get func() (*big.Int, error), set func(*big.Int) error, delta *big.Int) error {
	current, err := get()
	if err != nil {
		return err
	}
	updated, err := types.CheckedAdd(current, delta)
	if err != nil {
		return err
	}
	return set(updated)
}

// Eligibility reports whether the asset could be staked right now: it must
// belong to the collection and must not already be in custody.
func (e *Engine) Eligibility(id types.AssetID) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	if e.membership == nil {
		return false, errNilVerifier
	}
	eligible, err := e.membership.IsEligible(id)
	if err != nil || !eligible {
		return false, err
	}
	record, _, err := e.state.StakeRecordGet(id)
	if err != nil {
		return false, err
	}
	return !record.Staked(), nil
}

// StakedHeight returns the height the asset was staked at. It errors for
// assets outside the collection and for assets not currently staked.
func (e *Engine) StakedHeight(id types.AssetID) (*big.Int, error) {
	record, err := e.memberRecord(id)
	if err != nil {
		return nil, err
	}
	if !record.Staked() {
		return nil, fmt.Errorf("%w: %s", ErrNotStaked, id)
	}
	return new(big.Int).Set(record.StakedAt), nil
}

// UnstakeHeight returns the height the asset was last released at. It errors
// for assets outside the collection and for assets never released.
func (e *Engine) UnstakeHeight(id types.AssetID) (*big.Int, error) {
	record, err := e.memberRecord(id)
	if err != nil {
		return nil, err
	}
	if record.UnstakedAt == nil || record.UnstakedAt.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNeverUnstaked, id)
	}
	return new(big.Int).Set(record.UnstakedAt), nil
}

// TotalStakedBlocks returns the asset's accumulated staked span. It errors
// for assets outside the collection; a never-staked member reports zero.
func (e *Engine) TotalStakedBlocks(id types.AssetID) (*big.Int, error) {
	record, err := e.memberRecord(id)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(record.TotalBlocks), nil
}

func (e *Engine) memberRecord(id types.AssetID) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.membership == nil {
		return nil, errNilVerifier
	}
	eligible, err := e.membership.IsEligible(id)
	if err != nil {
		return nil, fmt.Errorf("stake: verify %s: %w", id, err)
	}
	if !eligible {
		return nil, fmt.Errorf("%w: %s", ErrNotEligible, id)
	}
	record, ok, err := e.state.StakeRecordGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = NewRecord()
	}
	record.normalize()
	return record, nil
}

// OriginalByReceipt returns the original bound to a receipt.
func (e *Engine) OriginalByReceipt(receipt types.AssetID) (types.AssetID, error) {
	if e == nil || e.state == nil {
		return types.AssetID{}, errNilState
	}
	original, ok, err := e.state.ReceiptBindingGet(receipt)
	if err != nil {
		return types.AssetID{}, err
	}
	if !ok {
		return types.AssetID{}, fmt.Errorf("%w: %s", ErrUnboundReceipt, receipt)
	}
	return original, nil
}

// StakedIDs lists the assets currently indexed for an owner.
func (e *Engine) StakedIDs(owner types.Witness) ([]types.AssetID, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.StakeIndexList(owner)
}

// LockScript returns the locking script archived for a timelock stake.
func (e *Engine) LockScript(owner types.Witness, id types.AssetID) ([]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	script, ok, err := e.state.LockScriptGet(owner, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s / %s", ErrNoLockScript, owner, id)
	}
	return script, nil
}

// TotalStaked reports the custody counter. In receipt mode it counts stakes
// over the ledger's lifetime, otherwise assets currently held.
func (e *Engine) TotalStaked() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalStaked()
}

// TotalUnstaked reports how many receipt releases have happened.
func (e *Engine) TotalUnstaked() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalUnstaked()
}

// TotalRewards reports the block spans credited across all assets.
func (e *Engine) TotalRewards() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalRewards()
}

// ReceiptInstances reports how many receipts the registry holds.
func (e *Engine) ReceiptInstances() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.ReceiptInstanceCount()
}
