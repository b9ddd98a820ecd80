package pool

import (
	"fmt"
	"math/big"

	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

// DefaultExchangeRate is the reference ratio of fungible units per custodied
// asset.
const DefaultExchangeRate = 25_000

// Membership reports whether an asset belongs to the collection the pool
// custodies.
type Membership interface {
	IsEligible(id types.AssetID) (bool, error)
}

type engineState interface {
	PoolDepositIndex() (*big.Int, error)
	SetPoolDepositIndex(index *big.Int) error
	PoolRetrieveIndex() (*big.Int, error)
	SetPoolRetrieveIndex(index *big.Int) error
	PoolBalance() (*big.Int, error)
	SetPoolBalance(balance *big.Int) error
	PoolSlotGet(index *big.Int) (types.AssetID, bool, error)
	PoolSlotPut(index *big.Int, id types.AssetID) error
	PoolSlotClear(index *big.Int) error
	IssuedSupply() (*big.Int, error)
	SetIssuedSupply(supply *big.Int) error
}

// Params carries the pool's economic constants.
type Params struct {
	// ExchangeRate is the fungible price of one custodied asset.
	ExchangeRate *big.Int
	// MaxSupply is the hard cap on the issued fungible supply.
	MaxSupply *big.Int
}

// DefaultParams returns the reference constants.
func DefaultParams() Params {
	return Params{
		ExchangeRate: big.NewInt(DefaultExchangeRate),
		MaxSupply:    big.NewInt(250_000_000),
	}
}

// Validate rejects configurations the engine cannot serve.
func (p Params) Validate() error {
	if p.ExchangeRate == nil || p.ExchangeRate.Sign() <= 0 {
		return fmt.Errorf("pool: exchange rate must be positive")
	}
	if p.MaxSupply == nil || p.MaxSupply.Sign() <= 0 {
		return fmt.Errorf("pool: max supply must be positive")
	}
	return nil
}

func (p Params) clone() Params {
	clone := p
	if p.ExchangeRate != nil {
		clone.ExchangeRate = new(big.Int).Set(p.ExchangeRate)
	}
	if p.MaxSupply != nil {
		clone.MaxSupply = new(big.Int).Set(p.MaxSupply)
	}
	return clone
}

// DepositResult reports assets appended to the pool inventory.
type DepositResult struct {
	// FirstSlot is the slot index of the first deposited asset.
	FirstSlot *big.Int
	Count     int
	Balance   *big.Int
}

// DispenseResult reports a fungible-for-assets swap.
type DispenseResult struct {
	// Dispensed holds the custody transfers leaving the pool, FIFO order.
	Dispensed []types.Transfer
	// Change returns the fungible remainder to the caller, nil when the
	// amount divided evenly.
	Change *types.Transfer
	// Burned is the fungible amount removed from the issued supply.
	Burned  *big.Int
	Balance *big.Int
}

// AbsorbResult reports an assets-for-fungible swap.
type AbsorbResult struct {
	// Minted is the outgoing fungible transfer.
	Minted    types.Transfer
	FirstSlot *big.Int
	Count     int
	Balance   *big.Int
}

// Engine custodies a FIFO inventory of collection assets backing the vault's
// fungible token at a fixed exchange rate. Slots are never compacted;
// dispensed slots become tombstones the scan skips.
type Engine struct {
	params     Params
	state      engineState
	membership Membership
	identity   types.AssetID
	emitter    events.Emitter
}

// NewEngine constructs an engine for the supplied parameters.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params.clone(), emitter: events.NoopEmitter{}}, nil
}

// Params returns a copy of the engine's configuration.
func (e *Engine) Params() Params {
	if e == nil {
		return Params{}
	}
	return e.params.clone()
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetMembership wires the collection verifier consulted for every incoming
// asset.
func (e *Engine) SetMembership(membership Membership) { e.membership = membership }

// SetIdentity wires the vault's own token identity, used to reject foreign
// fungible input and to shape outgoing mints.
func (e *Engine) SetIdentity(id types.AssetID) { e.identity = id.Copy() }

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

// validateIncoming applies the shared deposit preconditions: value one per
// transfer, collection membership, no duplicates in the batch.
func (e *Engine) validateIncoming(incoming []types.Transfer) error {
	seen := make(map[string]struct{}, len(incoming))
	for _, transfer := range incoming {
		if transfer.Value == nil || transfer.Value.Cmp(big.NewInt(1)) != 0 {
			return fmt.Errorf("%w: asset %s", ErrDepositValue, transfer.ID)
		}
		eligible, err := e.membership.IsEligible(transfer.ID)
		if err != nil {
			return fmt.Errorf("pool: verify %s: %w", transfer.ID, err)
		}
		if !eligible {
			return fmt.Errorf("%w: %s", ErrNotEligible, transfer.ID)
		}
		key := transfer.ID.String()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, transfer.ID)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// store appends the incoming assets to the slot arena and advances the
// deposit index and balance.
func (e *Engine) store(incoming []types.Transfer) (*big.Int, *big.Int, error) {
	index, err := e.state.PoolDepositIndex()
	if err != nil {
		return nil, nil, err
	}
	firstSlot := new(big.Int).Set(index)
	for _, transfer := range incoming {
		if err := e.state.PoolSlotPut(index, transfer.ID); err != nil {
			return nil, nil, err
		}
		index, err = types.CheckedAdd(index, big.NewInt(1))
		if err != nil {
			return nil, nil, fmt.Errorf("pool: advance deposit index: %w", err)
		}
	}
	if err := e.state.SetPoolDepositIndex(index); err != nil {
		return nil, nil, err
	}
	balance, err := e.state.PoolBalance()
	if err != nil {
		return nil, nil, err
	}
	balance, err = types.CheckedAdd(balance, big.NewInt(int64(len(incoming))))
	if err != nil {
		return nil, nil, fmt.Errorf("pool: advance balance: %w", err)
	}
	if err := e.state.SetPoolBalance(balance); err != nil {
		return nil, nil, err
	}
	return firstSlot, balance, nil
}

// DepositAssets appends the incoming assets to the pool inventory. Every
// transfer must carry exactly one eligible asset; any violation aborts the
// whole batch.
func (e *Engine) DepositAssets(caller types.Witness, incoming []types.Transfer) (*DepositResult, error) {
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
	if err := e.validateIncoming(incoming); err != nil {
		return nil, err
	}
	firstSlot, balance, err := e.store(incoming)
	if err != nil {
		return nil, err
	}
	e.emit(&events.PoolDeposited{
		Owner:     caller,
		Assets:    len(incoming),
		FirstSlot: new(big.Int).Set(firstSlot),
		Balance:   new(big.Int).Set(balance),
	})
	return &DepositResult{FirstSlot: firstSlot, Count: len(incoming), Balance: balance}, nil
}

// SwapFungibleForAssets burns whole units of the vault's own token and
// dispenses that many custodied assets in FIFO order, returning any fungible
// remainder as change. The retrieve index advances past every scanned slot
// even when the scan comes up short; running the call atomically is the
// host's concern.
func (e *Engine) SwapFungibleForAssets(caller types.Witness, incoming types.Transfer) (*DispenseResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	if e.identity.IsZero() {
		return nil, errNoIdentity
	}
	if !incoming.ID.Equal(e.identity) {
		return nil, fmt.Errorf("%w, got %s", ErrForeignToken, incoming.ID)
	}
	amount := incoming.Value
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: nothing attached", ErrBelowRate)
	}

	whole := new(big.Int).Div(amount, e.params.ExchangeRate)
	if whole.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s buys no asset at rate %s", ErrBelowRate, amount, e.params.ExchangeRate)
	}
	balance, err := e.state.PoolBalance()
	if err != nil {
		return nil, err
	}
	if balance.Cmp(whole) < 0 {
		return nil, fmt.Errorf("%w: want %s, holding %s", ErrInsufficientStored, whole, balance)
	}

	burned := new(big.Int).Mul(whole, e.params.ExchangeRate)
	issued, err := e.state.IssuedSupply()
	if err != nil {
		return nil, err
	}
	issued, err = types.CheckedSub(issued, burned)
	if err != nil {
		return nil, fmt.Errorf("pool: burn %s from issued supply: %w", burned, err)
	}
	if err := e.state.SetIssuedSupply(issued); err != nil {
		return nil, err
	}

	depositIndex, err := e.state.PoolDepositIndex()
	if err != nil {
		return nil, err
	}
	index, err := e.state.PoolRetrieveIndex()
	if err != nil {
		return nil, err
	}
	want := int(whole.Int64())
	dispensed := make([]types.Transfer, 0, want)
	for len(dispensed) < want && index.Cmp(depositIndex) < 0 {
		id, ok, err := e.state.PoolSlotGet(index)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := e.state.PoolSlotClear(index); err != nil {
				return nil, err
			}
			dispensed = append(dispensed, types.NewTransfer(id, 1))
		}
		index, err = types.CheckedAdd(index, big.NewInt(1))
		if err != nil {
			return nil, fmt.Errorf("pool: advance retrieve index: %w", err)
		}
	}
	if err := e.state.SetPoolRetrieveIndex(index); err != nil {
		return nil, err
	}
	if len(dispensed) < want {
		return nil, fmt.Errorf("%w: found %d of %s", ErrInsufficientStored, len(dispensed), whole)
	}

	balance, err = types.CheckedSub(balance, whole)
	if err != nil {
		return nil, fmt.Errorf("pool: shrink balance: %w", err)
	}
	if err := e.state.SetPoolBalance(balance); err != nil {
		return nil, err
	}

	result := &DispenseResult{
		Dispensed: dispensed,
		Burned:    burned,
		Balance:   balance,
	}
	remainder := new(big.Int).Mod(amount, e.params.ExchangeRate)
	if remainder.Sign() > 0 {
		change := types.Transfer{ID: e.identity.Copy(), Value: remainder}
		result.Change = &change
	}
	e.emit(&events.PoolDispensed{
		Owner:     caller,
		Assets:    len(dispensed),
		Burned:    new(big.Int).Set(burned),
		Remainder: new(big.Int).Set(remainder),
		Balance:   new(big.Int).Set(balance),
	})
	return result, nil
}

// SwapAssetsForFungible custodies the incoming assets and mints their
// fungible price to the caller, subject to the supply cap.
func (e *Engine) SwapAssetsForFungible(caller types.Witness, incoming []types.Transfer) (*AbsorbResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.membership == nil {
		return nil, errNilVerifier
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	if e.identity.IsZero() {
		return nil, errNoIdentity
	}
	if len(incoming) == 0 {
		return nil, ErrNoIncoming
	}
	if err := e.validateIncoming(incoming); err != nil {
		return nil, err
	}

	minted := new(big.Int).Mul(big.NewInt(int64(len(incoming))), e.params.ExchangeRate)
	issued, err := e.state.IssuedSupply()
	if err != nil {
		return nil, err
	}
	supply, err := types.CheckedAdd(issued, minted)
	if err != nil {
		return nil, fmt.Errorf("pool: advance issued supply: %w", err)
	}
	if supply.Cmp(e.params.MaxSupply) > 0 {
		e.emit(&events.SupplyCapHit{
			Requested: new(big.Int).Set(minted),
			Issued:    new(big.Int).Set(issued),
			Cap:       new(big.Int).Set(e.params.MaxSupply),
		})
		return nil, fmt.Errorf("%w: issued %s plus mint %s exceeds cap %s",
			ErrSupplyCap, issued, minted, e.params.MaxSupply)
	}

	firstSlot, balance, err := e.store(incoming)
	if err != nil {
		return nil, err
	}
	if err := e.state.SetIssuedSupply(supply); err != nil {
		return nil, err
	}

	e.emit(&events.PoolAbsorbed{
		Owner:   caller,
		Assets:  len(incoming),
		Minted:  new(big.Int).Set(minted),
		Balance: new(big.Int).Set(balance),
	})
	return &AbsorbResult{
		Minted:    types.Transfer{ID: e.identity.Copy(), Value: minted},
		FirstSlot: firstSlot,
		Count:     len(incoming),
		Balance:   balance,
	}, nil
}

// Balance reports how many assets the pool currently holds.
func (e *Engine) Balance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.PoolBalance()
}

// DepositIndex reports the next slot a deposit will write.
func (e *Engine) DepositIndex() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.PoolDepositIndex()
}

// RetrieveIndex reports the slot the next dispense scan starts from.
func (e *Engine) RetrieveIndex() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.PoolRetrieveIndex()
}

// SlotAt reports the asset stored at a slot. Cleared and never written slots
// error.
func (e *Engine) SlotAt(index *big.Int) (types.AssetID, error) {
	if e == nil || e.state == nil {
		return types.AssetID{}, errNilState
	}
	id, ok, err := e.state.PoolSlotGet(index)
	if err != nil {
		return types.AssetID{}, err
	}
	if !ok {
		return types.AssetID{}, fmt.Errorf("%w: %s", ErrEmptySlot, index)
	}
	return id, nil
}
