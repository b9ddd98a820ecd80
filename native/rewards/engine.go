package rewards

import (
	"fmt"
	"math/big"

	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

// Default accrual constants. The claim cap doubles as the pool exchange
// rate, so one asset's lifetime claim is worth exactly one pool swap.
const (
	DefaultClaimCap  = 25_000
	DefaultMaxSupply = 250_000_000
)

// Resolver maps a presented asset to the canonical original rewards accrue
// against. Receipts resolve to their bound original, direct members to
// themselves.
type Resolver interface {
	Resolve(id types.AssetID) (types.AssetID, error)
}

type engineState interface {
	ClaimedAmount(id types.AssetID) (*big.Int, error)
	SetClaimedAmount(id types.AssetID, amount *big.Int) error
	TotalClaimed() (*big.Int, error)
	SetTotalClaimed(total *big.Int) error
	IssuedSupply() (*big.Int, error)
	SetIssuedSupply(supply *big.Int) error
}

// Params carries the accrual engine's economic constants.
type Params struct {
	// ClaimCap is the per-asset lifetime claim ceiling.
	ClaimCap *big.Int
	// MaxSupply is the hard cap on the issued fungible supply.
	MaxSupply *big.Int
}

// DefaultParams returns the reference constants.
func DefaultParams() Params {
	return Params{
		ClaimCap:  big.NewInt(DefaultClaimCap),
		MaxSupply: big.NewInt(DefaultMaxSupply),
	}
}

// Validate rejects configurations the engine cannot serve.
func (p Params) Validate() error {
	if p.ClaimCap == nil || p.ClaimCap.Sign() <= 0 {
		return fmt.Errorf("rewards: claim cap must be positive")
	}
	if p.MaxSupply == nil || p.MaxSupply.Sign() <= 0 {
		return fmt.Errorf("rewards: max supply must be positive")
	}
	return nil
}

func (p Params) clone() Params {
	clone := p
	if p.ClaimCap != nil {
		clone.ClaimCap = new(big.Int).Set(p.ClaimCap)
	}
	if p.MaxSupply != nil {
		clone.MaxSupply = new(big.Int).Set(p.MaxSupply)
	}
	return clone
}

// Claim is the per-asset outcome of a committed batch claim.
type Claim struct {
	Asset  types.AssetID
	Amount *big.Int
}

// ClaimResult reports a committed batch claim and the minted total.
type ClaimResult struct {
	Claims []Claim
	Minted *big.Int
}

// Engine converts stake-ledger facts into claimable reward amounts and
// settles batch claims against the claim ledger, the per-asset lifetime cap
// and the global supply cap.
type Engine struct {
	params   Params
	state    engineState
	resolver Resolver
	ledger   Ledger
	emitter  events.Emitter
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

// SetResolver wires the membership resolver consulted for every presented
// asset.
func (e *Engine) SetResolver(resolver Resolver) { e.resolver = resolver }

// SetLedger wires the stake-ledger reader accrual is computed from.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

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

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.resolver == nil {
		return errNilResolver
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// totalRewards computes the accrued basis for a canonical asset: the
// ledger's accumulated span plus the open period of a live stake. Both reads
// degrade to zero when the ledger is unreachable.
func (e *Engine) totalRewards(id types.AssetID, height uint64) *big.Int {
	rewards := e.ledger.TotalBlocks(id)
	if stakedAt, ok := e.ledger.StakedHeight(id); ok {
		open := types.SaturatingSub(new(big.Int).SetUint64(height), stakedAt)
		rewards = new(big.Int).Add(rewards, open)
	}
	return rewards
}

// available applies the lifetime cap: the lesser of unclaimed accrual and
// remaining cap headroom, both saturating at zero.
func available(rewards, claimed, cap *big.Int) *big.Int {
	unclaimed := types.SaturatingSub(rewards, claimed)
	headroom := types.SaturatingSub(cap, claimed)
	if unclaimed.Cmp(headroom) > 0 {
		return headroom
	}
	return unclaimed
}

// TotalRewards reports the accrued reward basis of an asset at the given
// height, resolving receipts to their bound original first.
func (e *Engine) TotalRewards(id types.AssetID, height uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	original, err := e.resolver.Resolve(id)
	if err != nil {
		return nil, err
	}
	return e.totalRewards(original, height), nil
}

// ClaimedAmount reports the lifetime amount already claimed for an asset.
func (e *Engine) ClaimedAmount(id types.AssetID) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	original, err := e.resolver.Resolve(id)
	if err != nil {
		return nil, err
	}
	return e.state.ClaimedAmount(original)
}

// AvailableToClaim reports what a claim would mint for the asset right now.
func (e *Engine) AvailableToClaim(id types.AssetID, height uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	original, err := e.resolver.Resolve(id)
	if err != nil {
		return nil, err
	}
	claimed, err := e.state.ClaimedAmount(original)
	if err != nil {
		return nil, err
	}
	return available(e.totalRewards(original, height), claimed, e.params.ClaimCap), nil
}

// TotalClaimed reports the lifetime claimed total across all assets.
func (e *Engine) TotalClaimed() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalClaimed()
}

// IssuedSupply reports the circulating fungible supply.
func (e *Engine) IssuedSupply() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.IssuedSupply()
}

// TotalAvailable reports the ledger's global staked counter less the claimed
// total, saturating at zero.
func (e *Engine) TotalAvailable() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	claimed, err := e.state.TotalClaimed()
	if err != nil {
		return nil, err
	}
	return types.SaturatingSub(e.ledger.TotalStaked(), claimed), nil
}

// ClaimRewards settles the claimable amount for every presented asset and
// mints the batch total. The batch is all-or-nothing: an asset whose accrual
// is already fully claimed fails the whole call, and the supply cap is
// checked against the batch total before any ledger write. Duplicates in the
// batch observe the increments of earlier entries.
func (e *Engine) ClaimRewards(caller types.Witness, height uint64, ids []types.AssetID) (*ClaimResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, ErrNoCaller
	}
	if len(ids) == 0 {
		return nil, ErrNoAssets
	}

	type update struct {
		original types.AssetID
		claimed  *big.Int
	}
	claimedBy := make(map[string]*big.Int, len(ids))
	updates := make([]update, 0, len(ids))
	claims := make([]Claim, 0, len(ids))
	total := big.NewInt(0)

	for _, id := range ids {
		original, err := e.resolver.Resolve(id)
		if err != nil {
			return nil, err
		}
		key := original.String()
		claimed, ok := claimedBy[key]
		if !ok {
			claimed, err = e.state.ClaimedAmount(original)
			if err != nil {
				return nil, err
			}
		}
		rewards := e.totalRewards(original, height)
		if rewards.Cmp(claimed) <= 0 {
			return nil, fmt.Errorf("%w for %s: claimed (%s) equals or exceeds total rewards (%s)",
				ErrNothingToClaim, original, claimed, rewards)
		}
		amount := available(rewards, claimed, e.params.ClaimCap)
		claimed, err = types.CheckedAdd(claimed, amount)
		if err != nil {
			return nil, fmt.Errorf("rewards: advance claimed for %s: %w", original, err)
		}
		claimedBy[key] = claimed
		updates = append(updates, update{original: original.Copy(), claimed: claimed})
		claims = append(claims, Claim{Asset: original.Copy(), Amount: new(big.Int).Set(amount)})
		total, err = types.CheckedAdd(total, amount)
		if err != nil {
			return nil, fmt.Errorf("rewards: accumulate batch total: %w", err)
		}
	}

	if total.Sign() > 0 {
		issued, err := e.state.IssuedSupply()
		if err != nil {
			return nil, err
		}
		supply, err := types.CheckedAdd(issued, total)
		if err != nil {
			return nil, fmt.Errorf("rewards: advance issued supply: %w", err)
		}
		if supply.Cmp(e.params.MaxSupply) > 0 {
			e.emit(&events.SupplyCapHit{
				Requested: new(big.Int).Set(total),
				Issued:    new(big.Int).Set(issued),
				Cap:       new(big.Int).Set(e.params.MaxSupply),
			})
			return nil, fmt.Errorf("%w: issued %s plus claim %s exceeds cap %s",
				ErrSupplyCap, issued, total, e.params.MaxSupply)
		}
		for _, u := range updates {
			if err := e.state.SetClaimedAmount(u.original, u.claimed); err != nil {
				return nil, err
			}
		}
		claimedTotal, err := e.state.TotalClaimed()
		if err != nil {
			return nil, err
		}
		claimedTotal, err = types.CheckedAdd(claimedTotal, total)
		if err != nil {
			return nil, fmt.Errorf("rewards: advance total claimed: %w", err)
		}
		if err := e.state.SetTotalClaimed(claimedTotal); err != nil {
			return nil, err
		}
		if err := e.state.SetIssuedSupply(supply); err != nil {
			return nil, err
		}
	}

	e.emit(&events.RewardsClaimed{
		Owner:  caller,
		Assets: len(ids),
		Minted: new(big.Int).Set(total),
		Height: height,
	})
	return &ClaimResult{Claims: claims, Minted: total}, nil
}
