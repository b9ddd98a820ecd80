package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"orbitalvault/core/events"
	"orbitalvault/core/state"
	"orbitalvault/core/types"
	"orbitalvault/native/collection"
	"orbitalvault/native/pool"
	"orbitalvault/native/rewards"
	"orbitalvault/native/stake"
	"orbitalvault/observability/metrics"
	"orbitalvault/storage"
)

// DefaultQueryFuel is the budget handed to nested static calls when the
// caller does not supply one.
const DefaultQueryFuel = 10_000

var (
	// ErrAlreadyInitialized rejects a second initialize call.
	ErrAlreadyInitialized = errors.New("core: vault already initialized")
	// ErrNotInitialized rejects mutating operations before setup has run.
	ErrNotInitialized = errors.New("core: vault not initialized")
	// ErrBadIncoming rejects calls whose attached transfers do not fit the
	// operation.
	ErrBadIncoming = errors.New("core: unexpected incoming transfers")
)

// Config assembles a vault node around one collection and one fungible token.
type Config struct {
	// Identity is the ledger's own contract id: the target loopback queries
	// answer for and the id the fungible transfers carry.
	Identity types.AssetID
	// Token is the metadata initialize seeds.
	Token state.TokenMetadata
	// CollectionBlock and CollectionMembers pin the eligible collection.
	CollectionBlock   *big.Int
	CollectionMembers []*big.Int

	Policy  stake.Policy
	Rewards rewards.Params
	Pool    pool.Params

	// QueryFuel is the default budget forwarded to nested static calls.
	QueryFuel uint64
}

func (c Config) Validate() error {
	if c.Identity.IsZero() {
		return errors.New("core: config requires a ledger identity")
	}
	if c.Token.Name == "" || c.Token.Symbol == "" {
		return errors.New("core: config requires token name and symbol")
	}
	if c.CollectionBlock == nil || c.CollectionBlock.Sign() <= 0 {
		return errors.New("core: config requires a collection block")
	}
	if len(c.CollectionMembers) == 0 {
		return errors.New("core: config requires collection members")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Rewards.Validate(); err != nil {
		return err
	}
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	// Claims and pool mints advance the same issued-supply counter.
	if c.Rewards.MaxSupply.Cmp(c.Pool.MaxSupply) != 0 {
		return errors.New("core: rewards and pool must share one supply cap")
	}
	return nil
}

// CallContext carries the per-call facts a host supplies alongside an
// operation: the caller's witness, the height used as the reward clock, the
// transfers attached to the call, and the fuel budget for nested queries.
type CallContext struct {
	Caller   types.Witness
	Height   uint64
	Incoming []types.Transfer
	Fuel     uint64
}

func (c CallContext) fuel(fallback uint64) uint64 {
	if c.Fuel > 0 {
		return c.Fuel
	}
	return fallback
}

// Vault is the in-process host for the accounting engines: it owns the
// database, serialises calls with a mutex, and runs every mutating operation
// inside a buffered overlay so a failed call leaves no trace in persistent
// state.
type Vault struct {
	mu sync.Mutex

	cfg     Config
	db      storage.Database
	base    *state.Manager
	emitter events.Emitter
	metrics *metrics.VaultMetrics

	stake   *stake.Engine
	rewards *rewards.Engine
	pool    *pool.Engine
	queries *stake.QueryServer
}

// NewVault wires the engines over the database. The rewards engine's ledger
// reads loop back into the stake query server, so accrual always sees the
// same state the stake engine writes.
func NewVault(db storage.Database, cfg Config) (*Vault, error) {
	if db == nil {
		return nil, errors.New("core: vault requires a database")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.QueryFuel == 0 {
		cfg.QueryFuel = DefaultQueryFuel
	}

	stakeEngine, err := stake.NewEngine(cfg.Policy)
	if err != nil {
		return nil, err
	}
	rewardsEngine, err := rewards.NewEngine(cfg.Rewards)
	if err != nil {
		return nil, err
	}
	poolEngine, err := pool.NewEngine(cfg.Pool)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		cfg:     cfg,
		db:      db,
		base:    state.NewManager(db),
		emitter: events.NoopEmitter{},
		metrics: metrics.Vault(),
		stake:   stakeEngine,
		rewards: rewardsEngine,
		pool:    poolEngine,
	}

	membership := collection.NewVerifier(collection.NewAllowlist(cfg.CollectionBlock, cfg.CollectionMembers))
	stakeEngine.SetMembership(membership)
	poolEngine.SetMembership(membership)
	poolEngine.SetIdentity(cfg.Identity)

	v.queries = stake.NewQueryServer(stakeEngine)
	v.queries.SetIdentity(cfg.Identity)
	v.queries.SetTokenMeta(cfg.Token.Name, cfg.Token.Symbol)

	loop := &loopback{identity: cfg.Identity, server: v.queries}
	stakeEngine.SetQuerier(loop)
	rewardsEngine.SetLedger(rewards.NewLedgerClient(loop, cfg.Identity, cfg.QueryFuel))

	resolver := collection.NewVerifier(collection.NewLedgerMembership(loop, cfg.Identity, stake.OpGetEligibility, cfg.QueryFuel))
	resolver.SetLPSource(collection.NewLedgerLP(loop, cfg.Identity, stake.OpGetStakedByReceipt, cfg.QueryFuel))
	rewardsEngine.SetResolver(resolver)

	v.attach(v.base)
	return v, nil
}

// SetEmitter routes engine events to sink. Passing nil restores the no-op
// emitter.
func (v *Vault) SetEmitter(sink events.Emitter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sink == nil {
		sink = events.NoopEmitter{}
	}
	v.emitter = sink
	v.stake.SetEmitter(sink)
	v.rewards.SetEmitter(sink)
	v.pool.SetEmitter(sink)
}

// SetReceiptFactory installs the host capability that mints receipt assets.
func (v *Vault) SetReceiptFactory(factory stake.ReceiptFactory) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stake.SetReceiptFactory(factory)
}

// SetAssetQuerier replaces the loopback querier used for receipt mint-index
// lookups with one that can reach other contracts.
func (v *Vault) SetAssetQuerier(querier stake.Querier) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if querier == nil {
		return
	}
	v.stake.SetQuerier(querier)
}

func (v *Vault) attach(mgr *state.Manager) {
	v.stake.SetState(mgr)
	v.rewards.SetState(mgr)
	v.pool.SetState(mgr)
}

// write runs fn over a buffered overlay and flushes only when it succeeds.
// Any error discards the buffer, so persistent state never sees a partial
// call.
func (v *Vault) write(method string, fn func(mgr *state.Manager) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	start := time.Now()
	overlay := storage.NewOverlay(v.db)
	mgr := state.NewManager(overlay)
	v.attach(mgr)
	err := fn(mgr)
	v.attach(v.base)
	if err != nil {
		overlay.Discard()
	} else {
		err = overlay.Flush()
	}
	v.finish(method, start, err)
	if err == nil {
		v.refreshGauges()
	}
	return err
}

func (v *Vault) read(method string, fn func() error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	start := time.Now()
	err := fn()
	v.finish(method, start, err)
	return err
}

func (v *Vault) finish(method string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, rewards.ErrSupplyCap) || errors.Is(err, pool.ErrSupplyCap) {
			v.metrics.IncSupplyCapHit()
		}
	}
	v.metrics.ObserveCall(method, outcome, time.Since(start).Seconds())
}

// refreshGauges pushes the headline counters after a successful mutation.
func (v *Vault) refreshGauges() {
	if supply, err := v.base.IssuedSupply(); err == nil {
		v.metrics.SetIssuedSupply(approx(supply))
	}
	if balance, err := v.base.PoolBalance(); err == nil {
		v.metrics.SetPoolBalance(approx(balance))
	}
	if staked, err := v.base.TotalStaked(); err == nil {
		v.metrics.SetTotalStaked(approx(staked))
	}
}

func approx(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func requireInit(mgr *state.Manager) error {
	done, err := mgr.Initialized()
	if err != nil {
		return err
	}
	if !done {
		return ErrNotInitialized
	}
	return nil
}

// Initialize seeds the token metadata exactly once. A second call fails and
// changes nothing.
func (v *Vault) Initialize() error {
	return v.write("initialize", func(mgr *state.Manager) error {
		done, err := mgr.Initialized()
		if err != nil {
			return err
		}
		if done {
			return ErrAlreadyInitialized
		}
		if err := mgr.TokenMetaPut(v.cfg.Token); err != nil {
			return err
		}
		return mgr.SetInitialized()
	})
}

// Initialized reports whether setup has run.
func (v *Vault) Initialized() (bool, error) {
	var done bool
	err := v.read("initialized", func() error {
		var err error
		done, err = v.base.Initialized()
		return err
	})
	return done, err
}

func (v *Vault) Name() (string, error) {
	var meta state.TokenMetadata
	err := v.read("name", func() error {
		var err error
		meta, err = v.base.TokenMetaGet()
		return err
	})
	return meta.Name, err
}

func (v *Vault) Symbol() (string, error) {
	var meta state.TokenMetadata
	err := v.read("symbol", func() error {
		var err error
		meta, err = v.base.TokenMetaGet()
		return err
	})
	return meta.Symbol, err
}

func (v *Vault) IssuedSupply() (*big.Int, error) {
	var supply *big.Int
	err := v.read("issued_supply", func() error {
		var err error
		supply, err = v.base.IssuedSupply()
		return err
	})
	return supply, err
}

// MaxSupply returns the shared issuance ceiling.
func (v *Vault) MaxSupply() *big.Int {
	return v.rewards.Params().MaxSupply
}

// ClaimCap returns the lifetime per-asset claim ceiling.
func (v *Vault) ClaimCap() *big.Int {
	return v.rewards.Params().ClaimCap
}

// ExchangeRate returns the fungible units dispensed per pooled asset.
func (v *Vault) ExchangeRate() *big.Int {
	return v.pool.Params().ExchangeRate
}

// Stake locks the attached assets. The lock proof is required in timelock
// mode and ignored otherwise.
func (v *Vault) Stake(ctx CallContext, proof *stake.LockProof) ([]stake.StakeResult, error) {
	var results []stake.StakeResult
	err := v.write("stake", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		results, err = v.stake.Stake(ctx.Caller, ctx.Height, ctx.Incoming, proof, ctx.fuel(v.cfg.QueryFuel))
		return err
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Unstake releases one staked asset back to its owner.
func (v *Vault) Unstake(ctx CallContext, id types.AssetID) (*stake.UnstakeResult, error) {
	var result *stake.UnstakeResult
	err := v.write("unstake", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		result, err = v.stake.Unstake(ctx.Caller, ctx.Height, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnstakeReceipt releases the original bound to the receipt attached to the
// call.
func (v *Vault) UnstakeReceipt(ctx CallContext) (*stake.UnstakeResult, error) {
	var result *stake.UnstakeResult
	err := v.write("unstake_receipt", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		result, err = v.stake.UnstakeReceipt(ctx.Caller, ctx.Height, ctx.Incoming)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (v *Vault) Eligibility(id types.AssetID) (bool, error) {
	var eligible bool
	err := v.read("eligibility", func() error {
		var err error
		eligible, err = v.stake.Eligibility(id)
		return err
	})
	return eligible, err
}

func (v *Vault) StakedHeight(id types.AssetID) (*big.Int, error) {
	var height *big.Int
	err := v.read("staked_height", func() error {
		var err error
		height, err = v.stake.StakedHeight(id)
		return err
	})
	return height, err
}

func (v *Vault) UnstakeHeight(id types.AssetID) (*big.Int, error) {
	var height *big.Int
	err := v.read("unstake_height", func() error {
		var err error
		height, err = v.stake.UnstakeHeight(id)
		return err
	})
	return height, err
}

func (v *Vault) TotalStakedBlocks(id types.AssetID) (*big.Int, error) {
	var blocks *big.Int
	err := v.read("total_staked_blocks", func() error {
		var err error
		blocks, err = v.stake.TotalStakedBlocks(id)
		return err
	})
	return blocks, err
}

func (v *Vault) StakedIDs(owner types.Witness) ([]types.AssetID, error) {
	var ids []types.AssetID
	err := v.read("staked_ids", func() error {
		var err error
		ids, err = v.stake.StakedIDs(owner)
		return err
	})
	return ids, err
}

func (v *Vault) LockScript(owner types.Witness, id types.AssetID) ([]byte, error) {
	var script []byte
	err := v.read("lock_script", func() error {
		var err error
		script, err = v.stake.LockScript(owner, id)
		return err
	})
	return script, err
}

func (v *Vault) OriginalByReceipt(receipt types.AssetID) (types.AssetID, error) {
	var original types.AssetID
	err := v.read("original_by_receipt", func() error {
		var err error
		original, err = v.stake.OriginalByReceipt(receipt)
		return err
	})
	return original, err
}

func (v *Vault) TotalStaked() (*big.Int, error) {
	var total *big.Int
	err := v.read("total_staked", func() error {
		var err error
		total, err = v.stake.TotalStaked()
		return err
	})
	return total, err
}

func (v *Vault) TotalUnstaked() (*big.Int, error) {
	var total *big.Int
	err := v.read("total_unstaked", func() error {
		var err error
		total, err = v.stake.TotalUnstaked()
		return err
	})
	return total, err
}

func (v *Vault) TotalRewards() (*big.Int, error) {
	var total *big.Int
	err := v.read("total_rewards", func() error {
		var err error
		total, err = v.stake.TotalRewards()
		return err
	})
	return total, err
}

func (v *Vault) ReceiptInstances() (*big.Int, error) {
	var count *big.Int
	err := v.read("receipt_instances", func() error {
		var err error
		count, err = v.stake.ReceiptInstances()
		return err
	})
	return count, err
}

// ClaimRewards settles accrued rewards for a batch of assets, all or nothing.
func (v *Vault) ClaimRewards(ctx CallContext, ids []types.AssetID) (*rewards.ClaimResult, error) {
	var result *rewards.ClaimResult
	err := v.write("claim_rewards", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		result, err = v.rewards.ClaimRewards(ctx.Caller, ctx.Height, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (v *Vault) ClaimedAmount(id types.AssetID) (*big.Int, error) {
	var claimed *big.Int
	err := v.read("claimed_amount", func() error {
		var err error
		claimed, err = v.rewards.ClaimedAmount(id)
		return err
	})
	return claimed, err
}

func (v *Vault) AvailableToClaim(id types.AssetID, height uint64) (*big.Int, error) {
	var amount *big.Int
	err := v.read("available_to_claim", func() error {
		var err error
		amount, err = v.rewards.AvailableToClaim(id, height)
		return err
	})
	return amount, err
}

func (v *Vault) TotalClaimed() (*big.Int, error) {
	var total *big.Int
	err := v.read("total_claimed", func() error {
		var err error
		total, err = v.rewards.TotalClaimed()
		return err
	})
	return total, err
}

func (v *Vault) TotalAvailable() (*big.Int, error) {
	var total *big.Int
	err := v.read("total_available", func() error {
		var err error
		total, err = v.rewards.TotalAvailable()
		return err
	})
	return total, err
}

// DepositAssets stores the attached assets in the pool without minting.
func (v *Vault) DepositAssets(ctx CallContext) (*pool.DepositResult, error) {
	var result *pool.DepositResult
	err := v.write("deposit_assets", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		result, err = v.pool.DepositAssets(ctx.Caller, ctx.Incoming)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SwapFungibleForAssets burns the attached fungible transfer and dispenses
// stored assets FIFO.
func (v *Vault) SwapFungibleForAssets(ctx CallContext) (*pool.DispenseResult, error) {
	var result *pool.DispenseResult
	err := v.write("swap_fungible_for_assets", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		if len(ctx.Incoming) != 1 {
			return fmt.Errorf("%w: swap-out needs exactly one fungible transfer, got %d", ErrBadIncoming, len(ctx.Incoming))
		}
		var err error
		result, err = v.pool.SwapFungibleForAssets(ctx.Caller, ctx.Incoming[0])
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SwapAssetsForFungible absorbs the attached assets and mints at the exchange
// rate, bounded by the supply cap.
func (v *Vault) SwapAssetsForFungible(ctx CallContext) (*pool.AbsorbResult, error) {
	var result *pool.AbsorbResult
	err := v.write("swap_assets_for_fungible", func(mgr *state.Manager) error {
		if err := requireInit(mgr); err != nil {
			return err
		}
		var err error
		result, err = v.pool.SwapAssetsForFungible(ctx.Caller, ctx.Incoming)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (v *Vault) PoolBalance() (*big.Int, error) {
	var balance *big.Int
	err := v.read("pool_balance", func() error {
		var err error
		balance, err = v.pool.Balance()
		return err
	})
	return balance, err
}

func (v *Vault) PoolDepositIndex() (*big.Int, error) {
	var index *big.Int
	err := v.read("pool_deposit_index", func() error {
		var err error
		index, err = v.pool.DepositIndex()
		return err
	})
	return index, err
}

func (v *Vault) PoolRetrieveIndex() (*big.Int, error) {
	var index *big.Int
	err := v.read("pool_retrieve_index", func() error {
		var err error
		index, err = v.pool.RetrieveIndex()
		return err
	})
	return index, err
}

func (v *Vault) PoolSlotAt(index *big.Int) (types.AssetID, error) {
	var id types.AssetID
	err := v.read("pool_slot_at", func() error {
		var err error
		id, err = v.pool.SlotAt(index)
		return err
	})
	return id, err
}

// Query serves the raw read-only opcode surface other contracts consume.
func (v *Vault) Query(opcode uint64, inputs []*big.Int) ([]byte, error) {
	var reply []byte
	err := v.read("query", func() error {
		var err error
		reply, err = v.queries.Serve(opcode, inputs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// loopback routes static calls addressed to the vault's own identity into the
// in-process query server. Fuel is accepted for interface fidelity; serving
// locally spends none.
type loopback struct {
	identity types.AssetID
	server   *stake.QueryServer
}

func (l *loopback) StaticCall(target types.AssetID, opcode uint64, inputs []*big.Int, fuel uint64) ([]byte, error) {
	if !target.Equal(l.identity) {
		return nil, fmt.Errorf("core: no route to contract %s", target)
	}
	return l.server.Serve(opcode, inputs)
}
