package rewards

import (
	"math/big"

	"orbitalvault/core/types"
	"orbitalvault/native/stake"
)

// Querier issues read-only calls into other contracts.
type Querier interface {
	StaticCall(target types.AssetID, opcode uint64, inputs []*big.Int, fuel uint64) ([]byte, error)
}

// Ledger exposes the stake-ledger facts the accrual arithmetic consumes.
// Implementations degrade unavailability to zero so the accrual engine stays
// queryable when the ledger is unreachable.
type Ledger interface {
	// TotalBlocks returns the accumulated staked span recorded for an asset.
	TotalBlocks(id types.AssetID) *big.Int
	// StakedHeight returns the height of the asset's live stake. The boolean
	// is false when the asset is not currently staked or the fact cannot be
	// read.
	StakedHeight(id types.AssetID) (*big.Int, bool)
	// TotalStaked returns the ledger's global staked counter.
	TotalStaked() *big.Int
}

// LedgerClient reads the stake ledger's query opcodes over an injected
// querier. A failed call or a numeric reply that is not exactly 16 bytes
// counts as "unavailable" and reads as zero.
type LedgerClient struct {
	querier Querier
	ledger  types.AssetID
	fuel    uint64
}

// NewLedgerClient wires a ledger reader against the supplied contract.
func NewLedgerClient(querier Querier, ledger types.AssetID, fuel uint64) *LedgerClient {
	return &LedgerClient{querier: querier, ledger: ledger.Copy(), fuel: fuel}
}

func (c *LedgerClient) numeric(opcode uint64, inputs []*big.Int) (*big.Int, bool) {
	if c == nil || c.querier == nil {
		return nil, false
	}
	data, err := c.querier.StaticCall(c.ledger, opcode, inputs, c.fuel)
	if err != nil {
		return nil, false
	}
	value, err := types.Uint128FromLE(data)
	if err != nil {
		return nil, false
	}
	return value, true
}

// TotalBlocks implements Ledger.
func (c *LedgerClient) TotalBlocks(id types.AssetID) *big.Int {
	value, ok := c.numeric(stake.OpGetTotalStakedBlocks, []*big.Int{id.Block, id.Tx})
	if !ok {
		return big.NewInt(0)
	}
	return value
}

// StakedHeight implements Ledger. The stake ledger serves zero for assets
// without a live stake, so a zero height reads as "not staked", as does any
// failed read.
func (c *LedgerClient) StakedHeight(id types.AssetID) (*big.Int, bool) {
	value, ok := c.numeric(stake.OpGetStakedHeight, []*big.Int{id.Block, id.Tx})
	if !ok || value.Sign() == 0 {
		return nil, false
	}
	return value, true
}

// TotalStaked implements Ledger.
func (c *LedgerClient) TotalStaked() *big.Int {
	value, ok := c.numeric(stake.OpGetTotalStaked, nil)
	if !ok {
		return big.NewInt(0)
	}
	return value
}
