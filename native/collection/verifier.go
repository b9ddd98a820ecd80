package collection

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"orbitalvault/core/types"
)

var (
	// ErrNotEligible is returned by Resolve when an asset is neither a direct
	// member nor a resolvable receipt.
	ErrNotEligible = errors.New("collection: asset not eligible")
	// ErrResolveUnavailable is returned when the receipt lookup needed to
	// resolve an asset cannot be completed. Mutating paths must treat this as
	// fatal.
	ErrResolveUnavailable = errors.New("collection: receipt lookup unavailable")
)

// Membership reports whether an asset identifier belongs to the eligible
// collection.
type Membership interface {
	Contains(id types.AssetID) (bool, error)
}

// Querier issues read-only calls into another contract.
type Querier interface {
	StaticCall(target types.AssetID, opcode uint64, inputs []*big.Int, fuel uint64) ([]byte, error)
}

// Allowlist is the local membership source: a fixed collection block plus an
// explicit set of member sequences.
type Allowlist struct {
	block   *big.Int
	members map[string]struct{}
}

// NewAllowlist builds a local membership source. A nil block or empty member
// set matches nothing.
func NewAllowlist(block *big.Int, members []*big.Int) *Allowlist {
	set := make(map[string]struct{}, len(members))
	for _, member := range members {
		if member == nil {
			continue
		}
		set[member.String()] = struct{}{}
	}
	normalized := big.NewInt(0)
	if block != nil {
		normalized = new(big.Int).Set(block)
	}
	return &Allowlist{block: normalized, members: set}
}

// Contains reports direct membership: the asset's block must equal the
// collection block and its sequence must be allow-listed.
func (a *Allowlist) Contains(id types.AssetID) (bool, error) {
	if a == nil || len(a.members) == 0 {
		return false, nil
	}
	if id.Block == nil || id.Block.Cmp(a.block) != 0 {
		return false, nil
	}
	if id.Tx == nil {
		return false, nil
	}
	_, ok := a.members[id.Tx.String()]
	return ok, nil
}

// Size reports the number of allow-listed sequences.
func (a *Allowlist) Size() int {
	if a == nil {
		return 0
	}
	return len(a.members)
}

// LedgerMembership resolves membership through the stake ledger's eligibility
// opcode. Query failures and short replies degrade to "not a member" so read
// paths stay available when the ledger is unreachable.
type LedgerMembership struct {
	querier Querier
	ledger  types.AssetID
	opcode  uint64
	fuel    uint64
}

// NewLedgerMembership wires a remote membership source against the supplied
// ledger contract and opcode.
func NewLedgerMembership(querier Querier, ledger types.AssetID, opcode uint64, fuel uint64) *LedgerMembership {
	return &LedgerMembership{querier: querier, ledger: ledger.Copy(), opcode: opcode, fuel: fuel}
}

// Contains queries the ledger. Any failure or reply that is not exactly 16
// bytes counts as "not a member".
func (l *LedgerMembership) Contains(id types.AssetID) (bool, error) {
	if l == nil || l.querier == nil {
		return false, nil
	}
	data, err := l.querier.StaticCall(l.ledger, l.opcode, []*big.Int{id.Block, id.Tx}, l.fuel)
	if err != nil {
		return false, nil
	}
	value, err := types.Uint128FromLE(data)
	if err != nil {
		return false, nil
	}
	return value.Sign() != 0, nil
}

// LPSource reports the textual identifier of the original asset bound to a
// receipt. Implementations propagate transport failures; callers choose
// whether to degrade or abort.
type LPSource interface {
	OriginalByReceipt(id types.AssetID) (string, error)
}

// LedgerLP resolves receipts through the stake ledger's staked-by-receipt
// opcode.
type LedgerLP struct {
	querier Querier
	ledger  types.AssetID
	opcode  uint64
	fuel    uint64
}

// NewLedgerLP wires a receipt resolver against the supplied ledger contract
// and opcode.
func NewLedgerLP(querier Querier, ledger types.AssetID, opcode uint64, fuel uint64) *LedgerLP {
	return &LedgerLP{querier: querier, ledger: ledger.Copy(), opcode: opcode, fuel: fuel}
}

// OriginalByReceipt returns the raw "block:tx" string the ledger reports for
// the receipt.
func (l *LedgerLP) OriginalByReceipt(id types.AssetID) (string, error) {
	if l == nil || l.querier == nil {
		return "", fmt.Errorf("collection: lp source not configured")
	}
	data, err := l.querier.StaticCall(l.ledger, l.opcode, []*big.Int{id.Block, id.Tx}, l.fuel)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Verifier decides collection membership, directly or by derivation through
// a receipt.
type Verifier struct {
	direct Membership
	lp     LPSource
}

// NewVerifier builds a verifier over the supplied direct membership source.
func NewVerifier(direct Membership) *Verifier {
	return &Verifier{direct: direct}
}

// SetLPSource enables receipt derivation. Passing nil disables it.
func (v *Verifier) SetLPSource(lp LPSource) { v.lp = lp }

// IsEligible reports whether the asset is a direct member or, when receipt
// derivation is enabled, a receipt the ledger recognises. Direct membership
// short-circuits; receipt lookup failures degrade to false.
func (v *Verifier) IsEligible(id types.AssetID) (bool, error) {
	if v == nil || v.direct == nil {
		return false, nil
	}
	ok, err := v.direct.Contains(id)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	if v.lp == nil {
		return false, nil
	}
	bound, err := v.lp.OriginalByReceipt(id)
	if err != nil {
		return false, nil
	}
	return strings.TrimSpace(bound) != "", nil
}

// Resolve maps an asset to its canonical identifier: direct members resolve
// to themselves, receipts resolve to their bound original. A failed or
// malformed receipt lookup is a hard error.
func (v *Verifier) Resolve(id types.AssetID) (types.AssetID, error) {
	if v == nil || v.direct == nil {
		return types.AssetID{}, ErrNotEligible
	}
	ok, err := v.direct.Contains(id)
	if err != nil {
		return types.AssetID{}, err
	}
	if ok {
		return id.Copy(), nil
	}
	if v.lp == nil {
		return types.AssetID{}, fmt.Errorf("%w: %s", ErrNotEligible, id)
	}
	bound, err := v.lp.OriginalByReceipt(id)
	if err != nil {
		return types.AssetID{}, fmt.Errorf("%w: %s: %v", ErrResolveUnavailable, id, err)
	}
	original, err := types.ParseAssetID(strings.TrimSpace(bound))
	if err != nil {
		return types.AssetID{}, fmt.Errorf("collection: resolve %s: %w", id, err)
	}
	return original, nil
}
