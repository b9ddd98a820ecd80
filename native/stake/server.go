package stake

import (
	"fmt"
	"math/big"

	"orbitalvault/core/types"
)

// QueryServer exposes the ledger's read-only opcode surface. Per-asset
// opcodes take the asset limbs as inputs, address opcodes take the witness
// halves low-first. Numeric replies are exactly 16 little-endian bytes so
// remote consumers can apply the fixed-width decode rule.
type QueryServer struct {
	engine   *Engine
	name     string
	symbol   string
	identity types.AssetID
}

// NewQueryServer wraps an engine for opcode dispatch.
func NewQueryServer(engine *Engine) *QueryServer {
	return &QueryServer{engine: engine}
}

// SetTokenMeta configures the name and symbol served by opcodes 99 and 100.
func (s *QueryServer) SetTokenMeta(name, symbol string) {
	s.name = name
	s.symbol = symbol
}

// SetIdentity configures the ledger's own asset identifier served by
// opcode 998.
func (s *QueryServer) SetIdentity(id types.AssetID) {
	s.identity = id.Copy()
}

// Serve dispatches one read-only opcode.
func (s *QueryServer) Serve(opcode uint64, inputs []*big.Int) ([]byte, error) {
	if s == nil || s.engine == nil {
		return nil, errNilState
	}
	switch opcode {
	case OpGetName:
		return []byte(s.name), nil
	case OpGetSymbol:
		return []byte(s.symbol), nil
	case OpGetReceiptSupply, OpGetReceiptsMinted:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		count, err := s.engine.ReceiptInstances()
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(count)
	case OpGetReceiptCap:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		return types.Uint128ToLE(new(big.Int).SetUint64(s.engine.Policy().Receipts.MaxInstances))
	case OpGetStakedIDs:
		if err := wantInputs(opcode, inputs, 2); err != nil {
			return nil, err
		}
		owner, err := witnessArg(inputs)
		if err != nil {
			return nil, err
		}
		ids, err := s.engine.StakedIDs(owner)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("stake: no staked ids for %s", owner)
		}
		out := make([]byte, 0, len(ids)*types.AssetIDSize)
		for _, id := range ids {
			key, err := id.Key()
			if err != nil {
				return nil, err
			}
			out = append(out, key...)
		}
		return out, nil
	case OpGetStakeRewards, OpGetTotalStakedBlocks:
		id, err := assetArg(opcode, inputs)
		if err != nil {
			return nil, err
		}
		blocks, err := s.engine.TotalStakedBlocks(id)
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(blocks)
	case OpGetLockScript:
		if err := wantInputs(opcode, inputs, 4); err != nil {
			return nil, err
		}
		owner, err := witnessArg(inputs[:2])
		if err != nil {
			return nil, err
		}
		id, err := assetArg(opcode, inputs[2:])
		if err != nil {
			return nil, err
		}
		return s.engine.LockScript(owner, id)
	case OpGetTotalStakedAlt, OpGetTotalStaked:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		total, err := s.engine.TotalStaked()
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(total)
	case OpGetTotalRewards:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		total, err := s.engine.TotalRewards()
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(total)
	case OpGetEligibility:
		id, err := assetArg(opcode, inputs)
		if err != nil {
			return nil, err
		}
		eligible, err := s.engine.Eligibility(id)
		if err != nil {
			return nil, err
		}
		value := big.NewInt(0)
		if eligible {
			value = big.NewInt(1)
		}
		return types.Uint128ToLE(value)
	case OpGetStakedHeight:
		id, err := assetArg(opcode, inputs)
		if err != nil {
			return nil, err
		}
		height, err := s.engine.StakedHeight(id)
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(height)
	case OpGetStakedByReceipt:
		id, err := assetArg(opcode, inputs)
		if err != nil {
			return nil, err
		}
		original, err := s.engine.OriginalByReceipt(id)
		if err != nil {
			return nil, err
		}
		return []byte(original.String()), nil
	case OpGetUnstakeHeight:
		id, err := assetArg(opcode, inputs)
		if err != nil {
			return nil, err
		}
		height, err := s.engine.UnstakeHeight(id)
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(height)
	case OpGetTotalUnstaked:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		total, err := s.engine.TotalUnstaked()
		if err != nil {
			return nil, err
		}
		return types.Uint128ToLE(total)
	case OpGetIdentifier:
		if err := wantInputs(opcode, inputs, 0); err != nil {
			return nil, err
		}
		return []byte(s.identity.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOpcode, opcode)
	}
}

func wantInputs(opcode uint64, inputs []*big.Int, n int) error {
	if len(inputs) != n {
		return fmt.Errorf("stake: opcode %d expects %d inputs, got %d", opcode, n, len(inputs))
	}
	return nil
}

func assetArg(opcode uint64, inputs []*big.Int) (types.AssetID, error) {
	if err := wantInputs(opcode, inputs, 2); err != nil {
		return types.AssetID{}, err
	}
	id := types.AssetID{Block: dupBig(inputs[0]), Tx: dupBig(inputs[1])}
	if _, err := id.Key(); err != nil {
		return types.AssetID{}, fmt.Errorf("stake: opcode %d: %w", opcode, err)
	}
	return id, nil
}

func witnessArg(inputs []*big.Int) (types.Witness, error) {
	// Address inputs arrive low half first.
	return types.WitnessFromLimbs(dupBig(inputs[1]), dupBig(inputs[0]))
}

func dupBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
