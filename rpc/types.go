package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"orbitalvault/core"
	"orbitalvault/core/types"
	"orbitalvault/native/stake"
)

// transferParam names one attached transfer: the asset in "block:tx" form and
// a decimal value.
type transferParam struct {
	Asset string `json:"asset"`
	Value string `json:"value"`
}

// callParams is the common shape of every mutating call: who calls, at what
// height, with which transfers attached.
type callParams struct {
	Caller    string          `json:"caller"`
	Height    uint64          `json:"height"`
	Transfers []transferParam `json:"transfers,omitempty"`
	Fuel      uint64          `json:"fuel,omitempty"`
}

func (p callParams) callContext() (core.CallContext, error) {
	caller, err := parseWitness(p.Caller)
	if err != nil {
		return core.CallContext{}, err
	}
	incoming, err := parseTransfers(p.Transfers)
	if err != nil {
		return core.CallContext{}, err
	}
	return core.CallContext{Caller: caller, Height: p.Height, Incoming: incoming, Fuel: p.Fuel}, nil
}

type stakeParams struct {
	callParams
	LockHeight *uint64 `json:"lockHeight,omitempty"`
	LockScript string  `json:"lockScript,omitempty"`
}

func (p stakeParams) lockProof() (*stake.LockProof, error) {
	if p.LockHeight == nil && p.LockScript == "" {
		return nil, nil
	}
	proof := &stake.LockProof{}
	if p.LockHeight != nil {
		proof.LockHeight = *p.LockHeight
	}
	if p.LockScript != "" {
		script, err := hex.DecodeString(strings.TrimPrefix(p.LockScript, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid lockScript: %w", err)
		}
		proof.Script = script
	}
	return proof, nil
}

type unstakeParams struct {
	callParams
	Asset string `json:"asset"`
}

type claimParams struct {
	callParams
	Assets []string `json:"assets"`
}

type assetParams struct {
	Asset string `json:"asset"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

type lockScriptParams struct {
	Owner string `json:"owner"`
	Asset string `json:"asset"`
}

type receiptParams struct {
	Receipt string `json:"receipt"`
}

type availableParams struct {
	Asset  string `json:"asset"`
	Height uint64 `json:"height"`
}

type slotParams struct {
	Index string `json:"index"`
}

type queryParams struct {
	Opcode uint64   `json:"opcode"`
	Inputs []string `json:"inputs,omitempty"`
}

// TransferResult mirrors transferParam on the way out.
type TransferResult struct {
	Asset string `json:"asset"`
	Value string `json:"value"`
}

// StakeResult reports one locked asset.
type StakeResult struct {
	Asset      string          `json:"asset"`
	StakedAt   uint64          `json:"stakedAt"`
	Receipt    *TransferResult `json:"receipt,omitempty"`
	LockBlocks string          `json:"lockBlocks,omitempty"`
}

// UnstakeResult reports a released asset and its accounting.
type UnstakeResult struct {
	Asset        string         `json:"asset"`
	Returned     TransferResult `json:"returned"`
	PeriodBlocks string         `json:"periodBlocks"`
	TotalBlocks  string         `json:"totalBlocks"`
}

// ClaimEntry is one asset's share of a batch claim.
type ClaimEntry struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// ClaimResult reports a committed batch claim.
type ClaimResult struct {
	Claims []ClaimEntry `json:"claims"`
	Minted string       `json:"minted"`
}

// SupplyResult summarises the fungible token.
type SupplyResult struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Issued       string `json:"issued"`
	MaxSupply    string `json:"maxSupply"`
	ClaimCap     string `json:"claimCap"`
	ExchangeRate string `json:"exchangeRate"`
}

// EligibilityResult answers a collection membership probe.
type EligibilityResult struct {
	Asset    string `json:"asset"`
	Eligible bool   `json:"eligible"`
}

// AssetValueResult maps one asset to one numeric ledger fact.
type AssetValueResult struct {
	Asset string `json:"asset"`
	Value string `json:"value"`
}

// StakedIDsResult lists an owner's live stakes.
type StakedIDsResult struct {
	Owner  string   `json:"owner"`
	Assets []string `json:"assets"`
}

// LockScriptResult carries an archived locking script as hex.
type LockScriptResult struct {
	Asset  string `json:"asset"`
	Script string `json:"script"`
}

// ReceiptLookupResult resolves a receipt back to the asset it stands in for.
type ReceiptLookupResult struct {
	Receipt  string `json:"receipt"`
	Original string `json:"original"`
}

// TotalsResult reports the lifetime stake counters.
type TotalsResult struct {
	Staked           string `json:"staked"`
	Unstaked         string `json:"unstaked"`
	Rewards          string `json:"rewards"`
	ReceiptInstances string `json:"receiptInstances"`
}

// ClaimTotalsResult reports the reward ledger aggregates.
type ClaimTotalsResult struct {
	Claimed   string `json:"claimed"`
	Available string `json:"available"`
}

// DepositResult reports assets stored in the pool.
type DepositResult struct {
	FirstSlot string `json:"firstSlot"`
	Count     int    `json:"count"`
	Balance   string `json:"balance"`
}

// DispenseResult reports a fungible-for-assets swap.
type DispenseResult struct {
	Dispensed []TransferResult `json:"dispensed"`
	Change    *TransferResult  `json:"change,omitempty"`
	Burned    string           `json:"burned"`
	Balance   string           `json:"balance"`
}

// AbsorbResult reports an assets-for-fungible swap.
type AbsorbResult struct {
	Minted    TransferResult `json:"minted"`
	FirstSlot string         `json:"firstSlot"`
	Count     int            `json:"count"`
	Balance   string         `json:"balance"`
}

// PoolStateResult snapshots the swap pool counters.
type PoolStateResult struct {
	Balance       string `json:"balance"`
	DepositIndex  string `json:"depositIndex"`
	RetrieveIndex string `json:"retrieveIndex"`
}

// PoolSlotResult names the asset stored at one slot.
type PoolSlotResult struct {
	Index string `json:"index"`
	Asset string `json:"asset"`
}

// QueryResult carries a raw opcode reply as hex.
type QueryResult struct {
	Reply string `json:"reply"`
}

func parseWitness(raw string) (types.Witness, error) {
	witness, err := types.ParseWitness(strings.TrimSpace(raw))
	if err != nil {
		return types.Witness{}, fmt.Errorf("invalid witness: %w", err)
	}
	return witness, nil
}

func parseAsset(raw string) (types.AssetID, error) {
	id, err := types.ParseAssetID(strings.TrimSpace(raw))
	if err != nil {
		return types.AssetID{}, fmt.Errorf("invalid asset: %w", err)
	}
	return id, nil
}

func parseAssets(raw []string) ([]types.AssetID, error) {
	ids := make([]types.AssetID, len(raw))
	for i, entry := range raw {
		id, err := parseAsset(entry)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("value required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal value %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("value must not be negative")
	}
	return value, nil
}

func parseTransfers(params []transferParam) ([]types.Transfer, error) {
	if len(params) == 0 {
		return nil, nil
	}
	transfers := make([]types.Transfer, len(params))
	for i, param := range params {
		id, err := parseAsset(param.Asset)
		if err != nil {
			return nil, err
		}
		value, err := parseAmount(param.Value)
		if err != nil {
			return nil, fmt.Errorf("transfer %s: %w", id.String(), err)
		}
		transfers[i] = types.Transfer{ID: id, Value: value}
	}
	return transfers, nil
}

func parseInputs(raw []string) ([]*big.Int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	inputs := make([]*big.Int, len(raw))
	for i, entry := range raw {
		value, err := parseAmount(entry)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		inputs[i] = value
	}
	return inputs, nil
}

// decimalString formats a big integer as base-10, nil reading as zero.
func decimalString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatTransfer(t types.Transfer) TransferResult {
	return TransferResult{Asset: t.ID.String(), Value: decimalString(t.Value)}
}

func formatAssets(ids []types.AssetID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func formatStakeResult(res stake.StakeResult) StakeResult {
	out := StakeResult{Asset: res.Asset.String(), StakedAt: res.StakedAt}
	if res.Receipt != nil {
		receipt := formatTransfer(*res.Receipt)
		out.Receipt = &receipt
	}
	if res.LockBlocks != nil {
		out.LockBlocks = res.LockBlocks.String()
	}
	return out
}

func formatUnstakeResult(res *stake.UnstakeResult) UnstakeResult {
	return UnstakeResult{
		Asset:        res.Asset.String(),
		Returned:     formatTransfer(res.Returned),
		PeriodBlocks: decimalString(res.PeriodBlocks),
		TotalBlocks:  decimalString(res.TotalBlocks),
	}
}
