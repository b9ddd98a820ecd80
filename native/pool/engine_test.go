package pool

import (
	"errors"
	"math/big"
	"testing"

	"orbitalvault/core/types"
	"orbitalvault/native/collection"
)

type mockState struct {
	slots         map[string]types.AssetID
	depositIndex  *big.Int
	retrieveIndex *big.Int
	balance       *big.Int
	supply        *big.Int
}

func newMockState() *mockState {
	return &mockState{
		slots:         make(map[string]types.AssetID),
		depositIndex:  big.NewInt(0),
		retrieveIndex: big.NewInt(0),
		balance:       big.NewInt(0),
		supply:        big.NewInt(0),
	}
}

func (m *mockState) PoolDepositIndex() (*big.Int, error) { return new(big.Int).Set(m.depositIndex), nil }
func (m *mockState) SetPoolDepositIndex(index *big.Int) error {
	m.depositIndex = new(big.Int).Set(index)
	return nil
}

func (m *mockState) PoolRetrieveIndex() (*big.Int, error) {
	return new(big.Int).Set(m.retrieveIndex), nil
}
func (m *mockState) SetPoolRetrieveIndex(index *big.Int) error {
	m.retrieveIndex = new(big.Int).Set(index)
	return nil
}

func (m *mockState) PoolBalance() (*big.Int, error) { return new(big.Int).Set(m.balance), nil }
func (m *mockState) SetPoolBalance(balance *big.Int) error {
	m.balance = new(big.Int).Set(balance)
	return nil
}

func (m *mockState) PoolSlotGet(index *big.Int) (types.AssetID, bool, error) {
	id, ok := m.slots[index.String()]
	if !ok {
		return types.AssetID{}, false, nil
	}
	return id.Copy(), true, nil
}

func (m *mockState) PoolSlotPut(index *big.Int, id types.AssetID) error {
	m.slots[index.String()] = id.Copy()
	return nil
}

func (m *mockState) PoolSlotClear(index *big.Int) error {
	delete(m.slots, index.String())
	return nil
}

func (m *mockState) IssuedSupply() (*big.Int, error) { return new(big.Int).Set(m.supply), nil }
func (m *mockState) SetIssuedSupply(supply *big.Int) error {
	m.supply = new(big.Int).Set(supply)
	return nil
}

var tokenID = types.NewAssetID(4, 1)

func testVerifier() *collection.Verifier {
	return collection.NewVerifier(collection.NewAllowlist(big.NewInt(2), []*big.Int{
		big.NewInt(7), big.NewInt(8), big.NewInt(9), big.NewInt(10),
	}))
}

func testWitness(fill byte) types.Witness {
	var raw [32]byte
	for i := range raw {
		raw[i] = fill
	}
	w, err := types.WitnessFromBytes(raw[:])
	if err != nil {
		panic(err)
	}
	return w
}

func newTestEngine(t *testing.T, params Params) (*Engine, *mockState) {
	t.Helper()
	engine, err := NewEngine(params)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	state := newMockState()
	engine.SetState(state)
	engine.SetMembership(testVerifier())
	engine.SetIdentity(tokenID)
	return engine, state
}

func fungible(value int64) types.Transfer {
	return types.Transfer{ID: tokenID.Copy(), Value: big.NewInt(value)}
}

func TestDepositAssets(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)
	a, b, c := types.NewAssetID(2, 7), types.NewAssetID(2, 8), types.NewAssetID(2, 9)

	result, err := engine.DepositAssets(caller, []types.Transfer{
		types.NewTransfer(a, 1), types.NewTransfer(b, 1), types.NewTransfer(c, 1),
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if result.FirstSlot.Sign() != 0 || result.Count != 3 || result.Balance.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("unexpected deposit result: %+v", result)
	}
	for i, want := range []types.AssetID{a, b, c} {
		stored, err := engine.SlotAt(big.NewInt(int64(i)))
		if err != nil {
			t.Fatalf("slot %d: %v", i, err)
		}
		if !stored.Equal(want) {
			t.Fatalf("slot %d holds %s, want %s", i, stored, want)
		}
	}
	if index, _ := engine.DepositIndex(); index.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("unexpected deposit index: %s", index)
	}
	if state.retrieveIndex.Sign() != 0 {
		t.Fatalf("deposit moved the retrieve index: %s", state.retrieveIndex)
	}
}

func TestDepositGuards(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)
	member := types.NewAssetID(2, 7)

	if _, err := engine.DepositAssets(caller, nil); !errors.Is(err, ErrNoIncoming) {
		t.Fatalf("expected ErrNoIncoming, got %v", err)
	}
	if _, err := engine.DepositAssets(types.Witness{}, []types.Transfer{types.NewTransfer(member, 1)}); !errors.Is(err, ErrNoCaller) {
		t.Fatalf("expected ErrNoCaller, got %v", err)
	}
	if _, err := engine.DepositAssets(caller, []types.Transfer{types.NewTransfer(member, 2)}); !errors.Is(err, ErrDepositValue) {
		t.Fatalf("expected ErrDepositValue, got %v", err)
	}
	if _, err := engine.DepositAssets(caller, []types.Transfer{types.NewTransfer(types.NewAssetID(3, 1), 1)}); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
	if _, err := engine.DepositAssets(caller, []types.Transfer{
		types.NewTransfer(member, 1), types.NewTransfer(member, 1),
	}); !errors.Is(err, ErrDuplicateAsset) {
		t.Fatalf("expected ErrDuplicateAsset, got %v", err)
	}
	if len(state.slots) != 0 || state.depositIndex.Sign() != 0 || state.balance.Sign() != 0 {
		t.Fatalf("failed deposits mutated state: %+v", state)
	}
}

func TestSwapDispensesFIFOWithChange(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)
	a, b, c := types.NewAssetID(2, 7), types.NewAssetID(2, 8), types.NewAssetID(2, 9)

	state.supply = big.NewInt(75_000)
	if _, err := engine.DepositAssets(caller, []types.Transfer{
		types.NewTransfer(a, 1), types.NewTransfer(b, 1), types.NewTransfer(c, 1),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	result, err := engine.SwapFungibleForAssets(caller, fungible(30_000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if len(result.Dispensed) != 1 || !result.Dispensed[0].ID.Equal(a) {
		t.Fatalf("unexpected dispense: %+v", result.Dispensed)
	}
	if result.Change == nil || result.Change.Value.Cmp(big.NewInt(5_000)) != 0 || !result.Change.ID.Equal(tokenID) {
		t.Fatalf("unexpected change: %+v", result.Change)
	}
	if result.Burned.Cmp(big.NewInt(25_000)) != 0 {
		t.Fatalf("unexpected burn: %s", result.Burned)
	}
	if result.Balance.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("unexpected balance: %s", result.Balance)
	}
	if state.retrieveIndex.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected retrieve index: %s", state.retrieveIndex)
	}
	if state.supply.Cmp(big.NewInt(50_000)) != 0 {
		t.Fatalf("unexpected supply after burn: %s", state.supply)
	}
	if _, err := engine.SlotAt(big.NewInt(0)); !errors.Is(err, ErrEmptySlot) {
		t.Fatalf("expected dispensed slot to read empty, got %v", err)
	}
}

func TestSwapRoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)
	assets := []types.AssetID{types.NewAssetID(2, 7), types.NewAssetID(2, 8), types.NewAssetID(2, 9)}

	incoming := make([]types.Transfer, 0, len(assets))
	for _, id := range assets {
		incoming = append(incoming, types.NewTransfer(id, 1))
	}
	absorb, err := engine.SwapAssetsForFungible(caller, incoming)
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if absorb.Minted.Value.Cmp(big.NewInt(75_000)) != 0 || !absorb.Minted.ID.Equal(tokenID) {
		t.Fatalf("unexpected mint: %+v", absorb.Minted)
	}

	result, err := engine.SwapFungibleForAssets(caller, fungible(75_000))
	if err != nil {
		t.Fatalf("swap back: %v", err)
	}
	if len(result.Dispensed) != len(assets) {
		t.Fatalf("expected %d assets back, got %d", len(assets), len(result.Dispensed))
	}
	for i, id := range assets {
		if !result.Dispensed[i].ID.Equal(id) {
			t.Fatalf("position %d: got %s, want %s", i, result.Dispensed[i].ID, id)
		}
	}
	if result.Change != nil {
		t.Fatalf("expected no change on exact swap, got %+v", result.Change)
	}
	if result.Balance.Sign() != 0 {
		t.Fatalf("expected empty pool, got balance %s", result.Balance)
	}
}

func TestSwapScanSkipsTombstones(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)
	a, b, c, d := types.NewAssetID(2, 7), types.NewAssetID(2, 8), types.NewAssetID(2, 9), types.NewAssetID(2, 10)

	state.supply = big.NewInt(100_000)
	if _, err := engine.DepositAssets(caller, []types.Transfer{
		types.NewTransfer(a, 1), types.NewTransfer(b, 1), types.NewTransfer(c, 1),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.SwapFungibleForAssets(caller, fungible(25_000)); err != nil {
		t.Fatalf("first swap: %v", err)
	}
	if _, err := engine.DepositAssets(caller, []types.Transfer{types.NewTransfer(d, 1)}); err != nil {
		t.Fatalf("second deposit: %v", err)
	}

	result, err := engine.SwapFungibleForAssets(caller, fungible(50_000))
	if err != nil {
		t.Fatalf("second swap: %v", err)
	}
	if len(result.Dispensed) != 2 || !result.Dispensed[0].ID.Equal(b) || !result.Dispensed[1].ID.Equal(c) {
		t.Fatalf("unexpected dispense order: %+v", result.Dispensed)
	}
	if state.retrieveIndex.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("unexpected retrieve index: %s", state.retrieveIndex)
	}

	result, err = engine.SwapFungibleForAssets(caller, fungible(25_000))
	if err != nil {
		t.Fatalf("third swap: %v", err)
	}
	if len(result.Dispensed) != 1 || !result.Dispensed[0].ID.Equal(d) {
		t.Fatalf("expected %s from slot 3, got %+v", d, result.Dispensed)
	}
	if state.balance.Sign() != 0 {
		t.Fatalf("expected empty pool, got %s", state.balance)
	}
}

func TestSwapFungibleGuards(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)

	state.supply = big.NewInt(100_000)
	if _, err := engine.DepositAssets(caller, []types.Transfer{types.NewTransfer(types.NewAssetID(2, 7), 1)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := engine.SwapFungibleForAssets(caller, types.NewTransfer(types.NewAssetID(9, 9), 25_000)); !errors.Is(err, ErrForeignToken) {
		t.Fatalf("expected ErrForeignToken, got %v", err)
	}
	if _, err := engine.SwapFungibleForAssets(caller, fungible(20_000)); !errors.Is(err, ErrBelowRate) {
		t.Fatalf("expected ErrBelowRate, got %v", err)
	}
	if _, err := engine.SwapFungibleForAssets(caller, types.Transfer{ID: tokenID.Copy()}); !errors.Is(err, ErrBelowRate) {
		t.Fatalf("expected ErrBelowRate for missing value, got %v", err)
	}
	if _, err := engine.SwapFungibleForAssets(caller, fungible(50_000)); !errors.Is(err, ErrInsufficientStored) {
		t.Fatalf("expected ErrInsufficientStored, got %v", err)
	}
	if state.balance.Cmp(big.NewInt(1)) != 0 || len(state.slots) != 1 {
		t.Fatalf("failed swaps mutated inventory: %+v", state)
	}
}

func TestSwapShortScanStillAdvancesIndex(t *testing.T) {
	engine, state := newTestEngine(t, DefaultParams())
	caller := testWitness(0xAA)

	state.supply = big.NewInt(50_000)
	if _, err := engine.DepositAssets(caller, []types.Transfer{types.NewTransfer(types.NewAssetID(2, 7), 1)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	// Inconsistent state: the balance claims an asset the arena lost.
	delete(state.slots, "0")

	_, err := engine.SwapFungibleForAssets(caller, fungible(25_000))
	if !errors.Is(err, ErrInsufficientStored) {
		t.Fatalf("expected ErrInsufficientStored, got %v", err)
	}
	// The scan persists its advance and the burn eagerly; discarding them on
	// failure is the host's overlay, not the engine.
	if state.retrieveIndex.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected retrieve index 1 after failed scan, got %s", state.retrieveIndex)
	}
	if state.supply.Cmp(big.NewInt(25_000)) != 0 {
		t.Fatalf("expected eager burn to persist, got %s", state.supply)
	}
}

func TestAbsorbSupplyCap(t *testing.T) {
	params := DefaultParams()
	params.MaxSupply = big.NewInt(40_000)
	engine, state := newTestEngine(t, params)
	caller := testWitness(0xAA)

	_, err := engine.SwapAssetsForFungible(caller, []types.Transfer{
		types.NewTransfer(types.NewAssetID(2, 7), 1), types.NewTransfer(types.NewAssetID(2, 8), 1),
	})
	if !errors.Is(err, ErrSupplyCap) {
		t.Fatalf("expected ErrSupplyCap, got %v", err)
	}
	if len(state.slots) != 0 || state.depositIndex.Sign() != 0 || state.supply.Sign() != 0 {
		t.Fatalf("rejected absorb mutated state: %+v", state)
	}

	result, err := engine.SwapAssetsForFungible(caller, []types.Transfer{types.NewTransfer(types.NewAssetID(2, 7), 1)})
	if err != nil {
		t.Fatalf("absorb under cap: %v", err)
	}
	if result.Minted.Value.Cmp(big.NewInt(25_000)) != 0 || result.Balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unexpected absorb result: %+v", result)
	}
}
