package events

import (
	"bytes"
	"math/big"
	"testing"

	"orbitalvault/core/types"
)

func testWitness(t *testing.T) types.Witness {
	t.Helper()
	owner, err := types.WitnessFromBytes(bytes.Repeat([]byte{0xAB}, types.WitnessSize))
	if err != nil {
		t.Fatalf("build witness: %v", err)
	}
	return owner
}

func TestStakeLockedAttributes(t *testing.T) {
	owner := testWitness(t)
	receipt := types.NewAssetID(9, 3)
	evt := StakeLocked{
		Owner:      owner,
		Asset:      types.NewAssetID(2, 7),
		Height:     100,
		Receipt:    &receipt,
		LockBlocks: big.NewInt(30),
	}.Event()

	if evt.Type != TypeStakeLocked {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	attrs := evt.Attributes
	if attrs["owner"] != owner.String() {
		t.Fatalf("unexpected owner: %s", attrs["owner"])
	}
	if attrs["asset"] != "2:7" || attrs["height"] != "100" {
		t.Fatalf("unexpected asset/height: %s %s", attrs["asset"], attrs["height"])
	}
	if attrs["receipt"] != "9:3" || attrs["lockBlocks"] != "30" {
		t.Fatalf("unexpected receipt/lockBlocks: %s %s", attrs["receipt"], attrs["lockBlocks"])
	}
}

func TestStakeLockedOmitsOptionalAttributes(t *testing.T) {
	evt := StakeLocked{Owner: testWitness(t), Asset: types.NewAssetID(2, 7), Height: 5}.Event()
	if _, ok := evt.Attributes["receipt"]; ok {
		t.Fatalf("receipt must be omitted when nil")
	}
	if _, ok := evt.Attributes["lockBlocks"]; ok {
		t.Fatalf("lockBlocks must be omitted when nil")
	}
}

func TestLedgerEventAmountAttributes(t *testing.T) {
	owner := testWitness(t)

	claimed := RewardsClaimed{Owner: owner, Assets: 2, Minted: big.NewInt(120), Height: 160}.Event()
	if claimed.Attributes["assets"] != "2" || claimed.Attributes["minted"] != "120" {
		t.Fatalf("unexpected claim attrs: %+v", claimed.Attributes)
	}

	capHit := SupplyCapHit{Requested: big.NewInt(700), Issued: big.NewInt(500), Cap: big.NewInt(1000)}.Event()
	if capHit.Attributes["requested"] != "700" || capHit.Attributes["issued"] != "500" || capHit.Attributes["cap"] != "1000" {
		t.Fatalf("unexpected cap attrs: %+v", capHit.Attributes)
	}

	dispensed := PoolDispensed{Owner: owner, Assets: 1, Burned: big.NewInt(10), Remainder: nil, Balance: big.NewInt(3)}.Event()
	if dispensed.Attributes["burned"] != "10" || dispensed.Attributes["balance"] != "3" {
		t.Fatalf("unexpected dispense attrs: %+v", dispensed.Attributes)
	}
	if dispensed.Attributes["remainder"] != "0" {
		t.Fatalf("nil amounts must render as 0, got %s", dispensed.Attributes["remainder"])
	}

	absorbed := PoolAbsorbed{Owner: owner, Assets: 1, Minted: big.NewInt(10), Balance: big.NewInt(4)}.Event()
	if absorbed.Attributes["minted"] != "10" || absorbed.Attributes["balance"] != "4" {
		t.Fatalf("unexpected absorb attrs: %+v", absorbed.Attributes)
	}
}

func TestFanoutSkipsNilChildren(t *testing.T) {
	var got []string
	sink := emitterFunc(func(evt Event) { got = append(got, evt.EventType()) })
	fan := Fanout{nil, sink, nil}

	fan.Emit(StakeLocked{Owner: testWitness(t), Asset: types.NewAssetID(2, 7)})
	if len(got) != 1 || got[0] != TypeStakeLocked {
		t.Fatalf("unexpected fanout delivery: %v", got)
	}
}

type emitterFunc func(Event)

func (f emitterFunc) Emit(evt Event) { f(evt) }
