package state

import (
	"math/big"
	"testing"

	"orbitalvault/core/types"
	"orbitalvault/native/stake"
	"orbitalvault/storage"
)

func newTestManager(t *testing.T) (*Manager, func()) {
	t.Helper()
	db := storage.NewMemDB()
	return NewManager(db), func() { db.Close() }
}

func testOwner(t *testing.T, fill byte) types.Witness {
	t.Helper()
	raw := make([]byte, types.WitnessSize)
	for i := range raw {
		raw[i] = fill
	}
	owner, err := types.WitnessFromBytes(raw)
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	return owner
}

func TestStakeRecordRoundTrip(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	id := types.NewAssetID(2, 7)
	if _, ok, err := mgr.StakeRecordGet(id); err != nil {
		t.Fatalf("get empty record: %v", err)
	} else if ok {
		t.Fatalf("expected no record before write")
	}

	record := stake.NewRecord()
	record.StakedAt.SetUint64(100)
	record.TotalBlocks.SetUint64(40)
	if err := mgr.StakeRecordPut(id, record); err != nil {
		t.Fatalf("put record: %v", err)
	}

	loaded, ok, err := mgr.StakeRecordGet(id)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored record")
	}
	if loaded.StakedAt.Uint64() != 100 || loaded.TotalBlocks.Uint64() != 40 {
		t.Fatalf("unexpected record: %+v", loaded)
	}
	if !loaded.Staked() {
		t.Fatalf("expected record to report staked")
	}

	loaded.StakedAt.SetUint64(999)
	reloaded, _, err := mgr.StakeRecordGet(id)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if reloaded.StakedAt.Uint64() != 100 {
		t.Fatalf("stored record mutated through returned copy")
	}
}

func TestStakeIndexLifecycle(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	owner := testOwner(t, 0xaa)
	first := types.NewAssetID(2, 7)
	second := types.NewAssetID(2, 8)

	list, err := mgr.StakeIndexList(owner)
	if err != nil {
		t.Fatalf("list empty index: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty index, got %d entries", len(list))
	}

	if err := mgr.StakeIndexAppend(owner, first); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := mgr.StakeIndexAppend(owner, second); err != nil {
		t.Fatalf("append second: %v", err)
	}
	if err := mgr.StakeIndexAppend(owner, first); err != nil {
		t.Fatalf("append duplicate: %v", err)
	}

	list, err = mgr.StakeIndexList(owner)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(list) != 2 || !list[0].Equal(first) || !list[1].Equal(second) {
		t.Fatalf("unexpected index contents: %v", list)
	}

	if ok, err := mgr.StakeIndexContains(owner, first); err != nil || !ok {
		t.Fatalf("contains first = %v, %v", ok, err)
	}

	removed, err := mgr.StakeIndexRemove(owner, first)
	if err != nil {
		t.Fatalf("remove first: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal to report true")
	}
	removed, err = mgr.StakeIndexRemove(owner, first)
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if removed {
		t.Fatalf("expected second removal to report false")
	}

	list, err = mgr.StakeIndexList(owner)
	if err != nil {
		t.Fatalf("list after removal: %v", err)
	}
	if len(list) != 1 || !list[0].Equal(second) {
		t.Fatalf("unexpected index after removal: %v", list)
	}
}

func TestReceiptBindingsAndInstances(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	receipt := types.NewAssetID(5, 1)
	original := types.NewAssetID(2, 7)

	if _, ok, err := mgr.ReceiptBindingGet(receipt); err != nil || ok {
		t.Fatalf("binding before write = %v, %v", ok, err)
	}
	if err := mgr.ReceiptBindingPut(receipt, original); err != nil {
		t.Fatalf("put binding: %v", err)
	}
	bound, ok, err := mgr.ReceiptBindingGet(receipt)
	if err != nil || !ok {
		t.Fatalf("get binding = %v, %v", ok, err)
	}
	if !bound.Equal(original) {
		t.Fatalf("unexpected binding: %s", bound)
	}
	if err := mgr.ReceiptBindingClear(receipt); err != nil {
		t.Fatalf("clear binding: %v", err)
	}
	if _, ok, err := mgr.ReceiptBindingGet(receipt); err != nil || ok {
		t.Fatalf("binding after clear = %v, %v", ok, err)
	}

	index := big.NewInt(0)
	if _, ok, err := mgr.ReceiptInstanceGet(index); err != nil || ok {
		t.Fatalf("instance before write = %v, %v", ok, err)
	}
	if err := mgr.ReceiptInstancePut(index, receipt); err != nil {
		t.Fatalf("put instance: %v", err)
	}
	stored, ok, err := mgr.ReceiptInstanceGet(index)
	if err != nil || !ok {
		t.Fatalf("get instance = %v, %v", ok, err)
	}
	if !stored.Equal(receipt) {
		t.Fatalf("unexpected instance: %s", stored)
	}

	count, err := mgr.ReceiptInstanceCount()
	if err != nil {
		t.Fatalf("instance count: %v", err)
	}
	if count.Sign() != 0 {
		t.Fatalf("expected zero count, got %s", count)
	}
	if err := mgr.SetReceiptInstanceCount(big.NewInt(3)); err != nil {
		t.Fatalf("set instance count: %v", err)
	}
	count, err = mgr.ReceiptInstanceCount()
	if err != nil {
		t.Fatalf("reload instance count: %v", err)
	}
	if count.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("unexpected instance count: %s", count)
	}
}

func TestLockScriptArchive(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	owner := testOwner(t, 0x11)
	id := types.NewAssetID(2, 7)
	script := []byte{0x04, 0x70, 0x01, 0x00, 0x00, 0xb1}

	if _, ok, err := mgr.LockScriptGet(owner, id); err != nil || ok {
		t.Fatalf("script before write = %v, %v", ok, err)
	}
	if err := mgr.LockScriptPut(owner, id, script); err != nil {
		t.Fatalf("put script: %v", err)
	}
	stored, ok, err := mgr.LockScriptGet(owner, id)
	if err != nil || !ok {
		t.Fatalf("get script = %v, %v", ok, err)
	}
	if string(stored) != string(script) {
		t.Fatalf("unexpected script: %x", stored)
	}

	other := testOwner(t, 0x22)
	if _, ok, err := mgr.LockScriptGet(other, id); err != nil || ok {
		t.Fatalf("script for other owner = %v, %v", ok, err)
	}
}

func TestStakeCounters(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	for name, pair := range map[string]struct {
		set func(*big.Int) error
		get func() (*big.Int, error)
	}{
		"staked":   {mgr.SetTotalStaked, mgr.TotalStaked},
		"unstaked": {mgr.SetTotalUnstaked, mgr.TotalUnstaked},
		"rewards":  {mgr.SetTotalRewards, mgr.TotalRewards},
	} {
		value, err := pair.get()
		if err != nil {
			t.Fatalf("%s default: %v", name, err)
		}
		if value.Sign() != 0 {
			t.Fatalf("%s: expected zero default, got %s", name, value)
		}
		if err := pair.set(big.NewInt(42)); err != nil {
			t.Fatalf("%s set: %v", name, err)
		}
		value, err = pair.get()
		if err != nil {
			t.Fatalf("%s reload: %v", name, err)
		}
		if value.Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("%s: unexpected value %s", name, value)
		}
		if err := pair.set(big.NewInt(-1)); err == nil {
			t.Fatalf("%s: expected negative value to be rejected", name)
		}
	}
}
