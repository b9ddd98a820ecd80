package state

import (
	"math/big"
	"testing"

	"orbitalvault/core/types"
)

func TestTokenMetaRoundTrip(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	meta, err := mgr.TokenMetaGet()
	if err != nil {
		t.Fatalf("get empty meta: %v", err)
	}
	if meta.Name != "" || meta.Symbol != "" {
		t.Fatalf("expected empty meta, got %+v", meta)
	}

	if err := mgr.TokenMetaPut(TokenMetadata{Name: "Orbital Fuel", Symbol: "FUEL"}); err != nil {
		t.Fatalf("put meta: %v", err)
	}
	meta, err = mgr.TokenMetaGet()
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Name != "Orbital Fuel" || meta.Symbol != "FUEL" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestInitializedFlag(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	ok, err := mgr.Initialized()
	if err != nil {
		t.Fatalf("initialized probe: %v", err)
	}
	if ok {
		t.Fatalf("expected fresh store to be uninitialised")
	}
	if err := mgr.SetInitialized(); err != nil {
		t.Fatalf("set initialized: %v", err)
	}
	ok, err = mgr.Initialized()
	if err != nil {
		t.Fatalf("initialized reload: %v", err)
	}
	if !ok {
		t.Fatalf("expected initialised flag to persist")
	}
}

func TestClaimAccounting(t *testing.T) {
	mgr, done := newTestManager(t)
	defer done()

	id := types.NewAssetID(2, 7)
	claimed, err := mgr.ClaimedAmount(id)
	if err != nil {
		t.Fatalf("claimed default: %v", err)
	}
	if claimed.Sign() != 0 {
		t.Fatalf("expected zero claimed, got %s", claimed)
	}

	if err := mgr.SetClaimedAmount(id, big.NewInt(50)); err != nil {
		t.Fatalf("set claimed: %v", err)
	}
	claimed, err = mgr.ClaimedAmount(id)
	if err != nil {
		t.Fatalf("claimed reload: %v", err)
	}
	if claimed.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected claimed: %s", claimed)
	}

	other, err := mgr.ClaimedAmount(types.NewAssetID(2, 8))
	if err != nil {
		t.Fatalf("claimed other asset: %v", err)
	}
	if other.Sign() != 0 {
		t.Fatalf("claim record leaked across assets: %s", other)
	}

	if err := mgr.SetTotalClaimed(big.NewInt(50)); err != nil {
		t.Fatalf("set total claimed: %v", err)
	}
	total, err := mgr.TotalClaimed()
	if err != nil {
		t.Fatalf("total claimed: %v", err)
	}
	if total.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected total claimed: %s", total)
	}

	if err := mgr.SetIssuedSupply(big.NewInt(50)); err != nil {
		t.Fatalf("set supply: %v", err)
	}
	supply, err := mgr.IssuedSupply()
	if err != nil {
		t.Fatalf("issued supply: %v", err)
	}
	if supply.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected supply: %s", supply)
	}
}
