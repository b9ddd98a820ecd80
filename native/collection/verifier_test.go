package collection

import (
	"errors"
	"math/big"
	"testing"

	"orbitalvault/core/types"
)

type stubQuerier struct {
	data map[string][]byte
	err  error
}

func (s *stubQuerier) StaticCall(target types.AssetID, opcode uint64, inputs []*big.Int, fuel uint64) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(inputs) != 2 {
		return nil, errors.New("unexpected input count")
	}
	id := types.AssetID{Block: inputs[0], Tx: inputs[1]}
	data, ok := s.data[id.String()]
	if !ok {
		return nil, errors.New("no canned reply")
	}
	return data, nil
}

func TestAllowlistContains(t *testing.T) {
	list := NewAllowlist(big.NewInt(2), []*big.Int{big.NewInt(7), big.NewInt(9)})

	ok, err := list.Contains(types.NewAssetID(2, 7))
	if err != nil || !ok {
		t.Fatalf("expected member, got ok=%v err=%v", ok, err)
	}
	ok, err = list.Contains(types.NewAssetID(2, 8))
	if err != nil || ok {
		t.Fatalf("sequence outside the member set should not match, got ok=%v err=%v", ok, err)
	}
	ok, err = list.Contains(types.NewAssetID(3, 7))
	if err != nil || ok {
		t.Fatalf("wrong collection block should not match, got ok=%v err=%v", ok, err)
	}
	if got := list.Size(); got != 2 {
		t.Fatalf("expected 2 members, got %d", got)
	}
}

func TestLedgerMembershipDegrades(t *testing.T) {
	ledger := types.NewAssetID(4, 1)
	member := types.NewAssetID(2, 7)

	one, err := types.Uint128ToLE(big.NewInt(1))
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
	querier := &stubQuerier{data: map[string][]byte{member.String(): one}}

	remote := NewLedgerMembership(querier, ledger, 506, 0)
	ok, err := remote.Contains(member)
	if err != nil || !ok {
		t.Fatalf("expected member, got ok=%v err=%v", ok, err)
	}

	ok, err = remote.Contains(types.NewAssetID(2, 8))
	if err != nil || ok {
		t.Fatalf("query failure must degrade to non-member, got ok=%v err=%v", ok, err)
	}

	querier.data[member.String()] = []byte{1}
	ok, err = remote.Contains(member)
	if err != nil || ok {
		t.Fatalf("short reply must degrade to non-member, got ok=%v err=%v", ok, err)
	}
}

func TestVerifierResolveDirectMember(t *testing.T) {
	verifier := NewVerifier(NewAllowlist(big.NewInt(2), []*big.Int{big.NewInt(7)}))

	id := types.NewAssetID(2, 7)
	ok, err := verifier.IsEligible(id)
	if err != nil || !ok {
		t.Fatalf("expected eligible, got ok=%v err=%v", ok, err)
	}

	resolved, err := verifier.Resolve(id)
	if err != nil {
		t.Fatalf("resolve member: %v", err)
	}
	if !resolved.Equal(id) {
		t.Fatalf("member must resolve to itself, got %s", resolved)
	}

	if _, err := verifier.Resolve(types.NewAssetID(2, 8)); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestVerifierResolveThroughReceipt(t *testing.T) {
	ledger := types.NewAssetID(4, 1)
	receipt := types.NewAssetID(5, 11)

	querier := &stubQuerier{data: map[string][]byte{
		receipt.String(): []byte("2:7"),
	}}
	verifier := NewVerifier(NewAllowlist(big.NewInt(2), []*big.Int{big.NewInt(7)}))
	verifier.SetLPSource(NewLedgerLP(querier, ledger, 508, 0))

	ok, err := verifier.IsEligible(receipt)
	if err != nil || !ok {
		t.Fatalf("bound receipt must be eligible, got ok=%v err=%v", ok, err)
	}

	resolved, err := verifier.Resolve(receipt)
	if err != nil {
		t.Fatalf("resolve receipt: %v", err)
	}
	if !resolved.Equal(types.NewAssetID(2, 7)) {
		t.Fatalf("receipt must resolve to its original, got %s", resolved)
	}
}

func TestVerifierResolveHardErrors(t *testing.T) {
	ledger := types.NewAssetID(4, 1)
	receipt := types.NewAssetID(5, 11)
	verifier := NewVerifier(NewAllowlist(big.NewInt(2), nil))

	failing := &stubQuerier{err: errors.New("ledger offline")}
	verifier.SetLPSource(NewLedgerLP(failing, ledger, 508, 0))

	ok, err := verifier.IsEligible(receipt)
	if err != nil || ok {
		t.Fatalf("eligibility must degrade when the ledger is offline, got ok=%v err=%v", ok, err)
	}
	if _, err := verifier.Resolve(receipt); !errors.Is(err, ErrResolveUnavailable) {
		t.Fatalf("expected ErrResolveUnavailable, got %v", err)
	}

	malformed := &stubQuerier{data: map[string][]byte{receipt.String(): []byte("2:7:9")}}
	verifier.SetLPSource(NewLedgerLP(malformed, ledger, 508, 0))
	if _, err := verifier.Resolve(receipt); !errors.Is(err, types.ErrInvalidAssetText) {
		t.Fatalf("expected ErrInvalidAssetText, got %v", err)
	}
}
