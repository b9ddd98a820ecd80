package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssetIDKeyRoundTrip(t *testing.T) {
	id := AssetID{Block: big.NewInt(2), Tx: new(big.Int).SetUint64(987654321)}
	key, err := id.Key()
	require.NoError(t, err)
	require.Len(t, key, AssetIDSize)
	require.Equal(t, byte(2), key[0], "block half serialises little-endian first")

	decoded, err := AssetIDFromKey(key)
	require.NoError(t, err)
	require.True(t, decoded.Equal(id))
}

func TestAssetIDFromKeyRejectsWrongLength(t *testing.T) {
	_, err := AssetIDFromKey(make([]byte, AssetIDSize-1))
	require.ErrorIs(t, err, ErrInvalidAssetKey)
	_, err = AssetIDFromKey(make([]byte, AssetIDSize+1))
	require.ErrorIs(t, err, ErrInvalidAssetKey)
}

func TestAssetIDKeyRejectsOutOfRange(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := AssetID{Block: tooBig, Tx: big.NewInt(1)}.Key()
	require.ErrorIs(t, err, ErrUint128Range)
	_, err = AssetID{Block: big.NewInt(1), Tx: big.NewInt(-1)}.Key()
	require.ErrorIs(t, err, ErrUint128Range)
}

func TestParseAssetID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  AssetID
		ok    bool
	}{
		{name: "simple", input: "2:57", want: NewAssetID(2, 57), ok: true},
		{name: "zero", input: "0:0", want: NewAssetID(0, 0), ok: true},
		{name: "missing separator", input: "257", ok: false},
		{name: "extra separator", input: "2:5:7", ok: false},
		{name: "empty tx", input: "2:", ok: false},
		{name: "empty block", input: ":7", ok: false},
		{name: "non numeric", input: "a:b", ok: false},
		{name: "negative", input: "-1:5", ok: false},
		{name: "beyond 128 bits", input: "2:340282366920938463463374607431768211456", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAssetID(tc.input)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidAssetText)
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(tc.want))
		})
	}
}

func TestAssetIDStringRoundTrip(t *testing.T) {
	id := NewAssetID(2, 57)
	require.Equal(t, "2:57", id.String())
	parsed, err := ParseAssetID(id.String())
	require.NoError(t, err)
	require.True(t, parsed.Equal(id))
}

func TestAssetIDIsZero(t *testing.T) {
	require.True(t, AssetID{}.IsZero())
	require.True(t, NewAssetID(0, 0).IsZero())
	require.False(t, NewAssetID(0, 1).IsZero())
	require.False(t, NewAssetID(1, 0).IsZero())
}

func TestAssetIDCopyIsDeep(t *testing.T) {
	id := NewAssetID(2, 9)
	dup := id.Copy()
	dup.Tx.SetUint64(10)
	require.Equal(t, uint64(9), id.Tx.Uint64())
}
