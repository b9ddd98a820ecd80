package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func maxUint128() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	return max.Sub(max, big.NewInt(1))
}

func TestUint128RoundTrip(t *testing.T) {
	for _, v := range []*big.Int{big.NewInt(0), big.NewInt(1), big.NewInt(25000), maxUint128()} {
		buf, err := Uint128ToLE(v)
		require.NoError(t, err)
		require.Len(t, buf, Uint128Size)
		back, err := Uint128FromLE(buf)
		require.NoError(t, err)
		require.Zero(t, back.Cmp(v))
	}
}

func TestUint128LittleEndianLayout(t *testing.T) {
	buf, err := Uint128ToLE(big.NewInt(0x0102))
	require.NoError(t, err)
	require.Equal(t, byte(0x02), buf[0])
	require.Equal(t, byte(0x01), buf[1])
	for _, b := range buf[2:] {
		require.Zero(t, b)
	}
}

func TestUint128ToLENilIsZero(t *testing.T) {
	buf, err := Uint128ToLE(nil)
	require.NoError(t, err)
	back, err := Uint128FromLE(buf)
	require.NoError(t, err)
	require.Zero(t, back.Sign())
}

func TestUint128FromLERejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 32} {
		_, err := Uint128FromLE(make([]byte, n))
		require.ErrorIs(t, err, ErrUint128Length, "length %d", n)
	}
}

func TestUint128ToLERejectsOutOfRange(t *testing.T) {
	_, err := Uint128ToLE(big.NewInt(-1))
	require.ErrorIs(t, err, ErrUint128Range)
	_, err = Uint128ToLE(new(big.Int).Add(maxUint128(), big.NewInt(1)))
	require.ErrorIs(t, err, ErrUint128Range)
}

func TestCheckedAdd(t *testing.T) {
	sum, err := CheckedAdd(big.NewInt(40), big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(42), sum.Int64())

	_, err = CheckedAdd(maxUint128(), big.NewInt(1))
	require.ErrorIs(t, err, ErrUint128Overflow)
}

func TestCheckedAddNilOperands(t *testing.T) {
	sum, err := CheckedAdd(nil, big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), sum.Int64())
}

func TestCheckedSub(t *testing.T) {
	diff, err := CheckedSub(big.NewInt(50), big.NewInt(8))
	require.NoError(t, err)
	require.Equal(t, int64(42), diff.Int64())

	_, err = CheckedSub(big.NewInt(1), big.NewInt(2))
	require.ErrorIs(t, err, ErrUint128Underflow)
}

func TestSaturatingSub(t *testing.T) {
	require.Equal(t, int64(2), SaturatingSub(big.NewInt(7), big.NewInt(5)).Int64())
	require.Zero(t, SaturatingSub(big.NewInt(5), big.NewInt(7)).Sign())
	require.Zero(t, SaturatingSub(nil, big.NewInt(1)).Sign())
}
