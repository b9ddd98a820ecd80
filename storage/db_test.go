package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBMissReturnsNotFound(t *testing.T) {
	db := NewMemDB()
	_, err := db.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
	require.Equal(t, 1, db.Len())
}

func TestLevelDBRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	db, err := NewLevelDB(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestOverlayBuffersUntilFlush(t *testing.T) {
	base := NewMemDB()
	overlay := NewOverlay(base)

	require.NoError(t, overlay.Put([]byte("k"), []byte("v")))
	got, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	_, err = base.Get([]byte("k"))
	require.ErrorIs(t, err, ErrNotFound, "base untouched before flush")

	require.NoError(t, overlay.Flush())
	got, err = base.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
	require.Zero(t, overlay.Pending())
}

func TestOverlayDiscard(t *testing.T) {
	base := NewMemDB()
	require.NoError(t, base.Put([]byte("k"), []byte("old")))

	overlay := NewOverlay(base)
	require.NoError(t, overlay.Put([]byte("k"), []byte("new")))
	overlay.Discard()

	got, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)
	require.Equal(t, 1, base.Len(), "base still holds exactly the seeded key")
}

func TestOverlayReadsThroughToBase(t *testing.T) {
	base := NewMemDB()
	require.NoError(t, base.Put([]byte("k"), []byte("v")))
	overlay := NewOverlay(base)
	got, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}
