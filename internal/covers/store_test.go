package covers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "covers")

	store, err := NewStore(dir, "/media/covers")
	require.NoError(t, err)

	assert.Equal(t, dir, store.Dir())
	_, err = os.Stat(dir)
	assert.NoError(t, err, "covers directory was not created")
	assert.Equal(t, "/media/covers/amazon_1.jpg", store.URL("amazon_1.jpg"))
}

func TestStore_SaveAndRemove(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/media/covers/")
	require.NoError(t, err)

	name, err := store.Save("link_1700000000.jpg", []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "link_1700000000.jpg", name)
	path := store.Path(name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	require.NoError(t, store.Remove("link_1700000000.jpg"))
	require.NoError(t, store.Remove("link_1700000000.jpg"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_SaveRejectsPaths(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/media/covers/")
	require.NoError(t, err)

	_, err = store.Save("../escape.jpg", []byte("x"))
	assert.Error(t, err)
	_, err = store.Save("", []byte("x"))
	assert.Error(t, err)
}

func TestStore_SaveNeverOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir(), "/media/covers/")
	require.NoError(t, err)

	first, err := store.Save("staff_1700000000.jpg", []byte("one"))
	require.NoError(t, err)
	second, err := store.Save("staff_1700000000.jpg", []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, "staff_1700000000.jpg", first)
	assert.Equal(t, "staff_1700000000_1.jpg", second)

	data, err := os.ReadFile(store.Path(first))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}
