package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := OpenFile(path)
	require.NoError(t, err)

	_, ok := s.Get(GuestCartKey)
	assert.False(t, ok)

	require.NoError(t, s.Set(GuestCartKey, "cart-123"))
	require.NoError(t, s.Set(TokenKey, "tok"))

	// A fresh open sees the persisted values.
	reopened, err := OpenFile(path)
	require.NoError(t, err)

	v, ok := reopened.Get(GuestCartKey)
	require.True(t, ok)
	assert.Equal(t, "cart-123", v)

	v, ok = reopened.Get(TokenKey)
	require.True(t, ok)
	assert.Equal(t, "tok", v)
}

func TestFileStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := OpenFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Set(GuestCartKey, "cart-123"))
	require.NoError(t, s.Delete(GuestCartKey))
	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(GuestCartKey))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	_, ok := reopened.Get(GuestCartKey)
	assert.False(t, ok)
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := OpenFile(path)
	require.NoError(t, err)

	_, ok := s.Get(GuestCartKey)
	assert.False(t, ok)

	// Writes still work after discarding the corrupt content.
	require.NoError(t, s.Set(GuestCartKey, "cart-123"))
}

func TestFileStore_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")

	s, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(TokenKey, "tok"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestMemStore(t *testing.T) {
	s := NewMem()

	_, ok := s.Get("k")
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v"))
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, s.Delete("k"))
	_, ok = s.Get("k")
	assert.False(t, ok)
}
