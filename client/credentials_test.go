package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/client"
)

func TestFileTokenStore_LoadMissingFile(t *testing.T) {
	store := client.NewFileTokenStore(filepath.Join(t.TempDir(), "credentials.json"))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, pair.AccessToken)
	require.Empty(t, pair.RefreshToken)
}

func TestFileTokenStore_SaveLoadClear(t *testing.T) {
	// Nested path exercises directory creation.
	path := filepath.Join(t.TempDir(), "kbctl", "credentials.json")
	store := client.NewFileTokenStore(path)

	saved := client.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(saved))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, saved, pair)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())

	_, ok, err = store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	// Clearing an already-empty store is not an error.
	require.NoError(t, store.Clear())
}

func TestFileTokenStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := client.NewFileTokenStore(filepath.Join(dir, "credentials.json"))

	require.NoError(t, store.Save(client.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, store.Save(client.TokenPair{AccessToken: "a2", RefreshToken: "r2"}))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a2", pair.AccessToken)
	require.Equal(t, "r2", pair.RefreshToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "credentials.json", entries[0].Name())
}

func TestFileTokenStore_EmptyPairTreatedAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"","refresh_token":""}`), 0o600))

	store := client.NewFileTokenStore(path)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileTokenStore_CorruptFileSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store := client.NewFileTokenStore(path)

	_, _, err := store.Load()
	require.Error(t, err)
}

func TestMemoryTokenStore_RoundTrip(t *testing.T) {
	store := client.NewMemoryTokenStore()

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(client.TokenPair{AccessToken: "a", RefreshToken: "r"}))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", pair.AccessToken)

	require.NoError(t, store.Clear())

	_, ok, err = store.Load()
	require.NoError(t, err)
	require.False(t, ok)
}
