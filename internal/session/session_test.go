package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptySession(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	_, _, ok := s.Resolve("000045")
	assert.False(t, ok)
	assert.Equal(t, "", s.LastProcessedSlot())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	s, err := Load(path)
	require.NoError(t, err)

	s.SetOverride("000045", Override{DisplayName: "LOS PINOS DEL SUR", Branch: "Centro"})
	s.SetLastProcessedSlot("morning")
	require.NoError(t, s.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)

	name, branch, ok := reloaded.Resolve("000045")
	require.True(t, ok)
	assert.Equal(t, "LOS PINOS DEL SUR", name)
	assert.Equal(t, "Centro", branch)
	assert.Equal(t, "morning", reloaded.LastProcessedSlot())
	assert.Equal(t, path, reloaded.Path())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResetClearsStateAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	s, err := Load(path)
	require.NoError(t, err)
	s.SetOverride("000045", Override{DisplayName: "LOS PINOS"})
	s.SetLastProcessedSlot("evening")
	require.NoError(t, s.Save())

	require.NoError(t, s.Reset())

	_, _, ok := s.Resolve("000045")
	assert.False(t, ok)
	assert.Equal(t, "", s.LastProcessedSlot())

	// The reset survives a reload.
	reloaded, err := Load(path)
	require.NoError(t, err)
	_, _, ok = reloaded.Resolve("000045")
	assert.False(t, ok)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "ledger.db"), ExpandPath("~/ledger.db"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/plain/path", ExpandPath("/plain/path"))

	t.Setenv("CHATLEDGER_TEST_DIR", "/data")
	assert.Equal(t, "/data/ledger.db", ExpandPath("$CHATLEDGER_TEST_DIR/ledger.db"))
}
