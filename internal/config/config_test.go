package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_WritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(dir, "sqlite")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, VhistDir), cfg.Path())
	assert.Equal(t, "sqlite", cfg.JournalBackend)
	assert.Equal(t, filepath.Join(dir, VhistDir, "journal.sqlite.db"), cfg.JournalPath())

	loaded, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, cfg.JournalBackend, loaded.JournalBackend)
	assert.Equal(t, DefaultListen, loaded.Listen)
	assert.Equal(t, DefaultLogLevel, loaded.LogLevel)
}

func TestInitialize_AlreadyExists(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(dir, "")
	require.NoError(t, err)

	_, err = Initialize(dir, "")
	assert.Error(t, err)
}

func TestLoadFrom_PartialFileKeepsDefaults(t *testing.T) {
	vhistPath := filepath.Join(t.TempDir(), VhistDir)
	require.NoError(t, os.MkdirAll(vhistPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(vhistPath, ConfigFile), []byte(`log_level = "debug"`), 0644))

	cfg, err := LoadFrom(vhistPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultBackend, cfg.JournalBackend)
	assert.Equal(t, filepath.Join(vhistPath, "journal.bbolt.db"), cfg.JournalPath())
}

func TestLoadFrom_InvalidToml(t *testing.T) {
	vhistPath := filepath.Join(t.TempDir(), VhistDir)
	require.NoError(t, os.MkdirAll(vhistPath, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(vhistPath, ConfigFile), []byte(`log_level = `), 0644))

	_, err := LoadFrom(vhistPath)
	assert.Error(t, err)
}

func TestFindRoot_WalksUp(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir, "")
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, VhistDir), root)
}

func TestJournalPath_Absolute(t *testing.T) {
	cfg := &Config{JournalFile: "/var/lib/vhist/journal.db", path: "/tmp/.vhist"}
	assert.Equal(t, "/var/lib/vhist/journal.db", cfg.JournalPath())
}
