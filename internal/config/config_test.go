package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	SetDefaults()

	assert.Equal(t, 30, GetRetentionDays())
	assert.Equal(t, []string{"important"}, GetPreserveTags())
	assert.Equal(t, int64(1<<20), GetMaxFileSize())
	assert.Equal(t, "partial", GetMatcher())
	assert.True(t, GetStoreDiffs())
	assert.Equal(t, "main", GetDefaultBranch())
	assert.Equal(t, 8, GetRestoreWorkers())
	assert.Equal(t, "10m0s", GetWatchInterval().String())
}

func TestStorageRootExpandsHome(t *testing.T) {
	viper.Reset()
	SetDefaults()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	viper.Set("storage.root", "~/snaps")
	assert.Equal(t, filepath.Join(home, "snaps"), GetStorageRoot())

	viper.Set("storage.root", "/var/snaps")
	assert.Equal(t, "/var/snaps", GetStorageRoot())
}

func TestShouldPreserve(t *testing.T) {
	viper.Reset()
	SetDefaults()
	viper.Set("retention.preserve_tags", []string{"important", "release"})

	assert.True(t, ShouldPreserve([]string{"wip", "release"}))
	assert.False(t, ShouldPreserve([]string{"wip"}))
	assert.False(t, ShouldPreserve(nil))
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	created, err := WriteDefault(path)
	require.NoError(t, err)
	assert.True(t, created)

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, 30, v.GetInt("retention.days"))
	assert.Equal(t, "partial", v.GetString("scan.matcher"))

	created, err = WriteDefault(path)
	require.NoError(t, err)
	assert.False(t, created)
}
