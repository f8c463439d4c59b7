package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catrelay.conf")
	body := "# test config\n" +
		"listen-address = 127.0.0.1:7000\n" +
		"server-name = cats.example\n" +
		"connect-rate-per-second = 2.5\n" +
		"connect-burst = 10\n" +
		"connect-bucket-ttl = 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddress)
	assert.Equal(t, "cats.example", cfg.ServerName)
	assert.Equal(t, 2.5, cfg.ConnectRatePerSecond)
	assert.Equal(t, 10, cfg.ConnectBurst)
	assert.Equal(t, 30*time.Second, cfg.ConnectBucketTTL)
	// Keys the file didn't mention keep their defaults.
	assert.Equal(t, Defaults().MOTD, cfg.MOTD)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catrelay.conf")
	require.NoError(t, os.WriteFile(path, []byte("server-name = fromfile\n"), 0o600))

	t.Setenv("CATRELAY_SERVER_NAME", "fromenv")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.ServerName)
}
