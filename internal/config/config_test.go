package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 6, cfg.Autobus.MaxPlayers)
	assert.Equal(t, 10, cfg.Duel.MaxTurns)
	assert.Equal(t, 3*time.Second, cfg.Notify.Debounce)
	assert.Equal(t, 24*time.Hour, cfg.Auth.MaxAge)
	assert.True(t, cfg.Notify.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_HOST", "db")
	t.Setenv("AUTOBUS_MAX_PLAYERS", "4")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Autobus.MaxPlayers)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := "duel:\n  max_turns: 6\nwhitelist:\n  chats: [-100, 42]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Duel.MaxTurns)
	assert.True(t, cfg.IsChatAllowed(42))
	assert.False(t, cfg.IsChatAllowed(7))
}

func TestIsChatAllowedEmptyWhitelist(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.IsChatAllowed(12345))
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())
}
