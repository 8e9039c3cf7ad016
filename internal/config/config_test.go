package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.Register(fs)
	return fs
}

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15*time.Second, cfg.VoteCountdown)
	assert.Equal(t, 300*time.Millisecond, cfg.ResultPoll)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no scheme", func(c *Config) { c.ServerURL = "localhost:8080" }},
		{"ftp", func(c *Config) { c.ServerURL = "ftp://host" }},
		{"relative ws path", func(c *Config) { c.WSPath = "ws" }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero countdown", func(c *Config) { c.VoteCountdown = 0 }},
		{"negative poll", func(c *Config) { c.RoomPoll = -time.Second }},
		{"negative delay", func(c *Config) { c.SkillNavDelay = -1 }},
		{"poll over budget", func(c *Config) { c.ResultPoll = 5 * time.Second }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvBackfillsUnsetFlags(t *testing.T) {
	t.Setenv("UNDERGROUND_PLAYER", "amy")
	t.Setenv("UNDERGROUND_VOTE_COUNTDOWN", "5s")
	t.Setenv("UNDERGROUND_SERVER", "http://env:1")

	cfg := Default()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse([]string{"--server", "http://flag:2"}))
	require.NoError(t, Load(fs, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "amy", cfg.Player)
	assert.Equal(t, 5*time.Second, cfg.VoteCountdown)
	assert.Equal(t, "http://flag:2", cfg.ServerURL, "explicit flag beats env")
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("UNDERGROUND_AUTO=true\nUNDERGROUND_SEED=42\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("UNDERGROUND_AUTO")
		os.Unsetenv("UNDERGROUND_SEED")
	})

	cfg := Default()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, Load(fs, path))

	assert.True(t, cfg.Auto)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("UNDERGROUND_ROOM_POLL", "soon")

	cfg := Default()
	fs := newFlags(&cfg)
	require.NoError(t, fs.Parse(nil))
	assert.Error(t, Load(fs, filepath.Join(t.TempDir(), "none.env")))
}

func TestLogger(t *testing.T) {
	cfg := Default()
	log, err := cfg.Logger()
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(-1), "info level hides debug")

	cfg.Verbose = true
	log, err = cfg.Logger()
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}
