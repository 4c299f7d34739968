package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/foodtracker/internal/rating"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Rating.StarCount)
	assert.Equal(t, rating.Size{Width: 44, Height: 44}, cfg.Rating.StarSize)
	assert.Equal(t, filepath.Join("data", "meals.db"), cfg.ArchivePath())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foodtracker.yaml")
	body := `
server:
  port: 9000
  session_ttl: 5m
storage:
  backend: file
  data_dir: /var/lib/foodtracker
  watch: true
rating:
  star_count: 4
  star_size:
    width: 30
    height: 32
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path, envMap(map[string]string{
		"FOODTRACKER_PORT": "9100",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Watch)
	assert.Equal(t, "meals", cfg.Storage.ArchiveName, "unset fields keep defaults")
	assert.Equal(t, 4, cfg.Rating.StarCount)
	assert.Equal(t, rating.Size{Width: 30, Height: 32}, cfg.Rating.StarSize)
	assert.Equal(t, filepath.Join("/var/lib/foodtracker", "meals"), cfg.ArchivePath())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", level.String())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"FOODTRACKER_ARCHIVE":   "FILE",
		"FOODTRACKER_DATA_DIR":  "/tmp/meals",
		"FOODTRACKER_LOG_LEVEL": "WARN",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/meals", cfg.Storage.DataDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load("", envMap(map[string]string{"FOODTRACKER_PORT": "eighty"}))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [not, a, map]"), 0o644))
	_, err = Load(bad, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"ttl zero", func(c *Config) { c.Server.SessionTTL = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"watch on sqlite", func(c *Config) { c.Storage.Watch = true }},
		{"archive name with path", func(c *Config) { c.Storage.ArchiveName = "a/b" }},
		{"too many stars", func(c *Config) { c.Rating.StarCount = 6 }},
		{"no stars", func(c *Config) { c.Rating.StarCount = 0 }},
		{"flat star", func(c *Config) { c.Rating.StarSize.Height = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
