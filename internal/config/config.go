// Package config provides configuration loading for the FoodTracker server.
//
// Precedence, lowest to highest: built-in defaults, the YAML file, then
// FOODTRACKER_* environment variables. Validate runs last.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/rating"
)

// Archive backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Config represents the complete FoodTracker configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Rating  RatingConfig  `yaml:"rating"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port int `yaml:"port"`
	// SessionTTL is how long an untouched entry form stays open
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// StorageConfig says where the meal archive lives
type StorageConfig struct {
	// Backend is "sqlite" or "file"
	Backend string `yaml:"backend"`
	// DataDir is the documents directory holding the archive
	DataDir string `yaml:"data_dir"`
	// ArchiveName is the archive filename inside DataDir (".db" is
	// appended for sqlite)
	ArchiveName string `yaml:"archive_name"`
	// Watch reloads the meal list when another process rewrites the
	// archive. Only the file backend supports it.
	Watch bool `yaml:"watch"`
}

// RatingConfig holds the rating selector tunables
type RatingConfig struct {
	StarCount int         `yaml:"star_count"`
	StarSize  rating.Size `yaml:"star_size"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       8080,
			SessionTTL: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:     BackendSQLite,
			DataDir:     "data",
			ArchiveName: "meals",
		},
		Rating: RatingConfig{
			StarCount: rating.DefaultStarCount,
			StarSize:  rating.DefaultSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then path (if not
// empty), then the environment as seen through lookup (os.LookupEnv in
// production).
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from FOODTRACKER_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	if v, ok := lookup("FOODTRACKER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FOODTRACKER_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("FOODTRACKER_DATA_DIR"); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := lookup("FOODTRACKER_ARCHIVE"); ok && v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v, ok := lookup("FOODTRACKER_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be positive")
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendSQLite, BackendFile, c.Storage.Backend)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Storage.Watch && c.Storage.Backend != BackendFile {
		return fmt.Errorf("storage.watch requires the %q backend", BackendFile)
	}
	if c.Storage.ArchiveName == "" || filepath.Base(c.Storage.ArchiveName) != c.Storage.ArchiveName {
		return fmt.Errorf("storage.archive_name must be a plain filename")
	}
	if c.Rating.StarCount < 1 || c.Rating.StarCount > model.MaxRating {
		return fmt.Errorf("rating.star_count must be between 1 and %d", model.MaxRating)
	}
	if c.Rating.StarSize.Width <= 0 || c.Rating.StarSize.Height <= 0 {
		return fmt.Errorf("rating.star_size must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts Log.Level to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
}

// ArchivePath is the on-disk location of the archive for the configured
// backend.
func (c *Config) ArchivePath() string {
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(c.Storage.DataDir, c.Storage.ArchiveName+".db")
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.ArchiveName)
}
