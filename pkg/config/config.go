// Package config loads the TOML settings shared by the custody service and
// its tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/coventry/RSADonations/pkg/logger"
	"github.com/coventry/RSADonations/pkg/storage"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

type Config struct {
	DataDir          string         `toml:"DataDir"`
	Backend          string         `toml:"Backend"`
	AuditLogPath     string         `toml:"AuditLogPath"`
	KeyStorePath     string         `toml:"KeyStorePath"`
	MetricsNamespace string         `toml:"MetricsNamespace"`
	Log              LogConfig      `toml:"Log"`
	KeyFetch         KeyFetchConfig `toml:"KeyFetch"`
}

type LogConfig struct {
	Level  string `toml:"Level"`
	Pretty bool   `toml:"Pretty"`
}

type KeyFetchConfig struct {
	// Timeout bounds the TLS dial, as a Go duration string
	Timeout       string `toml:"Timeout"`
	ListenAddress string `toml:"ListenAddress"`
	// RatePerSecond limits lookups per client address; zero disables it
	RatePerSecond int `toml:"RatePerSecond"`
}

// Default returns the settings written for a fresh install
func Default() *Config {
	return &Config{
		DataDir:          "./rsadonations-data",
		Backend:          BackendLevelDB,
		MetricsNamespace: "rsadonations",
		Log: LogConfig{
			Level: "info",
		},
		KeyFetch: KeyFetchConfig{
			Timeout:       "10s",
			ListenAddress: "127.0.0.1:8080",
			RatePerSecond: 2,
		},
	}
}

// Load reads the configuration at path, writing the defaults there first
// if the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if strings.TrimSpace(c.DataDir) == "" {
			return ErrMissingDataDir
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	if !logger.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}

	if _, err := c.FetchTimeout(); err != nil {
		return err
	}
	if c.KeyFetch.RatePerSecond < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, c.KeyFetch.RatePerSecond)
	}
	return nil
}

// FetchTimeout parses KeyFetch.Timeout
func (c *Config) FetchTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.KeyFetch.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimeout, err)
	}
	if d <= 0 {
		return 0, ErrInvalidTimeout
	}
	return d, nil
}

// OpenDatabase opens the configured storage backend
func (c *Config) OpenDatabase() (storage.Database, error) {
	switch c.Backend {
	case BackendMemory:
		return storage.NewMemDB(), nil
	case BackendLevelDB:
		return storage.NewLevelDB(filepath.Join(c.DataDir, "state"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// Logger builds a logger from the Log section
func (c *Config) Logger() *logger.Logger {
	return logger.New(&logger.Config{
		Level:      c.Log.Level,
		Output:     os.Stderr,
		Pretty:     c.Log.Pretty,
		TimeFormat: time.RFC3339,
	})
}
