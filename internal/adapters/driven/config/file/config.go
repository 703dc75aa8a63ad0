package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig is the application-level configuration, distinct from the
// backend registry. Both default to living under ~/.askdb.
type AppConfig struct {
	// DataDir is where the SQLite index database lives.
	DataDir string `toml:"data_dir"`

	// RegistryPath points at the backend registry file.
	RegistryPath string `toml:"registry_path"`

	// WatchRegistry enables live reload of the registry file.
	WatchRegistry bool `toml:"watch_registry"`

	Embedding EmbeddingConfig `toml:"embedding"`
	Cache     CacheConfig     `toml:"cache"`
	Client    ClientConfig    `toml:"client"`
}

// EmbeddingConfig configures the embedding provider. An empty BaseURL
// disables vector retrieval; search degrades to the keyword path.
type EmbeddingConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Dimensions     int    `toml:"dimensions"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CacheConfig configures the retrieval query cache.
type CacheConfig struct {
	Size       int `toml:"size"`
	TTLSeconds int `toml:"ttl_seconds"`
}

// ClientConfig configures the backend invocation client.
type ClientConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// DefaultConfigPath returns ~/.askdb/config.toml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".askdb", "config.toml"), nil
}

// LoadConfig reads the application configuration. A missing file
// yields the defaults rather than an error; a present but malformed
// file fails.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Credentials may reference environment variables.
	cfg.Embedding.APIKey = os.ExpandEnv(cfg.Embedding.APIKey)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	home, err := os.UserHomeDir()
	base := "."
	if err == nil {
		base = filepath.Join(home, ".askdb")
	}
	return &AppConfig{
		DataDir:      filepath.Join(base, "data"),
		RegistryPath: filepath.Join(base, "backends.toml"),
		Cache: CacheConfig{
			Size:       256,
			TTLSeconds: 300,
		},
		Client: ClientConfig{
			RequestsPerSecond: 4,
			Burst:             4,
		},
	}
}

// EmbeddingTimeout returns the configured timeout as a duration.
func (c EmbeddingConfig) EmbeddingTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}
