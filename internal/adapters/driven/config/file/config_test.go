package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.toml"))

	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NotEmpty(t, cfg.RegistryPath)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 4.0, cfg.Client.RequestsPerSecond)
	assert.Empty(t, cfg.Embedding.BaseURL)
}

func TestLoadConfig_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/var/lib/askdb"
registry_path = "/etc/askdb/backends.toml"
watch_registry = true

[embedding]
base_url = "http://localhost:11434"
model = "nomic-embed-text"
dimensions = 768
timeout_seconds = 30

[cache]
size = 64
ttl_seconds = 60

[client]
requests_per_second = 2.5
burst = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "/var/lib/askdb", cfg.DataDir)
	assert.Equal(t, "/etc/askdb/backends.toml", cfg.RegistryPath)
	assert.True(t, cfg.WatchRegistry)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Embedding.EmbeddingTimeout())
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 2.5, cfg.Client.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Client.Burst)
}

func TestLoadConfig_ExpandsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ASKDB_TEST_KEY", "sk-secret")
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[embedding]
base_url = "http://localhost:11434"
api_key = "${ASKDB_TEST_KEY}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = [broken"), 0o644))

	_, err := LoadConfig(path)

	require.Error(t, err)
}
