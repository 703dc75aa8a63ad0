package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

const sampleRegistry = `
default_backend = "local"

[messages.override_notice]
neutral = "Routed to a different backend."
translated = "Weitergeleitet an ein anderes Backend."

[messages.no_server_notice]
neutral = "No backend can serve this request."
translated = "Kein Backend kann diese Anfrage bedienen."

[[backends]]
name = "local"
priority = 10
endpoint = "http://localhost:8080"
model = "llama3"
timeout_seconds = 30

[[backends]]
name = "secure"
priority = 20
endpoint = "https://secure.internal:8443"
credential = "sk-test"
completion_path = "/api/completions"
chat_path = "/api/chat"
allowed_acl_labels = ["eng", "ops"]
allowed_classification_labels = ["internal"]
allowed_doc_level = 3
is_trusted_for_all_acl = true
is_trusted_server = true
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backends.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry_Success(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)

	cfg, err := LoadRegistry(path)

	require.NoError(t, err)
	require.Len(t, cfg.Backends, 2)
	assert.Equal(t, "local", cfg.Default)

	local := cfg.Backends[0]
	assert.Equal(t, "local", local.Name)
	assert.Equal(t, 10, local.Priority)
	assert.Equal(t, DefaultCompletionPath, local.CompletionPath)
	assert.Equal(t, DefaultChatPath, local.ChatPath)
	assert.Equal(t, 30*time.Second, local.Timeout)
	assert.Empty(t, local.Credential)
	assert.False(t, local.TrustedServer)

	secure := cfg.Backends[1]
	assert.Equal(t, "/api/completions", secure.CompletionPath)
	assert.Equal(t, "/api/chat", secure.ChatPath)
	assert.Equal(t, []string{"eng", "ops"}, secure.AllowedACLLabels)
	assert.Equal(t, []string{"internal"}, secure.AllowedClassificationLabels)
	require.NotNil(t, secure.AllowedDocLevel)
	assert.Equal(t, 3, *secure.AllowedDocLevel)
	assert.True(t, secure.TrustedForAllACL)
	assert.True(t, secure.TrustedServer)

	assert.Equal(t, "Routed to a different backend.", cfg.Catalog.OverrideNotice.Neutral)
	assert.Equal(t, "Kein Backend kann diese Anfrage bedienen.", cfg.Catalog.NoServerNotice.Translated)
}

func TestLoadRegistry_FileNotFound(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.toml"))

	require.Error(t, err)
}

func TestParseRegistry_InvalidTOML(t *testing.T) {
	_, err := parseRegistry([]byte("default_backend = [broken"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestParseRegistry_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no backends",
			content: `default_backend = "x"`,
			wantErr: "no backends",
		},
		{
			name: "missing default",
			content: `
[[backends]]
name = "a"
endpoint = "http://a"
`,
			wantErr: "default_backend not set",
		},
		{
			name: "unknown default",
			content: `
default_backend = "ghost"
[[backends]]
name = "a"
endpoint = "http://a"
`,
			wantErr: "not configured",
		},
		{
			name: "duplicate backend name",
			content: `
default_backend = "a"
[[backends]]
name = "a"
endpoint = "http://a"
[[backends]]
name = "a"
endpoint = "http://b"
`,
			wantErr: "duplicate backend name",
		},
		{
			name: "empty backend name",
			content: `
default_backend = "a"
[[backends]]
name = ""
endpoint = "http://a"
`,
			wantErr: "empty name",
		},
		{
			name: "missing endpoint",
			content: `
default_backend = "a"
[[backends]]
name = "a"
`,
			wantErr: "no endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRegistry([]byte(tt.content))

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistrySource_Load(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)
	src := NewRegistrySource(path)

	cfg, err := src.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Default)
	assert.Len(t, cfg.Backends, 2)
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backends.toml")
	w, err := NewWatcher(path, func(*domain.RegistryConfig) {})
	require.NoError(t, err)
	defer w.Close()

	err = w.Run(context.Background())

	require.Error(t, err)
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)

	var loads atomic.Int32
	var lastDefault atomic.Value
	w, err := NewWatcher(path, func(cfg *domain.RegistryConfig) {
		loads.Add(1)
		lastDefault.Store(cfg.Default)
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return loads.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	updated := strings.Replace(sampleRegistry, `default_backend = "local"`, `default_backend = "secure"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool { return loads.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "secure", lastDefault.Load())

	// A broken rewrite keeps the previous configuration.
	require.NoError(t, os.WriteFile(path, []byte("default_backend = [broken"), 0o644))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, "secure", lastDefault.Load())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
