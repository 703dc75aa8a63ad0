// Package file provides file-based configuration adapters using TOML.
//
// The registry file declares the inference backends, the default
// backend name, and the notice message catalog. Validation is eager:
// a file that parses but violates the registry rules fails at load
// time, never at selection time.
package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/core/ports/driven"
)

// backendTOML mirrors one [[backends]] table.
type backendTOML struct {
	Name                        string   `toml:"name"`
	Priority                    int      `toml:"priority"`
	Endpoint                    string   `toml:"endpoint"`
	Credential                  string   `toml:"credential"`
	CompletionPath              string   `toml:"completion_path"`
	ChatPath                    string   `toml:"chat_path"`
	Model                       string   `toml:"model"`
	TimeoutSeconds              int      `toml:"timeout_seconds"`
	AllowedACLLabels            []string `toml:"allowed_acl_labels"`
	AllowedClassificationLabels []string `toml:"allowed_classification_labels"`
	AllowedDocLevel             *int     `toml:"allowed_doc_level"`
	TrustedForAllACL            bool     `toml:"is_trusted_for_all_acl"`
	TrustedServer               bool     `toml:"is_trusted_server"`
}

// noticeTOML mirrors a notice message pair.
type noticeTOML struct {
	Neutral    string `toml:"neutral"`
	Translated string `toml:"translated"`
}

// registryTOML mirrors the whole registry file.
type registryTOML struct {
	Default  string        `toml:"default_backend"`
	Backends []backendTOML `toml:"backends"`
	Messages struct {
		OverrideNotice noticeTOML `toml:"override_notice"`
		NoServerNotice noticeTOML `toml:"no_server_notice"`
	} `toml:"messages"`
}

// Default wire paths for backends that omit them.
const (
	DefaultCompletionPath = "/v1/completions"
	DefaultChatPath       = "/v1/chat/completions"
)

// LoadRegistry reads and validates a registry configuration file.
func LoadRegistry(path string) (*domain.RegistryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return parseRegistry(data)
}

// parseRegistry decodes and validates registry TOML.
func parseRegistry(data []byte) (*domain.RegistryConfig, error) {
	var raw registryTOML
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	cfg := &domain.RegistryConfig{
		Default: raw.Default,
		Catalog: domain.MessageCatalog{
			OverrideNotice: domain.NoticeText{
				Neutral:    raw.Messages.OverrideNotice.Neutral,
				Translated: raw.Messages.OverrideNotice.Translated,
			},
			NoServerNotice: domain.NoticeText{
				Neutral:    raw.Messages.NoServerNotice.Neutral,
				Translated: raw.Messages.NoServerNotice.Translated,
			},
		},
	}

	for _, b := range raw.Backends {
		completionPath := b.CompletionPath
		if completionPath == "" {
			completionPath = DefaultCompletionPath
		}
		chatPath := b.ChatPath
		if chatPath == "" {
			chatPath = DefaultChatPath
		}
		cfg.Backends = append(cfg.Backends, domain.BackendDescriptor{
			Name:                        b.Name,
			Priority:                    b.Priority,
			Endpoint:                    b.Endpoint,
			Credential:                  b.Credential,
			CompletionPath:              completionPath,
			ChatPath:                    chatPath,
			Model:                       b.Model,
			Timeout:                     time.Duration(b.TimeoutSeconds) * time.Second,
			AllowedACLLabels:            b.AllowedACLLabels,
			AllowedClassificationLabels: b.AllowedClassificationLabels,
			AllowedDocLevel:             b.AllowedDocLevel,
			TrustedForAllACL:            b.TrustedForAllACL,
			TrustedServer:               b.TrustedServer,
		})
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate applies the registry rules that must fail at load time.
func validate(cfg *domain.RegistryConfig) error {
	if len(cfg.Backends) == 0 {
		return fmt.Errorf("%w: no backends configured", domain.ErrInvalidConfig)
	}
	if cfg.Default == "" {
		return fmt.Errorf("%w: default_backend not set", domain.ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if b.Name == "" {
			return fmt.Errorf("%w: backend with empty name", domain.ErrInvalidConfig)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("%w: duplicate backend name %q", domain.ErrInvalidConfig, b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.Endpoint == "" {
			return fmt.Errorf("%w: backend %q has no endpoint", domain.ErrInvalidConfig, b.Name)
		}
	}
	if _, ok := seen[cfg.Default]; !ok {
		return fmt.Errorf("%w: default_backend %q not configured", domain.ErrInvalidConfig, cfg.Default)
	}
	return nil
}

// RegistrySource is a file-backed implementation of
// driven.RegistrySource.
type RegistrySource struct {
	path string
}

var _ driven.RegistrySource = (*RegistrySource)(nil)

// NewRegistrySource creates a registry source for the given file path.
func NewRegistrySource(path string) *RegistrySource {
	return &RegistrySource{path: path}
}

// Load reads the registry configuration.
func (s *RegistrySource) Load(_ context.Context) (*domain.RegistryConfig, error) {
	return LoadRegistry(s.path)
}
