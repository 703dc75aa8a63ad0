package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
	"github.com/custodia-labs/askdb-core/internal/logger"
)

// registryState is one validated registry generation.
type registryState struct {
	backends    map[string]domain.BackendDescriptor
	ordered     []string // by priority, then name
	defaultName string
	catalog     domain.MessageCatalog
}

// BackendRegistry holds the set of configured inference backends and
// selects, for a given security context, the most senior backend whose
// declared policy legally covers it.
//
// The registry state is replaced wholesale on Reload and never mutated
// in place; readers see either the old or the new generation.
type BackendRegistry struct {
	mu    sync.RWMutex
	state *registryState
}

// NewBackendRegistry validates the configuration and builds a registry.
// Missing or unresolvable default backends and duplicate names are
// construction errors, never defaulted silently.
func NewBackendRegistry(cfg domain.RegistryConfig) (*BackendRegistry, error) {
	state, err := buildRegistryState(cfg)
	if err != nil {
		return nil, err
	}
	return &BackendRegistry{state: state}, nil
}

func buildRegistryState(cfg domain.RegistryConfig) (*registryState, error) {
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("%w: no backends configured", domain.ErrInvalidConfig)
	}
	if cfg.Default == "" {
		return nil, fmt.Errorf("%w: default backend not set", domain.ErrInvalidConfig)
	}

	backends := make(map[string]domain.BackendDescriptor, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if b.Name == "" {
			return nil, fmt.Errorf("%w: backend with empty name", domain.ErrInvalidConfig)
		}
		if _, exists := backends[b.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate backend name %q", domain.ErrInvalidConfig, b.Name)
		}
		if b.Endpoint == "" {
			return nil, fmt.Errorf("%w: backend %q has no endpoint", domain.ErrInvalidConfig, b.Name)
		}
		backends[b.Name] = b
	}
	if _, ok := backends[cfg.Default]; !ok {
		return nil, fmt.Errorf("%w: default backend %q not configured", domain.ErrInvalidConfig, cfg.Default)
	}

	ordered := make([]string, 0, len(cfg.Backends))
	for name := range backends {
		ordered = append(ordered, name)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := backends[ordered[i]], backends[ordered[j]]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Name < b.Name
	})

	return &registryState{
		backends:    backends,
		ordered:     ordered,
		defaultName: cfg.Default,
		catalog:     cfg.Catalog,
	}, nil
}

// Reload validates a new configuration and swaps it in. On validation
// failure the current configuration stays in effect.
func (r *BackendRegistry) Reload(cfg domain.RegistryConfig) error {
	state, err := buildRegistryState(cfg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	return nil
}

func (r *BackendRegistry) current() *registryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Get returns a backend by name.
func (r *BackendRegistry) Get(name string) (domain.BackendDescriptor, error) {
	s := r.current()
	b, ok := s.backends[name]
	if !ok {
		return domain.BackendDescriptor{}, fmt.Errorf("%w: %q", domain.ErrBackendNotFound, name)
	}
	return b, nil
}

// Default returns the configured primary backend.
func (r *BackendRegistry) Default() domain.BackendDescriptor {
	s := r.current()
	return s.backends[s.defaultName]
}

// List returns all backends ordered by priority.
func (r *BackendRegistry) List() []domain.BackendDescriptor {
	s := r.current()
	out := make([]domain.BackendDescriptor, len(s.ordered))
	for i, name := range s.ordered {
		out[i] = s.backends[name]
	}
	return out
}

// Catalog returns the notice message catalog.
func (r *BackendRegistry) Catalog() domain.MessageCatalog {
	return r.current().catalog
}

// Select returns the most senior backend whose policy covers the
// security context, plus the notice classification for the outcome.
//
// When requested names a configured backend it is tried first, but it
// remains subject to the same eligibility checks: an explicitly
// requested backend never bypasses policy. A nil descriptor with
// NoticeNoServer means nothing qualified.
func (r *BackendRegistry) Select(
	requested string, sctx domain.SecurityContext,
) (*domain.BackendDescriptor, domain.NoticeKind) {
	s := r.current()
	order := s.ordered
	if requested != "" {
		if _, ok := s.backends[requested]; ok {
			order = make([]string, 0, len(s.ordered))
			order = append(order, requested)
			for _, name := range s.ordered {
				if name != requested {
					order = append(order, name)
				}
			}
		} else {
			logger.Warn("Requested backend %q not configured, using priority order", requested)
		}
	}

	for _, name := range order {
		b := s.backends[name]
		if !Eligible(b, sctx) {
			logger.Debug("Backend %q ineligible for context acl=%v class=%v",
				name, sctx.ACLLabelsUnion, sctx.ClassificationLabelsUnion)
			continue
		}
		kind := domain.NoticeNone
		if name != s.defaultName {
			kind = domain.NoticeOverride
		}
		logger.Info("Selected backend %q (%s)", name, kind)
		return &b, kind
	}

	logger.Warn("No eligible backend for context acl=%v class=%v level=%v",
		sctx.ACLLabelsUnion, sctx.ClassificationLabelsUnion, sctx.DocLevelMax)
	return nil, domain.NoticeNoServer
}

// Eligible evaluates a backend's declared policy against a security
// context. This is the safety invariant of the whole pipeline: a
// backend is returned only if its policy covers every dimension of the
// aggregated requirement.
func Eligible(b domain.BackendDescriptor, sctx domain.SecurityContext) bool {
	// A trusted server bypasses every check.
	if b.TrustedServer {
		return true
	}

	// ACL dimension. A non-empty allow-list overrides the
	// trusted-for-all flag entirely.
	if len(b.AllowedACLLabels) > 0 {
		if !subset(sctx.ACLLabelsUnion, b.AllowedACLLabels) {
			return false
		}
	} else if len(sctx.ACLLabelsUnion) > 0 && !b.TrustedForAllACL {
		// No allow-list and no trust: only an unrestricted context
		// passes.
		return false
	}

	// Classification dimension. An empty allowed set imposes no
	// restriction.
	if len(b.AllowedClassificationLabels) > 0 &&
		!subset(sctx.ClassificationLabelsUnion, b.AllowedClassificationLabels) {
		return false
	}

	// Doc-level dimension. A nil context max imposes no restriction.
	if b.AllowedDocLevel != nil && sctx.DocLevelMax != nil &&
		*sctx.DocLevelMax > *b.AllowedDocLevel {
		return false
	}

	return true
}

// subset reports whether every element of needles is present in allowed.
func subset(needles, allowed []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, label := range allowed {
		set[label] = struct{}{}
	}
	for _, label := range needles {
		if _, ok := set[label]; !ok {
			return false
		}
	}
	return true
}
