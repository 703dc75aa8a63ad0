package driven

import (
	"context"

	"github.com/custodia-labs/askdb-core/internal/core/domain"
)

// RegistrySource loads the backend registry configuration: descriptors,
// default backend name, and the notice message catalog. Implementations
// validate eagerly; a registry that fails validation is a construction
// error, never silently defaulted.
type RegistrySource interface {
	// Load reads the registry configuration.
	Load(ctx context.Context) (*domain.RegistryConfig, error)
}
