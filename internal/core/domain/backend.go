package domain

import "time"

// DefaultBackendTimeout applies when a descriptor omits a timeout.
const DefaultBackendTimeout = 120 * time.Second

// BackendDescriptor describes a configured inference backend and the
// policy bounding what retrieved content it may see. Descriptors are
// loaded once at startup and never mutated.
type BackendDescriptor struct {
	// Name uniquely identifies the backend.
	Name string

	// Priority orders candidates during selection.
	// Lower values are more senior.
	Priority int

	// Endpoint is the backend's base URL.
	Endpoint string

	// Credential is an optional bearer token.
	Credential string

	// CompletionPath is the path for completion requests.
	CompletionPath string

	// ChatPath is the path for chat requests.
	ChatPath string

	// Model optionally names the model to request.
	Model string

	// Timeout bounds a single invocation. Zero means DefaultBackendTimeout.
	Timeout time.Duration

	// AllowedACLLabels, when non-empty, is the exact set of ACL labels
	// this backend may see. When non-empty it overrides TrustedForAllACL.
	AllowedACLLabels []string

	// AllowedClassificationLabels, when non-empty, bounds the
	// classification labels this backend may see. Empty imposes no
	// restriction on this dimension.
	AllowedClassificationLabels []string

	// AllowedDocLevel is the maximum clearance rank this backend may
	// see. Nil imposes no restriction.
	AllowedDocLevel *int

	// TrustedForAllACL permits any ACL context, but is only consulted
	// when AllowedACLLabels is empty.
	TrustedForAllACL bool

	// TrustedServer bypasses all policy checks entirely.
	TrustedServer bool
}

// EffectiveTimeout returns the invocation timeout with the default applied.
func (b BackendDescriptor) EffectiveTimeout() time.Duration {
	if b.Timeout <= 0 {
		return DefaultBackendTimeout
	}
	return b.Timeout
}

// NoticeKind classifies the outcome of backend selection.
type NoticeKind int

const (
	// NoticeNone means the default backend was selected.
	NoticeNone NoticeKind = iota

	// NoticeOverride means a non-default backend had to be used.
	NoticeOverride

	// NoticeNoServer means no configured backend was eligible.
	NoticeNoServer
)

// String returns the notice kind name.
func (k NoticeKind) String() string {
	switch k {
	case NoticeNone:
		return "none"
	case NoticeOverride:
		return "override"
	case NoticeNoServer:
		return "no_server"
	default:
		return "unknown"
	}
}

// NoticeText is a localised message pair for one notice kind.
type NoticeText struct {
	// Neutral is the untranslated message.
	Neutral string

	// Translated is the message in the conversation's target language.
	Translated string
}

// Pick returns the translated text when translate is true, otherwise
// the neutral text.
func (t NoticeText) Pick(translate bool) string {
	if translate && t.Translated != "" {
		return t.Translated
	}
	return t.Neutral
}

// MessageCatalog maps notice kinds to their localised messages.
// Catalogs are supplied externally per conversation or pipeline.
type MessageCatalog struct {
	// OverrideNotice is shown when a non-default backend answers.
	OverrideNotice NoticeText

	// NoServerNotice is shown when no backend is eligible.
	NoServerNotice NoticeText
}

// Text returns the message pair for the given kind.
// NoticeNone has no message.
func (c MessageCatalog) Text(kind NoticeKind) (NoticeText, bool) {
	switch kind {
	case NoticeOverride:
		return c.OverrideNotice, true
	case NoticeNoServer:
		return c.NoServerNotice, true
	default:
		return NoticeText{}, false
	}
}

// RegistryConfig is the externally loaded backend registry: an ordered
// list of descriptors, the name of the default backend, and the message
// catalog used for selection notices.
type RegistryConfig struct {
	// Backends lists the configured descriptors.
	Backends []BackendDescriptor

	// Default names the primary backend. Selecting any other backend
	// produces an override notice.
	Default string

	// Catalog holds the notice messages.
	Catalog MessageCatalog
}
