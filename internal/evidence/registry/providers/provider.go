package providers

import (
	"context"
	"fmt"
	"time"
)

// Protocol defines the supported communication protocols for evidence providers
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
)

// ProviderType identifies the kind of evidence a provider can produce
type ProviderType string

const (
	ProviderTypeParcel ProviderType = "parcel" // official parcel/zoning registry
)

// FieldCapability advertises which fields a provider exposes
type FieldCapability struct {
	FieldName  string // e.g. "Planning and Zoning", "Assessor"
	Available  bool
	Filterable bool
}

// Capabilities describes what a provider supports
type Capabilities struct {
	Protocol Protocol
	Type     ProviderType
	Fields   []FieldCapability
	Version  string
	Filters  []string // Supported filters: "street_name", "house_number"
}

// Filter keys understood by parcel providers.
const (
	FilterStreetName  = "street_name"
	FilterHouseNumber = "house_number"
)

// Evidence is the generic result from any provider
type Evidence struct {
	ProviderID   string
	ProviderType ProviderType
	Confidence   float64        // 0.0-1.0; 1.0 means every declared field was returned
	Data         map[string]any // Provider-specific structured data
	CheckedAt    time.Time
	Metadata     map[string]string
}

// Provider is the interface every official registry source implements
type Provider interface {
	// ID returns a unique identifier for this provider instance
	ID() string

	// Capabilities returns what this provider supports
	Capabilities() Capabilities

	// Lookup fetches evidence for the given filters (see Filter* keys)
	Lookup(ctx context.Context, filters map[string]string) (*Evidence, error)

	// Health checks if the provider is available
	Health(ctx context.Context) error
}

// ProviderRegistry keeps providers in registration order so callers can
// express preference by the order they register.
type ProviderRegistry struct {
	order     []string
	providers map[string]Provider
}

// NewProviderRegistry creates a new empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry
func (r *ProviderRegistry) Register(p Provider) error {
	id := p.ID()
	if _, exists := r.providers[id]; exists {
		return fmt.Errorf("provider %s already registered", id)
	}
	r.providers[id] = p
	r.order = append(r.order, id)
	return nil
}

// ListByType returns providers of a given type in registration order
func (r *ProviderRegistry) ListByType(t ProviderType) []Provider {
	var result []Provider
	for _, id := range r.order {
		p := r.providers[id]
		if p.Capabilities().Type == t {
			result = append(result, p)
		}
	}
	return result
}
