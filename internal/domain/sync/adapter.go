package sync

import (
	"context"
	"encoding/json"
	"time"
)

// ---------------------------------------------------------------------------
// Platform Adapter Port
// ---------------------------------------------------------------------------

// Credentials holds the API credentials resolved for a store. Encryption at
// rest is the credential store's concern, not this engine's.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ShopID       string
	ExpiresAt    time.Time
}

// IsExpired reports whether the access token has passed its expiry
func (c *Credentials) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// CredentialResolver resolves API credentials for a store.
// Implementations may cache; a nil result with nil error means no
// credentials are configured.
type CredentialResolver interface {
	GetCredentials(ctx context.Context, storeID string) (*Credentials, error)
}

// OrdersQuery describes a windowed, paginated order fetch from a platform
type OrdersQuery struct {
	// StartDate is the inclusive lower bound of the order update window
	StartDate time.Time
	// EndDate is the inclusive upper bound of the order update window
	EndDate time.Time
	// Limit is the page size
	Limit int
	// Offset is the zero-based page offset
	Offset int
	// Status optionally filters by platform status token
	Status string
}

// RawOrder is one order as returned by a platform, before normalization
type RawOrder struct {
	// PlatformOrderID is the order ID on the platform
	PlatformOrderID string
	// Status is the platform's own status token
	Status string
	// Payload is the full platform response for this order
	Payload json.RawMessage
}

// OrderPage is one page of platform orders
type OrderPage struct {
	Orders     []RawOrder
	Total      int64
	HasMore    bool
	NextOffset int
}

// FulfillmentDetails carries optional shipping information for a status push
type FulfillmentDetails struct {
	Carrier        string
	TrackingNumber string
	ShippedAt      *time.Time
}

// PlatformAdapter is the capability interface the engine consumes.
// Concrete adapters (Shopee, TikTok Shop, storefront) live in
// infrastructure/platform; the engine never sees wire formats.
type PlatformAdapter interface {
	// Platform returns the platform code this adapter handles
	Platform() string

	// Authenticate validates or refreshes credentials with the platform
	Authenticate(ctx context.Context, creds *Credentials) error

	// GetOrders fetches one page of orders updated within the query window
	GetOrders(ctx context.Context, creds *Credentials, query OrdersQuery) (*OrderPage, error)

	// UpdateOrderStatus pushes a status change to the platform, in the
	// platform's own status vocabulary
	UpdateOrderStatus(ctx context.Context, creds *Credentials, platformOrderID, platformStatus string, details *FulfillmentDetails) error
}

// AdapterRegistry provides access to registered platform adapters
type AdapterRegistry interface {
	// Get returns the adapter for the given platform code
	Get(platform string) (PlatformAdapter, error)

	// List returns all registered adapters
	List() []PlatformAdapter
}
