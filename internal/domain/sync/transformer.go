package sync

import "github.com/omnisync/backend/internal/domain/order"

// ---------------------------------------------------------------------------
// Status Mapping & Transformer Port
// ---------------------------------------------------------------------------

// StatusMapping is a per-platform table translating platform status tokens
// into canonical status tuples. Lookups through Resolve behave as a total
// function: unknown tokens fall back to the default tuple.
type StatusMapping map[string]order.StatusTuple

// Resolve returns the tuple for a platform status token. The second return
// is false when the token is unknown and the fallback tuple was used.
func (m StatusMapping) Resolve(platformStatus string) (order.StatusTuple, bool) {
	if t, ok := m[platformStatus]; ok {
		return t, true
	}
	return order.DefaultStatusTuple(), false
}

// ReverseStatusMapping maps canonical statuses back to platform tokens.
// Not every canonical status has a platform counterpart; absent entries
// fall back to the canonical token itself (lossy, logged by callers).
type ReverseStatusMapping map[order.Status]string

// Resolve returns the platform token for a canonical status. The second
// return is false when no reverse mapping exists and the canonical token
// was passed through unchanged.
func (m ReverseStatusMapping) Resolve(s order.Status) (string, bool) {
	if t, ok := m[s]; ok {
		return t, true
	}
	return string(s), false
}

// Transformer converts one platform's raw payloads and status tokens to and
// from the canonical model. Adding a platform means registering a Transformer
// and an adapter; the engine itself never changes.
type Transformer interface {
	// Platform returns the platform code this transformer handles
	Platform() string

	// TransformOrder converts a raw platform order into a canonical order.
	// The result is not yet validated.
	TransformOrder(raw RawOrder) (*order.Order, error)

	// TransformStatus maps a platform status token to the canonical tuple.
	// Unknown tokens return the default tuple and known=false, never an error.
	TransformStatus(platformStatus string) (tuple order.StatusTuple, known bool)

	// ReverseTransformStatus maps a canonical status to the platform token.
	// Unmapped statuses return the canonical token unchanged and known=false.
	ReverseTransformStatus(s order.Status) (token string, known bool)
}
