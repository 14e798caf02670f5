package sync

import (
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/order"
	domain "github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Order Data Normalizer
// ---------------------------------------------------------------------------

// Normalizer transforms raw platform payloads and status tokens into the
// canonical order model. Normalization is deterministic: an identical
// payload against an identical status table yields an identical order.
type Normalizer struct {
	registry *TransformerRegistry
	validate *validator.Validate
	logger   *zap.Logger
}

// NewNormalizer creates a normalizer over the transformer registry
func NewNormalizer(registry *TransformerRegistry, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

// NormalizeOrder converts one raw platform order into a validated canonical
// order. Malformed orders come back as *sync.ValidationError.
func (n *Normalizer) NormalizeOrder(platform string, raw domain.RawOrder) (*order.Order, error) {
	t, err := n.registry.Get(platform)
	if err != nil {
		return nil, err
	}

	o, err := t.TransformOrder(raw)
	if err != nil {
		return nil, &domain.ValidationError{
			Platform:        platform,
			PlatformOrderID: raw.PlatformOrderID,
			Reason:          "payload transform failed",
			Err:             err,
		}
	}

	tuple := n.TransformStatus(platform, raw.Status)
	o.Status = tuple.Status
	o.FinancialStatus = tuple.FinancialStatus
	o.FulfillmentStatus = tuple.FulfillmentStatus

	if err := o.Validate(); err != nil {
		return nil, &domain.ValidationError{
			Platform:        platform,
			PlatformOrderID: raw.PlatformOrderID,
			Err:             err,
		}
	}
	if err := n.validate.Struct(o); err != nil {
		return nil, &domain.ValidationError{
			Platform:        platform,
			PlatformOrderID: raw.PlatformOrderID,
			Reason:          "struct validation failed",
			Err:             err,
		}
	}
	return o, nil
}

// NormalizeBatch processes raw orders independently, collecting per-item
// errors without aborting the batch.
func (n *Normalizer) NormalizeBatch(platform string, raws []domain.RawOrder) ([]*order.Order, []domain.ItemError) {
	orders := make([]*order.Order, 0, len(raws))
	var errs []domain.ItemError

	for _, raw := range raws {
		o, err := n.NormalizeOrder(platform, raw)
		if err != nil {
			errs = append(errs, domain.ItemError{
				PlatformOrderID: raw.PlatformOrderID,
				Op:              "normalize",
				Message:         err.Error(),
				OccurredAt:      time.Now(),
			})
			continue
		}
		orders = append(orders, o)
	}
	return orders, errs
}

// TransformStatus maps a platform status token to the canonical tuple.
// Unknown tokens never fail: they resolve to the conservative default tuple
// with a logged warning, so one odd status cannot block the pipeline.
func (n *Normalizer) TransformStatus(platform, platformStatus string) order.StatusTuple {
	t, err := n.registry.Get(platform)
	if err != nil {
		n.logger.Warn("No transformer for platform, using default status tuple",
			zap.String("platform", platform),
		)
		return order.DefaultStatusTuple()
	}

	tuple, known := t.TransformStatus(platformStatus)
	if !known {
		n.logger.Warn("Unknown platform status, using default status tuple",
			zap.String("platform", platform),
			zap.String("platform_status", platformStatus),
		)
	}
	return tuple
}

// ReverseTransformStatus maps a canonical status back to the platform token.
// When no reverse mapping exists the canonical token passes through
// unchanged; the fallback is lossy and logged.
func (n *Normalizer) ReverseTransformStatus(platform string, s order.Status) string {
	t, err := n.registry.Get(platform)
	if err != nil {
		return string(s)
	}

	token, known := t.ReverseTransformStatus(s)
	if !known {
		n.logger.Warn("No reverse status mapping, passing local status through",
			zap.String("platform", platform),
			zap.String("status", string(s)),
		)
	}
	return token
}
