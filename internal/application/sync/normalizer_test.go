package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/order"
	domain "github.com/omnisync/backend/internal/domain/sync"
)

func newTestNormalizer() *Normalizer {
	registry := NewTransformerRegistry()
	registry.Register(testTransformer{})
	return NewNormalizer(registry, zap.NewNop())
}

func TestNormalizer_NormalizeOrder(t *testing.T) {
	n := newTestNormalizer()

	o, err := n.NormalizeOrder("shopee", domain.RawOrder{PlatformOrderID: "1001", Status: "SHIPPED"})

	require.NoError(t, err)
	assert.Equal(t, "1001", o.PlatformOrderID)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, order.FinancialStatusPaid, o.FinancialStatus)
	assert.Equal(t, order.FulfillmentStatusFulfilled, o.FulfillmentStatus)
}

func TestNormalizer_NormalizeOrder_Deterministic(t *testing.T) {
	n := newTestNormalizer()
	raw := domain.RawOrder{PlatformOrderID: "1001", Status: "READY_TO_SHIP"}

	first, err := n.NormalizeOrder("shopee", raw)
	require.NoError(t, err)
	second, err := n.NormalizeOrder("shopee", raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNormalizer_NormalizeOrder_InvalidPayload(t *testing.T) {
	n := newTestNormalizer()

	o, err := n.NormalizeOrder("shopee", domain.RawOrder{PlatformOrderID: "bad-1", Status: "UNPAID"})

	require.Error(t, err)
	assert.Nil(t, o)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "bad-1", ve.PlatformOrderID)
	assert.False(t, domain.IsRetryable(err))
}

func TestNormalizer_NormalizeOrder_UnknownPlatform(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.NormalizeOrder("etsy", domain.RawOrder{PlatformOrderID: "1001"})

	assert.ErrorIs(t, err, domain.ErrUnknownTransformer)
}

func TestNormalizer_NormalizeBatch_CollectsPerItemErrors(t *testing.T) {
	n := newTestNormalizer()
	raws := []domain.RawOrder{
		{PlatformOrderID: "1001", Status: "UNPAID"},
		{PlatformOrderID: "bad-1", Status: "UNPAID"},
		{PlatformOrderID: "1002", Status: "UNPAID"},
	}

	orders, errs := n.NormalizeBatch("shopee", raws)

	assert.Len(t, orders, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "bad-1", errs[0].PlatformOrderID)
	assert.Equal(t, "normalize", errs[0].Op)
}

func TestNormalizer_TransformStatus(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name           string
		platform       string
		platformStatus string
		want           order.StatusTuple
	}{
		{
			name:           "Known token",
			platform:       "shopee",
			platformStatus: "COMPLETED",
			want: order.StatusTuple{
				Status:            order.StatusDelivered,
				FinancialStatus:   order.FinancialStatusPaid,
				FulfillmentStatus: order.FulfillmentStatusFulfilled,
			},
		},
		{
			name:           "Unknown token falls back to default",
			platform:       "shopee",
			platformStatus: "SOME_FUTURE_STATUS",
			want:           order.DefaultStatusTuple(),
		},
		{
			name:           "Unknown platform falls back to default",
			platform:       "etsy",
			platformStatus: "COMPLETED",
			want:           order.DefaultStatusTuple(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.TransformStatus(tt.platform, tt.platformStatus))
		})
	}
}

func TestNormalizer_ReverseTransformStatus(t *testing.T) {
	n := newTestNormalizer()

	// Mapped status uses the platform token
	assert.Equal(t, "SHIPPED", n.ReverseTransformStatus("shopee", order.StatusShipped))
	// Unmapped status passes the canonical token through
	assert.Equal(t, "paid", n.ReverseTransformStatus("shopee", order.StatusPaid))
	// Unknown platform passes through as well
	assert.Equal(t, "shipped", n.ReverseTransformStatus("etsy", order.StatusShipped))
}
