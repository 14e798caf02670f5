package platform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Storefront Transformer
// ---------------------------------------------------------------------------

// storefrontStatusMapping translates storefront statuses into canonical tuples.
// The storefront vocabulary is already close to canonical.
var storefrontStatusMapping = sync.StatusMapping{
	StorefrontStatusPending: {
		Status:            order.StatusPending,
		FinancialStatus:   order.FinancialStatusPending,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	StorefrontStatusPaid: {
		Status:            order.StatusPaid,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	StorefrontStatusShipped: {
		Status:            order.StatusShipped,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	StorefrontStatusDelivered: {
		Status:            order.StatusDelivered,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	StorefrontStatusCancelled: {
		Status:            order.StatusCancelled,
		FinancialStatus:   order.FinancialStatusRefunded,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	StorefrontStatusRefunded: {
		Status:            order.StatusCancelled,
		FinancialStatus:   order.FinancialStatusRefunded,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
}

// storefrontReverseMapping maps canonical statuses back to storefront tokens
var storefrontReverseMapping = sync.ReverseStatusMapping{
	order.StatusPending:   StorefrontStatusPending,
	order.StatusPaid:      StorefrontStatusPaid,
	order.StatusShipped:   StorefrontStatusShipped,
	order.StatusDelivered: StorefrontStatusDelivered,
	order.StatusCancelled: StorefrontStatusCancelled,
}

// StorefrontTransformer converts storefront payloads into canonical orders
type StorefrontTransformer struct{}

// NewStorefrontTransformer creates the storefront transformer
func NewStorefrontTransformer() *StorefrontTransformer { return &StorefrontTransformer{} }

// Platform returns the platform code this transformer handles
func (t *StorefrontTransformer) Platform() string { return PlatformStorefront }

// TransformOrder converts a raw storefront order into a canonical order
func (t *StorefrontTransformer) TransformOrder(raw sync.RawOrder) (*order.Order, error) {
	var so StorefrontOrder
	if err := json.Unmarshal(raw.Payload, &so); err != nil {
		return nil, fmt.Errorf("storefront: failed to parse order payload: %w", err)
	}

	o := &order.Order{
		Platform:        PlatformStorefront,
		PlatformOrderID: so.ID,
		OrderNumber:     firstNonEmpty(so.OrderNumber, so.ID),
		Currency:        so.Currency,
		Notes:           so.Note,
		Tags:            so.Tags,
		PlatformData:    string(raw.Payload),
		Customer: order.Customer{
			Name:    so.Customer.Name,
			Email:   so.Customer.Email,
			Phone:   so.Customer.Phone,
			City:    so.Customer.City,
			Address: so.Customer.Address,
			Country: so.Customer.Country,
		},
	}

	if so.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, so.CreatedAt); err == nil {
			o.OrderedAt = ts.UTC()
		}
	}

	subtotal := decimal.Zero
	for _, it := range so.Items {
		unit := parseAmount(it.UnitPrice)
		lineTotal := parseAmount(it.Total)
		if lineTotal.IsZero() {
			lineTotal = unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		}
		subtotal = subtotal.Add(lineTotal)

		o.Items = append(o.Items, order.Item{
			PlatformItemID: it.ID,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPrice:      unit,
			Total:          lineTotal,
		})
	}

	reported := parseAmount(so.Subtotal)
	if !reported.IsZero() {
		subtotal = reported
	}
	total := parseAmount(so.Total)
	if total.IsZero() {
		total = subtotal
	}
	o.Totals = order.Totals{
		Subtotal: subtotal,
		Shipping: parseAmount(so.ShippingFee),
		Tax:      parseAmount(so.Tax),
		Discount: parseAmount(so.Discount),
		Total:    total,
	}
	return o, nil
}

// TransformStatus maps a storefront status token to the canonical tuple
func (t *StorefrontTransformer) TransformStatus(platformStatus string) (order.StatusTuple, bool) {
	return storefrontStatusMapping.Resolve(platformStatus)
}

// ReverseTransformStatus maps a canonical status to the storefront token
func (t *StorefrontTransformer) ReverseTransformStatus(s order.Status) (string, bool) {
	return storefrontReverseMapping.Resolve(s)
}

// Ensure StorefrontTransformer implements the Transformer port
var _ sync.Transformer = (*StorefrontTransformer)(nil)
