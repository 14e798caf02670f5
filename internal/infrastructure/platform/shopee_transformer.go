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
// Shopee Transformer
// ---------------------------------------------------------------------------

// shopeeStatusMapping translates Shopee order statuses into canonical tuples
var shopeeStatusMapping = sync.StatusMapping{
	ShopeeStatusUnpaid: {
		Status:            order.StatusPending,
		FinancialStatus:   order.FinancialStatusPending,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	ShopeeStatusReadyShip: {
		Status:            order.StatusPaid,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	ShopeeStatusProcessed: {
		Status:            order.StatusPaid,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusPartial,
	},
	ShopeeStatusShipped: {
		Status:            order.StatusShipped,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	ShopeeStatusCompleted: {
		Status:            order.StatusDelivered,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	ShopeeStatusCancelled: {
		Status:            order.StatusCancelled,
		FinancialStatus:   order.FinancialStatusRefunded,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
}

// shopeeReverseMapping maps canonical statuses back to Shopee tokens
var shopeeReverseMapping = sync.ReverseStatusMapping{
	order.StatusPending:   ShopeeStatusUnpaid,
	order.StatusPaid:      ShopeeStatusReadyShip,
	order.StatusShipped:   ShopeeStatusShipped,
	order.StatusDelivered: ShopeeStatusCompleted,
	order.StatusCancelled: ShopeeStatusCancelled,
}

// ShopeeTransformer converts Shopee payloads into canonical orders
type ShopeeTransformer struct{}

// NewShopeeTransformer creates the Shopee transformer
func NewShopeeTransformer() *ShopeeTransformer { return &ShopeeTransformer{} }

// Platform returns the platform code this transformer handles
func (t *ShopeeTransformer) Platform() string { return PlatformShopee }

// TransformOrder converts a raw Shopee order into a canonical order
func (t *ShopeeTransformer) TransformOrder(raw sync.RawOrder) (*order.Order, error) {
	var so ShopeeOrder
	if err := json.Unmarshal(raw.Payload, &so); err != nil {
		return nil, fmt.Errorf("shopee: failed to parse order payload: %w", err)
	}

	o := &order.Order{
		Platform:        PlatformShopee,
		PlatformOrderID: so.OrderSN,
		OrderNumber:     so.OrderSN,
		Currency:        so.Currency,
		Notes:           joinNotes(so.Note, so.MessageToSeller),
		PlatformData:    string(raw.Payload),
		Customer: order.Customer{
			Name:    so.RecipientAddress.Name,
			Phone:   so.RecipientAddress.Phone,
			City:    so.RecipientAddress.City,
			Address: so.RecipientAddress.FullAddress,
			Country: so.RecipientAddress.Region,
		},
	}

	if so.CreateTime > 0 {
		o.OrderedAt = time.Unix(so.CreateTime, 0).UTC()
	}

	subtotal := decimal.Zero
	for _, it := range so.ItemList {
		unit := parseAmount(it.ModelDiscounted)
		if unit.IsZero() {
			unit = parseAmount(it.ModelOriginalPrice)
		}
		lineTotal := unit.Mul(decimal.NewFromInt(int64(it.ModelQuantity)))
		subtotal = subtotal.Add(lineTotal)

		o.Items = append(o.Items, order.Item{
			PlatformItemID: fmt.Sprintf("%d-%d", it.ItemID, it.ModelID),
			ProductID:      fmt.Sprintf("%d", it.ItemID),
			VariantID:      fmt.Sprintf("%d", it.ModelID),
			Name:           it.ItemName,
			SKU:            firstNonEmpty(it.ModelSKU, it.ItemSKU),
			Quantity:       it.ModelQuantity,
			UnitPrice:      unit,
			Total:          lineTotal,
		})
	}

	total := parseAmount(so.TotalAmount)
	if total.IsZero() {
		total = subtotal
	}
	o.Totals = order.Totals{
		Subtotal: subtotal,
		Shipping: parseAmount(so.ActualAmount),
		Total:    total,
	}
	return o, nil
}

// TransformStatus maps a Shopee status token to the canonical tuple
func (t *ShopeeTransformer) TransformStatus(platformStatus string) (order.StatusTuple, bool) {
	return shopeeStatusMapping.Resolve(platformStatus)
}

// ReverseTransformStatus maps a canonical status to the Shopee token
func (t *ShopeeTransformer) ReverseTransformStatus(s order.Status) (string, bool) {
	return shopeeReverseMapping.Resolve(s)
}

// parseAmount reads a decimal amount from the platform's string encoding,
// treating malformed values as zero
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNotes(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}

// Ensure ShopeeTransformer implements the Transformer port
var _ sync.Transformer = (*ShopeeTransformer)(nil)
