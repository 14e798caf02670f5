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
// TikTok Shop Transformer
// ---------------------------------------------------------------------------

// tiktokStatusMapping translates TikTok numeric status tokens into canonical tuples
var tiktokStatusMapping = sync.StatusMapping{
	TikTokStatusUnpaid: {
		Status:            order.StatusPending,
		FinancialStatus:   order.FinancialStatusPending,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	TikTokStatusAwaitingShipment: {
		Status:            order.StatusPaid,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
	TikTokStatusAwaitingCollction: {
		Status:            order.StatusPaid,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusPartial,
	},
	TikTokStatusInTransit: {
		Status:            order.StatusShipped,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	TikTokStatusDelivered: {
		Status:            order.StatusDelivered,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	TikTokStatusCompleted: {
		Status:            order.StatusDelivered,
		FinancialStatus:   order.FinancialStatusPaid,
		FulfillmentStatus: order.FulfillmentStatusFulfilled,
	},
	TikTokStatusCancelled: {
		Status:            order.StatusCancelled,
		FinancialStatus:   order.FinancialStatusRefunded,
		FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
	},
}

// tiktokReverseMapping maps canonical statuses back to TikTok tokens
var tiktokReverseMapping = sync.ReverseStatusMapping{
	order.StatusPending:   TikTokStatusUnpaid,
	order.StatusPaid:      TikTokStatusAwaitingShipment,
	order.StatusShipped:   TikTokStatusInTransit,
	order.StatusDelivered: TikTokStatusDelivered,
	order.StatusCancelled: TikTokStatusCancelled,
}

// TikTokTransformer converts TikTok Shop payloads into canonical orders
type TikTokTransformer struct{}

// NewTikTokTransformer creates the TikTok Shop transformer
func NewTikTokTransformer() *TikTokTransformer { return &TikTokTransformer{} }

// Platform returns the platform code this transformer handles
func (t *TikTokTransformer) Platform() string { return PlatformTikTok }

// TransformOrder converts a raw TikTok order into a canonical order.
// TikTok reports all monetary amounts in the smallest currency unit.
func (t *TikTokTransformer) TransformOrder(raw sync.RawOrder) (*order.Order, error) {
	var to TikTokOrder
	if err := json.Unmarshal(raw.Payload, &to); err != nil {
		return nil, fmt.Errorf("tiktok: failed to parse order payload: %w", err)
	}

	currency := to.Currency
	if currency == "" {
		currency = to.PaymentInfo.Currency
	}

	o := &order.Order{
		Platform:        PlatformTikTok,
		PlatformOrderID: to.OrderID,
		OrderNumber:     to.OrderID,
		Currency:        currency,
		Notes:           to.BuyerMessage,
		PlatformData:    string(raw.Payload),
		Customer: order.Customer{
			Name:    to.RecipientAddress.Name,
			Phone:   to.RecipientAddress.Phone,
			City:    to.RecipientAddress.City,
			Address: to.RecipientAddress.FullAddress,
			Country: to.RecipientAddress.Region,
		},
	}

	if to.CreateTime > 0 {
		o.OrderedAt = time.Unix(to.CreateTime, 0).UTC()
	}

	subtotal := decimal.Zero
	for _, it := range to.ItemList {
		unit := centsToDecimal(it.SalePrice)
		lineTotal := unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		o.Items = append(o.Items, order.Item{
			PlatformItemID: it.OrderLineID,
			ProductID:      it.ProductID,
			VariantID:      it.SkuID,
			Name:           it.ProductName,
			SKU:            firstNonEmpty(it.SellerSku, it.SkuID),
			Quantity:       it.Quantity,
			UnitPrice:      unit,
			Total:          lineTotal,
		})
	}

	total := centsToDecimal(to.PaymentInfo.TotalAmount)
	if total.IsZero() {
		total = subtotal
	}
	o.Totals = order.Totals{
		Subtotal: subtotal,
		Shipping: centsToDecimal(to.PaymentInfo.ShippingFee),
		Tax:      centsToDecimal(to.PaymentInfo.Taxes),
		Discount: centsToDecimal(to.PaymentInfo.SellerDiscount + to.PaymentInfo.PlatformDiscount),
		Total:    total,
	}
	return o, nil
}

// TransformStatus maps a TikTok status token to the canonical tuple
func (t *TikTokTransformer) TransformStatus(platformStatus string) (order.StatusTuple, bool) {
	return tiktokStatusMapping.Resolve(platformStatus)
}

// ReverseTransformStatus maps a canonical status to the TikTok token
func (t *TikTokTransformer) ReverseTransformStatus(s order.Status) (string, bool) {
	return tiktokReverseMapping.Resolve(s)
}

// centsToDecimal converts a smallest-unit amount into a decimal value
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// Ensure TikTokTransformer implements the Transformer port
var _ sync.Transformer = (*TikTokTransformer)(nil)
