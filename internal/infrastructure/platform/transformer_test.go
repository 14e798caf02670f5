package platform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/sync"
)

func TestShopeeTransformOrder(t *testing.T) {
	payload := []byte(`{
		"order_sn": "SN-1001",
		"order_status": "READY_TO_SHIP",
		"currency": "SGD",
		"create_time": 1700000000,
		"total_amount": "45.00",
		"actual_shipping_fee": "5.00",
		"note": "leave at door",
		"message_to_seller": "gift wrap",
		"recipient_address": {
			"name": "Mei Lin",
			"phone": "+6591234567",
			"city": "Singapore",
			"full_address": "1 Marina Blvd",
			"region": "SG"
		},
		"item_list": [
			{
				"item_id": 7001,
				"item_name": "Ceramic Mug",
				"item_sku": "MUG",
				"model_id": 42,
				"model_sku": "MUG-BLUE",
				"model_quantity_purchased": 2,
				"model_original_price": "25.00",
				"model_discounted_price": "20.00"
			}
		]
	}`)

	tf := NewShopeeTransformer()
	o, err := tf.TransformOrder(sync.RawOrder{PlatformOrderID: "SN-1001", Status: "READY_TO_SHIP", Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, PlatformShopee, o.Platform)
	assert.Equal(t, "SN-1001", o.PlatformOrderID)
	assert.Equal(t, "SGD", o.Currency)
	assert.Equal(t, "Mei Lin", o.Customer.Name)
	assert.Equal(t, "Singapore", o.Customer.City)
	assert.Equal(t, "leave at door; gift wrap", o.Notes)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), o.OrderedAt)

	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.Equal(t, "7001-42", it.PlatformItemID)
	assert.Equal(t, "MUG-BLUE", it.SKU)
	assert.Equal(t, 2, it.Quantity)
	assert.True(t, it.UnitPrice.Equal(decimal.RequireFromString("20.00")), "discounted price wins over original")
	assert.True(t, it.Total.Equal(decimal.RequireFromString("40.00")))

	assert.True(t, o.Totals.Subtotal.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, o.Totals.Total.Equal(decimal.RequireFromString("45.00")))
	assert.JSONEq(t, string(payload), o.PlatformData, "raw payload is preserved opaquely")
}

func TestTikTokTransformOrder(t *testing.T) {
	payload := []byte(`{
		"order_id": "TT-2002",
		"order_status": 111,
		"create_time": 1700000000,
		"buyer_message": "call on arrival",
		"payment_info": {
			"currency": "USD",
			"sub_total": 3000,
			"shipping_fee": 250,
			"taxes": 100,
			"seller_discount": 150,
			"platform_discount": 50,
			"total_amount": 3150
		},
		"recipient_address": {
			"name": "Jordan Reyes",
			"phone": "+14155550101",
			"city": "Austin",
			"full_address": "500 Congress Ave",
			"region_code": "US"
		},
		"item_list": [
			{
				"order_line_id": "L-1",
				"product_id": "P-9",
				"product_name": "Desk Lamp",
				"sku_id": "S-9",
				"seller_sku": "LAMP-WHT",
				"quantity": 2,
				"sale_price": 1500
			}
		]
	}`)

	tf := NewTikTokTransformer()
	o, err := tf.TransformOrder(sync.RawOrder{PlatformOrderID: "TT-2002", Status: "111", Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, PlatformTikTok, o.Platform)
	assert.Equal(t, "USD", o.Currency, "currency falls back to the payment block")
	assert.Equal(t, "Jordan Reyes", o.Customer.Name)

	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.Equal(t, "LAMP-WHT", it.SKU)
	assert.True(t, it.UnitPrice.Equal(decimal.RequireFromString("15")), "cent amounts become major units")
	assert.True(t, it.Total.Equal(decimal.RequireFromString("30")))

	assert.True(t, o.Totals.Shipping.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, o.Totals.Tax.Equal(decimal.RequireFromString("1")))
	assert.True(t, o.Totals.Discount.Equal(decimal.RequireFromString("2")), "seller and platform discounts combine")
	assert.True(t, o.Totals.Total.Equal(decimal.RequireFromString("31.5")))
}

func TestStorefrontTransformOrder(t *testing.T) {
	payload := []byte(`{
		"id": "SF-3003",
		"order_number": "1042",
		"status": "paid",
		"currency": "EUR",
		"created_at": "2026-08-20T10:30:00Z",
		"note": "fragile",
		"tags": ["vip"],
		"customer": {
			"name": "Anna Keller",
			"email": "anna@example.com",
			"city": "Berlin",
			"address": "Unter den Linden 5",
			"country": "DE"
		},
		"items": [
			{
				"id": "li-1",
				"product_id": "prod-1",
				"variant_id": "var-1",
				"name": "Poster",
				"sku": "POSTER-A2",
				"quantity": 3,
				"unit_price": "12.50",
				"total": "37.50"
			}
		],
		"subtotal": "37.50",
		"shipping_fee": "4.90",
		"total": "42.40"
	}`)

	tf := NewStorefrontTransformer()
	o, err := tf.TransformOrder(sync.RawOrder{PlatformOrderID: "SF-3003", Status: "paid", Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, "1042", o.OrderNumber)
	assert.Equal(t, []string{"vip"}, o.Tags)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC), o.OrderedAt)
	require.Len(t, o.Items, 1)
	assert.True(t, o.Items[0].Total.Equal(decimal.RequireFromString("37.50")))
	assert.True(t, o.Totals.Total.Equal(decimal.RequireFromString("42.40")))
}

func TestTransformOrderRejectsMalformedPayload(t *testing.T) {
	raw := sync.RawOrder{PlatformOrderID: "x", Status: "y", Payload: json.RawMessage(`{"order_sn":`)}

	_, err := NewShopeeTransformer().TransformOrder(raw)
	assert.Error(t, err)
	_, err = NewTikTokTransformer().TransformOrder(raw)
	assert.Error(t, err)
	_, err = NewStorefrontTransformer().TransformOrder(raw)
	assert.Error(t, err)
}

func TestStatusMappings(t *testing.T) {
	tests := []struct {
		name        string
		transformer sync.Transformer
		platform    string
		token       string
		want        order.StatusTuple
	}{
		{
			name:        "shopee ready to ship",
			transformer: NewShopeeTransformer(),
			token:       ShopeeStatusReadyShip,
			want: order.StatusTuple{
				Status:            order.StatusPaid,
				FinancialStatus:   order.FinancialStatusPaid,
				FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
			},
		},
		{
			name:        "shopee cancelled refunds",
			transformer: NewShopeeTransformer(),
			token:       ShopeeStatusCancelled,
			want: order.StatusTuple{
				Status:            order.StatusCancelled,
				FinancialStatus:   order.FinancialStatusRefunded,
				FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
			},
		},
		{
			name:        "tiktok in transit is shipped",
			transformer: NewTikTokTransformer(),
			token:       TikTokStatusInTransit,
			want: order.StatusTuple{
				Status:            order.StatusShipped,
				FinancialStatus:   order.FinancialStatusPaid,
				FulfillmentStatus: order.FulfillmentStatusFulfilled,
			},
		},
		{
			name:        "tiktok completed is delivered",
			transformer: NewTikTokTransformer(),
			token:       TikTokStatusCompleted,
			want: order.StatusTuple{
				Status:            order.StatusDelivered,
				FinancialStatus:   order.FinancialStatusPaid,
				FulfillmentStatus: order.FulfillmentStatusFulfilled,
			},
		},
		{
			name:        "storefront refunded maps to cancelled",
			transformer: NewStorefrontTransformer(),
			token:       StorefrontStatusRefunded,
			want: order.StatusTuple{
				Status:            order.StatusCancelled,
				FinancialStatus:   order.FinancialStatusRefunded,
				FulfillmentStatus: order.FulfillmentStatusUnfulfilled,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.transformer.TransformStatus(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusMappingUnknownToken(t *testing.T) {
	for _, tf := range []sync.Transformer{
		NewShopeeTransformer(),
		NewTikTokTransformer(),
		NewStorefrontTransformer(),
	} {
		got, ok := tf.TransformStatus("TOTALLY_UNKNOWN")
		assert.False(t, ok, "platform %s", tf.Platform())
		assert.Equal(t, order.DefaultStatusTuple(), got, "unknown tokens resolve to the safe default")
	}
}

func TestReverseStatusMappings(t *testing.T) {
	t.Run("known canonical statuses map to platform tokens", func(t *testing.T) {
		token, ok := NewShopeeTransformer().ReverseTransformStatus(order.StatusShipped)
		require.True(t, ok)
		assert.Equal(t, ShopeeStatusShipped, token)

		token, ok = NewTikTokTransformer().ReverseTransformStatus(order.StatusShipped)
		require.True(t, ok)
		assert.Equal(t, TikTokStatusInTransit, token)

		token, ok = NewStorefrontTransformer().ReverseTransformStatus(order.StatusDelivered)
		require.True(t, ok)
		assert.Equal(t, StorefrontStatusDelivered, token)
	})

	t.Run("unmapped canonical status passes through unchanged", func(t *testing.T) {
		token, ok := NewTikTokTransformer().ReverseTransformStatus(order.Status("archived"))
		assert.False(t, ok)
		assert.Equal(t, "archived", token)
	})
}
