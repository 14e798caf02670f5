package platform

import "encoding/json"

// Storefront order status tokens
const (
	StorefrontStatusPending   = "pending"
	StorefrontStatusPaid      = "paid"
	StorefrontStatusShipped   = "shipped"
	StorefrontStatusDelivered = "delivered"
	StorefrontStatusCancelled = "cancelled"
	StorefrontStatusRefunded  = "refunded"
)

// StorefrontOrderListResponse is the paged order list response
type StorefrontOrderListResponse struct {
	Orders  []json.RawMessage `json:"orders"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	HasMore bool              `json:"has_more"`
}

// StorefrontOrder is the order payload used for normalization
type StorefrontOrder struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"order_number"`
	Status      string             `json:"status"`
	Currency    string             `json:"currency"`
	CreatedAt   string             `json:"created_at"`
	Note        string             `json:"note"`
	Customer    StorefrontCustomer `json:"customer"`
	Items       []StorefrontItem   `json:"items"`
	Subtotal    string             `json:"subtotal"`
	ShippingFee string             `json:"shipping_fee"`
	Tax         string             `json:"tax"`
	Discount    string             `json:"discount"`
	Total       string             `json:"total"`
	Tags        []string           `json:"tags"`
}

// StorefrontCustomer is the buyer block of a storefront order
type StorefrontCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	Address string `json:"address"`
	Country string `json:"country"`
}

// StorefrontItem is one line item of a storefront order
type StorefrontItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

// StorefrontStatusUpdateRequest pushes a status change to the storefront
type StorefrontStatusUpdateRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
}

// StorefrontErrorResponse is the error envelope of the storefront API
type StorefrontErrorResponse struct {
	Error string `json:"error"`
}
