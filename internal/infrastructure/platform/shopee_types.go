package platform

import "encoding/json"

// ---------------------------------------------------------------------------
// Shopee Wire Types
// ---------------------------------------------------------------------------

// Shopee order status tokens
const (
	ShopeeStatusUnpaid     = "UNPAID"
	ShopeeStatusReadyShip  = "READY_TO_SHIP"
	ShopeeStatusProcessed  = "PROCESSED"
	ShopeeStatusShipped    = "SHIPPED"
	ShopeeStatusCompleted  = "COMPLETED"
	ShopeeStatusCancelled  = "CANCELLED"
	ShopeeStatusInvoiceErr = "INVOICE_PENDING"
)

// ShopeeBaseResponse is the envelope common to all Shopee responses
type ShopeeBaseResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// IsSuccess reports whether the platform accepted the request
func (r *ShopeeBaseResponse) IsSuccess() bool {
	return r.Error == ""
}

// ShopeeOrderListResponse is the order search response
type ShopeeOrderListResponse struct {
	ShopeeBaseResponse
	Response *ShopeeOrderListData `json:"response"`
}

// ShopeeOrderListData carries the order page
type ShopeeOrderListData struct {
	OrderList  []json.RawMessage `json:"order_list"`
	More       bool              `json:"more"`
	NextOffset int               `json:"next_offset"`
	TotalCount int64             `json:"total_count"`
}

// ShopeeOrder is the order payload used for normalization
type ShopeeOrder struct {
	OrderSN          string          `json:"order_sn"`
	OrderStatus      string          `json:"order_status"`
	Currency         string          `json:"currency"`
	CreateTime       int64           `json:"create_time"`
	UpdateTime       int64           `json:"update_time"`
	TotalAmount      string          `json:"total_amount"`
	ActualAmount     string          `json:"actual_shipping_fee"`
	Note             string          `json:"note"`
	MessageToSeller  string          `json:"message_to_seller"`
	RecipientAddress ShopeeRecipient `json:"recipient_address"`
	ItemList         []ShopeeItem    `json:"item_list"`
}

// ShopeeRecipient is the delivery block of a Shopee order
type ShopeeRecipient struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	FullAddress string `json:"full_address"`
	Region      string `json:"region"`
	Zipcode     string `json:"zipcode"`
}

// ShopeeItem is one line item of a Shopee order
type ShopeeItem struct {
	ItemID             int64  `json:"item_id"`
	ItemName           string `json:"item_name"`
	ItemSKU            string `json:"item_sku"`
	ModelID            int64  `json:"model_id"`
	ModelSKU           string `json:"model_sku"`
	ModelQuantity      int    `json:"model_quantity_purchased"`
	ModelOriginalPrice string `json:"model_original_price"`
	ModelDiscounted    string `json:"model_discounted_price"`
}

// ShopeeShipOrderResponse is the ship-order response
type ShopeeShipOrderResponse struct {
	ShopeeBaseResponse
}

// ShopeeTokenResponse is the token refresh response
type ShopeeTokenResponse struct {
	ShopeeBaseResponse
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}
