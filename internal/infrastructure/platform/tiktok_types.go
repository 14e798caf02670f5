package platform

import "encoding/json"

// ---------------------------------------------------------------------------
// TikTok Shop Wire Types
// ---------------------------------------------------------------------------

// TikTok Shop numeric order status codes, carried as string tokens
const (
	TikTokStatusUnpaid            = "100"
	TikTokStatusAwaitingShipment  = "111"
	TikTokStatusAwaitingCollction = "112"
	TikTokStatusInTransit         = "121"
	TikTokStatusDelivered         = "122"
	TikTokStatusCompleted         = "130"
	TikTokStatusCancelled         = "140"
)

// TikTokBaseResponse is the envelope common to all TikTok Shop responses
type TikTokBaseResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// IsSuccess reports whether the platform accepted the request
func (r *TikTokBaseResponse) IsSuccess() bool {
	return r.Code == 0
}

// TikTokOrderListResponse is the order search response
type TikTokOrderListResponse struct {
	TikTokBaseResponse
	Data *TikTokOrderListData `json:"data"`
}

// TikTokOrderListData carries the order page
type TikTokOrderListData struct {
	Orders     []json.RawMessage `json:"order_list"`
	More       bool              `json:"more"`
	NextCursor string            `json:"next_cursor"`
	Total      int64             `json:"total"`
}

// TikTokOrder is the order payload used for normalization
type TikTokOrder struct {
	OrderID          string          `json:"order_id"`
	OrderStatus      int             `json:"order_status"`
	Currency         string          `json:"currency"`
	CreateTime       int64           `json:"create_time"`
	UpdateTime       int64           `json:"update_time"`
	PaymentInfo      TikTokPayment   `json:"payment_info"`
	BuyerMessage     string          `json:"buyer_message"`
	RecipientAddress TikTokRecipient `json:"recipient_address"`
	ItemList         []TikTokItem    `json:"item_list"`
}

// TikTokPayment is the payment block of a TikTok order, amounts in cents
type TikTokPayment struct {
	Currency         string `json:"currency"`
	SubTotal         int64  `json:"sub_total"`
	ShippingFee      int64  `json:"shipping_fee"`
	TotalAmount      int64  `json:"total_amount"`
	Taxes            int64  `json:"taxes"`
	SellerDiscount   int64  `json:"seller_discount"`
	PlatformDiscount int64  `json:"platform_discount"`
}

// TikTokRecipient is the delivery block of a TikTok order
type TikTokRecipient struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	FullAddress string `json:"full_address"`
	Region      string `json:"region_code"`
	Zipcode     string `json:"zipcode"`
}

// TikTokItem is one line item of a TikTok order
type TikTokItem struct {
	OrderLineID string `json:"order_line_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SkuID       string `json:"sku_id"`
	SellerSku   string `json:"seller_sku"`
	Quantity    int    `json:"quantity"`
	// SalePrice is the unit price in cents
	SalePrice int64 `json:"sale_price"`
}

// TikTokShipResponse is the ship-package response
type TikTokShipResponse struct {
	TikTokBaseResponse
}

// TikTokTokenResponse is the token refresh response
type TikTokTokenResponse struct {
	TikTokBaseResponse
	Data struct {
		AccessToken       string `json:"access_token"`
		RefreshToken      string `json:"refresh_token"`
		AccessTokenExpiry int64  `json:"access_token_expire_in"`
	} `json:"data"`
}
