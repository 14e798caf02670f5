package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
)

// PlatformShopee is the platform code of the Shopee adapter
const PlatformShopee = "shopee"

// ShopeeAdapter implements the PlatformAdapter capability for Shopee.
// All outbound calls go through the shared transport, keyed per shop so one
// hot shop cannot starve the others.
type ShopeeAdapter struct {
	config    *ShopeeConfig
	transport *Transport
	logger    *zap.Logger

	// now is swappable for tests, signatures embed fresh timestamps
	now func() time.Time
}

// NewShopeeAdapter creates a Shopee adapter
func NewShopeeAdapter(config *ShopeeConfig, transport *Transport, logger *zap.Logger) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShopeeAdapter{
		config:    config,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Platform returns the platform code this adapter handles
func (a *ShopeeAdapter) Platform() string { return PlatformShopee }

// Authenticate refreshes the access token using the refresh token
func (a *ShopeeAdapter) Authenticate(ctx context.Context, creds *sync.Credentials) error {
	if creds == nil || creds.RefreshToken == "" {
		return sync.ErrPlatformAuthFailed
	}

	path := "/api/v2/auth/access_token/get"
	body := map[string]any{
		"partner_id":    a.config.PartnerID,
		"refresh_token": creds.RefreshToken,
		"shop_id":       mustShopID(creds.ShopID),
	}

	var resp ShopeeTokenResponse
	if err := a.post(ctx, creds, path, false, body, &resp); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %s - %s", sync.ErrPlatformAuthFailed, resp.Error, resp.Message)
	}

	creds.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		creds.RefreshToken = resp.RefreshToken
	}
	creds.ExpiresAt = a.now().Add(time.Duration(resp.ExpireIn) * time.Second)
	return nil
}

// GetOrders fetches one page of orders updated within the query window
func (a *ShopeeAdapter) GetOrders(ctx context.Context, creds *sync.Credentials, query sync.OrdersQuery) (*sync.OrderPage, error) {
	path := "/api/v2/order/get_order_list"
	body := map[string]any{
		"time_range_field":         "update_time",
		"time_from":                query.StartDate.Unix(),
		"time_to":                  query.EndDate.Unix(),
		"page_size":                query.Limit,
		"cursor":                   strconv.Itoa(query.Offset),
		"response_optional_fields": "order_status,item_list,recipient_address,total_amount,create_time,update_time,currency,note,message_to_seller",
	}
	if query.Status != "" {
		body["order_status"] = query.Status
	}

	var resp ShopeeOrderListResponse
	if err := a.post(ctx, creds, path, true, body, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &sync.PlatformAPIError{
			Platform: PlatformShopee,
			Code:     resp.Error,
			Message:  resp.Message,
		}
	}
	if resp.Response == nil {
		return nil, sync.ErrPlatformInvalidResponse
	}

	page := &sync.OrderPage{
		Total:      resp.Response.TotalCount,
		HasMore:    resp.Response.More,
		NextOffset: resp.Response.NextOffset,
		Orders:     make([]sync.RawOrder, 0, len(resp.Response.OrderList)),
	}
	for _, rawPayload := range resp.Response.OrderList {
		var header struct {
			OrderSN     string `json:"order_sn"`
			OrderStatus string `json:"order_status"`
		}
		if err := json.Unmarshal(rawPayload, &header); err != nil {
			a.logger.Warn("Skipping unparseable Shopee order payload", zap.Error(err))
			continue
		}
		page.Orders = append(page.Orders, sync.RawOrder{
			PlatformOrderID: header.OrderSN,
			Status:          header.OrderStatus,
			Payload:         rawPayload,
		})
	}
	return page, nil
}

// UpdateOrderStatus pushes a status change to Shopee. Only the shipped
// transition maps onto a platform operation; Shopee orders otherwise move
// through their own workflow.
func (a *ShopeeAdapter) UpdateOrderStatus(ctx context.Context, creds *sync.Credentials, platformOrderID, platformStatus string, details *sync.FulfillmentDetails) error {
	if platformStatus != ShopeeStatusShipped {
		a.logger.Debug("Shopee does not accept this status push, ignoring",
			zap.String("platform_order_id", platformOrderID),
			zap.String("status", platformStatus),
		)
		return nil
	}

	path := "/api/v2/logistics/ship_order"
	body := map[string]any{
		"order_sn": platformOrderID,
	}
	if details != nil && details.TrackingNumber != "" {
		body["tracking_number"] = details.TrackingNumber
	}

	var resp ShopeeShipOrderResponse
	if err := a.post(ctx, creds, path, true, body, &resp); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return &sync.PlatformAPIError{
			Platform: PlatformShopee,
			Code:     resp.Error,
			Message:  resp.Message,
		}
	}
	return nil
}

// post signs and sends one Shopee API call through the transport
func (a *ShopeeAdapter) post(ctx context.Context, creds *sync.Credentials, path string, shopLevel bool, body, out any) error {
	ts := a.now().Unix()

	params := url.Values{}
	params.Set("partner_id", strconv.FormatInt(a.config.PartnerID, 10))
	params.Set("timestamp", strconv.FormatInt(ts, 10))
	if shopLevel {
		params.Set("access_token", creds.AccessToken)
		params.Set("shop_id", creds.ShopID)
		params.Set("sign", a.config.Sign(path, ts, creds.AccessToken, creds.ShopID))
	} else {
		params.Set("sign", a.config.SignPublic(path, ts))
	}

	endpoint := a.config.APIBaseURL + path + "?" + params.Encode()
	key := PlatformShopee + ":" + creds.ShopID
	return a.transport.PostJSON(ctx, PlatformShopee, key, endpoint, nil, body, out)
}

// mustShopID parses the numeric shop ID, tolerating bad input with zero
func mustShopID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// Ensure ShopeeAdapter implements the PlatformAdapter port
var _ sync.PlatformAdapter = (*ShopeeAdapter)(nil)
