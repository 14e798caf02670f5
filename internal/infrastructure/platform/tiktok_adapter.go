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

// PlatformTikTok is the platform code of the TikTok Shop adapter
const PlatformTikTok = "tiktok"

// TikTokAdapter implements the PlatformAdapter capability for TikTok Shop
type TikTokAdapter struct {
	config    *TikTokConfig
	transport *Transport
	logger    *zap.Logger

	now func() time.Time
}

// NewTikTokAdapter creates a TikTok Shop adapter
func NewTikTokAdapter(config *TikTokConfig, transport *Transport, logger *zap.Logger) (*TikTokAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TikTokAdapter{
		config:    config,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Platform returns the platform code this adapter handles
func (a *TikTokAdapter) Platform() string { return PlatformTikTok }

// Authenticate refreshes the access token using the refresh token
func (a *TikTokAdapter) Authenticate(ctx context.Context, creds *sync.Credentials) error {
	if creds == nil || creds.RefreshToken == "" {
		return sync.ErrPlatformAuthFailed
	}

	path := "/api/token/refresh"
	body := map[string]any{
		"app_key":       a.config.AppKey,
		"app_secret":    a.config.AppSecret,
		"refresh_token": creds.RefreshToken,
		"grant_type":    "refresh_token",
	}

	var resp TikTokTokenResponse
	if err := a.post(ctx, creds, path, body, &resp); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: %d - %s", sync.ErrPlatformAuthFailed, resp.Code, resp.Message)
	}

	creds.AccessToken = resp.Data.AccessToken
	if resp.Data.RefreshToken != "" {
		creds.RefreshToken = resp.Data.RefreshToken
	}
	creds.ExpiresAt = a.now().Add(time.Duration(resp.Data.AccessTokenExpiry) * time.Second)
	return nil
}

// GetOrders fetches one page of orders updated within the query window.
// TikTok paginates by cursor; the engine's numeric offset round-trips
// through the cursor string unchanged.
func (a *TikTokAdapter) GetOrders(ctx context.Context, creds *sync.Credentials, query sync.OrdersQuery) (*sync.OrderPage, error) {
	path := "/api/orders/search"
	body := map[string]any{
		"update_time_from": query.StartDate.Unix(),
		"update_time_to":   query.EndDate.Unix(),
		"page_size":        query.Limit,
		"cursor":           strconv.Itoa(query.Offset),
		"sort_by":          "UPDATE_TIME",
	}
	if query.Status != "" {
		if code, err := strconv.Atoi(query.Status); err == nil {
			body["order_status"] = code
		}
	}

	var resp TikTokOrderListResponse
	if err := a.post(ctx, creds, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &sync.PlatformAPIError{
			Platform: PlatformTikTok,
			Code:     strconv.Itoa(resp.Code),
			Message:  resp.Message,
		}
	}
	if resp.Data == nil {
		return nil, sync.ErrPlatformInvalidResponse
	}

	nextOffset, _ := strconv.Atoi(resp.Data.NextCursor)
	page := &sync.OrderPage{
		Total:      resp.Data.Total,
		HasMore:    resp.Data.More,
		NextOffset: nextOffset,
		Orders:     make([]sync.RawOrder, 0, len(resp.Data.Orders)),
	}
	for _, rawPayload := range resp.Data.Orders {
		var header struct {
			OrderID     string `json:"order_id"`
			OrderStatus int    `json:"order_status"`
		}
		if err := json.Unmarshal(rawPayload, &header); err != nil {
			a.logger.Warn("Skipping unparseable TikTok order payload", zap.Error(err))
			continue
		}
		page.Orders = append(page.Orders, sync.RawOrder{
			PlatformOrderID: header.OrderID,
			Status:          strconv.Itoa(header.OrderStatus),
			Payload:         rawPayload,
		})
	}
	return page, nil
}

// UpdateOrderStatus pushes a status change to TikTok Shop
func (a *TikTokAdapter) UpdateOrderStatus(ctx context.Context, creds *sync.Credentials, platformOrderID, platformStatus string, details *sync.FulfillmentDetails) error {
	if platformStatus != TikTokStatusInTransit {
		a.logger.Debug("TikTok does not accept this status push, ignoring",
			zap.String("platform_order_id", platformOrderID),
			zap.String("status", platformStatus),
		)
		return nil
	}

	path := "/api/order/rts"
	body := map[string]any{
		"order_id": platformOrderID,
	}
	if details != nil {
		if details.TrackingNumber != "" {
			body["tracking_number"] = details.TrackingNumber
		}
		if details.Carrier != "" {
			body["shipping_provider"] = details.Carrier
		}
	}

	var resp TikTokShipResponse
	if err := a.post(ctx, creds, path, body, &resp); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return &sync.PlatformAPIError{
			Platform: PlatformTikTok,
			Code:     strconv.Itoa(resp.Code),
			Message:  resp.Message,
		}
	}
	return nil
}

// post signs and sends one TikTok Shop call through the transport
func (a *TikTokAdapter) post(ctx context.Context, creds *sync.Credentials, path string, body, out any) error {
	ts := strconv.FormatInt(a.now().Unix(), 10)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("tiktok: failed to marshal request: %w", err)
	}

	params := map[string]string{
		"app_key":   a.config.AppKey,
		"timestamp": ts,
		"shop_id":   creds.ShopID,
	}
	sign := a.config.Sign(path, params, string(payload))

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("access_token", creds.AccessToken)
	values.Set("sign", sign)

	endpoint := a.config.APIBaseURL + path + "?" + values.Encode()
	key := PlatformTikTok + ":" + creds.ShopID
	return a.transport.PostJSON(ctx, PlatformTikTok, key, endpoint, nil, body, out)
}

// Ensure TikTokAdapter implements the PlatformAdapter port
var _ sync.PlatformAdapter = (*TikTokAdapter)(nil)
