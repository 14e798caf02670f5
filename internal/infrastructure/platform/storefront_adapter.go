package platform

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/sync"
)

// PlatformStorefront is the platform code of the custom storefront adapter
const PlatformStorefront = "storefront"

// StorefrontAdapter implements the PlatformAdapter capability for a
// merchant's own storefront API. Unlike the marketplace adapters it speaks a
// plain REST dialect with bearer-token auth.
type StorefrontAdapter struct {
	config    *StorefrontConfig
	transport *Transport
	logger    *zap.Logger

	now func() time.Time
}

// NewStorefrontAdapter creates a storefront adapter
func NewStorefrontAdapter(config *StorefrontConfig, transport *Transport, logger *zap.Logger) (*StorefrontAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &StorefrontAdapter{
		config:    config,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Platform returns the platform code this adapter handles
func (a *StorefrontAdapter) Platform() string { return PlatformStorefront }

// Authenticate mints a fresh bearer token from the shared API secret.
// The storefront has no token exchange endpoint; tokens are self-issued.
func (a *StorefrontAdapter) Authenticate(_ context.Context, creds *sync.Credentials) error {
	if creds == nil {
		return sync.ErrCredentialsNotFound
	}
	token, expiresAt, err := a.config.MintToken(creds.ShopID, a.now())
	if err != nil {
		return err
	}
	creds.AccessToken = token
	creds.ExpiresAt = expiresAt
	return nil
}

// GetOrders fetches one page of orders updated within the query window
func (a *StorefrontAdapter) GetOrders(ctx context.Context, creds *sync.Credentials, query sync.OrdersQuery) (*sync.OrderPage, error) {
	params := url.Values{}
	params.Set("updated_at_min", query.StartDate.UTC().Format(time.RFC3339))
	params.Set("updated_at_max", query.EndDate.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(query.Limit))
	params.Set("offset", strconv.Itoa(query.Offset))
	if query.Status != "" {
		params.Set("status", query.Status)
	}

	endpoint := a.config.APIBaseURL + "/api/v1/orders?" + params.Encode()

	var resp StorefrontOrderListResponse
	if err := a.transport.GetJSON(ctx, PlatformStorefront, a.key(creds), endpoint, a.headers(creds), &resp); err != nil {
		return nil, err
	}

	page := &sync.OrderPage{
		Total:      resp.Total,
		HasMore:    resp.HasMore,
		NextOffset: query.Offset + len(resp.Orders),
		Orders:     make([]sync.RawOrder, 0, len(resp.Orders)),
	}
	for _, rawPayload := range resp.Orders {
		var header struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(rawPayload, &header); err != nil {
			a.logger.Warn("Skipping unparseable storefront order payload", zap.Error(err))
			continue
		}
		page.Orders = append(page.Orders, sync.RawOrder{
			PlatformOrderID: header.ID,
			Status:          header.Status,
			Payload:         rawPayload,
		})
	}
	return page, nil
}

// UpdateOrderStatus pushes a status change to the storefront
func (a *StorefrontAdapter) UpdateOrderStatus(ctx context.Context, creds *sync.Credentials, platformOrderID, platformStatus string, details *sync.FulfillmentDetails) error {
	body := StorefrontStatusUpdateRequest{Status: platformStatus}
	if details != nil {
		body.TrackingNumber = details.TrackingNumber
		body.Carrier = details.Carrier
	}

	endpoint := a.config.APIBaseURL + "/api/v1/orders/" + url.PathEscape(platformOrderID) + "/status"
	return a.transport.PostJSON(ctx, PlatformStorefront, a.key(creds), endpoint, a.headers(creds), body, nil)
}

func (a *StorefrontAdapter) key(creds *sync.Credentials) string {
	return PlatformStorefront + ":" + creds.ShopID
}

func (a *StorefrontAdapter) headers(creds *sync.Credentials) map[string]string {
	return map[string]string{"Authorization": "Bearer " + creds.AccessToken}
}

// Ensure StorefrontAdapter implements the PlatformAdapter port
var _ sync.PlatformAdapter = (*StorefrontAdapter)(nil)
