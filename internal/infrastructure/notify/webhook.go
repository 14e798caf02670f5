package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
)

// webhookPayload is the alert notification wire format. Consumers depend on
// this shape; field names and the ISO-8601 timestamp must not change.
type webhookPayload struct {
	AlertType      string         `json:"alert_type"`
	Severity       string         `json:"severity"`
	OrganizationID string         `json:"organization_id"`
	StoreID        string         `json:"store_id"`
	Message        string         `json:"message"`
	Details        map[string]any `json:"details"`
	CreatedAt      string         `json:"created_at"`
	AlertID        string         `json:"alert_id"`
}

func newWebhookPayload(a *alert.Alert) webhookPayload {
	storeID := ""
	if a.StoreID != nil {
		storeID = a.StoreID.String()
	}
	return webhookPayload{
		AlertType:      a.Type.String(),
		Severity:       a.Severity.String(),
		OrganizationID: a.OrganizationID.String(),
		StoreID:        storeID,
		Message:        a.Message,
		Details:        a.Details,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		AlertID:        a.ID.String(),
	}
}

// WebhookSender delivers alerts as JSON POSTs to the channel's URL
type WebhookSender struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookSender creates a webhook sender
func NewWebhookSender(timeout time.Duration, logger *zap.Logger) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Kind returns the channel kind this sender handles
func (s *WebhookSender) Kind() alert.ChannelKind { return alert.ChannelWebhook }

// Send posts the alert payload to the configured URL
func (s *WebhookSender) Send(ctx context.Context, channel alert.ChannelConfig, a *alert.Alert) error {
	if err := postJSON(ctx, s.httpClient, channel.Recipient, newWebhookPayload(a)); err != nil {
		return fmt.Errorf("notify: webhook %s: %w", channel.Name, err)
	}
	s.logger.Debug("Webhook notification delivered",
		zap.String("channel", channel.Name),
		zap.String("alert_id", a.ID.String()),
	)
	return nil
}

// postJSON sends one JSON POST and treats any non-2xx reply as failure
func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Ensure WebhookSender implements the Sender port
var _ alert.Sender = (*WebhookSender)(nil)
