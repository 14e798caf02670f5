package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
)

// slackMessage is the incoming-webhook payload Slack accepts
type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	Ts     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// severityColor maps severities onto Slack attachment colors
func severityColor(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "#d00000"
	case alert.SeverityHigh:
		return "#e85d04"
	case alert.SeverityMedium:
		return "#ffba08"
	default:
		return "#8d99ae"
	}
}

// SlackSender delivers alerts to Slack incoming webhooks
type SlackSender struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSlackSender creates a Slack sender
func NewSlackSender(timeout time.Duration, logger *zap.Logger) *SlackSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackSender{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Kind returns the channel kind this sender handles
func (s *SlackSender) Kind() alert.ChannelKind { return alert.ChannelSlack }

// Send posts a formatted alert message to the channel's webhook URL
func (s *SlackSender) Send(ctx context.Context, channel alert.ChannelConfig, a *alert.Alert) error {
	fields := []slackField{
		{Title: "Severity", Value: a.Severity.String(), Short: true},
		{Title: "Type", Value: a.Type.String(), Short: true},
		{Title: "Organization", Value: a.OrganizationID.String(), Short: true},
	}
	if a.StoreID != nil {
		fields = append(fields, slackField{Title: "Store", Value: a.StoreID.String(), Short: true})
	}
	if a.Occurrences > 1 {
		fields = append(fields, slackField{
			Title: "Occurrences",
			Value: fmt.Sprintf("%d", a.Occurrences),
			Short: true,
		})
	}

	msg := slackMessage{
		Text: fmt.Sprintf("Sync alert: %s", a.Type.String()),
		Attachments: []slackAttachment{{
			Color:  severityColor(a.Severity),
			Title:  a.Message,
			Fields: fields,
			Footer: "omnisync",
			Ts:     a.CreatedAt.Unix(),
		}},
	}

	if err := postJSON(ctx, s.httpClient, channel.Recipient, msg); err != nil {
		return fmt.Errorf("notify: slack %s: %w", channel.Name, err)
	}
	s.logger.Debug("Slack notification delivered",
		zap.String("channel", channel.Name),
		zap.String("alert_id", a.ID.String()),
	)
	return nil
}

// Ensure SlackSender implements the Sender port
var _ alert.Sender = (*SlackSender)(nil)
