package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
)

// teamsCard is the legacy MessageCard payload Teams connectors accept
type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []teamsSection `json:"sections,omitempty"`
}

type teamsSection struct {
	Facts []teamsFact `json:"facts"`
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TeamsSender delivers alerts to Microsoft Teams connector webhooks
type TeamsSender struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTeamsSender creates a Teams sender
func NewTeamsSender(timeout time.Duration, logger *zap.Logger) *TeamsSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TeamsSender{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Kind returns the channel kind this sender handles
func (s *TeamsSender) Kind() alert.ChannelKind { return alert.ChannelTeams }

// Send posts a message card to the channel's connector URL
func (s *TeamsSender) Send(ctx context.Context, channel alert.ChannelConfig, a *alert.Alert) error {
	facts := []teamsFact{
		{Name: "Severity", Value: a.Severity.String()},
		{Name: "Type", Value: a.Type.String()},
		{Name: "Organization", Value: a.OrganizationID.String()},
		{Name: "Raised", Value: a.CreatedAt.UTC().Format(time.RFC3339)},
	}
	if a.StoreID != nil {
		facts = append(facts, teamsFact{Name: "Store", Value: a.StoreID.String()})
	}

	card := teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: severityColor(a.Severity)[1:],
		Summary:    fmt.Sprintf("Sync alert: %s", a.Type.String()),
		Title:      fmt.Sprintf("Sync alert: %s", a.Type.String()),
		Text:       a.Message,
		Sections:   []teamsSection{{Facts: facts}},
	}

	if err := postJSON(ctx, s.httpClient, channel.Recipient, card); err != nil {
		return fmt.Errorf("notify: teams %s: %w", channel.Name, err)
	}
	s.logger.Debug("Teams notification delivered",
		zap.String("channel", channel.Name),
		zap.String("alert_id", a.ID.String()),
	)
	return nil
}

// Ensure TeamsSender implements the Sender port
var _ alert.Sender = (*TeamsSender)(nil)
