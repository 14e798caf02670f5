package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/domain/alert"
)

// SMTPConfig holds outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendMailFunc matches smtp.SendMail; swappable in tests
type sendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers alerts over SMTP. The channel recipient is a
// comma-separated address list.
type EmailSender struct {
	config SMTPConfig
	logger *zap.Logger

	sendMail sendMailFunc
}

// NewEmailSender creates an email sender
func NewEmailSender(config SMTPConfig, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		config:   config,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Kind returns the channel kind this sender handles
func (s *EmailSender) Kind() alert.ChannelKind { return alert.ChannelEmail }

// Send mails the alert to the channel's recipients
func (s *EmailSender) Send(ctx context.Context, channel alert.ChannelConfig, a *alert.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recipients := splitRecipients(channel.Recipient)
	if len(recipients) == 0 {
		return fmt.Errorf("notify: email %s: no recipients configured", channel.Name)
	}

	subject := fmt.Sprintf("[%s] Sync alert: %s", strings.ToUpper(a.Severity.String()), a.Type.String())
	body := renderEmailBody(a)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if err := s.sendMail(addr, auth, s.config.From, recipients, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: email %s: %w", channel.Name, err)
	}
	s.logger.Debug("Email notification delivered",
		zap.String("channel", channel.Name),
		zap.Int("recipients", len(recipients)),
		zap.String("alert_id", a.ID.String()),
	)
	return nil
}

// renderEmailBody formats the alert as a plain-text message
func renderEmailBody(a *alert.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\r\n\r\n", a.Message)
	fmt.Fprintf(&b, "Type: %s\r\n", a.Type.String())
	fmt.Fprintf(&b, "Severity: %s\r\n", a.Severity.String())
	fmt.Fprintf(&b, "Organization: %s\r\n", a.OrganizationID.String())
	if a.StoreID != nil {
		fmt.Fprintf(&b, "Store: %s\r\n", a.StoreID.String())
	}
	fmt.Fprintf(&b, "Raised: %s\r\n", a.CreatedAt.UTC().Format(time.RFC3339))
	if a.Occurrences > 1 {
		fmt.Fprintf(&b, "Occurrences: %d\r\n", a.Occurrences)
	}
	if len(a.Details) > 0 {
		b.WriteString("\r\nDetails:\r\n")
		for k, v := range a.Details {
			fmt.Fprintf(&b, "  %s: %v\r\n", k, v)
		}
	}
	return b.String()
}

// splitRecipients parses a comma-separated address list
func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Ensure EmailSender implements the Sender port
var _ alert.Sender = (*EmailSender)(nil)
