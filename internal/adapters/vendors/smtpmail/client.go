// Package smtpmail implements ports.Vendor over plain SMTP using go-mail.
package smtpmail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"

	"github.com/wneessen/go-mail"
)

// Client delivers email items one message per recipient through an SMTP
// relay. Each Send opens its own connection, so concurrent chunk tasks never
// share transport state.
type Client struct {
	host       string
	port       int
	username   string
	password   string
	fromEmail  string
	encryption string
	timeout    time.Duration
}

// New builds a Client from provider credentials. The host credential is
// required; port defaults to 587.
func New(cfg config.ProviderConfig) (*Client, error) {
	host := cfg.Credentials["host"]
	if host == "" {
		return nil, fmt.Errorf("%w: smtp host not configured", domain.ErrConfiguration)
	}

	port := 587
	if raw := cfg.Credentials["port"]; raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			return nil, fmt.Errorf("%w: invalid smtp port %q", domain.ErrConfiguration, raw)
		}
		port = p
	}

	return &Client{
		host:       host,
		port:       port,
		username:   cfg.Credentials["username"],
		password:   cfg.Credentials["password"],
		fromEmail:  cfg.Credentials["from_email"],
		encryption: cfg.Credentials["encryption"],
		timeout:    cfg.Timeout(),
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string { return config.ProviderSMTP }

// SupportsOTP is false: email vendors never carry the OTP subtype.
func (c *Client) SupportsOTP() bool { return false }

// Send delivers one message per item, recording each outcome on the item.
// A failure to reach the relay is isolated to the item being sent.
func (c *Client) Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error {
	client, err := c.newMailClient()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	for _, item := range items {
		msg, err := c.buildMessage(n, item)
		if err != nil {
			item.MarkFailed(err.Error())
			continue
		}

		if err := client.DialAndSendWithContext(ctx, msg); err != nil {
			item.MarkFailed(err.Error())
			continue
		}
		item.MarkSent("smtp_sent")
	}

	return nil
}

func (c *Client) newMailClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(c.port),
		mail.WithTLSPolicy(tlsPolicy(c.encryption)),
		mail.WithTimeout(c.timeout),
	}
	if c.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(c.username),
			mail.WithPassword(c.password),
		)
	}
	return mail.NewClient(c.host, opts...)
}

func (c *Client) buildMessage(n *domain.Notification, item *domain.Item) (*mail.Msg, error) {
	from := n.FromEmail
	if from == "" {
		from = c.fromEmail
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(item.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", item.Recipient, err)
	}
	for _, cc := range item.CC {
		if err := m.AddCc(cc); err != nil {
			return nil, fmt.Errorf("invalid cc %q: %w", cc, err)
		}
	}
	for _, bcc := range item.BCC {
		if err := m.AddBcc(bcc); err != nil {
			return nil, fmt.Errorf("invalid bcc %q: %w", bcc, err)
		}
	}

	subject := item.Subject
	if subject == "" {
		subject = n.Subject
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, item.Message)

	return m, nil
}

func tlsPolicy(encryption string) mail.TLSPolicy {
	switch encryption {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
