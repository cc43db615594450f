// Package sendgrid implements ports.Vendor for the SendGrid v3 mail API.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"
)

const defaultBaseURL = "https://api.sendgrid.com/v3/mail/send"

// Client delivers an email notification as a single API call carrying one
// personalization per recipient. SendGrid accepts or rejects the whole
// request, so one response fans out to every item in the call.
type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	httpClient *http.Client
}

// New builds a Client from provider credentials. The api_key credential is
// required.
func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := cfg.Credentials["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("%w: sendgrid api key not configured", domain.ErrConfiguration)
	}

	return &Client{
		apiKey:     apiKey,
		fromEmail:  cfg.Credentials["from_email"],
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

// SetBaseURL overrides the SendGrid endpoint, for tests and the local mock
// vendor.
func (c *Client) SetBaseURL(baseURL string) { c.baseURL = baseURL }

// Name returns the provider identifier.
func (c *Client) Name() string { return config.ProviderSendGrid }

// SupportsOTP is false: email vendors never carry the OTP subtype.
func (c *Client) SupportsOTP() bool { return false }

type emailAddr struct {
	Email string `json:"email"`
}

type personalization struct {
	To                  []emailAddr       `json:"to"`
	CC                  []emailAddr       `json:"cc,omitempty"`
	BCC                 []emailAddr       `json:"bcc,omitempty"`
	Subject             string            `json:"subject,omitempty"`
	DynamicTemplateData map[string]string `json:"dynamic_template_data,omitempty"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddr         `json:"from"`
	Subject          string            `json:"subject"`
	Content          []contentPart     `json:"content"`
}

// Send submits one request for all items. On 2xx every item is marked SENT
// with the X-Message-Id header as ext id; on any failure every item is
// marked FAILED with the same error.
func (c *Client) Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error {
	from := n.FromEmail
	if from == "" {
		from = c.fromEmail
	}

	payload := mailRequest{
		From:    emailAddr{Email: from},
		Subject: n.Subject,
	}

	for _, item := range items {
		p := personalization{
			To:      []emailAddr{{Email: item.Recipient}},
			Subject: item.Subject,
		}
		for _, cc := range item.CC {
			p.CC = append(p.CC, emailAddr{Email: cc})
		}
		for _, bcc := range item.BCC {
			p.BCC = append(p.BCC, emailAddr{Email: bcc})
		}
		if len(item.Variables) > 0 {
			p.DynamicTemplateData = item.Variables
		}
		payload.Personalizations = append(payload.Personalizations, p)
	}

	// SendGrid requires at least one content part; items of one notification
	// share the same body text.
	if len(items) > 0 {
		payload.Content = []contentPart{{Type: "text/plain", Value: items[0].Message}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		failAll(items, fmt.Sprintf("marshal sendgrid request: %v", err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		failAll(items, err.Error())
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		failAll(items, err.Error())
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		extID := resp.Header.Get("X-Message-Id")
		for _, item := range items {
			item.MarkSent(extID)
		}
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	failAll(items, fmt.Sprintf("SendGrid API error: %d - %s", resp.StatusCode, respBody))
	return nil
}

func failAll(items []*domain.Item, reason string) {
	for _, item := range items {
		item.MarkFailed(reason)
	}
}
