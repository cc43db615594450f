// Package twofactor implements ports.Vendor for the 2Factor SMS/OTP gateway.
package twofactor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"
)

const (
	defaultSMSBaseURL = "https://2factor.in/API/R1/"
	defaultOTPBaseURL = "https://2factor.in/API/V1/"
)

// Client sends transactional/promotional SMS through the R1 endpoint and OTP
// messages through the V1 endpoint. A single Client is safe for concurrent
// use: request building is stateless and the http.Client is shared.
type Client struct {
	apiKey       string
	senderID     string
	templateName string
	smsBaseURL   string
	otpBaseURL   string
	httpClient   *http.Client
}

// New builds a Client from provider credentials. The api_key credential is
// required.
func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := cfg.Credentials["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("%w: 2factor api key not configured", domain.ErrConfiguration)
	}

	return &Client{
		apiKey:       apiKey,
		senderID:     cfg.Credentials["sender_id"],
		templateName: cfg.Credentials["template_name"],
		smsBaseURL:   defaultSMSBaseURL,
		otpBaseURL:   defaultOTPBaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
	}, nil
}

// SetBaseURLs overrides the 2Factor endpoints, for tests and the local mock
// vendor.
func (c *Client) SetBaseURLs(smsBaseURL, otpBaseURL string) {
	c.smsBaseURL = smsBaseURL
	c.otpBaseURL = otpBaseURL
}

// Name returns the provider identifier.
func (c *Client) Name() string { return config.ProviderTwoFactor }

// SupportsOTP reports OTP capability; 2Factor has a dedicated OTP API.
func (c *Client) SupportsOTP() bool { return true }

// Send delivers the given items one call per recipient, recording each
// outcome on the item. Transport and API failures stay isolated per item.
func (c *Client) Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error {
	for _, item := range items {
		if n.MessageType == domain.TypeOTP {
			c.sendOTP(ctx, item)
		} else {
			c.sendSMS(ctx, n, item)
		}
	}
	return nil
}

func (c *Client) sendSMS(ctx context.Context, n *domain.Notification, item *domain.Item) {
	module := "TRANS_SMS"
	if n.MessageType == domain.TypePromotional {
		module = "PROMO_SMS"
	}

	sender := n.SenderID
	if sender == "" {
		sender = c.senderID
	}
	if sender == "" {
		sender = "HEADER"
	}

	form := url.Values{}
	form.Set("module", module)
	form.Set("apikey", c.apiKey)
	form.Set("to", normalizeSMSPhone(item.Recipient))
	form.Set("from", sender)
	form.Set("msg", item.Message)

	// DLT identifiers are only meaningful on the transactional route.
	if module == "TRANS_SMS" {
		if n.DLT.PEID != "" {
			form.Set("peid", n.DLT.PEID)
		}
		if n.DLT.TemplateID != "" {
			form.Set("ctid", n.DLT.TemplateID)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.smsBaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.do(req, item, "2factor_sent")
}

func (c *Client) sendOTP(ctx context.Context, item *domain.Item) {
	if item.OTP == "" {
		item.MarkFailed("missing OTP value")
		return
	}

	template := item.TemplateName
	if template == "" {
		template = c.templateName
	}

	endpoint := c.otpBaseURL + c.apiKey + "/SMS/" + normalizeOTPPhone(item.Recipient) + "/" + url.PathEscape(item.OTP)
	if template != "" {
		endpoint += "/" + url.PathEscape(template)
	}

	if len(item.Variables) > 0 {
		q := url.Values{}
		for k, v := range item.Variables {
			q.Set(k, v)
		}
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}

	c.do(req, item, "2factor_otp_sent")
}

// do executes the request and maps the 2Factor response onto the item.
// Responses are JSON {"Status": "...", "Details": "..."} but the API has
// been seen returning bare text, so a body containing "Success" still counts
// as accepted.
func (c *Client) do(req *http.Request, item *domain.Item, fallbackExtID string) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		item.MarkFailed(fmt.Sprintf("read 2factor response: %v", err))
		return
	}

	if resp.StatusCode != http.StatusOK {
		item.MarkFailed(fmt.Sprintf("2Factor API error: %d - %s", resp.StatusCode, body))
		return
	}

	var parsed struct {
		Status  string `json:"Status"`
		Details any    `json:"Details"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if strings.Contains(string(body), "Success") {
			item.MarkSent(fallbackExtID)
		} else {
			item.MarkFailed(fmt.Sprintf("invalid 2factor response: %s", body))
		}
		return
	}

	if parsed.Status == "Success" {
		item.MarkSent(fmt.Sprint(parsed.Details))
		return
	}

	detail := "unknown error"
	if parsed.Details != nil {
		detail = fmt.Sprint(parsed.Details)
	}
	item.MarkFailed(detail)
}

// normalizeSMSPhone prefixes the Indian country code expected by the R1 API.
func normalizeSMSPhone(phone string) string {
	if strings.HasPrefix(phone, "91") || strings.HasPrefix(phone, "+91") {
		return phone
	}
	return "91" + strings.TrimLeft(phone, "+")
}

// normalizeOTPPhone produces the +91 form expected by the V1 API.
func normalizeOTPPhone(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if strings.HasPrefix(phone, "91") {
		return "+" + phone
	}
	return "+91" + strings.TrimLeft(phone, "+")
}
