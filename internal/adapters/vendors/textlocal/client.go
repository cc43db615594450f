// Package textlocal implements ports.Vendor for the TextLocal SMS gateway.
package textlocal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.textlocal.in/send/"

// perItemConcurrency bounds the per-recipient fan-out inside one chunk.
const perItemConcurrency = 16

// Client posts one request per recipient to the TextLocal send endpoint.
// Requests within a chunk run concurrently because the underlying transport
// blocks per call; the items of a chunk are disjoint, so no locking is
// needed.
type Client struct {
	apiKey     string
	senderID   string
	baseURL    string
	httpClient *http.Client
}

// New builds a Client from provider credentials. The api_key credential is
// required. Connect timeout is fixed at 5s; the total timeout comes from the
// provider configuration.
func New(cfg config.ProviderConfig) (*Client, error) {
	apiKey := cfg.Credentials["api_key"]
	if apiKey == "" {
		return nil, fmt.Errorf("%w: textlocal api key not configured", domain.ErrConfiguration)
	}

	return &Client{
		apiKey:   apiKey,
		senderID: cfg.Credentials["sender_id"],
		baseURL:  defaultBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}, nil
}

// SetBaseURL overrides the TextLocal endpoint, for tests and the local mock
// vendor.
func (c *Client) SetBaseURL(baseURL string) { c.baseURL = baseURL }

// Name returns the provider identifier.
func (c *Client) Name() string { return config.ProviderTextLocal }

// SupportsOTP reports OTP capability; TextLocal delivers OTP content as a
// plain message.
func (c *Client) SupportsOTP() bool { return true }

// Send fans out one request per item with bounded concurrency and records
// each outcome on the item. It never returns an error: all failures are
// per-item.
func (c *Client) Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error {
	var g errgroup.Group
	g.SetLimit(perItemConcurrency)

	for _, item := range items {
		item := item
		g.Go(func() error {
			c.sendOne(ctx, n, item)
			return nil
		})
	}

	return g.Wait()
}

func (c *Client) sendOne(ctx context.Context, n *domain.Notification, item *domain.Item) {
	sender := n.SenderID
	if sender == "" {
		sender = c.senderID
	}
	if sender == "" {
		sender = "TXTLCL"
	}

	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("numbers", item.Recipient)
	form.Set("message", item.Message)
	form.Set("sender", sender)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		item.MarkFailed(err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		item.MarkFailed(fmt.Sprintf("read textlocal response: %v", err))
		return
	}

	var parsed map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			parsed = nil
		}
	}

	if resp.StatusCode == http.StatusOK && parsed != nil {
		if errs, found := parsed["errors"]; found {
			item.MarkFailed(fmt.Sprint(errs))
			return
		}
		item.MarkSent(extractMessageID(parsed))
		return
	}

	item.MarkFailed(fmt.Sprintf("TextLocal API error: %d - %s", resp.StatusCode, body))
}

// extractMessageID pulls the vendor message id out of the response; the API
// has used both message_id and messageId over time.
func extractMessageID(parsed map[string]any) string {
	if id, ok := parsed["message_id"]; ok {
		return fmt.Sprint(id)
	}
	if id, ok := parsed["messageId"]; ok {
		return fmt.Sprint(id)
	}
	return "textlocal_sent"
}
