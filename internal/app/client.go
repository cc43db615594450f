package app

import (
	"fmt"
	"log/slog"
	"sync"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/dispatch"
	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/registry"
)

// Client is the programmatic entry point to the dispatch pipeline. It builds
// one dispatcher per channel from the process configuration and caches it:
// an explicit construct-once accessor, so vendor instances are created at
// most once per channel and shared across dispatches.
type Client struct {
	cfg *config.Config
	log *slog.Logger

	mu          sync.Mutex
	dispatchers map[domain.Channel]*dispatch.Dispatcher
}

// NewClient creates a Client. No vendors are constructed until a channel's
// dispatcher is first requested.
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	return &Client{
		cfg:         cfg,
		log:         log,
		dispatchers: make(map[domain.Channel]*dispatch.Dispatcher),
	}
}

// Dispatcher returns the dispatcher for the given channel, constructing and
// caching it on first use. Configuration errors (no providers, unknown
// vendor name, missing credentials) surface here, fail-fast.
func (c *Client) Dispatcher(channel domain.Channel) (*dispatch.Dispatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.dispatchers[channel]; ok {
		return d, nil
	}

	var providers []config.ProviderConfig
	switch channel {
	case domain.ChannelSMS:
		providers = c.cfg.SMSProviders()
	case domain.ChannelEmail:
		providers = c.cfg.EmailProviders()
	default:
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrConfiguration, channel)
	}

	reg, err := registry.New(channel, providers)
	if err != nil {
		return nil, err
	}

	exec := dispatch.NewExecutor(c.cfg.BatchSize, c.cfg.MaxConcurrentBatches, c.log)
	d := dispatch.New(reg.Primary(), exec, c.log)
	c.dispatchers[channel] = d

	c.log.Info("dispatcher initialised",
		"channel", channel, "vendor", reg.Primary().Name(), "configured_vendors", len(reg.Vendors()))

	return d, nil
}
