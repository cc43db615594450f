// Package registry builds and orders vendor instances from provider
// configuration. The set of known provider kinds is closed: each kind is
// bound to a constructor at compile time and resolved when the registry is
// built, never per dispatch.
package registry

import (
	"fmt"
	"sort"

	"golang-notify-dispatch/internal/adapters/vendors/sendgrid"
	"golang-notify-dispatch/internal/adapters/vendors/smtpmail"
	"golang-notify-dispatch/internal/adapters/vendors/textlocal"
	"golang-notify-dispatch/internal/adapters/vendors/twofactor"
	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/ports"
)

// Constructor builds a vendor instance from its provider configuration.
type Constructor func(cfg config.ProviderConfig) (ports.Vendor, error)

var constructors = map[domain.Channel]map[string]Constructor{
	domain.ChannelSMS: {
		config.ProviderTwoFactor: func(cfg config.ProviderConfig) (ports.Vendor, error) {
			return twofactor.New(cfg)
		},
		config.ProviderTextLocal: func(cfg config.ProviderConfig) (ports.Vendor, error) {
			return textlocal.New(cfg)
		},
	},
	domain.ChannelEmail: {
		config.ProviderSendGrid: func(cfg config.ProviderConfig) (ports.Vendor, error) {
			return sendgrid.New(cfg)
		},
		config.ProviderSMTP: func(cfg config.ProviderConfig) (ports.Vendor, error) {
			return smtpmail.New(cfg)
		},
	},
}

// Registry holds the vendors configured for one channel, ordered by ascending
// priority. The dispatcher uses only the first vendor; the rest are retained
// but never tried automatically on failure.
type Registry struct {
	channel domain.Channel
	vendors []ports.Vendor
}

// New validates and sorts the provider entries (stable: equal priorities keep
// configuration order) and instantiates a vendor for each.
func New(channel domain.Channel, providers []config.ProviderConfig) (*Registry, error) {
	kinds, ok := constructors[channel]
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrConfiguration, channel)
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no vendor configured for channel %q", domain.ErrConfiguration, channel)
	}

	ordered := make([]config.ProviderConfig, len(providers))
	copy(ordered, providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	vendors := make([]ports.Vendor, 0, len(ordered))
	for _, p := range ordered {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		build, ok := kinds[p.Name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown vendor %q for channel %q", domain.ErrConfiguration, p.Name, channel)
		}
		v, err := build(p)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}

	return &Registry{channel: channel, vendors: vendors}, nil
}

// Channel returns the channel this registry serves.
func (r *Registry) Channel() domain.Channel { return r.channel }

// Primary returns the highest-priority vendor.
func (r *Registry) Primary() ports.Vendor { return r.vendors[0] }

// Vendors returns all configured vendors in priority order.
func (r *Registry) Vendors() []ports.Vendor {
	out := make([]ports.Vendor, len(r.vendors))
	copy(out, r.vendors)
	return out
}
