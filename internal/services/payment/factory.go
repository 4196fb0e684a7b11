package payment

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a gateway.
type Config struct {
	Provider      Provider
	SecretKey     string
	WebhookSecret string
	Currency      string
}

// Factory builds gateways from configuration.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) CreateGateway(ctx context.Context, cfg Config) (Gateway, error) {
	switch cfg.Provider {
	case ProviderStripe:
		return NewStripe(cfg.SecretKey, cfg.WebhookSecret, cfg.Currency), nil
	case ProviderSimulated:
		return NewSimulated(), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Provider)
	}
}

func (f *Factory) SupportedProviders() []Provider {
	return []Provider{ProviderStripe, ProviderSimulated}
}

// Registry holds the configured gateways. The first registered is primary.
type Registry struct {
	mu       sync.RWMutex
	gateways map[Provider]Gateway
	factory  *Factory
	primary  Provider
}

func NewRegistry(factory *Factory) *Registry {
	return &Registry{
		gateways: make(map[Provider]Gateway),
		factory:  factory,
	}
}

func (r *Registry) Register(ctx context.Context, cfg Config) error {
	gateway, err := r.factory.CreateGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", cfg.Provider, err)
	}
	r.Add(gateway)
	return nil
}

// Add registers an already built gateway.
func (r *Registry) Add(gateway Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gateways[gateway.Provider()] = gateway
	if r.primary == "" {
		r.primary = gateway.Provider()
	}
}

func (r *Registry) Get(provider Provider) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gateway, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("payment provider %s not registered", provider)
	}
	return gateway, nil
}

func (r *Registry) Primary() (Gateway, error) {
	r.mu.RLock()
	primary := r.primary
	r.mu.RUnlock()

	if primary == "" {
		return nil, fmt.Errorf("no primary payment provider configured")
	}
	return r.Get(primary)
}

// Verifiers returns the registered gateways that accept signed webhooks.
func (r *Registry) Verifiers() []WebhookVerifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []WebhookVerifier
	for _, g := range r.gateways {
		if v, ok := g.(WebhookVerifier); ok {
			out = append(out, v)
		}
	}
	return out
}

// CreateCheckoutSession opens a session on the primary gateway.
func (r *Registry) CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*Session, error) {
	gateway, err := r.Primary()
	if err != nil {
		return nil, err
	}
	return gateway.CreateCheckoutSession(ctx, req)
}
