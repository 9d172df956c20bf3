package gateway

import (
	"checkout-system/internal/services/gateway/phonepe"
	"context"
	"fmt"
	"log/slog"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct{}

// NewFactory creates a new gateway factory
func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateGateway creates a gateway instance based on provider type and configuration
func (f *DefaultFactory) CreateGateway(ctx context.Context, provider Provider, config interface{}) (PaymentGateway, error) {
	switch provider {
	case ProviderPhonePe:
		phonepeConfig, ok := config.(*phonepe.Config)
		if !ok {
			return nil, fmt.Errorf("invalid PhonePe config type, expected *phonepe.Config")
		}
		return NewPhonePeAdapter(ctx, phonepeConfig)

	default:
		return nil, fmt.Errorf("unsupported gateway provider: %s", provider)
	}
}

// GetSupportedProviders returns list of supported gateway providers
func (f *DefaultFactory) GetSupportedProviders() []Provider {
	return []Provider{
		ProviderPhonePe,
	}
}

// Registry manages multiple gateway instances
type Registry struct {
	gateways map[Provider]PaymentGateway
	factory  Factory
	primary  Provider
}

// NewRegistry creates a new gateway registry
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		gateways: make(map[Provider]PaymentGateway),
		factory:  factory,
	}
}

// Register creates and registers a gateway instance. The first registered
// gateway becomes the primary one.
func (r *Registry) Register(ctx context.Context, provider Provider, config interface{}) error {
	gw, err := r.factory.CreateGateway(ctx, provider, config)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", provider, err)
	}

	r.gateways[provider] = gw

	if r.primary == "" {
		r.primary = provider
	}

	return nil
}

// Get returns a gateway instance by provider
func (r *Registry) Get(provider Provider) (PaymentGateway, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("gateway provider %s not registered", provider)
	}
	return gw, nil
}

// Primary returns the primary gateway instance
func (r *Registry) Primary() (PaymentGateway, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("no primary gateway configured")
	}
	return r.Get(r.primary)
}

// Close gracefully closes all gateway connections
func (r *Registry) Close(ctx context.Context) error {
	for provider, gw := range r.gateways {
		if err := gw.Close(ctx); err != nil {
			slog.Error("gateway.Close()", "provider", provider, "error", err)
		}
	}
	return nil
}
