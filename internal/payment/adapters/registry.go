package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/payment/domain"
	"go.uber.org/zap"
)

// Factory builds a gateway for one provider.
type Factory interface {
	Provider() string
	NewGateway(cfg config.GatewayConfig, log *zap.Logger) (domain.Gateway, error)
}

type Registry struct {
	factories map[string]Factory
}

func NewRegistry(factories ...Factory) *Registry {
	registry := &Registry{factories: map[string]Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(factory.Provider()))
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, ok := r.factories[provider]
	return ok
}

func (r *Registry) NewGateway(cfg config.GatewayConfig, log *zap.Logger) (domain.Gateway, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewGateway(cfg, log)
}

// Unconfigured stands in for a gateway whose credentials are missing so
// ledger and reporting commands still start. Every gateway call fails.
type Unconfigured struct {
	Name string
	Err  error
}

func (u Unconfigured) Provider() string { return u.Name }

func (u Unconfigured) Refund(context.Context, domain.RefundRequest) (domain.RefundResult, error) {
	return domain.RefundResult{}, u.Err
}

func (u Unconfigured) Verify(context.Context, []byte, http.Header) error {
	return u.Err
}

func (u Unconfigured) ParseCallback(context.Context, []byte, http.Header) (*domain.Callback, error) {
	return nil, u.Err
}
