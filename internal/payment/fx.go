package payment

import (
	"errors"

	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/payment/adapters"
	"github.com/smallbiznis/eventledger/internal/payment/adapters/mercadopago"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/internal/payment/repository"
	paymentservice "github.com/smallbiznis/eventledger/internal/payment/service"
	"github.com/smallbiznis/eventledger/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			mercadopago.NewFactory(),
		)
	}),
	fx.Provide(provideGateway),
	fx.Provide(paymentservice.NewService),
	fx.Provide(func(s *paymentservice.Service) paymentdomain.Ledger { return s }),
	fx.Provide(webhook.NewService),
)

func provideGateway(cfg config.Config, registry *adapters.Registry, log *zap.Logger) (paymentdomain.Gateway, error) {
	gw, err := registry.NewGateway(cfg.Gateway, log)
	if errors.Is(err, paymentdomain.ErrGatewayNotConfigured) {
		log.Warn("payment gateway not configured; refunds and callbacks will fail", zap.Error(err))
		return adapters.Unconfigured{Name: cfg.Gateway.Provider, Err: err}, nil
	}
	return gw, err
}
