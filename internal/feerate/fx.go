package feerate

import (
	"context"

	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/internal/feerate/ratefile"
	"github.com/smallbiznis/eventledger/internal/feerate/repository"
	"github.com/smallbiznis/eventledger/internal/feerate/repository/dynamo"
	"github.com/smallbiznis/eventledger/internal/feerate/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("feerate.service",
	fx.Provide(provideRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(func(s *service.Service) domain.Source { return s }),
)

// WatchModule keeps the configured rate file published while the app runs.
var WatchModule = fx.Module("feerate.watcher",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, svc domain.Service, log *zap.Logger) error {
		return ratefile.Register(lc, cfg, svc, log)
	}),
)

func provideRepository(cfg config.Config, conn *gorm.DB, log *zap.Logger) (domain.Repository, error) {
	if cfg.Rates.Store != config.RateStoreDynamo {
		return repository.NewRepository(conn), nil
	}
	client, err := dynamo.NewClient(context.Background(), cfg.Rates)
	if err != nil {
		return nil, err
	}
	log.Info("fee rates stored in dynamodb", zap.String("table", cfg.Rates.DynamoTable))
	return dynamo.NewRepository(client, cfg.Rates.DynamoTable), nil
}
