package finance

import (
	"github.com/smallbiznis/eventledger/internal/finance/report"
	"github.com/smallbiznis/eventledger/internal/finance/repository"
	"github.com/smallbiznis/eventledger/internal/finance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(report.New),
)
