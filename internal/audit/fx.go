package audit

import (
	"github.com/smallbiznis/eventledger/internal/audit/repository"
	"github.com/smallbiznis/eventledger/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(fx.Private, repository.Provide),
	fx.Provide(service.NewService),
)
