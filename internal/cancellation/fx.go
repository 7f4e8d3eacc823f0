package cancellation

import (
	"github.com/smallbiznis/eventledger/internal/cancellation/repository"
	"github.com/smallbiznis/eventledger/internal/cancellation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cancellation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
