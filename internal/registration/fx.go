package registration

import (
	"github.com/smallbiznis/eventledger/internal/registration/catalog"
	"github.com/smallbiznis/eventledger/internal/registration/repository"
	"github.com/smallbiznis/eventledger/internal/registration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("registration.service",
	fx.Provide(repository.Provide),
	fx.Provide(catalog.NewSQL),
	fx.Provide(service.NewService),
)
