package organization

import (
	"github.com/burnhq/brnit/internal/organization/repository"
	"github.com/burnhq/brnit/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
