package audit

import (
	"github.com/burnhq/brnit/internal/audit/repository"
	"github.com/burnhq/brnit/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
