package auth

import (
	"github.com/burnhq/brnit/internal/auth/repository"
	"github.com/burnhq/brnit/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
