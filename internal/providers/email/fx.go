package email

import (
	"github.com/burnhq/brnit/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Email.SMTPHost == "" {
		log.Warn("smtp not configured, outbound email disabled")
		return &NoOpProvider{}
	}
	return NewSMTP(cfg.Email, cfg.BaseURL)
}
