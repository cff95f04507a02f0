package migration

import (
	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/config"
	orgdomain "github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (local sqlite, mysql) derive the
			// schema from the models.
			if err := conn.AutoMigrate(
				&authdomain.User{},
				&authdomain.Session{},
				&authdomain.Token{},
				&orgdomain.Organization{},
				&orgdomain.OrganizationMember{},
				&orgdomain.OrganizationInvitation{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultAdmin(conn, cfg)
	}),
)
