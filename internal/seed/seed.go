// Package seed bootstraps a usable installation: a default app admin
// who can create organizations and invite the first members.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/auth/password"
	"github.com/burnhq/brnit/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail   = "admin@brnit.app"
	defaultAdminDisplay = "Brnit Admin"
)

// EnsureDefaultAdmin creates the bootstrap admin account when no admin
// exists yet. The password comes from BOOTSTRAP_ADMIN_PASSWORD; with no
// password configured, seeding is skipped entirely.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if cfg.BootstrapAdminPassword == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&authdomain.User{}).
			Where("role = ?", authdomain.AppRoleAdmin).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user := authdomain.User{
			ID:            node.Generate(),
			ExternalID:    uuid.NewString(),
			Provider:      "local",
			DisplayName:   defaultAdminDisplay,
			Email:         strings.ToLower(defaultAdminEmail),
			PasswordHash:  &hashed,
			Role:          authdomain.AppRoleAdmin,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
