// Package authorization enforces the organization permission model.
// Policies are seeded from the rbac registry at startup, so the casbin
// enforcer and the capability endpoint can never disagree; role
// grouping per organization is derived from the membership table on
// each check.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	orgdomain "github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

var ErrInvalidActor = errors.New("invalid_actor")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer builds the casbin enforcer backed by the application
// database and seeds it with the registry's grants.
func NewEnforcer(db *gorm.DB, registry *rbac.Registry) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer, registry); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) orgdomain.Authorizer {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// Authorize answers whether the user may perform action on resource in
// the organization. App admins bypass org scoping; everyone else is
// resolved to their membership role and checked against the seeded
// policy set. Non-members deny.
func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, resource rbac.Resource, action rbac.Action) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	if orgID == 0 {
		return orgdomain.ErrOrganizationNotFound
	}

	admin, err := s.isAppAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if admin {
		return nil
	}

	role, err := s.roleForUser(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrForbidden) {
			s.auditDenied(ctx, userID, orgID, resource, action)
		}
		return err
	}

	subject := fmt.Sprintf("user:%s", userID)
	roleName := fmt.Sprintf("role:%s", role)
	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, string(resource), string(action))
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, userID, orgID, resource, action)
		return orgdomain.ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) isAppAdmin(ctx context.Context, userID snowflake.ID) (bool, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role FROM users WHERE id = ? LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return false, err
	}
	return row.Role == "admin", nil
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM organization_members
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", orgdomain.ErrForbidden
	}
	return strings.ToLower(role), nil
}

// ensureGrouping syncs the user's casbin grouping in the org domain to
// the membership role. A stale grouping from a previous role is removed
// so a role change takes effect on the next check.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, resource rbac.Resource, action rbac.Action) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	targetID := string(resource)
	_ = s.auditSvc.AuditLog(ctx, &orgID, auditdomain.ActorTypeUser, &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"resource": string(resource),
		"action":   string(action),
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer, registry *rbac.Registry) error {
	for _, grant := range registry.Grants() {
		policy := []string{fmt.Sprintf("role:%s", grant[0]), grant[1], grant[2]}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
