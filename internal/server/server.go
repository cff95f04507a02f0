// Package server wires the HTTP surface: session auth, organization
// and membership management, invitations, and the admin console API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/burnhq/brnit/internal/audit"
	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	"github.com/burnhq/brnit/internal/auth"
	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/auth/session"
	"github.com/burnhq/brnit/internal/authorization"
	"github.com/burnhq/brnit/internal/config"
	"github.com/burnhq/brnit/internal/organization"
	organizationdomain "github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/providers/email"
	"github.com/burnhq/brnit/internal/ratelimit"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/burnhq/brnit/pkg/telemetry"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	rbac.Module,
	authorization.Module,
	audit.Module,
	auth.Module,
	session.Module,
	email.Module,
	organization.Module,
	ratelimit.Module,
	telemetry.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(RequestLogMiddleware(log))
	r.Use(telemetry.GinMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	db          *gorm.DB
	authsvc     authdomain.Service
	orgsvc      organizationdomain.Service
	auditSvc    auditdomain.Service
	sessions    *session.Manager
	authLimiter *ratelimit.AuthLimiter
	metrics     *telemetry.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Authsvc     authdomain.Service
	Orgsvc      organizationdomain.Service
	AuditSvc    auditdomain.Service
	Sessions    *session.Manager
	AuthLimiter *ratelimit.AuthLimiter `optional:"true"`
	Metrics     *telemetry.Metrics     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		db:          p.DB,
		authsvc:     p.Authsvc,
		orgsvc:      p.Orgsvc,
		auditSvc:    p.AuditSvc,
		sessions:    p.Sessions,
		authLimiter: p.AuthLimiter,
		metrics:     p.Metrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/auth")
	group.POST("/sign-up", s.SignUp)
	group.POST("/sign-in", s.SignIn)
	group.POST("/sign-out", s.SignOut)
	group.POST("/forgot-password", s.ForgotPassword)
	group.POST("/reset-password", s.ResetPassword)
	group.POST("/verify-email", s.VerifyEmail)

	authed := group.Group("", s.AuthRequired())
	authed.GET("/me", s.Me)
	authed.POST("/change-password", s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/orgs", s.ListUserOrganizations)
	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs/:id", s.GetOrganization)
	api.PATCH("/orgs/:id", s.UpdateOrganization)
	api.GET("/orgs/:id/capabilities", s.OrganizationCapabilities)

	api.GET("/orgs/:id/members", s.ListOrganizationMembers)
	api.PATCH("/members/:memberId", s.UpdateOrganizationMemberRole)
	api.DELETE("/members/:memberId", s.RemoveOrganizationMember)

	api.POST("/orgs/:id/invitations", s.InviteOrganizationMembers)
	api.GET("/orgs/:id/invitations", s.ListOrganizationInvitations)
	api.DELETE("/invitations/:id", s.CancelOrganizationInvitation)
	api.POST("/invitations/:id/accept", s.AcceptOrganizationInvitation)
	api.POST("/invitations/:id/reject", s.RejectOrganizationInvitation)

	api.GET("/orgs/:id/audit-logs", s.ListOrganizationAuditLogs)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireAppAdmin())
	admin.GET("/users", s.AdminListUsers)
	admin.PATCH("/users/:id/role", s.AdminSetUserRole)
	admin.POST("/users/:id/ban", s.AdminBanUser)
	admin.POST("/users/:id/unban", s.AdminUnbanUser)
}
