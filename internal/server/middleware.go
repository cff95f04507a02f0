package server

import (
	"strings"
	"time"

	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/auditcontext"
	"github.com/burnhq/brnit/pkg/log/ctxlogger"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	headerRequestID   = "X-Request-ID"
	contextSessionKey = "auth_session"
)

// CorrelationMiddleware stamps every request with a correlation id and
// records request metadata for the audit trail.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if incoming := strings.TrimSpace(c.GetHeader(headerRequestID)); incoming != "" {
			ctx = ctxlogger.ContextWithCorrelationID(ctx, incoming)
		}
		ctx, cid := ctxlogger.EnsureCorrelationID(ctx)

		ctx = auditcontext.WithRequestID(ctx, cid)
		ctx = auditcontext.WithIPAddress(ctx, c.ClientIP())
		ctx = auditcontext.WithUserAgent(ctx, c.Request.UserAgent())

		c.Writer.Header().Set(headerRequestID, cid)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogMiddleware emits one structured line per request.
func RequestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctxlogger.WithContext(c.Request.Context(), log).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// AuthRequired resolves the session cookie to an authenticated user and
// stores the result on the gin context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		authed, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := auditcontext.WithActor(c.Request.Context(), auditdomain.ActorTypeUser, authed.User.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextSessionKey, authed)
		c.Next()
	}
}

// RequireAppAdmin gates the admin console. Non-admin sessions are
// rejected as unauthorized, not forbidden, so the console's existence
// leaks nothing.
func (s *Server) RequireAppAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authed, ok := s.sessionFromContext(c)
		if !ok || authed.User.Role != authdomain.AppRoleAdmin {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) sessionFromContext(c *gin.Context) (*authdomain.AuthenticatedSession, bool) {
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return nil, false
	}
	authed, ok := value.(*authdomain.AuthenticatedSession)
	if !ok || authed == nil || authed.User == nil {
		return nil, false
	}
	return authed, true
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	authed, ok := s.sessionFromContext(c)
	if !ok {
		return 0, false
	}
	return authed.User.ID, true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	parsed, err := snowflake.ParseString(raw)
	if err != nil || parsed == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid id")
	}
	return parsed, nil
}
