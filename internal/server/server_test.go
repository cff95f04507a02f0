package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	auditrepository "github.com/burnhq/brnit/internal/audit/repository"
	auditservice "github.com/burnhq/brnit/internal/audit/service"
	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	authrepository "github.com/burnhq/brnit/internal/auth/repository"
	authservice "github.com/burnhq/brnit/internal/auth/service"
	"github.com/burnhq/brnit/internal/auth/session"
	"github.com/burnhq/brnit/internal/authorization"
	"github.com/burnhq/brnit/internal/clock"
	"github.com/burnhq/brnit/internal/config"
	orgdomain "github.com/burnhq/brnit/internal/organization/domain"
	orgrepository "github.com/burnhq/brnit/internal/organization/repository"
	orgservice "github.com/burnhq/brnit/internal/organization/service"
	"github.com/burnhq/brnit/internal/providers/email"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/burnhq/brnit/pkg/db"
)

type serverFixture struct {
	engine *gin.Engine
	db     *gorm.DB
	clk    *clock.FakeClock
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&authdomain.Token{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&orgdomain.OrganizationInvitation{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	cfg := config.Config{}
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC))
	mailer := &email.NoOpProvider{}

	registry := rbac.MustNewRegistry()
	enforcer, err := authorization.NewEnforcer(conn, registry)
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   logger,
		GenID: node,
		Clock: clk,
		Repo:  auditrepository.Provide(),
	})
	authz := authorization.NewService(authorization.Params{
		DB:       conn,
		Log:      logger,
		Enforcer: enforcer,
		AuditSvc: auditSvc,
	})

	userRepo, sessionRepo, tokenRepo := authrepository.New(conn)
	authsvc := authservice.New(logger, cfg, userRepo, sessionRepo, tokenRepo, node, clk, mailer)
	orgsvc := orgservice.New(logger, conn, orgrepository.New(conn), userRepo, authz, registry, node, clk, mailer)

	engine := NewEngine(logger, nil)
	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      cfg,
		Log:      logger,
		DB:       conn,
		Authsvc:  authsvc,
		Orgsvc:   orgsvc,
		AuditSvc: auditSvc,
		Sessions: session.NewManager(cfg),
	})

	return &serverFixture{engine: engine, db: conn, clk: clk}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signUp registers a user and returns the session cookie value.
func (f *serverFixture) signUp(t *testing.T, name, emailAddr, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/sign-up", gin.H{
		"name":     name,
		"email":    emailAddr,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c.Value
		}
	}
	t.Fatal("session cookie not set")
	return ""
}

// promote flips a user's app role straight in the database. The session
// stays valid; the role is read on every request.
func (f *serverFixture) promote(t *testing.T, emailAddr string) {
	t.Helper()
	require.NoError(t, f.db.Model(&authdomain.User{}).
		Where("email = ?", emailAddr).
		Update("role", authdomain.AppRoleAdmin).Error)
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	f := newServerFixture(t)

	t.Run("sign-up seats a session", func(t *testing.T) {
		cookie := f.signUp(t, "Casey", "casey@example.com", "correct-horse-battery")

		rec := f.do(t, http.MethodGet, "/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		user := body["user"].(map[string]any)
		assert.Equal(t, "casey@example.com", user["email"])
	})

	t.Run("me without a session", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/auth/me", nil, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "unauthorized", body["error"].(map[string]any)["type"])
	})

	t.Run("sign-in with a wrong password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/sign-in", gin.H{
			"email":    "casey@example.com",
			"password": "wrong-password-here",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("duplicate sign-up conflicts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/sign-up", gin.H{
			"name":     "Casey Again",
			"email":    "casey@example.com",
			"password": "correct-horse-battery",
		}, "")
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "conflict", body["error"].(map[string]any)["type"])
	})

	t.Run("weak password is a validation error", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/sign-up", gin.H{
			"name":     "Shorty",
			"email":    "shorty@example.com",
			"password": "tiny",
		}, "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		payload := body["error"].(map[string]any)
		assert.Equal(t, "validation_error", payload["type"])
	})

	t.Run("sign-out clears the session", func(t *testing.T) {
		cookie := f.signUp(t, "Leaver", "leaver@example.com", "correct-horse-battery")

		rec := f.do(t, http.MethodPost, "/auth/sign-out", nil, cookie)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodGet, "/auth/me", nil, cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forgot password never confirms accounts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/auth/forgot-password", gin.H{"email": "nobody@example.com"}, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode(t, rec)["status"])
	})
}

func TestAdminConsoleGate(t *testing.T) {
	f := newServerFixture(t)
	userCookie := f.signUp(t, "Plain", "plain@example.com", "correct-horse-battery")
	adminCookie := f.signUp(t, "Boss", "boss@brnit.app", "correct-horse-battery")
	f.promote(t, "boss@brnit.app")

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/admin/users", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin is unauthorized, not forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/admin/users", nil, userCookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("admin lists users with pagination envelope", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/admin/users?limit=1&page=1", nil, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)

		users := body["users"].([]any)
		assert.Len(t, users, 1)
		page := body["pagination"].(map[string]any)
		assert.Equal(t, float64(2), page["totalItems"])
		assert.Equal(t, float64(2), page["totalPages"])
	})

	t.Run("admin bans a user", func(t *testing.T) {
		var banned authdomain.User
		require.NoError(t, f.db.First(&banned, "email = ?", "plain@example.com").Error)

		rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/ban", banned.ID), gin.H{"reason": "abuse"}, adminCookie)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		// Banned sessions are revoked outright.
		rec = f.do(t, http.MethodGet, "/auth/me", nil, userCookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		// And fresh sign-ins are refused.
		rec = f.do(t, http.MethodPost, "/auth/sign-in", gin.H{
			"email":    "plain@example.com",
			"password": "correct-horse-battery",
		}, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/unban", banned.ID), nil, adminCookie)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/sign-in", gin.H{
			"email":    "plain@example.com",
			"password": "correct-horse-battery",
		}, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid role is a validation error", func(t *testing.T) {
		var user authdomain.User
		require.NoError(t, f.db.First(&user, "email = ?", "plain@example.com").Error)

		rec := f.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/users/%s/role", user.ID), gin.H{"role": "superuser"}, adminCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrganizationFlow(t *testing.T) {
	f := newServerFixture(t)
	adminCookie := f.signUp(t, "Ops", "ops@brnit.app", "correct-horse-battery")
	f.promote(t, "ops@brnit.app")
	memberCookie := f.signUp(t, "Runner", "runner@example.com", "correct-horse-battery")

	var orgID string
	t.Run("admin creates an organization", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/orgs", gin.H{"name": "Burn Club"}, adminCookie)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "burn-club", body["slug"])
		orgID = body["id"].(string)
		require.NotEmpty(t, orgID)
	})

	t.Run("regular user may not create", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/orgs", gin.H{"name": "Side Club"}, memberCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("non-member may not read", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/"+orgID, nil, memberCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("malformed org id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/not-a-snowflake", nil, adminCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown org id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/123456789", nil, adminCookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	var invitationID string
	t.Run("owner invites a member", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", gin.H{
			"invites": []gin.H{{"email": "runner@example.com", "role": "member"}},
		}, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		results := decode(t, rec)["results"].([]any)
		require.Len(t, results, 1)
		entry := results[0].(map[string]any)
		require.Empty(t, entry["error"])
		invitationID = entry["invitation_id"].(string)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/orgs/"+orgID+"/invitations", gin.H{"invites": []gin.H{}}, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode(t, rec)["results"])
	})

	t.Run("invitee accepts", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/invitations/"+invitationID+"/accept", nil, memberCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "member", body["role"])
	})

	t.Run("member sees the organization in their list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs", nil, memberCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		orgs := decode(t, rec)["orgs"].([]any)
		require.Len(t, orgs, 1)
		assert.Equal(t, "Burn Club", orgs[0].(map[string]any)["name"])
	})

	t.Run("capabilities reflect the role", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/"+orgID+"/capabilities", nil, memberCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		caps := decode(t, rec)["capabilities"].(map[string]any)

		orgActions := caps["organization"].([]any)
		assert.ElementsMatch(t, []any{"read"}, orgActions)
	})

	t.Run("member may read but not mutate", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/"+orgID, nil, memberCookie)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPatch, "/api/orgs/"+orgID, gin.H{"name": "Hijacked"}, memberCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("member list joins user details", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/"+orgID+"/members", nil, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		members := decode(t, rec)["members"].([]any)
		assert.Len(t, members, 2)
	})

	t.Run("audit trail is gated to org admins", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orgs/"+orgID+"/audit-logs", nil, memberCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/orgs/"+orgID+"/audit-logs", nil, adminCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Contains(t, body, "audit_logs")
		assert.Contains(t, body, "pagination")
	})

	t.Run("every response carries a request id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/health", nil, "")
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}
