package server

import (
	"net/http"
	"strings"
	"time"

	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listUsersQuery struct {
	pagination.Params
	Query     string `form:"q"`
	Role      string `form:"role"`
	SortBy    string `form:"sortBy,default=createdAt"`
	SortOrder string `form:"sortOrder,default=desc"`
}

type setUserRoleRequest struct {
	Role string `json:"role"`
}

type banUserRequest struct {
	Reason  string     `json:"reason"`
	Expires *time.Time `json:"expires_at,omitempty"`
}

func (s *Server) AdminListUsers(c *gin.Context) {
	var query listUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.authsvc.ListUsers(c.Request.Context(), authdomain.ListUsersRequest{
		Params:    query.Params,
		Query:     strings.TrimSpace(query.Query),
		Role:      strings.TrimSpace(query.Role),
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) AdminSetUserRole(c *gin.Context) {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req setUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.SetAppRole(c.Request.Context(), userID, strings.TrimSpace(req.Role)); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAdminAction(c, "user.role_updated", userID.String(), map[string]any{"role": req.Role})
	c.Status(http.StatusNoContent)
}

func (s *Server) AdminBanUser(c *gin.Context) {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req banUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.authsvc.BanUser(c.Request.Context(), authdomain.BanUserRequest{
		UserID:  userID,
		Reason:  strings.TrimSpace(req.Reason),
		Expires: req.Expires,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAdminAction(c, "user.banned", userID.String(), map[string]any{"reason": req.Reason})
	c.Status(http.StatusNoContent)
}

func (s *Server) AdminUnbanUser(c *gin.Context) {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.authsvc.UnbanUser(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAdminAction(c, "user.unbanned", userID.String(), nil)
	c.Status(http.StatusNoContent)
}

func (s *Server) auditAdminAction(c *gin.Context, action string, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := ""
	if id, ok := s.userIDFromSession(c); ok {
		actorID = id.String()
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "user", &actorID, action, "user", &targetID, metadata)
}
