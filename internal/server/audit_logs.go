package server

import (
	"net/http"
	"time"

	auditdomain "github.com/burnhq/brnit/internal/audit/domain"
	organizationdomain "github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/orgcontext"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listAuditLogsQuery struct {
	pagination.Params
	Action     string `form:"action"`
	TargetType string `form:"targetType"`
	ActorType  string `form:"actorType"`
	StartAt    string `form:"startAt"`
	EndAt      string `form:"endAt"`
}

// ListOrganizationAuditLogs exposes the audit trail to organization
// administrators: anyone allowed to update the organization may read it.
func (s *Server) ListOrganizationAuditLogs(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	statement, err := s.orgsvc.Capabilities(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !statementAllows(statement, rbac.ResourceOrganization, rbac.ActionUpdate) {
		AbortWithError(c, organizationdomain.ErrForbidden)
		return
	}

	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Params:     query.Params,
		Action:     query.Action,
		TargetType: query.TargetType,
		ActorType:  query.ActorType,
	}
	if query.StartAt != "" {
		parsed, err := time.Parse(time.RFC3339, query.StartAt)
		if err != nil {
			AbortWithError(c, newValidationError("startAt", "invalid_time", "invalid time"))
			return
		}
		req.StartAt = &parsed
	}
	if query.EndAt != "" {
		parsed, err := time.Parse(time.RFC3339, query.EndAt)
		if err != nil {
			AbortWithError(c, newValidationError("endAt", "invalid_time", "invalid time"))
			return
		}
		req.EndAt = &parsed
	}

	ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
	resp, err := s.auditSvc.List(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func statementAllows(statement rbac.Statement, resource rbac.Resource, action rbac.Action) bool {
	for _, allowed := range statement[resource] {
		if allowed == action {
			return true
		}
	}
	return false
}
