package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListOrganizationMembers(c *gin.Context) {
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

	members, err := s.orgsvc.ListMembers(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) UpdateOrganizationMemberRole(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	memberID, err := parseIDParam(c, "memberId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.orgsvc.UpdateMemberRole(c.Request.Context(), userID, memberID, strings.TrimSpace(req.Role))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		actorID := userID.String()
		targetID := memberID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), &member.OrgID, "user", &actorID, "member.role_updated", "member", &targetID, map[string]any{
			"role": member.Role,
		})
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) RemoveOrganizationMember(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	memberID, err := parseIDParam(c, "memberId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.orgsvc.RemoveMember(c.Request.Context(), userID, memberID); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		actorID := userID.String()
		targetID := memberID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), nil, "user", &actorID, "member.removed", "member", &targetID, nil)
	}

	c.Status(http.StatusNoContent)
}
