package server

import (
	"net/http"

	organizationdomain "github.com/burnhq/brnit/internal/organization/domain"
	"github.com/gin-gonic/gin"
)

type inviteMembersRequest struct {
	Invites []inviteMemberRequest `json:"invites"`
}

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) InviteOrganizationMembers(c *gin.Context) {
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

	var req inviteMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(req.Invites) == 0 {
		c.JSON(http.StatusOK, gin.H{"results": []organizationdomain.InviteOutcome{}})
		return
	}

	invites := make([]organizationdomain.InviteRequest, 0, len(req.Invites))
	for _, invite := range req.Invites {
		invites = append(invites, organizationdomain.InviteRequest{
			Email: invite.Email,
			Role:  invite.Role,
		})
	}

	outcomes, err := s.orgsvc.InviteMembers(c.Request.Context(), userID, orgID, invites)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	for _, outcome := range outcomes {
		if outcome.Error == "" {
			s.metrics.ObserveInvitation("created")
		} else {
			s.metrics.ObserveInvitation("rejected")
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

func (s *Server) ListOrganizationInvitations(c *gin.Context) {
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

	invites, err := s.orgsvc.ListInvitations(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": invites})
}

func (s *Server) CancelOrganizationInvitation(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	inviteID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.orgsvc.CancelInvitation(c.Request.Context(), userID, inviteID); err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.ObserveInvitation("cancelled")
	c.Status(http.StatusNoContent)
}

func (s *Server) AcceptOrganizationInvitation(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	inviteID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, err := s.orgsvc.AcceptInvitation(c.Request.Context(), userID, inviteID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.ObserveInvitation("accepted")
	if s.auditSvc != nil {
		actorID := userID.String()
		targetID := inviteID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), &member.OrgID, "user", &actorID, "invitation.accepted", "invitation", &targetID, map[string]any{
			"role": member.Role,
		})
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) RejectOrganizationInvitation(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	inviteID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.orgsvc.RejectInvitation(c.Request.Context(), userID, inviteID); err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.ObserveInvitation("rejected_by_invitee")
	c.Status(http.StatusNoContent)
}
