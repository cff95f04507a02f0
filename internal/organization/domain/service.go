package domain

import (
	"context"
	"time"

	"github.com/burnhq/brnit/internal/rbac"
	"github.com/bwmarrin/snowflake"
)

// Authorizer answers whether an actor may perform an action on a
// resource inside an organization. Implemented by the authorization
// package; kept as an interface here so service tests can stub it.
type Authorizer interface {
	Authorize(ctx context.Context, userID snowflake.ID, orgID snowflake.ID, resource rbac.Resource, action rbac.Action) error
}

type CreateOrganizationRequest struct {
	Name     string         `json:"name" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type UpdateOrganizationRequest struct {
	Name     *string        `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// InviteRequest is a single entry in a batch invite call.
type InviteRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// InviteOutcome reports per-entry results of a batch invite. A batch is
// not atomic: valid entries land even when siblings are rejected.
type InviteOutcome struct {
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	InvitationID snowflake.ID `json:"invitation_id,omitempty"`
	Error        string       `json:"error,omitempty"`
}

type MemberResponse struct {
	ID        snowflake.ID `json:"id"`
	OrgID     snowflake.ID `json:"organization_id"`
	UserID    snowflake.ID `json:"user_id"`
	Name      string       `json:"name,omitempty"`
	Email     string       `json:"email,omitempty"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

type Service interface {
	Create(ctx context.Context, actorID snowflake.ID, req CreateOrganizationRequest) (*Organization, error)
	Get(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) (*Organization, error)
	Update(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID, req UpdateOrganizationRequest) (*Organization, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	InviteMembers(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID, invites []InviteRequest) ([]InviteOutcome, error)
	ListInvitations(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) ([]OrganizationInvitation, error)
	CancelInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) error
	AcceptInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) (*MemberResponse, error)
	RejectInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) error

	ListMembers(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) ([]MemberListItem, error)
	UpdateMemberRole(ctx context.Context, actorID snowflake.ID, memberID snowflake.ID, role string) (*MemberResponse, error)
	RemoveMember(ctx context.Context, actorID snowflake.ID, memberID snowflake.ID) error

	// Capabilities returns the actor's effective permission statement in
	// an organization, for clients that hide controls the server would
	// reject anyway.
	Capabilities(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) (rbac.Statement, error)
}
