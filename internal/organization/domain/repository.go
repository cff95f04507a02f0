package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

// MemberListItem is a membership row joined with its user account.
type MemberListItem struct {
	ID        snowflake.ID `json:"id"`
	UserID    snowflake.ID `json:"user_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	SaveOrganization(ctx context.Context, org *Organization) error
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)

	AddMember(ctx context.Context, member OrganizationMember) error
	GetMember(ctx context.Context, memberID snowflake.ID) (*OrganizationMember, error)
	FindMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	UpdateMemberRole(ctx context.Context, memberID snowflake.ID, role string, at time.Time) error
	RemoveMember(ctx context.Context, memberID snowflake.ID) error
	IsMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (bool, error)

	CreateInvitation(ctx context.Context, invite OrganizationInvitation) error
	GetInvitation(ctx context.Context, inviteID snowflake.ID) (*OrganizationInvitation, error)
	HasPendingInvitation(ctx context.Context, orgID snowflake.ID, email string, now time.Time) (bool, error)
	ListInvitations(ctx context.Context, orgID snowflake.ID) ([]OrganizationInvitation, error)
	// TransitionInvitation moves an invitation between statuses as a
	// compare-and-swap; it returns the number of rows changed so the
	// caller can detect a lost race.
	TransitionInvitation(ctx context.Context, inviteID snowflake.ID, from string, to string, at time.Time) (int64, error)
}
