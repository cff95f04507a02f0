package domain

import "errors"

var (
	ErrInvalidName             = errors.New("invalid_organization_name")
	ErrInvalidEmail            = errors.New("invalid_email")
	ErrInvalidRole             = errors.New("invalid_role")
	ErrOrganizationNotFound    = errors.New("organization_not_found")
	ErrMemberNotFound          = errors.New("member_not_found")
	ErrInvitationNotFound      = errors.New("invitation_not_found")
	ErrForbidden               = errors.New("forbidden")
	ErrDuplicateInvitation     = errors.New("duplicate_invitation")
	ErrAlreadyMember           = errors.New("already_member")
	ErrInvitationNotActionable = errors.New("invitation_not_actionable")
	ErrInvitationEmailMismatch = errors.New("invitation_email_mismatch")
	ErrSelfRemoval             = errors.New("self_removal_not_allowed")
)
