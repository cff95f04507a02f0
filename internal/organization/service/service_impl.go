package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/clock"
	"github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/providers/email"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/burnhq/brnit/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Deep link scheme handled by the Expo client.
const acceptInvitationLink = "brnit://accept-invitation?invitationId=%s"

type Service struct {
	log      *zap.Logger
	gormDB   *gorm.DB
	repo     domain.Repository
	userRepo authdomain.Repository
	authz    domain.Authorizer
	registry *rbac.Registry
	genID    *snowflake.Node
	clk      clock.Clock
	mailer   email.Provider
}

func New(
	log *zap.Logger,
	gormDB *gorm.DB,
	repo domain.Repository,
	userRepo authdomain.Repository,
	authz domain.Authorizer,
	registry *rbac.Registry,
	genID *snowflake.Node,
	clk clock.Clock,
	mailer email.Provider,
) domain.Service {
	return &Service{
		log:      log.Named("organization.service"),
		gormDB:   gormDB,
		repo:     repo,
		userRepo: userRepo,
		authz:    authz,
		registry: registry,
		genID:    genID,
		clk:      clk,
		mailer:   mailer,
	}
}

// Create provisions an organization and seats the creator as its owner.
// Only app admins may create organizations; onboarding a client is a
// back-office operation, not a self-serve one.
func (s *Service) Create(ctx context.Context, actorID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	actor, err := s.userRepo.FindOne(ctx, authdomain.User{ID: actorID})
	if err != nil {
		return nil, err
	}
	if actor.Role != authdomain.AppRoleAdmin {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clk.Now()
	org := domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Metadata:  datatypes.JSONMap(req.Metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return err
			}
			// Slug collision: disambiguate with the org id.
			org.Slug = fmt.Sprintf("%s-%s", org.Slug, org.ID)
			if err := repo.CreateOrganization(ctx, org); err != nil {
				return err
			}
		}
		member := domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    actorID,
			Role:      string(rbac.RoleOwner),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return repo.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("owner_id", actorID.String()))
	return &org, nil
}

func (s *Service) Get(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) (*domain.Organization, error) {
	if err := s.authz.Authorize(ctx, actorID, orgID, rbac.ResourceOrganization, rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.GetOrganization(ctx, orgID)
}

func (s *Service) Update(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID, req domain.UpdateOrganizationRequest) (*domain.Organization, error) {
	if err := s.authz.Authorize(ctx, actorID, orgID, rbac.ResourceOrganization, rbac.ActionUpdate); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		org.Name = name
	}
	if req.Metadata != nil {
		org.Metadata = datatypes.JSONMap(req.Metadata)
	}
	org.UpdatedAt = s.clk.Now()

	if err := s.repo.SaveOrganization(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	return s.repo.ListOrganizationsByUser(ctx, userID)
}

// InviteMembers creates invitations for a batch of emails. Entries are
// validated independently; one bad entry does not fail its siblings.
// Invitation emails are best effort and never fail the call.
func (s *Service) InviteMembers(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID, invites []domain.InviteRequest) ([]domain.InviteOutcome, error) {
	if err := s.authz.Authorize(ctx, actorID, orgID, rbac.ResourceInvitation, rbac.ActionCreate); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.userRepo.FindOne(ctx, authdomain.User{ID: actorID})
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	outcomes := make([]domain.InviteOutcome, 0, len(invites))
	for _, req := range invites {
		outcome := domain.InviteOutcome{Email: req.Email, Role: req.Role}

		invite, err := s.inviteOne(ctx, org.ID, req, actorID, now)
		if err != nil {
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Email = invite.Email
		outcome.InvitationID = invite.ID
		outcomes = append(outcomes, outcome)

		link := fmt.Sprintf(acceptInvitationLink, invite.ID.String())
		msg := email.NewInvitationMessage(invite.Email, inviter.DisplayName, inviter.Email, org.Name, invite.Role, link)
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn("invitation email failed",
				zap.String("invitation_id", invite.ID.String()),
				zap.Error(err))
		}
	}
	return outcomes, nil
}

func (s *Service) inviteOne(ctx context.Context, orgID snowflake.ID, req domain.InviteRequest, actorID snowflake.ID, now time.Time) (*domain.OrganizationInvitation, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	normalized := strings.ToLower(addr.Address)

	if !rbac.ValidRole(rbac.Role(req.Role)) {
		return nil, domain.ErrInvalidRole
	}

	// An existing member needs no invitation.
	if user, err := s.userRepo.FindOne(ctx, authdomain.User{Email: normalized}); err == nil {
		isMember, err := s.repo.IsMember(ctx, orgID, user.ID)
		if err != nil {
			return nil, err
		}
		if isMember {
			return nil, domain.ErrAlreadyMember
		}
	} else if !errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, err
	}

	pending, err := s.repo.HasPendingInvitation(ctx, orgID, normalized, now)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.ErrDuplicateInvitation
	}

	invite := domain.OrganizationInvitation{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Email:     normalized,
		Role:      req.Role,
		Status:    domain.InvitationPending,
		InvitedBy: actorID,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateInvitation(ctx, invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (s *Service) ListInvitations(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) ([]domain.OrganizationInvitation, error) {
	if err := s.authz.Authorize(ctx, actorID, orgID, rbac.ResourceInvitation, rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListInvitations(ctx, orgID)
}

func (s *Service) CancelInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) error {
	invite, err := s.repo.GetInvitation(ctx, inviteID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actorID, invite.OrgID, rbac.ResourceInvitation, rbac.ActionCancel); err != nil {
		return err
	}

	rows, err := s.repo.TransitionInvitation(ctx, inviteID, domain.InvitationPending, domain.InvitationCancelled, s.clk.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvitationNotActionable
	}
	return nil
}

// AcceptInvitation converts a pending invitation into a membership. The
// status flip is a compare-and-swap and the membership insert carries a
// unique (org, user) index, so a raced accept cannot seat a user twice.
func (s *Service) AcceptInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) (*domain.MemberResponse, error) {
	invite, err := s.repo.GetInvitation(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.FindOne(ctx, authdomain.User{ID: actorID})
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(actor.Email, invite.Email) {
		return nil, domain.ErrInvitationEmailMismatch
	}

	now := s.clk.Now()
	if invite.Status != domain.InvitationPending || invite.Expired(now) {
		return nil, domain.ErrInvitationNotActionable
	}

	member := domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     invite.OrgID,
		UserID:    actorID,
		Role:      invite.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.TransitionInvitation(ctx, inviteID, domain.InvitationPending, domain.InvitationAccepted, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvitationNotActionable
		}

		if err := repo.AddMember(ctx, member); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invitation accepted",
		zap.String("invitation_id", inviteID.String()),
		zap.String("org_id", invite.OrgID.String()),
		zap.String("user_id", actorID.String()),
		zap.String("role", invite.Role))

	return &domain.MemberResponse{
		ID:        member.ID,
		OrgID:     member.OrgID,
		UserID:    member.UserID,
		Name:      actor.DisplayName,
		Email:     actor.Email,
		Role:      member.Role,
		CreatedAt: member.CreatedAt,
	}, nil
}

func (s *Service) RejectInvitation(ctx context.Context, actorID snowflake.ID, inviteID snowflake.ID) error {
	invite, err := s.repo.GetInvitation(ctx, inviteID)
	if err != nil {
		return err
	}

	actor, err := s.userRepo.FindOne(ctx, authdomain.User{ID: actorID})
	if err != nil {
		return err
	}
	if !strings.EqualFold(actor.Email, invite.Email) {
		return domain.ErrInvitationEmailMismatch
	}

	rows, err := s.repo.TransitionInvitation(ctx, inviteID, domain.InvitationPending, domain.InvitationRejected, s.clk.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvitationNotActionable
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) ([]domain.MemberListItem, error) {
	if err := s.authz.Authorize(ctx, actorID, orgID, rbac.ResourceMember, rbac.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

func (s *Service) UpdateMemberRole(ctx context.Context, actorID snowflake.ID, memberID snowflake.ID, role string) (*domain.MemberResponse, error) {
	if !rbac.ValidRole(rbac.Role(role)) {
		return nil, domain.ErrInvalidRole
	}

	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, actorID, member.OrgID, rbac.ResourceMember, rbac.ActionUpdate); err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if err := s.repo.UpdateMemberRole(ctx, memberID, role, now); err != nil {
		return nil, err
	}

	s.log.Info("member role updated",
		zap.String("member_id", memberID.String()),
		zap.String("org_id", member.OrgID.String()),
		zap.String("from", member.Role),
		zap.String("to", role))

	return &domain.MemberResponse{
		ID:        member.ID,
		OrgID:     member.OrgID,
		UserID:    member.UserID,
		Role:      role,
		CreatedAt: member.CreatedAt,
	}, nil
}

func (s *Service) RemoveMember(ctx context.Context, actorID snowflake.ID, memberID snowflake.ID) error {
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	// Leaving an organization is a different flow with different
	// safeguards; the member removal endpoint refuses it outright.
	if member.UserID == actorID {
		return domain.ErrSelfRemoval
	}
	if err := s.authz.Authorize(ctx, actorID, member.OrgID, rbac.ResourceMember, rbac.ActionDelete); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, memberID); err != nil {
		return err
	}

	s.log.Info("member removed",
		zap.String("member_id", memberID.String()),
		zap.String("org_id", member.OrgID.String()),
		zap.String("user_id", member.UserID.String()))
	return nil
}

func (s *Service) Capabilities(ctx context.Context, actorID snowflake.ID, orgID snowflake.ID) (rbac.Statement, error) {
	member, err := s.repo.FindMember(ctx, orgID, actorID)
	if err == nil {
		statement, ok := s.registry.Statement(rbac.Role(member.Role))
		if !ok {
			return nil, domain.ErrInvalidRole
		}
		return statement, nil
	}
	if !errors.Is(err, domain.ErrMemberNotFound) {
		return nil, err
	}

	// App admins act with owner-equivalent capabilities everywhere.
	actor, err := s.userRepo.FindOne(ctx, authdomain.User{ID: actorID})
	if err != nil {
		return nil, err
	}
	if actor.Role == authdomain.AppRoleAdmin {
		statement, _ := s.registry.Statement(rbac.RoleOwner)
		return statement, nil
	}
	return nil, domain.ErrForbidden
}
