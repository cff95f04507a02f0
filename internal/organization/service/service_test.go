package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	authdomain "github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/clock"
	"github.com/burnhq/brnit/internal/organization/domain"
	"github.com/burnhq/brnit/internal/organization/repository"
	"github.com/burnhq/brnit/internal/providers/email"
	"github.com/burnhq/brnit/internal/rbac"
	"github.com/burnhq/brnit/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	authrepository "github.com/burnhq/brnit/internal/auth/repository"
)

// membershipAuthorizer resolves grants straight from the membership
// table and the role registry, standing in for the casbin-backed
// authorizer without pulling an enforcer into these tests.
type membershipAuthorizer struct {
	db       *gorm.DB
	registry *rbac.Registry
}

func (a *membershipAuthorizer) Authorize(ctx context.Context, userID, orgID snowflake.ID, resource rbac.Resource, action rbac.Action) error {
	var user authdomain.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err == nil && user.Role == authdomain.AppRoleAdmin {
		return nil
	}
	var member domain.OrganizationMember
	if err := a.db.WithContext(ctx).First(&member, "org_id = ? AND user_id = ?", orgID, userID).Error; err != nil {
		return domain.ErrForbidden
	}
	if !a.registry.Can(rbac.Role(member.Role), resource, action) {
		return domain.ErrForbidden
	}
	return nil
}

type captureMailer struct {
	messages []email.Message
}

func (m *captureMailer) Send(ctx context.Context, msg email.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

type orgFixture struct {
	svc    domain.Service
	db     *gorm.DB
	clk    *clock.FakeClock
	mailer *captureMailer
	node   *snowflake.Node
}

func newOrgFixture(t *testing.T) *orgFixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.User{},
		&domain.Organization{},
		&domain.OrganizationMember{},
		&domain.OrganizationInvitation{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	registry := rbac.MustNewRegistry()
	repo := repository.New(conn)
	userRepo, _, _ := authrepository.New(conn)
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	mailer := &captureMailer{}

	svc := New(
		zaptest.NewLogger(t),
		conn,
		repo,
		userRepo,
		&membershipAuthorizer{db: conn, registry: registry},
		registry,
		node,
		clk,
		mailer,
	)
	return &orgFixture{svc: svc, db: conn, clk: clk, mailer: mailer, node: node}
}

func (f *orgFixture) seedUser(t *testing.T, emailAddr, appRole string) *authdomain.User {
	t.Helper()
	user := &authdomain.User{
		ID:          f.node.Generate(),
		ExternalID:  emailAddr,
		Provider:    "local",
		DisplayName: emailAddr,
		Email:       emailAddr,
		Role:        appRole,
		CreatedAt:   f.clk.Now(),
		UpdatedAt:   f.clk.Now(),
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *orgFixture) createOrg(t *testing.T, admin *authdomain.User, name string) *domain.Organization {
	t.Helper()
	org, err := f.svc.Create(context.Background(), admin.ID, domain.CreateOrganizationRequest{Name: name})
	require.NoError(t, err)
	return org
}

func (f *orgFixture) invite(t *testing.T, actor *authdomain.User, orgID snowflake.ID, emailAddr, role string) snowflake.ID {
	t.Helper()
	outcomes, err := f.svc.InviteMembers(context.Background(), actor.ID, orgID, []domain.InviteRequest{
		{Email: emailAddr, Role: role},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Empty(t, outcomes[0].Error)
	return outcomes[0].InvitationID
}

func TestCreateOrganization(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)

	t.Run("admin creates and becomes owner", func(t *testing.T) {
		org := f.createOrg(t, admin, "Burn Club")
		assert.Equal(t, "burn-club", org.Slug)

		var member domain.OrganizationMember
		require.NoError(t, f.db.First(&member, "org_id = ? AND user_id = ?", org.ID, admin.ID).Error)
		assert.Equal(t, string(rbac.RoleOwner), member.Role)
	})

	t.Run("slug collision is disambiguated", func(t *testing.T) {
		org := f.createOrg(t, admin, "Burn Club")
		assert.Equal(t, fmt.Sprintf("burn-club-%s", org.ID), org.Slug)
	})

	t.Run("regular user may not create", func(t *testing.T) {
		user := f.seedUser(t, "plain@example.com", authdomain.AppRoleUser)
		_, err := f.svc.Create(ctx, user.ID, domain.CreateOrganizationRequest{Name: "Side Club"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := f.svc.Create(ctx, admin.ID, domain.CreateOrganizationRequest{Name: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})
}

func TestInviteMembers(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")

	t.Run("creates invitation and sends email", func(t *testing.T) {
		outcomes, err := f.svc.InviteMembers(ctx, admin.ID, org.ID, []domain.InviteRequest{
			{Email: "Coach@Example.com", Role: string(rbac.RoleCoach)},
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Empty(t, outcomes[0].Error)
		assert.Equal(t, "coach@example.com", outcomes[0].Email)
		assert.NotZero(t, outcomes[0].InvitationID)

		require.Len(t, f.mailer.messages, 1)
		assert.Equal(t, "coach@example.com", f.mailer.messages[0].To)
	})

	t.Run("mixed batch settles per entry", func(t *testing.T) {
		outcomes, err := f.svc.InviteMembers(ctx, admin.ID, org.ID, []domain.InviteRequest{
			{Email: "coach@example.com", Role: string(rbac.RoleCoach)},
			{Email: "not-an-email", Role: string(rbac.RoleMember)},
			{Email: "trainer@example.com", Role: "superhero"},
			{Email: "newbie@example.com", Role: string(rbac.RoleMember)},
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 4)
		assert.Equal(t, domain.ErrDuplicateInvitation.Error(), outcomes[0].Error)
		assert.Equal(t, domain.ErrInvalidEmail.Error(), outcomes[1].Error)
		assert.Equal(t, domain.ErrInvalidRole.Error(), outcomes[2].Error)
		assert.Empty(t, outcomes[3].Error)
	})

	t.Run("existing member is rejected", func(t *testing.T) {
		outcomes, err := f.svc.InviteMembers(ctx, admin.ID, org.ID, []domain.InviteRequest{
			{Email: admin.Email, Role: string(rbac.RoleMember)},
		})
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		assert.Equal(t, domain.ErrAlreadyMember.Error(), outcomes[0].Error)
	})

	t.Run("coach may not invite", func(t *testing.T) {
		coach := f.seedUser(t, "coach@example.com", authdomain.AppRoleUser)

		// Seat the coach directly so the authorizer sees the role.
		require.NoError(t, f.db.Create(&domain.OrganizationMember{
			ID:     f.node.Generate(),
			OrgID:  org.ID,
			UserID: coach.ID,
			Role:   string(rbac.RoleCoach),
		}).Error)

		_, err := f.svc.InviteMembers(ctx, coach.ID, org.ID, []domain.InviteRequest{
			{Email: "friend@example.com", Role: string(rbac.RoleMember)},
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("non-member may not invite", func(t *testing.T) {
		outsider := f.seedUser(t, "outsider@example.com", authdomain.AppRoleUser)
		_, err := f.svc.InviteMembers(ctx, outsider.ID, org.ID, []domain.InviteRequest{
			{Email: "friend2@example.com", Role: string(rbac.RoleMember)},
		})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestAcceptInvitation(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")

	t.Run("invitee joins with the invited role", func(t *testing.T) {
		invitee := f.seedUser(t, "runner@example.com", authdomain.AppRoleUser)
		inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))

		member, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		require.NoError(t, err)
		assert.Equal(t, org.ID, member.OrgID)
		assert.Equal(t, invitee.ID, member.UserID)
		assert.Equal(t, string(rbac.RoleMember), member.Role)

		var invite domain.OrganizationInvitation
		require.NoError(t, f.db.First(&invite, "id = ?", inviteID).Error)
		assert.Equal(t, domain.InvitationAccepted, invite.Status)
	})

	t.Run("second accept is not actionable", func(t *testing.T) {
		invitee := f.seedUser(t, "lifter@example.com", authdomain.AppRoleUser)
		inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))

		_, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		require.NoError(t, err)
		_, err = f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationNotActionable)
	})

	t.Run("email mismatch", func(t *testing.T) {
		imposter := f.seedUser(t, "imposter@example.com", authdomain.AppRoleUser)
		inviteID := f.invite(t, admin, org.ID, "intended@example.com", string(rbac.RoleMember))

		_, err := f.svc.AcceptInvitation(ctx, imposter.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationEmailMismatch)
	})

	t.Run("expired invitation", func(t *testing.T) {
		invitee := f.seedUser(t, "latecomer@example.com", authdomain.AppRoleUser)
		inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))

		f.clk.Advance(domain.InvitationTTL + time.Minute)
		_, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationNotActionable)

		// The expired invitation no longer blocks a fresh one.
		f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))
	})

	t.Run("cancelled invitation", func(t *testing.T) {
		invitee := f.seedUser(t, "cancelled@example.com", authdomain.AppRoleUser)
		inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))

		require.NoError(t, f.svc.CancelInvitation(ctx, admin.ID, inviteID))
		_, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationNotActionable)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		invitee := f.seedUser(t, "nobody@example.com", authdomain.AppRoleUser)
		_, err := f.svc.AcceptInvitation(ctx, invitee.ID, snowflake.ID(999999))
		assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
	})
}

func TestRejectInvitation(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")
	invitee := f.seedUser(t, "decliner@example.com", authdomain.AppRoleUser)
	inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))

	t.Run("only the invitee may reject", func(t *testing.T) {
		other := f.seedUser(t, "other@example.com", authdomain.AppRoleUser)
		err := f.svc.RejectInvitation(ctx, other.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationEmailMismatch)
	})

	t.Run("reject settles the invitation", func(t *testing.T) {
		require.NoError(t, f.svc.RejectInvitation(ctx, invitee.ID, inviteID))

		var invite domain.OrganizationInvitation
		require.NoError(t, f.db.First(&invite, "id = ?", inviteID).Error)
		assert.Equal(t, domain.InvitationRejected, invite.Status)

		_, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
		assert.ErrorIs(t, err, domain.ErrInvitationNotActionable)
	})
}

func TestCancelInvitation(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")
	inviteID := f.invite(t, admin, org.ID, "pending@example.com", string(rbac.RoleMember))

	t.Run("cancel twice", func(t *testing.T) {
		require.NoError(t, f.svc.CancelInvitation(ctx, admin.ID, inviteID))
		assert.ErrorIs(t, f.svc.CancelInvitation(ctx, admin.ID, inviteID), domain.ErrInvitationNotActionable)
	})

	t.Run("non-member may not cancel", func(t *testing.T) {
		other := f.seedUser(t, "stranger@example.com", authdomain.AppRoleUser)
		secondID := f.invite(t, admin, org.ID, "pending2@example.com", string(rbac.RoleMember))
		assert.ErrorIs(t, f.svc.CancelInvitation(ctx, other.ID, secondID), domain.ErrForbidden)
	})
}

func TestMemberLifecycle(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")

	invitee := f.seedUser(t, "joiner@example.com", authdomain.AppRoleUser)
	inviteID := f.invite(t, admin, org.ID, invitee.Email, string(rbac.RoleMember))
	member, err := f.svc.AcceptInvitation(ctx, invitee.ID, inviteID)
	require.NoError(t, err)

	t.Run("listing joins user details", func(t *testing.T) {
		members, err := f.svc.ListMembers(ctx, admin.ID, org.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)

		byEmail := make(map[string]domain.MemberListItem, len(members))
		for _, m := range members {
			byEmail[m.Email] = m
		}
		assert.Equal(t, string(rbac.RoleOwner), byEmail[admin.Email].Role)
		assert.Equal(t, string(rbac.RoleMember), byEmail[invitee.Email].Role)
	})

	t.Run("role update", func(t *testing.T) {
		updated, err := f.svc.UpdateMemberRole(ctx, admin.ID, member.ID, string(rbac.RoleCoach))
		require.NoError(t, err)
		assert.Equal(t, string(rbac.RoleCoach), updated.Role)

		var stored domain.OrganizationMember
		require.NoError(t, f.db.First(&stored, "id = ?", member.ID).Error)
		assert.Equal(t, string(rbac.RoleCoach), stored.Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := f.svc.UpdateMemberRole(ctx, admin.ID, member.ID, "janitor")
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("coach may not manage members", func(t *testing.T) {
		_, err := f.svc.ListMembers(ctx, invitee.ID, org.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("self removal is refused", func(t *testing.T) {
		var ownerSeat domain.OrganizationMember
		require.NoError(t, f.db.First(&ownerSeat, "org_id = ? AND user_id = ?", org.ID, admin.ID).Error)
		assert.ErrorIs(t, f.svc.RemoveMember(ctx, admin.ID, ownerSeat.ID), domain.ErrSelfRemoval)
	})

	t.Run("owner removes member", func(t *testing.T) {
		require.NoError(t, f.svc.RemoveMember(ctx, admin.ID, member.ID))
		assert.ErrorIs(t, f.svc.RemoveMember(ctx, admin.ID, member.ID), domain.ErrMemberNotFound)
	})
}

func TestCapabilities(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	admin := f.seedUser(t, "ops@brnit.app", authdomain.AppRoleAdmin)
	org := f.createOrg(t, admin, "Burn Club")

	coach := f.seedUser(t, "coach@example.com", authdomain.AppRoleUser)
	inviteID := f.invite(t, admin, org.ID, coach.Email, string(rbac.RoleCoach))
	_, err := f.svc.AcceptInvitation(ctx, coach.ID, inviteID)
	require.NoError(t, err)

	t.Run("member capabilities follow the role", func(t *testing.T) {
		statement, err := f.svc.Capabilities(ctx, coach.ID, org.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []rbac.Action{rbac.ActionRead}, statement[rbac.ResourceOrganization])
		assert.Empty(t, statement[rbac.ResourceMember])
		assert.Empty(t, statement[rbac.ResourceInvitation])
	})

	t.Run("non-member is refused", func(t *testing.T) {
		outsider := f.seedUser(t, "outsider@example.com", authdomain.AppRoleUser)
		_, err := f.svc.Capabilities(ctx, outsider.ID, org.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("app admin gets owner capabilities", func(t *testing.T) {
		second := f.createOrg(t, admin, "Second Club")
		backoffice := f.seedUser(t, "backoffice@brnit.app", authdomain.AppRoleAdmin)

		statement, err := f.svc.Capabilities(ctx, backoffice.ID, second.ID)
		require.NoError(t, err)
		assert.Contains(t, statement[rbac.ResourceOrganization], rbac.ActionDelete)
		assert.Contains(t, statement[rbac.ResourceMember], rbac.ActionCreate)
	})
}
