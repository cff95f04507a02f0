package repository

import (
	"context"
	"errors"
	"time"

	"github.com/burnhq/brnit/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) domain.Repository {
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Create(&org).Error
}

func (r *repositoryImpl) GetOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repositoryImpl) SaveOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Save(org).Error
}

func (r *repositoryImpl) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).
		Table("organization_members AS m").
		Select("o.id, o.name, o.slug, m.role, m.created_at").
		Joins("JOIN organizations o ON o.id = m.org_id").
		Where("m.user_id = ?", userID).
		Order("m.created_at ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) AddMember(ctx context.Context, member domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(&member).Error
}

func (r *repositoryImpl) GetMember(ctx context.Context, memberID snowflake.ID) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	err := r.db.WithContext(ctx).First(&member, "id = ?", memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repositoryImpl) FindMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	err := r.db.WithContext(ctx).
		First(&member, "org_id = ? AND user_id = ?", orgID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repositoryImpl) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberListItem, error) {
	var items []domain.MemberListItem
	err := r.db.WithContext(ctx).
		Table("organization_members AS m").
		Select("m.id, m.user_id, u.display_name AS name, u.email, m.role, m.created_at").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.org_id = ?", orgID).
		Order("m.created_at ASC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) UpdateMemberRole(ctx context.Context, memberID snowflake.ID, role string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.OrganizationMember{}).
		Where("id = ?", memberID).
		Updates(map[string]any{"role": role, "updated_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repositoryImpl) RemoveMember(ctx context.Context, memberID snowflake.ID) error {
	res := r.db.WithContext(ctx).Delete(&domain.OrganizationMember{}, "id = ?", memberID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *repositoryImpl) IsMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrganizationMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) CreateInvitation(ctx context.Context, invite domain.OrganizationInvitation) error {
	return r.db.WithContext(ctx).Create(&invite).Error
}

func (r *repositoryImpl) GetInvitation(ctx context.Context, inviteID snowflake.ID) (*domain.OrganizationInvitation, error) {
	var invite domain.OrganizationInvitation
	err := r.db.WithContext(ctx).First(&invite, "id = ?", inviteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *repositoryImpl) HasPendingInvitation(ctx context.Context, orgID snowflake.ID, email string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrganizationInvitation{}).
		Where("org_id = ? AND email = ? AND status = ? AND expires_at > ?",
			orgID, email, domain.InvitationPending, now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ListInvitations(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationInvitation, error) {
	var invites []domain.OrganizationInvitation
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *repositoryImpl) TransitionInvitation(ctx context.Context, inviteID snowflake.ID, from string, to string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.OrganizationInvitation{}).
		Where("id = ? AND status = ?", inviteID, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	return res.RowsAffected, res.Error
}
