package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/burnhq/brnit/internal/auth/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

type sessionRepository struct {
	db *gorm.DB
}

type tokenRepository struct {
	db *gorm.DB
}

// New builds the auth repositories over a shared gorm handle.
func New(db *gorm.DB) (domain.Repository, domain.SessionRepository, domain.TokenRepository) {
	return &userRepository{db: db}, &sessionRepository{db: db}, &tokenRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindOne(ctx context.Context, filter domain.User) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where(&filter).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

var sortColumns = map[string]string{
	"name":      "display_name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

func (r *userRepository) List(ctx context.Context, filter domain.ListUsersFilter) ([]domain.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.User{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	var users []domain.User
	err := query.
		Order(column + " " + direction).
		Limit(filter.Limit).
		Offset(filter.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).Where("session_token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Touch(ctx context.Context, sessionID snowflake.ID, seenAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", sessionID).
		Update("last_seen_at", seenAt).Error
}

func (r *sessionRepository) Revoke(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ? AND revoked_at IS NULL", sessionID).
		Update("revoked_at", revokedAt).Error
}

func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID snowflake.ID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt).Error
}

func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) FindActive(ctx context.Context, purpose string, tokenHash string, now time.Time) (*domain.Token, error) {
	var token domain.Token
	err := r.db.WithContext(ctx).
		Where("purpose = ? AND token_hash = ? AND consumed_at IS NULL AND expires_at > ?", purpose, tokenHash, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) Consume(ctx context.Context, tokenID snowflake.ID, consumedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Token{}).
		Where("id = ? AND consumed_at IS NULL", tokenID).
		Update("consumed_at", consumedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidOrExpiredToken
	}
	return nil
}
