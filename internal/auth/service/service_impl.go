package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/burnhq/brnit/internal/auth/domain"
	"github.com/burnhq/brnit/internal/auth/password"
	"github.com/burnhq/brnit/internal/clock"
	"github.com/burnhq/brnit/internal/config"
	"github.com/burnhq/brnit/internal/providers/email"
	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	sessionTTL        = 7 * 24 * time.Hour
	resetTokenTTL     = time.Hour
	verifyTokenTTL    = 24 * time.Hour

	minPasswordLength = 8

	// Deep link scheme handled by the Expo client.
	resetPasswordLink = "brnit://reset-password?token=%s"
	verifyEmailLink   = "brnit://verify-email?token=%s"
)

type Service struct {
	log         *zap.Logger
	cfg         config.Config
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	tokenRepo   domain.TokenRepository
	genID       *snowflake.Node
	clk         clock.Clock
	mailer      email.Provider
}

func New(
	log *zap.Logger,
	cfg config.Config,
	repo domain.Repository,
	sessionRepo domain.SessionRepository,
	tokenRepo domain.TokenRepository,
	genID *snowflake.Node,
	clk clock.Clock,
	mailer email.Provider,
) domain.Service {
	return &Service{
		log:         log.Named("auth.service"),
		cfg:         cfg,
		repo:        repo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		genID:       genID,
		clk:         clk,
		mailer:      mailer,
	}
}

func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	normalized, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	if _, err := s.repo.FindOne(ctx, domain.User{Email: normalized}); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = defaultDisplayName(normalized)
	}
	user := &domain.User{
		ID:                  s.genID.Generate(),
		ExternalID:          uuid.NewString(),
		Provider:            "local",
		DisplayName:         displayName,
		Email:               normalized,
		PasswordHash:        &hashed,
		Role:                domain.AppRoleUser,
		LastPasswordChanged: &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Verification email is best effort: the account exists either way.
	if err := s.sendVerification(ctx, user); err != nil {
		s.log.Warn("failed to send verification email", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	normalized, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindOne(ctx, domain.User{Email: normalized, Provider: "local"})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if s.isBanned(user) {
		return nil, domain.ErrUserBanned
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		Session:   session,
		User:      user,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.AuthenticatedSession, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.FindByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindOne(ctx, domain.User{ID: session.UserID})
	if err != nil {
		return nil, domain.ErrInvalidSession
	}
	if s.isBanned(user) {
		return nil, domain.ErrUserBanned
	}

	if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
		s.log.Warn("failed to touch session", zap.Error(err))
	}

	return &domain.AuthenticatedSession{Session: session, User: user}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if strings.TrimSpace(rawToken) == "" {
		return nil
	}
	session, err := s.sessionRepo.FindByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			return nil
		}
		return err
	}
	return s.sessionRepo.Revoke(ctx, session.ID, s.clk.Now())
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	user, err := s.repo.FindOne(ctx, domain.User{ID: userID})
	if err != nil {
		return err
	}
	if user.PasswordHash == nil || !password.Verify(currentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.clk.Now()
	user.PasswordHash = &hashed
	user.LastPasswordChanged = &now
	user.UpdatedAt = now
	return s.repo.Save(ctx, user)
}

// RequestPasswordReset issues a single-use token and emails a deep
// link. Unknown addresses return success so the endpoint does not leak
// which emails have accounts. Delivery failure for a known address IS
// surfaced: a reset the user never receives is worse than an error.
func (s *Service) RequestPasswordReset(ctx context.Context, rawEmail string) error {
	normalized, err := normalizeEmail(rawEmail)
	if err != nil {
		return nil
	}

	user, err := s.repo.FindOne(ctx, domain.User{Email: normalized, Provider: "local"})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	rawToken, err := s.issueToken(ctx, user.ID, domain.TokenPurposePasswordReset, resetTokenTTL)
	if err != nil {
		return err
	}

	msg := email.NewPasswordResetMessage(user.Email, fmt.Sprintf(resetPasswordLink, rawToken))
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error("failed to send password reset email", zap.Error(err), zap.String("user_id", user.ID.String()))
		return domain.ErrEmailDelivery
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(strings.TrimSpace(newPassword)) < minPasswordLength {
		return domain.ErrWeakPassword
	}

	token, err := s.tokenRepo.FindActive(ctx, domain.TokenPurposePasswordReset, hashToken(rawToken), s.clk.Now())
	if err != nil {
		return err
	}

	user, err := s.repo.FindOne(ctx, domain.User{ID: token.UserID})
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.clk.Now()
	if err := s.tokenRepo.Consume(ctx, token.ID, now); err != nil {
		return err
	}

	user.PasswordHash = &hashed
	user.LastPasswordChanged = &now
	user.UpdatedAt = now
	if err := s.repo.Save(ctx, user); err != nil {
		return err
	}

	// Any session issued before the reset is no longer trustworthy.
	return s.sessionRepo.RevokeAllForUser(ctx, user.ID, now)
}

func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	token, err := s.tokenRepo.FindActive(ctx, domain.TokenPurposeEmailVerify, hashToken(rawToken), s.clk.Now())
	if err != nil {
		return err
	}

	user, err := s.repo.FindOne(ctx, domain.User{ID: token.UserID})
	if err != nil {
		return domain.ErrInvalidOrExpiredToken
	}

	now := s.clk.Now()
	if err := s.tokenRepo.Consume(ctx, token.ID, now); err != nil {
		return err
	}

	user.EmailVerified = true
	user.UpdatedAt = now
	return s.repo.Save(ctx, user)
}

func (s *Service) ListUsers(ctx context.Context, req domain.ListUsersRequest) (*domain.ListUsersResponse, error) {
	params := req.Params.Normalize()
	users, total, err := s.repo.List(ctx, domain.ListUsersFilter{
		Params:    params,
		Query:     req.Query,
		Role:      req.Role,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, err
	}

	return &domain.ListUsersResponse{
		Users:      users,
		Pagination: pagination.BuildPageInfo(params, total),
	}, nil
}

func (s *Service) SetAppRole(ctx context.Context, userID snowflake.ID, role string) error {
	if !domain.ValidAppRole(role) {
		return domain.ErrInvalidRole
	}
	user, err := s.repo.FindOne(ctx, domain.User{ID: userID})
	if err != nil {
		return err
	}
	user.Role = role
	user.UpdatedAt = s.clk.Now()
	return s.repo.Save(ctx, user)
}

func (s *Service) BanUser(ctx context.Context, req domain.BanUserRequest) error {
	user, err := s.repo.FindOne(ctx, domain.User{ID: req.UserID})
	if err != nil {
		return err
	}

	now := s.clk.Now()
	user.Banned = true
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		user.BanReason = &reason
	}
	user.BanExpires = req.Expires
	user.UpdatedAt = now
	if err := s.repo.Save(ctx, user); err != nil {
		return err
	}

	return s.sessionRepo.RevokeAllForUser(ctx, user.ID, now)
}

func (s *Service) UnbanUser(ctx context.Context, userID snowflake.ID) error {
	user, err := s.repo.FindOne(ctx, domain.User{ID: userID})
	if err != nil {
		return err
	}
	user.Banned = false
	user.BanReason = nil
	user.BanExpires = nil
	user.UpdatedAt = s.clk.Now()
	return s.repo.Save(ctx, user)
}

func (s *Service) isBanned(user *domain.User) bool {
	if !user.Banned {
		return false
	}
	if user.BanExpires != nil && s.clk.Now().After(*user.BanExpires) {
		return false
	}
	return true
}

func (s *Service) sendVerification(ctx context.Context, user *domain.User) error {
	rawToken, err := s.issueToken(ctx, user.ID, domain.TokenPurposeEmailVerify, verifyTokenTTL)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, email.NewVerificationMessage(user.Email, fmt.Sprintf(verifyEmailLink, rawToken)))
}

func (s *Service) issueToken(ctx context.Context, userID snowflake.ID, purpose string, ttl time.Duration) (string, error) {
	rawToken := ulid.Make().String()
	now := s.clk.Now()
	token := &domain.Token{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashToken(rawToken),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", err
	}
	return rawToken, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return "", errors.New("empty email")
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

func defaultDisplayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
