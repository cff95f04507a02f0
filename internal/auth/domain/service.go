package domain

import (
	"context"
	"time"

	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type CreateUserRequest struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	RawToken  string
	ExpiresAt time.Time
	Session   *Session
	User      *User
}

// AuthenticatedSession couples a live session with its user so handlers
// can read the app role without a second lookup.
type AuthenticatedSession struct {
	Session *Session
	User    *User
}

type ListUsersRequest struct {
	pagination.Params
	Query     string
	Role      string
	SortBy    string
	SortOrder string
}

type ListUsersResponse struct {
	Users      []User              `json:"users"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type BanUserRequest struct {
	UserID  snowflake.ID
	Reason  string
	Expires *time.Time
}

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*AuthenticatedSession, error)
	Logout(ctx context.Context, rawToken string) error
	ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error

	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	VerifyEmail(ctx context.Context, rawToken string) error

	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
	SetAppRole(ctx context.Context, userID snowflake.ID, role string) error
	BanUser(ctx context.Context, req BanUserRequest) error
	UnbanUser(ctx context.Context, userID snowflake.ID) error
}
