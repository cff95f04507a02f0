package domain

import (
	"context"
	"time"

	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindOne(ctx context.Context, filter User) (*User, error)
	Save(ctx context.Context, user *User) error
	List(ctx context.Context, filter ListUsersFilter) ([]User, int64, error)
}

// ListUsersFilter narrows and orders the admin user listing.
type ListUsersFilter struct {
	pagination.Params
	Query     string
	Role      string
	SortBy    string
	SortOrder string
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Touch(ctx context.Context, sessionID snowflake.ID, seenAt time.Time) error
	Revoke(ctx context.Context, sessionID snowflake.ID, revokedAt time.Time) error
	RevokeAllForUser(ctx context.Context, userID snowflake.ID, revokedAt time.Time) error
}

type TokenRepository interface {
	Create(ctx context.Context, token *Token) error
	FindActive(ctx context.Context, purpose string, tokenHash string, now time.Time) (*Token, error)
	Consume(ctx context.Context, tokenID snowflake.ID, consumedAt time.Time) error
}
