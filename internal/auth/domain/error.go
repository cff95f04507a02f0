package domain

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid_credentials")
	ErrUserExists            = errors.New("user_exists")
	ErrUserNotFound          = errors.New("user_not_found")
	ErrUserBanned            = errors.New("user_banned")
	ErrInvalidSession        = errors.New("invalid_session")
	ErrSessionExpired        = errors.New("session_expired")
	ErrSessionRevoked        = errors.New("session_revoked")
	ErrInvalidOrExpiredToken = errors.New("invalid_or_expired_token")
	ErrWeakPassword          = errors.New("weak_password")
	ErrInvalidRole           = errors.New("invalid_role")
	ErrEmailDelivery         = errors.New("email_delivery_failed")
)
