package domain

import (
	"context"
	"errors"
	"time"

	"github.com/burnhq/brnit/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type ListAuditLogRequest struct {
	pagination.Params
	Action     string
	TargetType string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	AuditLogs  []AuditLog          `json:"audit_logs"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type Service interface {
	AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrInvalidAction       = errors.New("invalid_action")
)
