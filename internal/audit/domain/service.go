package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Action names the event being recorded, e.g. "bill.created".
type Action string

const (
	ActionBillCreated         Action = "bill.created"
	ActionAuthorizationDenied Action = "authorization.denied"
)

// AuditLog is an append-only record of something an actor did to a bill or
// was refused permission to do.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"not null" json:"actor_type"`
	ActorID    *string           `json:"actor_id,omitempty"`
	ActorRole  *string           `json:"actor_role,omitempty"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   *string           `json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers hand to Record. Empty actor fields are filled from
// the request context.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	ActorRole  string
	Action     Action
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *pagination.Cursor
	Limit      int
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = pagination.ErrInvalidToken
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
