package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/audit/masking"
	"github.com/smallbiznis/medicore/internal/clock"
	obscontext "github.com/smallbiznis/medicore/internal/observability/context"
	"github.com/smallbiznis/medicore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record writes one audit entry. Patient contact details in the metadata are
// masked before they are stored.
func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(string(entry.Action))
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	row := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(entry.TargetID),
		Metadata:   datatypes.JSONMap(s.metadata(ctx, entry.Metadata)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	s.fillActor(ctx, entry, &row)

	ip, userAgent := obscontext.ClientFromContext(ctx)
	row.IPAddress = optional(ip)
	row.UserAgent = optional(userAgent)

	if err := s.repo.Insert(ctx, s.db, &row); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", targetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}

	size := req.Size()
	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      size,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	rows, pageInfo := pagination.Page(rows, size, func(row auditdomain.AuditLog) pagination.Cursor {
		return pagination.Cursor{ID: row.ID, CreatedAt: row.CreatedAt}
	})
	if rows == nil {
		rows = []auditdomain.AuditLog{}
	}

	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: rows}, nil
}

func (s *Service) metadata(ctx context.Context, in map[string]any) map[string]any {
	out := masking.MaskFields(in, masking.SensitiveKeys...)
	if out == nil {
		out = map[string]any{}
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		out["request_id"] = requestID
	}
	return out
}

// fillActor takes the actor from the entry and falls back to the one set on
// the request context. Entries with no actor at all are recorded as system.
func (s *Service) fillActor(ctx context.Context, entry auditdomain.Entry, row *auditdomain.AuditLog) {
	actorType := strings.TrimSpace(string(entry.ActorType))
	actorID := strings.TrimSpace(entry.ActorID)
	role := strings.TrimSpace(entry.ActorRole)

	ctxType, ctxID := obscontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = ctxType
	}
	if actorID == "" {
		actorID = ctxID
	}
	if role == "" {
		role = obscontext.RoleFromContext(ctx)
	}
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	row.ActorType = actorType
	row.ActorID = optional(actorID)
	row.ActorRole = optional(role)
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
