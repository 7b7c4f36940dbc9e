package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, object string, action string) error {
	if !actor.Authenticated() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := actor.subject()
	if err := s.ensureGrouping(subject, actor.Role.subject()); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor_id", actor.ID),
			zap.String("role", string(actor.Role)),
			zap.String("action", action),
		)
		s.metrics.RecordAuthorizationDenied(ctx, string(actor.Role), action)
		s.auditDenied(ctx, actor, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping links the subject to its current role and drops links to
// any role it held before.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actor Actor, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     auditdomain.ActionAuthorizationDenied,
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object": object,
			"action": action,
		},
	})
	if err != nil {
		s.log.Warn("audit authorization.denied", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, rule := range policyTable {
		has, err := enforcer.HasPolicy(rule.Role.subject(), rule.Object, rule.Action)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(rule.Role.subject(), rule.Object, rule.Action); err != nil {
			return err
		}
	}
	return nil
}
