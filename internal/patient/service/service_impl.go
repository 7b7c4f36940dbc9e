package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/internal/authorization"
	"github.com/smallbiznis/medicore/internal/cache"
	"github.com/smallbiznis/medicore/internal/patient/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	AuthzSvc authorization.Service
	Cache    cache.PatientCache `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	authzSvc authorization.Service
	cache    cache.PatientCache
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("patient.service"),
		repo:     p.Repo,
		authzSvc: p.AuthzSvc,
		cache:    p.Cache,
	}
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, req domain.ListPatientRequest) (domain.ListPatientResponse, error) {
	if err := s.authzSvc.Authorize(ctx, actor, authorization.ObjectPatient, authorization.ActionPatientView); err != nil {
		return domain.ListPatientResponse{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	items, err := s.repo.List(ctx, s.db, domain.ListPatientFilter{
		Search: strings.TrimSpace(req.Search),
		Type:   strings.ToUpper(strings.TrimSpace(req.Type)),
		Ward:   strings.TrimSpace(req.Ward),
		Limit:  limit,
	})
	if err != nil {
		return domain.ListPatientResponse{}, err
	}

	patients := make([]domain.Patient, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		patients = append(patients, *item)
	}
	return domain.ListPatientResponse{Patients: patients}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Patient, error) {
	if id == 0 {
		return domain.Patient{}, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Patient{}, err
	}
	if item == nil {
		return domain.Patient{}, domain.ErrNotFound
	}
	return *item, nil
}

// Lookup resolves patients in bulk. Unknown ids are absent from the result.
func (s *Service) Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]domain.Patient, error) {
	out := make(map[snowflake.ID]domain.Patient, len(ids))
	missing := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if s.cache != nil {
			if patient, ok := s.cache.GetPatient(id); ok {
				out[id] = patient
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	items, err := s.repo.FindByIDs(ctx, s.db, missing)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		out[item.ID] = *item
		if s.cache != nil {
			s.cache.SetPatient(*item)
		}
	}
	return out, nil
}
