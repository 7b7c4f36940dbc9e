package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/medicore/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns up to filter.Limit+1 rows, newest first, so the caller can
// tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	for column, value := range map[string]string{
		"action":      filter.Action,
		"target_type": filter.TargetType,
		"target_id":   filter.TargetID,
		"actor_type":  filter.ActorType,
		"actor_id":    filter.ActorID,
	} {
		if value = strings.TrimSpace(value); value != "" {
			stmt = stmt.Where(column+" = ?", value)
		}
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
	}
	if c := filter.Cursor; c != nil {
		stmt = stmt.Where("created_at < ? OR (created_at = ? AND id < ?)", c.CreatedAt.UTC(), c.CreatedAt.UTC(), c.ID)
	}

	stmt = stmt.Order("created_at desc").Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var rows []domain.AuditLog
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
