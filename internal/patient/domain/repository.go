package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, patient *Patient) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Patient, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Patient, error)
	List(ctx context.Context, db *gorm.DB, filter ListPatientFilter) ([]*Patient, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
