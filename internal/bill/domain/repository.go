package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	NextSequence(ctx context.Context, db *gorm.DB) (int64, error)
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	InsertItems(ctx context.Context, db *gorm.DB, items []BillItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Bill, error)
	List(ctx context.Context, db *gorm.DB) ([]*Bill, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	ListItems(ctx context.Context, db *gorm.DB, billIDs []snowflake.ID) ([]BillItem, error)
	SummarizeByStatus(ctx context.Context, db *gorm.DB) ([]StatusSummary, error)
}
