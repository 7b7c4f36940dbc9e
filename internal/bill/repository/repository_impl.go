package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/internal/bill/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) NextSequence(ctx context.Context, db *gorm.DB) (int64, error) {
	var next int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM bills`,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bills (
			id, sequence, bill_number, patient_id, subtotal, discount, tax_rate,
			tax_amount, total_amount, payment_status, payment_method, notes,
			created_by, created_at, idempotency_key
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID,
		bill.Sequence,
		bill.BillNumber,
		bill.PatientID,
		bill.Subtotal,
		bill.Discount,
		bill.TaxRate,
		bill.TaxAmount,
		bill.TotalAmount,
		bill.PaymentStatus,
		bill.PaymentMethod,
		bill.Notes,
		bill.CreatedBy,
		bill.CreatedAt,
		bill.IdempotencyKey,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BillItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO bill_items (id, bill_id, position, service_name, quantity, unit_price, line_total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.BillID,
			item.Position,
			item.ServiceName,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, sequence, bill_number, patient_id, subtotal, discount, tax_rate,
			tax_amount, total_amount, payment_status, payment_method, notes,
			created_by, created_at
		 FROM bills
		 WHERE id = ?`,
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, sequence, bill_number, patient_id, subtotal, discount, tax_rate,
			tax_amount, total_amount, payment_status, payment_method, notes,
			created_by, created_at, idempotency_key
		 FROM bills
		 WHERE idempotency_key = ?`,
		key,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, sequence, bill_number, patient_id, subtotal, discount, tax_rate,
			tax_amount, total_amount, payment_status, payment_method, notes,
			created_by, created_at
		 FROM bills
		 ORDER BY created_at DESC, sequence DESC`,
	).Scan(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM bills`).Scan(&count).Error
	return count, err
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, billIDs []snowflake.ID) ([]domain.BillItem, error) {
	if len(billIDs) == 0 {
		return nil, nil
	}
	var items []domain.BillItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, bill_id, position, service_name, quantity, unit_price, line_total
		 FROM bill_items
		 WHERE bill_id IN ?
		 ORDER BY bill_id, position`,
		billIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SummarizeByStatus(ctx context.Context, db *gorm.DB) ([]domain.StatusSummary, error) {
	var rows []domain.StatusSummary
	err := db.WithContext(ctx).Raw(
		`SELECT payment_status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount
		 FROM bills
		 GROUP BY payment_status
		 ORDER BY payment_status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
