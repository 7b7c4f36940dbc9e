package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/medicore/internal/authorization"
)

type ItemInput struct {
	ServiceName string   `json:"service_name"`
	Quantity    int64    `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
}

// CreateBillRequest is the create payload. Subtotal, TaxAmount and
// TotalAmount are the client's figures; when present they must match the
// server computation.
type CreateBillRequest struct {
	PatientID     string      `json:"patient_id"`
	Items         []ItemInput `json:"items"`
	Discount      float64     `json:"discount"`
	Tax           float64     `json:"tax"`
	PaymentStatus string      `json:"payment_status"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`

	Subtotal    *float64 `json:"subtotal,omitempty"`
	TaxAmount   *float64 `json:"tax_amount,omitempty"`
	TotalAmount *float64 `json:"total_amount,omitempty"`

	IdempotencyKey string `json:"-"`
}

type ListBillsResponse struct {
	Bills []Bill `json:"bills"`
	Total int64  `json:"total"`
}

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateBillRequest) (Bill, error)
	List(ctx context.Context, actor authorization.Actor) (ListBillsResponse, error)
	GetByID(ctx context.Context, actor authorization.Actor, id string) (Bill, error)
	Summary(ctx context.Context) ([]StatusSummary, error)
	ServiceTemplates() []string
}

// Locker guards one submission per idempotency key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}
