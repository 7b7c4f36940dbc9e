package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

// ParsePaymentStatus accepts the canonical names case-insensitively.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, s := range []PaymentStatus{PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid} {
		if strings.EqualFold(strings.TrimSpace(value), string(s)) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

type PaymentMethod string

const (
	PaymentMethodCash      PaymentMethod = "Cash"
	PaymentMethodCard      PaymentMethod = "Card"
	PaymentMethodUPI       PaymentMethod = "UPI"
	PaymentMethodInsurance PaymentMethod = "Insurance"
)

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, m := range []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI, PaymentMethodInsurance} {
		if strings.EqualFold(strings.TrimSpace(value), string(m)) {
			return m, nil
		}
	}
	return "", ErrInvalidMethod
}

// Bill is a persisted bill. Computed amounts are written once on create.
type Bill struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	Sequence      int64         `gorm:"not null;uniqueIndex" json:"-"`
	BillNumber    string        `gorm:"not null;uniqueIndex" json:"bill_number"`
	PatientID     snowflake.ID  `gorm:"not null;index" json:"patient_id"`
	Subtotal      float64       `gorm:"not null" json:"subtotal"`
	Discount      float64       `gorm:"not null;default:0" json:"discount"`
	TaxRate       float64       `gorm:"not null;default:0" json:"tax"`
	TaxAmount     float64       `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount   float64       `gorm:"not null" json:"total_amount"`
	PaymentStatus PaymentStatus `gorm:"not null" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"not null" json:"payment_method"`
	Notes         string        `gorm:"not null;default:''" json:"notes"`
	CreatedBy     string        `gorm:"not null;default:''" json:"created_by"`
	CreatedAt     time.Time     `gorm:"not null;index" json:"created_at"`

	// IdempotencyKey is the client submission key, unique when present.
	IdempotencyKey *string `gorm:"uniqueIndex" json:"-"`

	Items   []BillItem      `gorm:"-" json:"items"`
	Patient *PatientSummary `gorm:"-" json:"patient,omitempty"`
}

func (Bill) TableName() string { return "bills" }

type BillItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID      snowflake.ID `gorm:"not null;index" json:"bill_id"`
	Position    int          `gorm:"not null" json:"position"`
	ServiceName string       `gorm:"not null" json:"service_name"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	UnitPrice   float64      `gorm:"not null" json:"unit_price"`
	LineTotal   float64      `gorm:"not null" json:"total"`
}

func (BillItem) TableName() string { return "bill_items" }

// PatientSummary is the part of a patient record shown next to a bill.
type PatientSummary struct {
	ID      snowflake.ID `json:"id"`
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Ward    string       `json:"ward"`
	Contact string       `json:"contact"`
}

// StatusSummary aggregates bills for one payment status.
type StatusSummary struct {
	PaymentStatus PaymentStatus `json:"payment_status"`
	Count         int64         `json:"count"`
	Amount        float64       `json:"amount"`
}
