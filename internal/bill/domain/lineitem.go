package domain

import (
	"math"
	"strconv"
	"strings"
)

// Field names a user editable line item attribute.
type Field string

const (
	FieldServiceName Field = "service_name"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
)

// LineItem is one billable service in a draft. LineTotal is derived from
// Quantity and UnitPrice and is never set directly.
type LineItem struct {
	ServiceName string   `json:"service_name"`
	Quantity    int64    `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	LineTotal   float64  `json:"total"`
}

// NewLineItem returns the blank row a draft starts with.
func NewLineItem() LineItem {
	return LineItem{Quantity: 1}
}

// Update returns a copy of the item with field set from its textual form.
func (i LineItem) Update(field Field, value string) (LineItem, error) {
	switch field {
	case FieldServiceName:
		return i.WithServiceName(value), nil
	case FieldQuantity:
		qty, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || qty < 1 {
			return i, ErrInvalidQuantity
		}
		return i.WithQuantity(qty)
	case FieldUnitPrice:
		raw := strings.TrimSpace(value)
		if raw == "" {
			i.UnitPrice = nil
			return i.recompute(), nil
		}
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return i, ErrInvalidUnitPrice
		}
		return i.WithUnitPrice(price)
	default:
		return i, ErrInvalidField
	}
}

func (i LineItem) WithServiceName(name string) LineItem {
	i.ServiceName = strings.TrimSpace(name)
	return i
}

func (i LineItem) WithQuantity(qty int64) (LineItem, error) {
	if qty < 1 {
		return i, ErrInvalidQuantity
	}
	next := i
	next.Quantity = qty
	next = next.recompute()
	if !isFinite(next.LineTotal) {
		return i, ErrInvalidQuantity
	}
	return next, nil
}

func (i LineItem) WithUnitPrice(price float64) (LineItem, error) {
	if price < 0 || !isFinite(price) {
		return i, ErrInvalidUnitPrice
	}
	next := i
	next.UnitPrice = &price
	next = next.recompute()
	if !isFinite(next.LineTotal) {
		return i, ErrInvalidUnitPrice
	}
	return next, nil
}

// IsComplete reports whether the item has a name and an entered price.
// A zero price counts as entered.
func (i LineItem) IsComplete() bool {
	return strings.TrimSpace(i.ServiceName) != "" && i.UnitPrice != nil
}

// Price returns the unit price, or 0 when none was entered.
func (i LineItem) Price() float64 {
	if i.UnitPrice == nil {
		return 0
	}
	return *i.UnitPrice
}

func (i LineItem) recompute() LineItem {
	i.LineTotal = float64(i.Quantity) * i.Price()
	if i.UnitPrice != nil {
		price := *i.UnitPrice
		i.UnitPrice = &price
	}
	return i
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
