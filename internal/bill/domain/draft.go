package domain

import (
	"math"
	"slices"
	"strings"
)

// Draft is the editable, unsaved form of a bill. Every transition returns a
// new Draft and leaves the receiver untouched.
type Draft struct {
	PatientID     string        `json:"patient_id"`
	Items         []LineItem    `json:"items"`
	Discount      float64       `json:"discount"`
	TaxRate       float64       `json:"tax"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes"`
}

// NewDraft returns an empty draft: one blank row, no discount or tax,
// Pending and Cash.
func NewDraft() Draft {
	return Draft{
		Items:         []LineItem{NewLineItem()},
		PaymentStatus: PaymentStatusPending,
		PaymentMethod: PaymentMethodCash,
	}
}

func (d Draft) clone() Draft {
	d.Items = slices.Clone(d.Items)
	return d
}

func (d Draft) AddItem() Draft {
	next := d.clone()
	next.Items = append(next.Items, NewLineItem())
	return next
}

func (d Draft) UpdateItem(index int, field Field, value string) (Draft, error) {
	if index < 0 || index >= len(d.Items) {
		return d, ErrInvalidItemIndex
	}
	item, err := d.Items[index].Update(field, value)
	if err != nil {
		return d, err
	}
	next := d.clone()
	next.Items[index] = item
	if err := next.checkTotals(); err != nil {
		return d, err
	}
	return next, nil
}

func (d Draft) RemoveItem(index int) (Draft, error) {
	if index < 0 || index >= len(d.Items) {
		return d, ErrInvalidItemIndex
	}
	next := d.clone()
	next.Items = slices.Delete(next.Items, index, index+1)
	return next, nil
}

func (d Draft) SetPatient(patientID string) Draft {
	next := d.clone()
	next.PatientID = strings.TrimSpace(patientID)
	return next
}

func (d Draft) SetDiscount(discount float64) (Draft, error) {
	if discount < 0 || !isFinite(discount) {
		return d, ErrInvalidDiscount
	}
	next := d.clone()
	next.Discount = discount
	if err := next.checkTotals(); err != nil {
		return d, err
	}
	return next, nil
}

func (d Draft) SetTax(rate float64) (Draft, error) {
	if rate < 0 || rate > 100 || math.IsNaN(rate) {
		return d, ErrInvalidTaxRate
	}
	next := d.clone()
	next.TaxRate = rate
	if err := next.checkTotals(); err != nil {
		return d, err
	}
	return next, nil
}

func (d Draft) SetPaymentStatus(status PaymentStatus) (Draft, error) {
	parsed, err := ParsePaymentStatus(string(status))
	if err != nil {
		return d, err
	}
	next := d.clone()
	next.PaymentStatus = parsed
	return next, nil
}

func (d Draft) SetPaymentMethod(method PaymentMethod) (Draft, error) {
	parsed, err := ParsePaymentMethod(string(method))
	if err != nil {
		return d, err
	}
	next := d.clone()
	next.PaymentMethod = parsed
	return next, nil
}

func (d Draft) SetNotes(notes string) Draft {
	next := d.clone()
	next.Notes = notes
	return next
}

// Totals runs Compute over the draft.
func (d Draft) Totals() Totals {
	return Compute(d.Items, d.Discount, d.TaxRate)
}

// checkTotals rejects a draft whose totals no longer fit in a float64.
func (d Draft) checkTotals() error {
	t := d.Totals()
	if !isFinite(t.Subtotal) || !isFinite(t.TaxAmount) || !isFinite(t.TotalAmount) {
		return ErrAmountOutOfRange
	}
	return nil
}

// Validate checks the submit preconditions in order; the first failure wins.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.PatientID) == "" {
		return ErrPatientRequired
	}
	if len(CompleteItems(d.Items)) == 0 {
		return ErrNoCompleteItems
	}
	return d.checkTotals()
}

// Request builds the create payload: complete items only, with the totals
// computed here so the server can check them.
func (d Draft) Request() CreateBillRequest {
	totals := d.Totals()
	items := make([]ItemInput, 0, len(totals.Items))
	for _, item := range totals.Items {
		price := item.Price()
		items = append(items, ItemInput{
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   &price,
		})
	}
	subtotal := totals.Subtotal
	taxAmount := totals.TaxAmount
	totalAmount := totals.TotalAmount
	return CreateBillRequest{
		PatientID:     d.PatientID,
		Items:         items,
		Discount:      d.Discount,
		Tax:           d.TaxRate,
		PaymentStatus: string(d.PaymentStatus),
		PaymentMethod: string(d.PaymentMethod),
		Notes:         d.Notes,
		Subtotal:      &subtotal,
		TaxAmount:     &taxAmount,
		TotalAmount:   &totalAmount,
	}
}
