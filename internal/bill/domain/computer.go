package domain

// Totals is the Bill Computer output.
type Totals struct {
	Subtotal    float64    `json:"subtotal"`
	TaxAmount   float64    `json:"tax_amount"`
	TotalAmount float64    `json:"total_amount"`
	Items       []LineItem `json:"items"`
}

// IsNegative reports a discount larger than subtotal plus tax. Such totals
// are kept as computed.
func (t Totals) IsNegative() bool {
	return t.TotalAmount < 0
}

// CompleteItems returns the complete items with line totals recomputed from
// quantity and unit price.
func CompleteItems(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if !item.IsComplete() {
			continue
		}
		out = append(out, item.recompute())
	}
	return out
}

// Compute aggregates items into subtotal, tax and grand total.
//
// Incomplete rows are excluded. Nothing is rounded and a negative total is
// returned unchanged. The function has no side effects.
func Compute(items []LineItem, discount, taxRate float64) Totals {
	filtered := CompleteItems(items)

	var subtotal float64
	for _, item := range filtered {
		subtotal += item.LineTotal
	}
	taxAmount := subtotal * taxRate / 100

	return Totals{
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		TotalAmount: subtotal - discount + taxAmount,
		Items:       filtered,
	}
}
