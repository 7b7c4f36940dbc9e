package render

import (
	"strings"
	"testing"
	"time"

	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioBill() billdomain.Bill {
	return billdomain.Bill{
		ID:            42,
		BillNumber:    "BILL-20260307-00001",
		Subtotal:      1100,
		Discount:      100,
		TaxRate:       5,
		TaxAmount:     55,
		TotalAmount:   1055,
		PaymentStatus: billdomain.PaymentStatusPending,
		PaymentMethod: billdomain.PaymentMethodUPI,
		Notes:         "Follow up in 2 weeks",
		CreatedAt:     time.Date(2026, 3, 7, 9, 30, 0, 0, time.UTC),
		Items: []billdomain.BillItem{
			{Position: 1, ServiceName: "Consultation Fee", Quantity: 1, UnitPrice: 500, LineTotal: 500},
			{Position: 2, ServiceName: "X-Ray", Quantity: 2, UnitPrice: 300, LineTotal: 600},
		},
		Patient: &billdomain.PatientSummary{ID: 7, Name: "Asha Verma", Type: "IPD", Ward: "Ward 3", Contact: "9876500001"},
	}
}

func TestBuildDocumentCopiesStoredTotals(t *testing.T) {
	bill := scenarioBill()
	// stored figures win even when they disagree with the items
	bill.Subtotal = 1100.004
	bill.TotalAmount = 1055.004

	doc := BuildDocument(bill, nil, config.DefaultInvoiceConfig())

	assert.Equal(t, bill.Subtotal, doc.Subtotal)
	assert.Equal(t, bill.Discount, doc.Discount)
	assert.Equal(t, bill.TaxAmount, doc.TaxAmount)
	assert.Equal(t, bill.TotalAmount, doc.TotalAmount)

	require.Len(t, doc.Totals, 4)
	assert.Equal(t, TotalLine{Label: "Subtotal", Amount: 1100.004}, doc.Totals[0])
	assert.Equal(t, TotalLine{Label: "Discount", Amount: 100, Deduct: true}, doc.Totals[1])
	assert.Equal(t, TotalLine{Label: "Tax (5%)", Amount: 55}, doc.Totals[2])
	assert.Equal(t, TotalLine{Label: "Total", Amount: 1055.004, Final: true}, doc.Totals[3])
}

func TestBuildDocumentRows(t *testing.T) {
	doc := BuildDocument(scenarioBill(), nil, config.DefaultInvoiceConfig())

	require.Len(t, doc.Rows, 2)
	assert.Equal(t, Row{Index: 1, ServiceName: "Consultation Fee", Quantity: 1, UnitPrice: 500, Amount: 500}, doc.Rows[0])
	assert.Equal(t, Row{Index: 2, ServiceName: "X-Ray", Quantity: 2, UnitPrice: 300, Amount: 600}, doc.Rows[1])
	assert.Equal(t, "Asha Verma", doc.Patient.Name)
	assert.Equal(t, "IPD - Ward 3", doc.Patient.PatientWard())
	assert.Equal(t, "MediCore Hospital", doc.Issuer.Name)
	assert.Equal(t, "07 Mar 2026", doc.FormattedDate())
}

func TestBuildDocumentOmitsZeroDiscountAndTax(t *testing.T) {
	bill := scenarioBill()
	bill.Discount = 0
	bill.TaxRate = 0
	bill.TaxAmount = 0
	bill.TotalAmount = 1100

	doc := BuildDocument(bill, nil, config.DefaultInvoiceConfig())

	labels := []string{}
	for _, line := range doc.Totals {
		labels = append(labels, line.Label)
	}
	assert.Equal(t, []string{"Subtotal", "Total"}, labels)
}

func TestBuildDocumentPrefersGivenPatient(t *testing.T) {
	doc := BuildDocument(scenarioBill(), &billdomain.PatientSummary{Name: "Ravi Kumar", Type: "OPD"}, config.DefaultInvoiceConfig())
	assert.Equal(t, "Ravi Kumar", doc.Patient.Name)
	assert.Equal(t, "OPD", doc.Patient.PatientWard())
}

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status billdomain.PaymentStatus
		want   Badge
	}{
		{billdomain.PaymentStatusPaid, Badge{Label: "Paid", Color: ColorGreen}},
		{billdomain.PaymentStatusPending, Badge{Label: "Pending", Color: ColorYellow}},
		{billdomain.PaymentStatusPartial, Badge{Label: "Partial", Color: ColorOrange}},
		{"", Badge{Label: "Pending", Color: ColorYellow}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusBadge(tt.status))
		})
	}
}

func TestRenderHTML(t *testing.T) {
	doc := BuildDocument(scenarioBill(), nil, config.DefaultInvoiceConfig())

	html, err := NewRenderer().RenderHTML(doc)
	require.NoError(t, err)

	for _, want := range []string{
		"BILL-20260307-00001",
		"MediCore Hospital",
		"Asha Verma",
		"Consultation Fee",
		"₹1,100.00",
		"&minus;₹100.00",
		"Tax (5%)",
		"₹55.00",
		"₹1,055.00",
		"badge-yellow",
		"Follow up in 2 weeks",
		"Thank you for choosing MediCore Hospital. Get well soon!",
	} {
		assert.Contains(t, html, want)
	}
}

func TestRenderHTMLEscapesUserText(t *testing.T) {
	bill := scenarioBill()
	bill.Notes = "<script>alert(1)</script>"

	html, err := NewRenderer().RenderHTML(BuildDocument(bill, nil, config.DefaultInvoiceConfig()))
	require.NoError(t, err)
	assert.False(t, strings.Contains(html, "<script>alert(1)</script>"))
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderHTMLWithoutNotesOrDiscount(t *testing.T) {
	bill := scenarioBill()
	bill.Notes = ""
	bill.Discount = 0
	bill.PaymentStatus = billdomain.PaymentStatusPaid

	html, err := NewRenderer().RenderHTML(BuildDocument(bill, nil, config.DefaultInvoiceConfig()))
	require.NoError(t, err)
	assert.NotContains(t, html, "Notes: ")
	assert.NotContains(t, html, ">Discount<")
	assert.Contains(t, html, "badge-green")
}
