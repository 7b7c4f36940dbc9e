package render

import (
	"strconv"
	"strings"
	"time"

	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/invoice/format"
)

const DateLayout = "02 Jan 2006"

// Status badge colours.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorOrange = "orange"
)

type Issuer struct {
	Name    string
	Tagline string
	Address string
	Phone   string
	TaxID   string
}

type Badge struct {
	Label string
	Color string
}

type PatientBlock struct {
	Name    string
	Type    string
	Ward    string
	Contact string
}

type Row struct {
	Index       int
	ServiceName string
	Quantity    int64
	UnitPrice   float64
	Amount      float64
}

type TotalLine struct {
	Label  string
	Amount float64
	// Deduct lines are shown with a leading minus.
	Deduct bool
	Final  bool
}

// Document is the printable projection of a stored bill. Every amount is
// copied from the bill as persisted.
type Document struct {
	Issuer        Issuer
	Number        string
	Date          time.Time
	Status        Badge
	Patient       PatientBlock
	Rows          []Row
	Totals        []TotalLine
	Subtotal      float64
	Discount      float64
	TaxRate       float64
	TaxAmount     float64
	TotalAmount   float64
	Notes         string
	PaymentMethod string
	Footer        string

	CurrencySymbol string
	Locale         string
}

// BuildDocument projects bill, its patient and the issuer profile into a
// Document. It performs no I/O.
func BuildDocument(bill billdomain.Bill, patient *billdomain.PatientSummary, issuer config.InvoiceConfig) Document {
	doc := Document{
		Issuer: Issuer{
			Name:    issuer.IssuerName,
			Tagline: issuer.Tagline,
			Address: issuer.Address,
			Phone:   issuer.Phone,
			TaxID:   issuer.TaxID,
		},
		Number:         bill.BillNumber,
		Date:           bill.CreatedAt,
		Status:         StatusBadge(bill.PaymentStatus),
		Subtotal:       bill.Subtotal,
		Discount:       bill.Discount,
		TaxRate:        bill.TaxRate,
		TaxAmount:      bill.TaxAmount,
		TotalAmount:    bill.TotalAmount,
		Notes:          strings.TrimSpace(bill.Notes),
		PaymentMethod:  string(bill.PaymentMethod),
		Footer:         issuer.Footer,
		CurrencySymbol: issuer.CurrencySymbol,
		Locale:         issuer.Locale,
	}

	if patient == nil {
		patient = bill.Patient
	}
	if patient != nil {
		doc.Patient = PatientBlock{
			Name:    patient.Name,
			Type:    patient.Type,
			Ward:    patient.Ward,
			Contact: patient.Contact,
		}
	}

	doc.Rows = make([]Row, 0, len(bill.Items))
	for i, item := range bill.Items {
		doc.Rows = append(doc.Rows, Row{
			Index:       i + 1,
			ServiceName: item.ServiceName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      float64(item.Quantity) * item.UnitPrice,
		})
	}

	doc.Totals = append(doc.Totals, TotalLine{Label: "Subtotal", Amount: bill.Subtotal})
	if bill.Discount > 0 {
		doc.Totals = append(doc.Totals, TotalLine{Label: "Discount", Amount: bill.Discount, Deduct: true})
	}
	if bill.TaxRate > 0 {
		doc.Totals = append(doc.Totals, TotalLine{
			Label:  "Tax (" + strconv.FormatFloat(bill.TaxRate, 'f', -1, 64) + "%)",
			Amount: bill.TaxAmount,
		})
	}
	doc.Totals = append(doc.Totals, TotalLine{Label: "Total", Amount: bill.TotalAmount, Final: true})

	return doc
}

// StatusBadge maps a payment status to its label and colour.
func StatusBadge(status billdomain.PaymentStatus) Badge {
	switch status {
	case billdomain.PaymentStatusPaid:
		return Badge{Label: string(status), Color: ColorGreen}
	case billdomain.PaymentStatusPartial:
		return Badge{Label: string(status), Color: ColorOrange}
	default:
		return Badge{Label: string(billdomain.PaymentStatusPending), Color: ColorYellow}
	}
}

// Money formats amount in the document currency.
func (d Document) Money(amount float64) string {
	return format.Money(d.CurrencySymbol, amount, d.Locale)
}

// PatientWard renders "IPD - Ward 3", or whichever half is present.
func (b PatientBlock) PatientWard() string {
	parts := []string{}
	if b.Type != "" {
		parts = append(parts, b.Type)
	}
	if b.Ward != "" {
		parts = append(parts, b.Ward)
	}
	return strings.Join(parts, " - ")
}

func (d Document) FormattedDate() string {
	if d.Date.IsZero() {
		return "-"
	}
	return d.Date.Format(DateLayout)
}
