package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/medicore/internal/invoice/format"
	"github.com/smallbiznis/medicore/internal/invoice/render"
)

var (
	primary = &props.Color{Red: 37, Green: 99, Blue: 235}
	muted   = &props.Color{Red: 107, Green: 114, Blue: 128}
	deduct  = &props.Color{Red: 220, Green: 38, Blue: 38}

	badgeColors = map[string]*props.Color{
		render.ColorGreen:  {Red: 21, Green: 128, Blue: 61},
		render.ColorYellow: {Red: 161, Green: 98, Blue: 7},
		render.ColorOrange: {Red: 194, Green: 65, Blue: 12},
	}
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, doc render.Document) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Number) == "" {
		return nil, fmt.Errorf("invoice number is empty")
	}

	money := func(amount float64) string {
		return format.Money(pdfSymbol(doc.CurrencySymbol), amount, doc.Locale)
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	// Issuer and invoice number
	m.AddRow(10,
		text.NewCol(8, doc.Issuer.Name, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Color: primary}),
	)
	m.AddRow(6,
		text.NewCol(8, doc.Issuer.Tagline, props.Text{Size: 9, Color: muted}),
		text.NewCol(4, doc.Number, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(5,
		text.NewCol(8, doc.Issuer.Address, props.Text{Size: 8, Color: muted}),
		text.NewCol(4, "Date: "+doc.FormattedDate(), props.Text{Size: 8, Align: align.Right, Color: muted}),
	)
	m.AddRow(8,
		text.NewCol(8, issuerContact(doc.Issuer), props.Text{Size: 8, Color: muted}),
		text.NewCol(4, doc.Status.Label, props.Text{
			Size:  9,
			Style: fontstyle.Bold,
			Align: align.Right,
			Color: badgeColors[doc.Status.Color],
		}),
	)

	// Patient
	m.AddRow(14,
		col.New(4).Add(
			text.New("PATIENT NAME", props.Text{Size: 7, Color: muted}),
			text.New(doc.Patient.Name, props.Text{Top: 4, Style: fontstyle.Bold}),
		),
		col.New(4).Add(
			text.New("PATIENT TYPE", props.Text{Size: 7, Color: muted}),
			text.New(doc.Patient.PatientWard(), props.Text{Top: 4}),
		),
		col.New(4).Add(
			text.New("CONTACT", props.Text{Size: 7, Color: muted}),
			text.New(doc.Patient.Contact, props.Text{Top: 4}),
		),
	)

	// Table header
	m.AddRow(8,
		text.NewCol(1, "#", props.Text{Style: fontstyle.Bold, Size: 9, Color: primary}),
		text.NewCol(5, "Service Description", props.Text{Style: fontstyle.Bold, Size: 9, Color: primary}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Center, Color: primary}),
		text.NewCol(2, "Unit Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: primary}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: primary}),
	)

	for _, row := range doc.Rows {
		m.AddRow(7,
			text.NewCol(1, strconv.Itoa(row.Index), props.Text{Size: 9, Color: muted}),
			text.NewCol(5, row.ServiceName, props.Text{Size: 9}),
			text.NewCol(2, strconv.FormatInt(row.Quantity, 10), props.Text{Size: 9, Align: align.Center}),
			text.NewCol(2, money(row.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(row.Amount), props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}),
		)
	}

	m.AddRow(4, col.New(12))

	for _, line := range doc.Totals {
		value := money(line.Amount)
		valueProps := props.Text{Size: 9, Align: align.Right}
		labelProps := props.Text{Size: 9}
		if line.Deduct {
			value = "-" + value
			valueProps.Color = deduct
		}
		if line.Final {
			valueProps.Style = fontstyle.Bold
			valueProps.Size = 11
			labelProps.Style = fontstyle.Bold
			labelProps.Size = 11
		}
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, line.Label, labelProps),
			text.NewCol(2, value, valueProps),
		)
	}

	m.AddRow(7,
		col.New(8),
		text.NewCol(2, "Payment", props.Text{Size: 8, Color: muted}),
		text.NewCol(2, doc.PaymentMethod, props.Text{Size: 8, Align: align.Right, Color: muted}),
	)

	if doc.Notes != "" {
		m.AddRow(12,
			text.NewCol(12, "Notes: "+doc.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	if doc.Footer != "" {
		m.AddRow(12,
			text.NewCol(12, doc.Footer, props.Text{Size: 8, Top: 6, Align: align.Center, Color: muted}),
		)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(out.GetBytes()), nil
}

func issuerContact(issuer render.Issuer) string {
	parts := []string{}
	if issuer.Phone != "" {
		parts = append(parts, "Phone: "+issuer.Phone)
	}
	if issuer.TaxID != "" {
		parts = append(parts, "GST: "+issuer.TaxID)
	}
	return strings.Join(parts, " | ")
}

// pdfSymbol replaces currency signs outside latin-1, which the built in
// PDF fonts cannot draw.
func pdfSymbol(symbol string) string {
	switch symbol {
	case "₹":
		return "Rs. "
	case "€":
		return "EUR "
	}
	for _, r := range symbol {
		if r > 0xff {
			return ""
		}
	}
	return symbol
}
