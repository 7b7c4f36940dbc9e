package render

import (
	"bytes"
	"html/template"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Number}}</title>
  <style>
    :root {
      --primary: #2563eb;
      --font: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: var(--font);
      color: #111827;
      background: #f7f9fc;
    }
    .invoice-card {
      background: #ffffff;
      max-width: 760px;
      margin: 0 auto;
      padding: 48px;
      border-radius: 4px;
    }
    .header {
      display: flex;
      justify-content: space-between;
      padding-bottom: 24px;
      margin-bottom: 24px;
      border-bottom: 2px solid var(--primary);
    }
    .header h1 { margin: 0; font-size: 22px; }
    .muted { font-size: 12px; color: #6b7280; }
    .number {
      background: var(--primary);
      color: #ffffff;
      padding: 8px 16px;
      border-radius: 12px;
      display: inline-block;
      margin-bottom: 8px;
    }
    .badge {
      display: inline-block;
      margin-top: 4px;
      padding: 4px 8px;
      border-radius: 4px;
      font-size: 12px;
      font-weight: 700;
    }
    .badge-green { background: #dcfce7; color: #15803d; }
    .badge-yellow { background: #fef9c3; color: #a16207; }
    .badge-orange { background: #ffedd5; color: #c2410c; }
    .patient {
      background: #f9fafb;
      border-radius: 12px;
      padding: 16px;
      margin-bottom: 24px;
      display: grid;
      grid-template-columns: 1fr 1fr;
      gap: 12px;
      font-size: 14px;
    }
    .label { font-size: 11px; text-transform: uppercase; color: #6b7280; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; font-size: 14px; }
    th { background: var(--primary); color: #ffffff; text-align: left; padding: 10px 12px; }
    td { padding: 10px 12px; border-bottom: 1px solid #f3f4f6; }
    .right { text-align: right; }
    .center { text-align: center; }
    .totals { display: flex; flex-direction: column; align-items: flex-end; margin-bottom: 24px; }
    .total-row { display: flex; justify-content: space-between; width: 260px; padding: 6px 0; font-size: 14px; }
    .deduct { color: #dc2626; }
    .total-final { background: var(--primary); color: #ffffff; border-radius: 12px; padding: 10px 12px; font-weight: 700; }
    .notes { background: #fefce8; border: 1px solid #fef08a; border-radius: 12px; padding: 12px; font-size: 14px; margin-bottom: 16px; }
    .footer { text-align: center; font-size: 12px; color: #9ca3af; border-top: 1px solid #f3f4f6; padding-top: 16px; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <div class="header">
      <div>
        <h1>{{.Issuer.Name}}</h1>
        {{if .Issuer.Tagline}}<div class="muted">{{.Issuer.Tagline}}</div>{{end}}
        {{if .Issuer.Address}}<div class="muted">{{.Issuer.Address}}</div>{{end}}
        <div class="muted">{{if .Issuer.Phone}}Phone: {{.Issuer.Phone}}{{end}}{{if .Issuer.TaxID}} | GST: {{.Issuer.TaxID}}{{end}}</div>
      </div>
      <div class="right">
        <div class="number">
          <div class="label" style="color: #ffffff;">Invoice</div>
          <strong>{{.Number}}</strong>
        </div>
        <div class="muted">Date: {{.FormattedDate}}</div>
        <div class="badge badge-{{.Status.Color}}">{{.Status.Label}}</div>
      </div>
    </div>

    <div class="patient">
      <div>
        <div class="label">Patient name</div>
        <strong>{{.Patient.Name}}</strong>
      </div>
      <div>
        <div class="label">Patient type</div>
        {{.Patient.PatientWard}}
      </div>
      <div>
        <div class="label">Contact</div>
        {{.Patient.Contact}}
      </div>
      <div>
        <div class="label">Payment method</div>
        {{.PaymentMethod}}
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th>#</th>
          <th>Service Description</th>
          <th class="center">Qty</th>
          <th class="right">Unit Price</th>
          <th class="right">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Rows}}
        <tr>
          <td>{{.Index}}</td>
          <td>{{.ServiceName}}</td>
          <td class="center">{{.Quantity}}</td>
          <td class="right">{{$.Money .UnitPrice}}</td>
          <td class="right"><strong>{{$.Money .Amount}}</strong></td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      {{range .Totals}}
      <div class="total-row{{if .Final}} total-final{{end}}">
        <span>{{.Label}}</span>
        <span{{if .Deduct}} class="deduct"{{end}}>{{if .Deduct}}&minus;{{end}}{{$.Money .Amount}}</span>
      </div>
      {{end}}
    </div>

    {{if .Notes}}
    <div class="notes"><strong>Notes: </strong>{{.Notes}}</div>
    {{end}}

    {{if .Footer}}
    <div class="footer">{{.Footer}}</div>
    {{end}}
  </div>
</body>
</html>
`

type Renderer interface {
	RenderHTML(doc Document) (string, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(doc Document) (string, error) {
	if doc.Issuer.Name == "" {
		doc.Issuer.Name = "Invoice"
	}
	if doc.Status.Color == "" {
		doc.Status.Color = ColorYellow
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, doc); err != nil {
		return "", err
	}

	return buf.String(), nil
}
