package pdf

import (
	"context"
	"io"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/medicore/internal/invoice/render"
	"go.uber.org/fx"
)

type Provider interface {
	GenerateInvoice(ctx context.Context, doc render.Document) (io.Reader, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// FileName is the attachment name for doc, e.g.
// "invoice-bill-20260307-00001.pdf".
func FileName(doc render.Document) string {
	name := slug.Make("invoice " + doc.Number)
	if name == "" || name == "invoice" {
		return "invoice.pdf"
	}
	return name + ".pdf"
}
