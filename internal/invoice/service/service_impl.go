package service

import (
	"context"
	"fmt"
	"io"

	"github.com/smallbiznis/medicore/internal/authorization"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/config"
	invoicedomain "github.com/smallbiznis/medicore/internal/invoice/domain"
	"github.com/smallbiznis/medicore/internal/invoice/render"
	"github.com/smallbiznis/medicore/internal/observability/logger"
	"github.com/smallbiznis/medicore/internal/observability/metrics"
	"github.com/smallbiznis/medicore/internal/observability/tracing"
	"github.com/smallbiznis/medicore/internal/providers/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypePDF  = "application/pdf"
)

type ServiceParam struct {
	fx.In

	Log        *zap.Logger
	BillSvc    billdomain.Service
	InvoiceCfg *config.InvoiceConfigHolder
	Renderer   render.Renderer
	PDF        pdf.Provider     `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	billSvc    billdomain.Service
	invoiceCfg *config.InvoiceConfigHolder
	renderer   render.Renderer
	pdf        pdf.Provider
	metrics    *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		log:        p.Log.Named("invoice.service"),
		billSvc:    p.BillSvc,
		invoiceCfg: p.InvoiceCfg,
		renderer:   p.Renderer,
		pdf:        p.PDF,
		metrics:    p.Metrics,
	}
}

// Render loads the bill as actor and produces its invoice. Amounts come
// from the stored bill.
func (s *Service) Render(ctx context.Context, actor authorization.Actor, billID string, format invoicedomain.Format) (invoicedomain.Rendered, error) {
	ctx, span := otel.Tracer("medicore/invoice").Start(ctx, "invoice.render")
	defer span.End()
	span.SetAttributes(tracing.SafeAttributes(attribute.String("invoice.format", string(format)))...)

	out, err := s.render(ctx, actor, billID, format)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "render failed")
		return invoicedomain.Rendered{}, err
	}
	s.metrics.RecordInvoiceRendered(ctx, string(out.Format))
	return out, nil
}

func (s *Service) render(ctx context.Context, actor authorization.Actor, billID string, format invoicedomain.Format) (invoicedomain.Rendered, error) {
	if format == "" {
		format = invoicedomain.FormatHTML
	}
	if format != invoicedomain.FormatHTML && format != invoicedomain.FormatPDF {
		return invoicedomain.Rendered{}, invoicedomain.ErrUnsupportedFormat
	}

	bill, err := s.billSvc.GetByID(ctx, actor, billID)
	if err != nil {
		return invoicedomain.Rendered{}, err
	}

	doc := render.BuildDocument(bill, bill.Patient, s.invoiceCfg.Get())
	log := logger.WithContext(ctx, s.log).With(
		zap.String("bill_number", bill.BillNumber),
		zap.String("format", string(format)),
	)

	switch format {
	case invoicedomain.FormatPDF:
		if s.pdf == nil {
			return invoicedomain.Rendered{}, invoicedomain.ErrPDFUnavailable
		}
		reader, err := s.pdf.GenerateInvoice(ctx, doc)
		if err != nil {
			log.Error("generate invoice pdf", zap.Error(err))
			return invoicedomain.Rendered{}, fmt.Errorf("generate invoice pdf: %w", err)
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			return invoicedomain.Rendered{}, fmt.Errorf("read invoice pdf: %w", err)
		}
		log.Debug("invoice rendered", zap.Int("bytes", len(body)))
		return invoicedomain.Rendered{
			Format:      invoicedomain.FormatPDF,
			ContentType: contentTypePDF,
			FileName:    pdf.FileName(doc),
			Body:        body,
		}, nil
	default:
		html, err := s.renderer.RenderHTML(doc)
		if err != nil {
			log.Error("render invoice html", zap.Error(err))
			return invoicedomain.Rendered{}, fmt.Errorf("render invoice html: %w", err)
		}
		log.Debug("invoice rendered", zap.Int("bytes", len(html)))
		return invoicedomain.Rendered{
			Format:      invoicedomain.FormatHTML,
			ContentType: contentTypeHTML,
			Body:        []byte(html),
		}, nil
	}
}
