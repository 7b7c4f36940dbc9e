package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/medicore/internal/authorization"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Rendered is a finished invoice document.
type Rendered struct {
	Format      Format
	ContentType string
	FileName    string
	Body        []byte
}

type Service interface {
	Render(ctx context.Context, actor authorization.Actor, billID string, format Format) (Rendered, error)
}

var (
	ErrUnsupportedFormat = errors.New("unsupported_invoice_format")
	ErrPDFUnavailable    = errors.New("pdf_renderer_unavailable")
)
