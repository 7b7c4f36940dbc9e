package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/medicore/internal/invoice/domain"
)

func (s *Server) GetInvoiceHTML(c *gin.Context) {
	s.renderInvoice(c, invoicedomain.FormatHTML, "inline")
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	s.renderInvoice(c, invoicedomain.FormatPDF, "attachment")
}

func (s *Server) renderInvoice(c *gin.Context, format invoicedomain.Format, disposition string) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	out, err := s.invoiceSvc.Render(c.Request.Context(), actor, strings.TrimSpace(c.Param("id")), format)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if out.FileName != "" {
		c.Header("Content-Disposition", disposition+`; filename="`+out.FileName+`"`)
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, out.ContentType, out.Body)
}
