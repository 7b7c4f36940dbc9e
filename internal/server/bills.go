package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

func (s *Server) ListBills(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	resp, err := s.billSvc.List(c.Request.Context(), actor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateBill(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var req billdomain.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(headerIdempotencyKey))

	bill, err := s.billSvc.Create(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": bill})
}

func (s *Server) GetBillByID(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	bill, err := s.billSvc.GetByID(c.Request.Context(), actor, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bill})
}

func (s *Server) ListServiceTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.billSvc.ServiceTemplates()})
}
