package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
)

type listPatientsQuery struct {
	Limit  string `form:"limit"`
	Search string `form:"search"`
	Type   string `form:"type"`
	Ward   string `form:"ward"`
}

func (s *Server) ListPatients(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	var query listPatientsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit, err := parseOptionalInt64(query.Limit)
	if err != nil || (limit != nil && *limit < 1) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	req := patientdomain.ListPatientRequest{
		Search: strings.TrimSpace(query.Search),
		Type:   strings.TrimSpace(query.Type),
		Ward:   strings.TrimSpace(query.Ward),
	}
	if limit != nil {
		req.Limit = int(*limit)
	}

	resp, err := s.patientSvc.List(c.Request.Context(), actor, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
