package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/medicore/internal/authorization"
)

type capabilitiesResponse struct {
	Actor         authorization.Actor `json:"actor"`
	Capabilities  []string            `json:"capabilities"`
	CanCreateBill bool                `json:"can_create_bill"`
	CanViewBill   bool                `json:"can_view_bill"`
}

// GetCapabilities reports what the caller may do so clients can hide
// controls. Enforcement still happens per request.
func (s *Server) GetCapabilities(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, capabilitiesResponse{
		Actor:         actor,
		Capabilities:  authorization.Capabilities(actor.Role),
		CanCreateBill: authorization.CanCreateBill(actor.Role),
		CanViewBill:   authorization.CanViewBill(actor.Role),
	})
}
