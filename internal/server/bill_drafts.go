package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/billworkflow"
)

// updateDraftRequest carries the header fields to change. Absent fields are
// left as they are.
type updateDraftRequest struct {
	PatientID     *string  `json:"patient_id"`
	Discount      *float64 `json:"discount"`
	Tax           *float64 `json:"tax"`
	PaymentStatus *string  `json:"payment_status"`
	PaymentMethod *string  `json:"payment_method"`
	Notes         *string  `json:"notes"`
}

type updateDraftItemRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type submitDraftResponse struct {
	Bill  billdomain.Bill       `json:"bill"`
	Draft billworkflow.Snapshot `json:"draft"`
}

func (s *Server) OpenDraft(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	ctrl := s.drafts.Open(actor)
	ctrl.Load(c.Request.Context())

	c.JSON(http.StatusCreated, gin.H{"data": ctrl.Snapshot()})
}

func (s *Server) GetDraft(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ctrl.Snapshot()})
}

func (s *Server) UpdateDraft(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}

	var req updateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := applyDraftUpdate(ctrl, req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ctrl.Snapshot()})
}

func applyDraftUpdate(ctrl *billworkflow.Controller, req updateDraftRequest) error {
	return ctrl.Update(func(d billdomain.Draft) (billdomain.Draft, error) {
		var err error
		if req.PatientID != nil {
			d = d.SetPatient(*req.PatientID)
		}
		if req.Discount != nil {
			if d, err = d.SetDiscount(*req.Discount); err != nil {
				return d, err
			}
		}
		if req.Tax != nil {
			if d, err = d.SetTax(*req.Tax); err != nil {
				return d, err
			}
		}
		if req.PaymentStatus != nil {
			if d, err = d.SetPaymentStatus(billdomain.PaymentStatus(*req.PaymentStatus)); err != nil {
				return d, err
			}
		}
		if req.PaymentMethod != nil {
			if d, err = d.SetPaymentMethod(billdomain.PaymentMethod(*req.PaymentMethod)); err != nil {
				return d, err
			}
		}
		if req.Notes != nil {
			d = d.SetNotes(*req.Notes)
		}
		return d, nil
	})
}

func (s *Server) AddDraftItem(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}

	if err := ctrl.AddItem(); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ctrl.Snapshot()})
}

func (s *Server) UpdateDraftItem(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}

	index, err := parseIndex(c.Param("index"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateDraftItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := ctrl.UpdateItem(index, billdomain.Field(strings.TrimSpace(req.Field)), req.Value); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ctrl.Snapshot()})
}

func (s *Server) RemoveDraftItem(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}

	index, err := parseIndex(c.Param("index"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := ctrl.RemoveItem(index); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ctrl.Snapshot()})
}

// SubmitDraft sends the draft to the bill service. A rejected submission
// keeps the draft so the caller can correct it and retry.
func (s *Server) SubmitDraft(c *gin.Context) {
	ctrl, ok := s.draftFromRequest(c)
	if !ok {
		return
	}

	bill, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": submitDraftResponse{
		Bill:  bill,
		Draft: ctrl.Snapshot(),
	}})
}

func (s *Server) DiscardDraft(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := s.drafts.Close(actor, strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) draftFromRequest(c *gin.Context) (*billworkflow.Controller, bool) {
	actor, ok := mustActor(c)
	if !ok {
		return nil, false
	}

	ctrl, err := s.drafts.Get(actor, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return ctrl, true
}
