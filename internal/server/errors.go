package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	"github.com/smallbiznis/medicore/internal/authorization"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/billworkflow"
	invoicedomain "github.com/smallbiznis/medicore/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Bill input errors carry the message shown to the user.
	if billdomain.IsValidation(err) {
		var bErr *billdomain.Error
		errors.As(err, &bErr)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: bErr.Message,
			Errors: []ValidationError{
				{
					Field:   validationErrorField(bErr.Code),
					Code:    bErr.Code,
					Message: bErr.Message,
				},
			},
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, billworkflow.ErrCreateNotAllowed):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, billdomain.ErrSubmissionInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: billdomain.ErrSubmissionInFlight.Message,
		}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, billdomain.ErrPatientNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: billdomain.ErrPatientNotFound.Message,
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, invoicedomain.ErrPDFUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the
// request log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	code := err.Error()
	if vErr := asValidationErrors(err); vErr != nil && len(vErr.Errors) > 0 {
		code = vErr.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billdomain.ErrInvalidID),
		errors.Is(err, patientdomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrUnsupportedFormat),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, patientdomain.ErrNotFound),
		errors.Is(err, billworkflow.ErrDraftNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_id", "invalid_page_token", "invalid_time_range", "invalid_action":
		return code[len("invalid_"):]
	case "unsupported_invoice_format":
		return "format"
	case billdomain.ErrPatientRequired.Code:
		return "patient_id"
	case billdomain.ErrNoCompleteItems.Code,
		billdomain.ErrInvalidItemIndex.Code,
		billdomain.ErrInvalidField.Code,
		billdomain.ErrInvalidQuantity.Code,
		billdomain.ErrInvalidUnitPrice.Code,
		billdomain.ErrAmountOutOfRange.Code,
		billdomain.ErrTotalsMismatch.Code:
		return "items"
	case billdomain.ErrInvalidDiscount.Code:
		return "discount"
	case billdomain.ErrInvalidTaxRate.Code:
		return "tax"
	case billdomain.ErrInvalidStatus.Code:
		return "payment_status"
	case billdomain.ErrInvalidMethod.Code:
		return "payment_method"
	default:
		return ""
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "unsupported_invoice_format":
		return "unsupported invoice format"
	default:
		return "invalid value"
	}
}
