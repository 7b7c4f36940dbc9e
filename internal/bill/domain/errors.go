package domain

import "errors"

// Error is a bill error that carries a message fit for display to the user.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrPatientRequired    = newError("patient_required", "Please select a patient")
	ErrNoCompleteItems    = newError("no_complete_items", "Add at least one service")
	ErrInvalidField       = newError("invalid_field", "Unknown line item field")
	ErrInvalidQuantity    = newError("invalid_quantity", "Quantity must be a whole number of at least 1")
	ErrInvalidUnitPrice   = newError("invalid_unit_price", "Unit price must be a non-negative number")
	ErrInvalidItemIndex   = newError("invalid_item_index", "Line item does not exist")
	ErrInvalidDiscount    = newError("invalid_discount", "Discount must be a non-negative number")
	ErrInvalidTaxRate     = newError("invalid_tax_rate", "Tax must be between 0 and 100")
	ErrInvalidStatus      = newError("invalid_payment_status", "Payment status must be Pending, Partial or Paid")
	ErrInvalidMethod      = newError("invalid_payment_method", "Payment method must be Cash, Card, UPI or Insurance")
	ErrAmountOutOfRange   = newError("amount_out_of_range", "Bill amount is too large")
	ErrTotalsMismatch     = newError("totals_mismatch", "Bill totals do not match the submitted items")
	ErrPatientNotFound    = newError("patient_not_found", "Selected patient does not exist")
	ErrSubmissionInFlight = newError("submission_in_flight", "This bill is already being submitted")
)

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)

// DefaultCreateMessage is shown when a create failure carries no message.
const DefaultCreateMessage = "Failed to create bill"

// MessageOf returns the user facing message carried by err, or "".
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Message
	}
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	return ""
}

// IsValidation reports whether err is a bill input error.
func IsValidation(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	return e != ErrSubmissionInFlight && e != ErrPatientNotFound
}
