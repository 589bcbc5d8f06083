package entities

import "fmt"

// ErrorDetail.Type values.
const (
	ErrorTypeAdmission     = "admission"
	ErrorTypeAuthorization = "authorization"
	ErrorTypePermission    = "permission"
	ErrorTypeTimeout       = "timeout"
	ErrorTypeExecution     = "execution"
	ErrorTypeDelivery      = "delivery"
	ErrorTypeStore         = "store"
	ErrorTypeConfig        = "config"
	ErrorTypeInternal      = "internal"
)

// ErrorDetail is the structured form of an execution failure, as logged and
// as recorded on spans.
type ErrorDetail struct {
	// Type is one of the ErrorType constants.
	Type string `json:"type"`

	// Message is the text shown on the console.
	Message string `json:"message"`

	// Code narrows Type: the timeout phase, the denied user id or the
	// settings field at fault.
	Code string `json:"code,omitempty"`

	// Op is the collection operation involved, e.g. "rooms.insert".
	Op string `json:"op,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// Timeout reports whether the detail describes an elapsed budget.
func (e *ErrorDetail) Timeout() bool {
	return e != nil && e.Type == ErrorTypeTimeout
}
