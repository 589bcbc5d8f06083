package hostfuncs

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"

	domainErrors "github.com/reglet-dev/cligate/domain/errors"
)

// ErrorResponse is a structured capability failure. Handlers return it as
// JSON instead of a Go error so that the command sees a catchable error
// rather than a broken call.
type ErrorResponse struct {
	// Error is a machine-readable error type identifier (e.g., "VALIDATION_ERROR", "INTERNAL_ERROR").
	Error string `json:"error"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Code is a numeric error code (e.g., 400, 500).
	Code int `json:"code"`
}

// ToJSON serializes the ErrorResponse to JSON bytes.
// Returns nil if serialization fails (which should never happen for this simple type).
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError creates an error response for bad input (e.g., malformed JSON).
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Code:    400,
	}
}

// NewForbiddenError creates an error response for a call the caller may not make.
func NewForbiddenError(message string) ErrorResponse {
	return ErrorResponse{
		Error:   "FORBIDDEN",
		Message: message,
		Code:    403,
	}
}

// NewNotFoundError creates an error response for unknown capability names.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{
		Error:   "NOT_FOUND",
		Message: "unknown capability: " + name,
		Code:    404,
	}
}

// NewTooLargeError creates an error response for oversized arguments.
func NewTooLargeError(limit int) ErrorResponse {
	return ErrorResponse{
		Error:   "TOO_LARGE",
		Message: fmt.Sprintf("arguments exceed %d bytes", limit),
		Code:    413,
	}
}

// NewInternalError creates an error response for unexpected failures.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: message,
		Code:    500,
	}
}

// NewPanicError creates an error response for recovered panics.
func NewPanicError(panicValue any) ErrorResponse {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return ErrorResponse{
		Error:   "INTERNAL_ERROR",
		Message: "panic: " + msg,
		Code:    500,
	}
}

// ErrNotFound is wrapped by handlers whose target does not exist.
var ErrNotFound = stdErrors.New("not found")

// FromError maps a handler error onto an ErrorResponse.
func FromError(err error) ErrorResponse {
	if stdErrors.Is(err, ErrNotFound) {
		return ErrorResponse{Error: "NOT_FOUND", Message: err.Error(), Code: 404}
	}
	var argErr *ArgumentError
	if stdErrors.As(err, &argErr) {
		return NewValidationError(err.Error())
	}
	if domainErrors.IsPermission(err) {
		return NewForbiddenError(err.Error())
	}
	return NewInternalError(err.Error())
}

// CallError is the Go form of an ErrorResponse received by a caller.
type CallError struct {
	Name     string
	Response ErrorResponse
}

func (e *CallError) Error() string {
	return e.Name + ": " + e.Response.Message
}

// DecodeResult unpacks a handler's JSON reply into the plain result value,
// or a *CallError when the reply is an ErrorResponse.
func DecodeResult(name string, data []byte) (any, error) {
	var reply struct {
		Result  any    `json:"result"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("%s: malformed reply: %w", name, err)
	}
	if reply.Error != "" {
		return nil, &CallError{
			Name:     name,
			Response: ErrorResponse{Error: reply.Error, Message: reply.Message, Code: reply.Code},
		}
	}
	return reply.Result, nil
}
