// Package errors provides the gateway's error taxonomy.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/reglet-dev/cligate/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can describe themselves
// as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// AdmissionError rejects a command before any role lookup.
type AdmissionError struct {
	Reason string
}

func (e *AdmissionError) Error() string {
	return "denied: " + e.Reason
}

// ToErrorDetail implements DetailedError.
func (e *AdmissionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeAdmission}
}

// AuthorizationError rejects an identity that resolves to no tier.
type AuthorizationError struct {
	UserID string
}

func (e *AuthorizationError) Error() string {
	return "denied: not allowed user"
}

// ToErrorDetail implements DetailedError.
func (e *AuthorizationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeAuthorization, Code: e.UserID}
}

// PermissionError is raised by a restricted view for a disabled operation
// or a request that would cross the ownership boundary.
type PermissionError struct {
	// Op is the qualified operation, e.g. "rooms.insert".
	Op string
	// Reason completes the sentence started by Op.
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Op + " " + e.Reason
}

// ToErrorDetail implements DetailedError.
func (e *PermissionError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypePermission, Op: e.Op}
}

// Timeout phases.
const (
	PhaseSync  = "execution"
	PhaseAsync = "promise"
)

// TimeoutError reports that a budget elapsed.
type TimeoutError struct {
	// Phase is PhaseSync or PhaseAsync.
	Phase    string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Phase == PhaseAsync {
		return fmt.Sprintf("promise not resolved within %dms", e.Duration.Milliseconds())
	}
	return fmt.Sprintf("execution timed out after %dms", e.Duration.Milliseconds())
}

func (e *TimeoutError) Timeout() bool {
	return true
}

// ToErrorDetail implements DetailedError.
func (e *TimeoutError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeTimeout, Code: e.Phase}
}

// ExecError is any other failure raised by the command itself.
type ExecError struct {
	Err error
	// Trace is the interpreter stack trace, if any.
	Trace string
}

func (e *ExecError) Error() string {
	if e.Trace != "" {
		return fmt.Sprintf("%v\n%s", e.Err, e.Trace)
	}
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ExecError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeExecution}
}

// DeliveryError reports that the output transport was unavailable.
type DeliveryError struct {
	Err    error
	UserID string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver console output to %s: %v", e.UserID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *DeliveryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeDelivery, Code: e.UserID}
}

// StoreError wraps a failure of the underlying collection store.
type StoreError struct {
	Err        error
	Collection string
	Op         string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Collection, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *StoreError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeStore, Op: e.Collection + "." + e.Op}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}

// Forbid builds a PermissionError for op.
func Forbid(op, reason string) error {
	return &PermissionError{Op: op, Reason: reason}
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return stdErrors.As(err, &pe)
}

// IsTimeout reports whether err is a TimeoutError of the given phase.
func IsTimeout(err error, phase string) bool {
	var te *TimeoutError
	return stdErrors.As(err, &te) && te.Phase == phase
}
