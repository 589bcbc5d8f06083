package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a typed capability implementation.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// ByteHandler accepts a JSON request and returns a JSON envelope. Failures
// the caller should see are encoded as ErrorResponse JSON rather than
// returned as Go errors.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// envelope wraps a successful result so that a result shaped like an
// ErrorResponse cannot be mistaken for one.
type envelope struct {
	Result any `json:"result"`
}

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
//
// Usage:
//
//	tick := hostfuncs.NewJSONHandler(func(ctx context.Context, args hostfuncs.Args) (int64, error) {
//	    d, err := sim.TickDuration(ctx)
//	    return d.Milliseconds(), err
//	})
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return NewValidationError(fmt.Sprintf("malformed arguments: %v", err)).ToJSON(), nil
			}
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return FromError(err).ToJSON(), nil
		}

		respBytes, err := json.Marshal(envelope{Result: resp})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}

// Args are the positional arguments of a capability call, in call order.
type Args []json.RawMessage

// Len returns the number of arguments supplied.
func (a Args) Len() int {
	return len(a)
}

// String decodes argument i as a string.
func (a Args) String(i int) (string, error) {
	var s string
	if err := a.decode(i, &s, "string"); err != nil {
		return "", err
	}
	return s, nil
}

// Int decodes argument i as a number truncated to an integer.
func (a Args) Int(i int) (int64, error) {
	var f float64
	if err := a.decode(i, &f, "number"); err != nil {
		return 0, err
	}
	return int64(f), nil
}

func (a Args) decode(i int, dst any, want string) error {
	if i < 0 || i >= len(a) {
		return &ArgumentError{Index: i, Reason: "missing"}
	}
	if err := json.Unmarshal(a[i], dst); err != nil {
		return &ArgumentError{Index: i, Reason: want + " expected"}
	}
	return nil
}

// ArgumentError reports a missing or mistyped positional argument.
type ArgumentError struct {
	Reason string
	Index  int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("bad argument #%d: %s", e.Index+1, e.Reason)
}
