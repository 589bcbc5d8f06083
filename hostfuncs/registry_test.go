package hostfuncs

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(context.Context, []byte) ([]byte, error) {
	return nil, nil
}

func TestNewRegistry_Empty(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Empty(t, reg.Names())
	assert.Empty(t, reg.Modules())
	assert.Equal(t, DefaultMaxRequestSize, reg.MaxRequestSize())
}

func TestNewRegistry_WithByteHandler(t *testing.T) {
	echoHandler := func(ctx context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	}

	reg, err := NewRegistry(
		WithByteHandler("test.echo", echoHandler),
	)
	require.NoError(t, err)

	assert.True(t, reg.Has("test.echo"))
	assert.False(t, reg.Has("test.nonexistent"))
	assert.Equal(t, []string{"test.echo"}, reg.Names())
}

func TestNewRegistry_RejectsBadNames(t *testing.T) {
	tests := []struct {
		name    string
		handler string
		wantErr string
	}{
		{"empty", "", "cannot be empty"},
		{"no module", ".echo", "module.function"},
		{"no function", "test.", "module.function"},
		{"unqualified", "echo", "module.function"},
		{"nested", "a.b.c", "module.function"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(WithByteHandler(tt.handler, nopHandler))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewRegistry_ReportsEveryBadName(t *testing.T) {
	_, err := NewRegistry(
		WithByteHandler("map.openRoom", nopHandler),
		WithByteHandler("map.openRoom", nopHandler),
		WithByteHandler("closeRoom", nopHandler),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate handler name: "map.openRoom"`)
	assert.Contains(t, err.Error(), `"closeRoom" must have the form module.function`)
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	echoHandler := func(ctx context.Context, payload []byte) ([]byte, error) {
		return append([]byte("echo:"), payload...), nil
	}

	reg, err := NewRegistry(
		WithByteHandler("test.echo", echoHandler),
		WithMaxRequestSize(16),
	)
	require.NoError(t, err)

	t.Run("found handler", func(t *testing.T) {
		resp, err := reg.Invoke(context.Background(), "test.echo", []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, "echo:hello", string(resp))
	})

	t.Run("not found handler", func(t *testing.T) {
		resp, err := reg.Invoke(context.Background(), "test.unknown", []byte("test"))
		require.NoError(t, err)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, "NOT_FOUND", errResp.Error)
		assert.Equal(t, 404, errResp.Code)
		assert.Contains(t, errResp.Message, "test.unknown")
	})

	t.Run("oversized payload", func(t *testing.T) {
		resp, err := reg.Invoke(context.Background(), "test.echo", []byte(strings.Repeat("x", 17)))
		require.NoError(t, err)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, "TOO_LARGE", errResp.Error)
		assert.Equal(t, 413, errResp.Code)
	})
}

func TestHandlerRegistry_ModulesAndFunctions(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler("system.resumeSimulation", nopHandler),
		WithByteHandler("map.openRoom", nopHandler),
		WithByteHandler("system.pauseSimulation", nopHandler),
		WithByteHandler("map.closeRoom", nopHandler),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"map.closeRoom", "map.openRoom", "system.pauseSimulation", "system.resumeSimulation"}, reg.Names())
	assert.Equal(t, []string{"map", "system"}, reg.Modules())
	assert.Equal(t, []string{"pauseSimulation", "resumeSimulation"}, reg.Functions("system"))
	assert.Empty(t, reg.Functions("bots"))
}

func TestHandlerRegistry_Invoke_SetsHostContext(t *testing.T) {
	var capturedName, capturedCaller string
	handler := func(ctx context.Context, payload []byte) ([]byte, error) {
		if hc, ok := ctx.(HostContext); ok {
			capturedName = hc.FunctionName()
			capturedCaller = hc.Caller()
		}
		return nil, nil
	}

	reg, err := NewRegistry(
		WithByteHandler("test.func", handler),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(WithCaller(context.Background(), "42"), "test.func", nil)
	require.NoError(t, err)
	assert.Equal(t, "test.func", capturedName)
	assert.Equal(t, "42", capturedCaller)
}

func TestWithMiddleware_FirstWrapsOutermost(t *testing.T) {
	var calls []string
	tag := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				calls = append(calls, name+">")
				defer func() { calls = append(calls, "<"+name) }()
				return next(ctx, payload)
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(tag("recover"), tag("log")),
		WithByteHandler("system.getTickDuration", func(context.Context, []byte) ([]byte, error) {
			calls = append(calls, "handler")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "system.getTickDuration", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"recover>", "log>", "handler", "<log", "<recover"}, calls)
}
