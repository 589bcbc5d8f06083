package prompter_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/reglet-dev/cligate/infrastructure/prompter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, input string) ([]string, error) {
	t.Helper()
	var got []string
	p := prompter.NewCliPrompter(strings.NewReader(input), &bytes.Buffer{})
	err := p.Loop(context.Background(), func(_ context.Context, code string) error {
		got = append(got, code)
		return nil
	})
	return got, err
}

func TestLoop(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"reads until eof", "1 + 1\nprint('x')\n", []string{"1 + 1", "print('x')"}},
		{"skips blank lines", "\n   \n1\n\n", []string{"1"}},
		{"stops at exit", "1\nexit\n2\n", []string{"1"}},
		{"trims whitespace", "  storage.db.rooms.count({})  \n", []string{"storage.db.rooms.count({})"}},
		{"no trailing newline", "1", []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collect(t, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoop_RunErrorStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	p := prompter.NewCliPrompter(strings.NewReader("1\n2\n"), &bytes.Buffer{})
	err := p.Loop(context.Background(), func(context.Context, string) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestLoop_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := prompter.NewCliPrompter(strings.NewReader("1\n"), &bytes.Buffer{})
	err := p.Loop(ctx, func(context.Context, string) error {
		t.Fatal("run called after cancel")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNonInteractiveHasNoPrompt(t *testing.T) {
	out := &bytes.Buffer{}
	p := prompter.NewCliPrompter(strings.NewReader("1\n"), out).WithPrompt("cli> ")
	assert.False(t, p.IsInteractive())
	require.NoError(t, p.Loop(context.Background(), func(context.Context, string) error { return nil }))
	assert.Empty(t, out.String())
}
