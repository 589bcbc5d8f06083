package output_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/reglet-dev/cligate/application/output"
	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_DeliversProgressively(t *testing.T) {
	d := testutil.NewRecordingDeliverer()
	ch := output.New(d, "5", 10)
	ctx := context.Background()

	require.True(t, ch.Emit(ctx, "hello", false))
	require.Len(t, d.Deliveries(), 1, "delivered before the execution ends")
	require.True(t, ch.Emit(ctx, "42", true))
	ch.Close(ctx)

	assert.Equal(t, []testutil.Delivery{
		{UserID: "5", Message: entities.ConsoleMessage{Log: []string{"hello"}, Results: []string{}}},
		{UserID: "5", Message: entities.ConsoleMessage{Log: []string{}, Results: []string{"42"}}},
	}, d.Deliveries())
	assert.False(t, ch.Truncated())
}

func TestChannel_Truncation(t *testing.T) {
	const limit = 5
	d := testutil.NewRecordingDeliverer()
	ch := output.New(d, "5", limit)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		ch.Emit(ctx, fmt.Sprint(i), i%2 == 0)
	}
	ch.Close(ctx)
	ch.Close(ctx)

	lines := ch.Lines()
	require.Len(t, lines, limit+1, "exactly N content lines and one notice")
	assert.Equal(t, entities.OutputLine{Text: "[cli] output truncated (>5 lines)", Result: true}, lines[limit])
	assert.True(t, ch.Truncated())
	assert.Len(t, d.Deliveries(), limit+1)
	assert.False(t, ch.Emit(ctx, "late", true), "closed channels drop lines")
}

func TestChannel_ExactlyAtBudget(t *testing.T) {
	ch := output.New(testutil.NewRecordingDeliverer(), "5", 3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.True(t, ch.Emit(ctx, "x", true))
	}
	ch.Close(ctx)
	assert.Len(t, ch.Lines(), 3, "no notice when nothing was dropped")
}

func TestChannel_DeliveryFailureIsSwallowed(t *testing.T) {
	d := testutil.NewRecordingDeliverer()
	d.FailWith(testutil.ErrInjected)
	var buf bytes.Buffer
	ch := output.New(d, "5", 10, output.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	ctx := context.Background()

	assert.True(t, ch.Emit(ctx, "still counted", true))
	ch.Close(ctx)

	assert.Len(t, ch.Lines(), 1)
	assert.Contains(t, buf.String(), "console delivery failed")
	assert.Contains(t, buf.String(), "injected failure")
}

func TestChannel_NilDeliverer(t *testing.T) {
	ch := output.New(nil, "5", 0)
	assert.True(t, ch.Emit(context.Background(), "x", false))
	assert.Len(t, ch.Lines(), 1)
}
