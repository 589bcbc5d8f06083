package telemetry_test

import (
	"context"
	"testing"

	"github.com/reglet-dev/cligate/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    telemetry.Config
	}{
		{"empty", map[string]string{}, telemetry.Config{Enabled: true}},
		{"endpoint", map[string]string{"CLIGATE_OTEL_ENDPOINT": "http://collector:4318"},
			telemetry.Config{Endpoint: "http://collector:4318", Enabled: true}},
		{"disabled", map[string]string{"CLIGATE_OTEL_ENDPOINT": "http://collector:4318", "CLIGATE_OTEL_ENABLED": "false"},
			telemetry.Config{Endpoint: "http://collector:4318"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := telemetry.ConfigFromEnv(tt.environ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	_, err := telemetry.ConfigFromEnv(map[string]string{"CLIGATE_OTEL_ENABLED": "maybe"})
	assert.Error(t, err)
}

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "cligate-test", telemetry.Config{Enabled: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx), "noop shutdown ignores a cancelled context")
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "cligate-test",
		telemetry.Config{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_CreatesProvider(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	shutdown, err := telemetry.Setup(context.Background(), "cligate-test",
		telemetry.Config{Endpoint: "http://192.0.2.1:4318", Enabled: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
