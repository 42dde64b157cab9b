package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "8765", cfg.BroadcastPort)
	assert.Equal(t, "localhost", cfg.BroadcastHost)
	assert.Empty(t, cfg.MetricsPort)
	assert.True(t, cfg.SendEmptyLines)
	assert.Zero(t, cfg.WriteTimeout)
	assert.Equal(t, "Enter text to read: ", cfg.Prompt)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	assert.Equal(t, ":8000", cfg.HTTPAddr())
	assert.Equal(t, "localhost:8765", cfg.BroadcastAddr())
	assert.Equal(t, "ws://localhost:8765", cfg.SocketURL())
	assert.Empty(t, cfg.MetricsAddr())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("BROADCAST_HOST", "127.0.0.1")
	t.Setenv("BROADCAST_PORT", "9001")
	t.Setenv("METRICS_PORT", "9090")
	t.Setenv("SEND_EMPTY_LINES", "false")
	t.Setenv("WRITE_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr())
	assert.Equal(t, "ws://127.0.0.1:9001", cfg.SocketURL())
	assert.Equal(t, ":9090", cfg.MetricsAddr())
	assert.False(t, cfg.SendEmptyLines)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"non-numeric http port", map[string]string{"HTTP_PORT": "http"}, `HTTP_PORT must be numeric, got "http"`},
		{"broadcast port out of range", map[string]string{"BROADCAST_PORT": "70000"}, "BROADCAST_PORT must be between 1 and 65535, got 70000"},
		{"zero metrics port", map[string]string{"METRICS_PORT": "0"}, "METRICS_PORT must be between 1 and 65535, got 0"},
		{"same ports", map[string]string{"HTTP_PORT": "8765"}, "HTTP_PORT and BROADCAST_PORT must differ"},
		{"metrics port collides", map[string]string{"METRICS_PORT": "8000"}, "METRICS_PORT must differ from HTTP_PORT and BROADCAST_PORT"},
		{"negative write timeout", map[string]string{"WRITE_TIMEOUT": "-1s"}, "WRITE_TIMEOUT must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestValidate_SamePortDifferentHosts(t *testing.T) {
	cfg := &Config{
		HTTPHost:      "127.0.0.1",
		HTTPPort:      "8765",
		BroadcastHost: "localhost",
		BroadcastPort: "8765",
	}
	assert.NoError(t, cfg.Validate())
}
