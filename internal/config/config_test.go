package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, BackendOffline, cfg.Provider.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.IntentModel)
	assert.Equal(t, "whisper-1", cfg.Provider.TranscriptionModel)
	assert.Equal(t, 60*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 0, cfg.Provider.MaxRetries)
	assert.InDelta(t, 2.0, cfg.Provider.RequestsPerSecond, 1e-9)
	assert.Equal(t, 5000, cfg.Logistics.TransportCost)
	assert.Equal(t, 20, cfg.History.Size)
	assert.Equal(t, int64(10<<20), cfg.Audio.MaxBytes)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, os.TempDir(), cfg.Speech.OutputDir)
	assert.Equal(t, "en-NG", cfg.Speech.Locale)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.Equal(t, cfg, Default())
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, `
provider:
  backend: openai
  api_key: sk-test
  timeout: 15s
  requests_per_second: 0.5
logistics:
  transport_cost: 7000
server:
  addr: ":9000"
  allowed_origins:
    - https://prices.example.com
logging:
  level: DEBUG
  format: json
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, BackendOpenAI, cfg.Provider.Backend)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.InDelta(t, 0.5, cfg.Provider.RequestsPerSecond, 1e-9)
	assert.Equal(t, 7000, cfg.Logistics.TransportCost)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://prices.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")

	t.Run("prefixed variables override the file", func(t *testing.T) {
		t.Setenv("MARKETSENSE_SERVER_ADDR", ":7070")
		t.Setenv("MARKETSENSE_HISTORY_SIZE", "5")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
		assert.Equal(t, 5, cfg.History.Size)
	})

	t.Run("OPENAI_API_KEY selects the openai backend", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "sk-env", cfg.Provider.APIKey)
		assert.Equal(t, BackendOpenAI, cfg.Provider.Backend)
	})
}

func TestLoadConfig_Flags(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, "logging:\n  format: text\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	fs.String(FlagAddr, ":8080", "listen address")
	require.NoError(t, fs.Parse([]string{"--log-level=debug", "--offline"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset flags must not override the file")
	assert.Equal(t, BackendOffline, cfg.Provider.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name string
		body string
	}{
		{"unknown log level", "logging:\n  level: loud\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
		{"openai without key", "provider:\n  backend: openai\n"},
		{"unknown backend", "provider:\n  backend: gemini\n  api_key: x\n"},
		{"negative transport cost", "logistics:\n  transport_cost: -1\n"},
		{"zero history", "history:\n  size: 0\n"},
		{"bad proxy", "provider:\n  proxy: not a proxy\n"},
		{"bad base url", "provider:\n  base_url: \"::\"\n"},
		{"bad allowed origin", "server:\n  allowed_origins: [\"not an origin\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.Error(t, err)
	})
}
