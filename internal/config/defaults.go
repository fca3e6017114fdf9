package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider backends.
const (
	BackendOpenAI  = "openai"
	BackendOffline = "offline"
)

// setDefaults registers every key with viper so environment variables are
// picked up for keys that are absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.path", "")

	v.SetDefault("provider.backend", "")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.intent_model", "gpt-4o-mini")
	v.SetDefault("provider.insight_model", "gpt-4o-mini")
	v.SetDefault("provider.transcription_model", "whisper-1")
	v.SetDefault("provider.speech_model", "gpt-4o-mini-tts")
	v.SetDefault("provider.speech_voice", "coral")
	v.SetDefault("provider.speech_format", "mp3")
	v.SetDefault("provider.timeout", 60*time.Second)
	v.SetDefault("provider.max_retries", 0)
	v.SetDefault("provider.requests_per_second", 2.0)
	v.SetDefault("provider.burst", 2)
	v.SetDefault("provider.proxy", "")

	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.locale", "en-NG")
	v.SetDefault("speech.output_dir", "")

	v.SetDefault("logistics.transport_cost", 5000)

	v.SetDefault("audio.max_duration", 60*time.Second)
	v.SetDefault("audio.max_bytes", 10<<20)

	v.SetDefault("history.size", 20)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.add_source", false)
}

// SetDefaults fills values that can only be decided after loading.
func SetDefaults(cfg *Config) {
	if cfg.Provider.Backend == "" {
		if cfg.Provider.APIKey != "" {
			cfg.Provider.Backend = BackendOpenAI
		} else {
			cfg.Provider.Backend = BackendOffline
		}
	}
	if cfg.Speech.OutputDir == "" {
		cfg.Speech.OutputDir = os.TempDir()
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}
