package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file, environment variables and
// command line flags.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Logistics LogisticsConfig `mapstructure:"logistics"`
	Audio     AudioConfig     `mapstructure:"audio"`
	History   HistoryConfig   `mapstructure:"history"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CatalogConfig points at an optional catalog file. Empty uses the built-in
// catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ProviderConfig defines the language model backend.
type ProviderConfig struct {
	Backend            string        `mapstructure:"backend" validate:"required,oneof=openai offline"`
	APIKey             string        `mapstructure:"api_key" validate:"required_if=Backend openai"`
	BaseURL            string        `mapstructure:"base_url" validate:"omitempty,url"`
	IntentModel        string        `mapstructure:"intent_model" validate:"required"`
	InsightModel       string        `mapstructure:"insight_model" validate:"required"`
	TranscriptionModel string        `mapstructure:"transcription_model" validate:"required"`
	SpeechModel        string        `mapstructure:"speech_model" validate:"required"`
	SpeechVoice        string        `mapstructure:"speech_voice" validate:"required"`
	SpeechFormat       string        `mapstructure:"speech_format" validate:"oneof=mp3 opus aac flac wav"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"min=0"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst              int           `mapstructure:"burst" validate:"min=1"`

	// SOCKS5 proxy address (host:port). Empty dials directly.
	Proxy string `mapstructure:"proxy" validate:"omitempty,hostname_port"`
}

// SpeechConfig controls spoken answers.
type SpeechConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Locale    string `mapstructure:"locale" validate:"required"`
	OutputDir string `mapstructure:"output_dir"`
}

// LogisticsConfig holds the flat transport estimate.
type LogisticsConfig struct {
	TransportCost int `mapstructure:"transport_cost" validate:"gt=0"`
}

// AudioConfig limits voice input.
type AudioConfig struct {
	MaxDuration time.Duration `mapstructure:"max_duration" validate:"gt=0"`
	MaxBytes    int64         `mapstructure:"max_bytes" validate:"gt=0"`
}

// HistoryConfig sizes the recent checks log.
type HistoryConfig struct {
	Size int `mapstructure:"size" validate:"min=1"`
}

// ServerConfig defines the HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// Browser origins allowed to open websocket sessions besides the
	// server's own host.
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`

	// Log format: json, text, console
	Format string `mapstructure:"format" validate:"required,oneof=json text console"`

	// Include caller information (file:line)
	AddSource bool `mapstructure:"add_source"`
}

// LoadConfig loads configuration with priority:
// 1. Command line flags that were set explicitly
// 2. Environment variables (MARKETSENSE_ prefix, OPENAI_API_KEY)
// 3. Config file (config.yaml)
// 4. Defaults
//
// configPath may be empty, in which case config.yaml is searched for in the
// working directory and ./configs. flags may be nil.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("MARKETSENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if flags != nil {
		if offline, err := flags.GetBool(FlagOffline); err == nil && offline {
			cfg.Provider.Backend = BackendOffline
		}
	}
	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file, environment or flags
// are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	SetDefaults(&cfg)
	return &cfg
}
