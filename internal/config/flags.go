package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names shared by the CLI commands.
const (
	FlagConfig    = "config"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagOffline   = "offline"
	FlagAddr      = "addr"
	FlagCatalog   = "catalog"
)

// flagKeys maps flag names onto config keys.
var flagKeys = map[string]string{
	FlagLogLevel:  "logging.level",
	FlagLogFormat: "logging.format",
	FlagAddr:      "server.addr",
	FlagCatalog:   "catalog.path",
}

// AddFlags registers the global flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "config file (default: ./config.yaml or ./configs/config.yaml)")
	fs.String(FlagLogLevel, "", "log level: debug, info, warn, error")
	fs.String(FlagLogFormat, "", "log format: console, json, text")
	fs.String(FlagCatalog, "", "catalog file overriding the built-in markets and commodities")
	fs.Bool(FlagOffline, false, "answer without calling the language model")
}

// BindFlags binds every known flag present in fs to its config key. Flags
// only take effect when set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}
