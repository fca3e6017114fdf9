package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"marketsense/internal/arbitrage"
	"marketsense/internal/assistant"
	"marketsense/internal/audio"
	"marketsense/internal/catalog"
	"marketsense/internal/config"
	"marketsense/internal/history"
	"marketsense/internal/metrics"
	"marketsense/internal/provider"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Collector
	assistant *assistant.Assistant
}

// newRootCommand creates the root command for the CLI
func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "marketsense",
		Short: "Market price assistant for Nigerian food markets",
		Long: `marketsense answers questions about food prices in Nigerian markets.
Ask in plain or Pidgin English, by text or voice note, and get a price,
an arbitrage scan across markets, and trading advice.

Examples:
  marketsense ask "How much rice for Mile 12?"
  marketsense ask --audio question.wav --speak
  marketsense price --market "Mile 12" --commodity Rice
  marketsense scan tomato
  marketsense serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString(config.FlagConfig)
			cfg, err := config.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return a.init(cfg, cmd.ErrOrStderr())
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newAskCommand(a))
	rootCmd.AddCommand(newPriceCommand(a))
	rootCmd.AddCommand(newScanCommand(a))
	rootCmd.AddCommand(newCatalogCommand(a))
	rootCmd.AddCommand(newHistoryCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// init wires the assistant from cfg.
func (a *app) init(cfg *config.Config, logOut io.Writer) error {
	a.cfg = cfg
	a.logger = newLogger(logOut, cfg.Logging)

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		loaded, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return err
		}
		cat = loaded
	}

	prov, err := provider.NewProvider(cfg.Provider.Backend, a.logger, cfg, cat)
	if err != nil {
		return err
	}

	speech := cfg.Speech.Enabled
	if speech && cfg.Provider.Backend == config.BackendOffline {
		a.logger.Warn("Speech output needs a model backend, disabling it")
		speech = false
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector()
	if err := a.metrics.Register(a.registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	scanner := arbitrage.NewScanner(a.logger, arbitrage.NewSimulator(cat, arbitrage.NewRandomSource()))
	a.assistant = assistant.New(a.logger, cat, scanner,
		arbitrage.NewLogistics(cfg.Logistics.TransportCost),
		prov,
		assistant.Options{
			Prober:        audio.NewProber(cfg.Audio.MaxBytes, cfg.Audio.MaxDuration),
			History:       history.NewMemoryRepository(cfg.History.Size),
			Metrics:       a.metrics,
			SpeechEnabled: speech,
			SpeechLocale:  cfg.Speech.Locale,
		},
	)

	a.logger.Debug("Assistant ready",
		"provider", prov.Name(),
		"markets", len(cat.Markets()),
		"commodities", len(cat.Commodities()),
	)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
