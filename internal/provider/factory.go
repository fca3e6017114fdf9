package provider

import (
	"fmt"
	"log/slog"

	"marketsense/internal/catalog"
	"marketsense/internal/config"
)

// NewProvider creates a provider backend based on the given name and configuration.
func NewProvider(name string, logger *slog.Logger, cfg *config.Config, cat *catalog.Catalog) (Provider, error) {
	switch name {
	case config.BackendOpenAI:
		return NewOpenAIProvider(logger, cfg.Provider, cfg.Speech, cat)
	case config.BackendOffline:
		return NewOfflineProvider(logger, cat), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
