// Package cmd provides CLI commands for the mycroft agent.
package cmd

import (
	"fmt"

	"github.com/otherjamesbrown/mycroft/config"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// loadConfig loads and validates the agent configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

// openVault opens the configured vault and makes sure the stage layout and
// seed documents exist.
func openVault(cfg *config.Config) (*vault.Vault, error) {
	v := vault.Open(cfg.VaultPath)
	if err := v.EnsureLayout(); err != nil {
		return nil, fmt.Errorf("preparing vault at %s: %w", cfg.VaultPath, err)
	}
	return v, nil
}

// newLogger builds the agent logger from the configuration. When a log file is
// configured, entries are additionally persisted through an async JSONL sink;
// the returned closer flushes and stops that sink.
func newLogger(cfg *config.Config) (logging.Logger, func(), error) {
	logCfg := &logging.Config{
		Level:      logging.Level(cfg.LogLevel),
		Component:  cfg.AgentName,
		JSONFormat: cfg.LogJSON,
	}

	closer := func() {}
	if cfg.LogFile != "" {
		writer, err := logging.NewFileWriter(cfg.LogFile)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		sink := logging.NewAsyncSink(logging.AsyncSinkConfig{Writer: writer})
		logCfg.Sinks = []logging.Sink{sink}
		closer = func() { _ = sink.Close() }
	}

	return logging.NewLogger(logCfg), closer, nil
}
