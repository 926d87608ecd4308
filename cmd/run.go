package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/mycroft/config"
	"github.com/otherjamesbrown/mycroft/credentials"
	"github.com/otherjamesbrown/mycroft/pkg/agent"
	"github.com/otherjamesbrown/mycroft/pkg/buildinfo"
	"github.com/otherjamesbrown/mycroft/pkg/classify"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/mail"
	"github.com/otherjamesbrown/mycroft/pkg/orchestrator"
	"github.com/otherjamesbrown/mycroft/pkg/reason"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
	"github.com/otherjamesbrown/mycroft/pkg/watch"
)

// NewRunCommand creates the run command: the long-lived polling loop.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the agent polling loop",
		Long: `Run the agent until interrupted.

Each cycle pulls vault changes, checks Gmail and Incoming_Files for new work,
drafts plans for items in Needs_Action, executes approved plans, learns from
rejected ones, and pushes vault changes back.

Stop with Ctrl-C; the current cycle finishes its step before the loop exits.

Examples:
  mycroft run
  MYCROFT_LOG_LEVEL=debug mycroft run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := buildAgent(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Run(ctx); err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

// NewOnceCommand creates the once command: a single cycle, then exit.
func NewOnceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single pipeline cycle and exit",
		Long: `Run one full pipeline cycle and exit.

Useful for cron-driven setups and for inspecting what one cycle does.

Examples:
  mycroft once`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := buildAgent(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.RunCycle(ctx)
			fmt.Printf("Cycle complete: %d detected, %d planned, %d executed, %d reviewed, %d quarantined, %d restored\n",
				result.ItemsDetected, result.ActionsProcessed, result.ApprovedExecuted,
				result.RejectionsReviewed, result.Quarantined, result.Restored)
			return ctx.Err()
		},
	}
}

// buildAgent assembles the full agent from configuration. The returned cleanup
// flushes log sinks and must run after the loop stops.
func buildAgent(ctx context.Context) (*agent.Agent, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, closeLogs, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	v, err := openVault(cfg)
	if err != nil {
		closeLogs()
		return nil, nil, err
	}

	registry := prometheus.NewRegistry()
	metrics := orchestrator.NewMetrics(registry)
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg, registry, logger)
	}

	classifierOpts := []classify.Option{classify.WithVIPSenders(cfg.VIPSenders)}
	if len(cfg.UrgentKeywords) > 0 {
		classifierOpts = append(classifierOpts, classify.WithUrgentKeywords(cfg.UrgentKeywords))
	}
	classifier := classify.NewClassifier(classifierOpts...)

	reasoner := reason.NewSubprocess(cfg.Model,
		reason.WithTimeout(cfg.ReasonerTimeout),
		reason.WithLogger(logger))

	var watchers []watch.Watcher
	var sender mail.Sender

	if cfg.GmailEnabled {
		store, err := credentials.NewStore(mustConfigDir())
		if err != nil {
			closeLogs()
			return nil, nil, fmt.Errorf("opening credential store: %w", err)
		}
		service, err := credentials.NewGmailService(ctx, store)
		if err != nil {
			closeLogs()
			return nil, nil, fmt.Errorf("connecting to Gmail: %w", err)
		}
		watchers = append(watchers, watch.NewGmailWatcher(service, v, classifier, logger, cfg.GmailFilter))
		sender = mail.NewGmailSender(service, logger)
	}
	if cfg.FileWatchEnabled {
		watchers = append(watchers, watch.NewFileWatcher(v, logger, cfg.FileWatchDryRun))
	}

	orch := orchestrator.New(orchestrator.Config{
		Vault:                v,
		Reasoner:             reasoner,
		Sender:               sender,
		Logger:               logger,
		Metrics:              metrics,
		AutoApproveThreshold: cfg.AutoApproveThreshold,
		DailySendLimit:       cfg.DailySendLimit,
	})

	var syncer *vault.Syncer
	if cfg.SyncEnabled {
		syncer = vault.NewSyncer(v)
	}

	a := agent.New(agent.Config{
		Vault:        v,
		Orchestrator: orch,
		Watchers:     watchers,
		Syncer:       syncer,
		Logger:       logger,
		Metrics:      metrics,
		PollInterval: cfg.PollInterval,
	})

	logger.Info("agent assembled",
		logging.F("vault", cfg.VaultPath),
		logging.F("gmail", cfg.GmailEnabled),
		logging.F("file_watch", cfg.FileWatchEnabled),
		logging.F("sync", cfg.SyncEnabled),
		logging.F("threshold", cfg.AutoApproveThreshold),
		logging.F("send_limit", cfg.DailySendLimit))

	return a, closeLogs, nil
}

// serveMetrics exposes Prometheus metrics and build info over HTTP.
// The server lives as long as the process; run is the only caller.
func serveMetrics(cfg *config.Config, registry *prometheus.Registry, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/version", buildinfo.Handler(cfg.AgentName))

	server := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server stopped", logging.Err(err))
		}
	}()
	logger.Info("metrics server listening", logging.F("addr", cfg.MetricsAddr))
}

func mustConfigDir() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return config.DefaultConfigDir
	}
	return dir
}
