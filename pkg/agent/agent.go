// Package agent runs the polling loop that drives the whole pipeline.
//
// One cycle, in fixed order: pull vault changes, run the watchers, drain
// Needs_Action through the plan generator, drain Approved through the
// execution gate, drain Rejected through the learning pass, sweep the
// quarantine, push vault changes. The loop is single-threaded; every step may
// block on an external call and that is acceptable because nothing else
// competes for the vault.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/orchestrator"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
	"github.com/otherjamesbrown/mycroft/pkg/watch"
)

// DefaultPollInterval is the sleep between cycles.
const DefaultPollInterval = 60 * time.Second

// Config wires the agent loop.
type Config struct {
	Vault        *vault.Vault
	Orchestrator *orchestrator.Orchestrator
	Watchers     []watch.Watcher
	Syncer       *vault.Syncer // nil disables git sync
	Logger       logging.Logger
	Metrics      *orchestrator.Metrics

	PollInterval         time.Duration
	QuarantineMinAge     time.Duration
	QuarantineMaxRetries int
}

// Agent owns the loop.
type Agent struct {
	vault                *vault.Vault
	orch                 *orchestrator.Orchestrator
	watchers             []watch.Watcher
	syncer               *vault.Syncer
	logger               logging.Logger
	metrics              *orchestrator.Metrics
	interval             time.Duration
	quarantineMinAge     time.Duration
	quarantineMaxRetries int
}

// CycleResult counts what one cycle did.
type CycleResult struct {
	ItemsDetected      int
	ActionsProcessed   int
	ApprovedExecuted   int
	RejectionsReviewed int
	Quarantined        int
	Restored           int
}

// New creates an agent from the config, applying defaults for zero values.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	minAge := cfg.QuarantineMinAge
	if minAge <= 0 {
		minAge = vault.DefaultQuarantineMinAge
	}
	maxRetries := cfg.QuarantineMaxRetries
	if maxRetries <= 0 {
		maxRetries = vault.DefaultQuarantineMaxRetries
	}
	return &Agent{
		vault:                cfg.Vault,
		orch:                 cfg.Orchestrator,
		watchers:             cfg.Watchers,
		syncer:               cfg.Syncer,
		logger:               logger,
		metrics:              cfg.Metrics,
		interval:             interval,
		quarantineMinAge:     minAge,
		quarantineMaxRetries: maxRetries,
	}
}

// Run loops until the context is cancelled. Cycle errors are logged and the
// loop keeps going; only cancellation stops it.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("agent loop started",
		logging.F("interval", a.interval.String()))

	for {
		result := a.RunCycle(ctx)
		if err := ctx.Err(); err != nil {
			a.logger.Info("agent loop stopping")
			return err
		}
		a.logger.Info("cycle complete",
			logging.F("detected", result.ItemsDetected),
			logging.F("processed", result.ActionsProcessed),
			logging.F("executed", result.ApprovedExecuted),
			logging.F("reviewed", result.RejectionsReviewed))

		select {
		case <-ctx.Done():
			a.logger.Info("agent loop stopping")
			return ctx.Err()
		case <-time.After(a.interval):
		}
	}
}

// RunCycle executes one full pipeline cycle. Every log line within the cycle
// carries the same cycle_id so one cycle's work can be pulled out of the logs.
func (a *Agent) RunCycle(ctx context.Context) CycleResult {
	start := time.Now()
	var result CycleResult

	ctx = context.WithValue(ctx, logging.CycleIDKey, uuid.NewString())
	a.logger.WithContext(ctx).Debug("cycle started")

	if a.syncer != nil {
		if _, err := a.syncer.Pull(ctx); err != nil {
			a.logger.Warn("vault pull failed", logging.Err(err))
		}
	}

	for _, w := range a.watchers {
		n, err := w.RunOnce(ctx)
		result.ItemsDetected += n
		if err != nil && ctx.Err() == nil {
			a.logger.Error("watcher run failed", logging.Err(err))
		}
		if ctx.Err() != nil {
			return result
		}
	}

	result.ActionsProcessed, result.Quarantined = a.drainNeedsAction(ctx)
	if ctx.Err() != nil {
		return result
	}
	result.ApprovedExecuted = a.drainApproved(ctx)
	if ctx.Err() != nil {
		return result
	}
	result.RejectionsReviewed = a.drainRejected(ctx)
	if ctx.Err() != nil {
		return result
	}

	restored, err := a.vault.RestoreQuarantined(a.quarantineMinAge, a.quarantineMaxRetries)
	if err != nil {
		a.logger.Warn("quarantine sweep failed", logging.Err(err))
	}
	result.Restored = len(restored)
	for _, name := range restored {
		a.logger.Info("quarantined item restored", logging.F("item", name))
	}

	if a.syncer != nil {
		if _, err := a.syncer.Push(ctx, "mycroft: cycle "+time.Now().UTC().Format(time.RFC3339)); err != nil {
			a.logger.Warn("vault push failed", logging.Err(err))
		}
	}

	a.metrics.ObserveCycle(time.Since(start).Seconds())
	return result
}

// drainNeedsAction processes pending work items in priority order, computed
// once at the start of the drain. An item that fails processing moves to
// quarantine so one poison item cannot wedge the queue.
func (a *Agent) drainNeedsAction(ctx context.Context) (processed, quarantined int) {
	items, err := a.orch.GetPending()
	if err != nil {
		a.logger.Error("could not list pending items", logging.Err(err))
		return 0, 0
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return processed, quarantined
		}
		if err := a.orch.ProcessAction(ctx, item.Name); err != nil {
			a.logger.Error("work item failed, quarantining",
				logging.F("item", item.Name),
				logging.Err(err))
			if qErr := a.vault.QuarantineItem(a.vault.Stage(vault.StageNeedsAction), item.Name, err.Error()); qErr != nil {
				a.logger.Error("quarantine failed", logging.Err(qErr))
				continue
			}
			a.metrics.Quarantined()
			quarantined++
			continue
		}
		processed++
	}
	return processed, quarantined
}

func (a *Agent) drainApproved(ctx context.Context) int {
	items, err := a.orch.GetApproved()
	if err != nil {
		a.logger.Error("could not list approved plans", logging.Err(err))
		return 0
	}

	executed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return executed
		}
		if err := a.orch.ExecuteApproved(ctx, item.Name); err != nil {
			if errors.Is(err, mcerrors.ErrSendLimitReached) {
				// Every remaining reply plan hits the same limit today.
				a.logger.Warn("send limit reached, leaving remaining plans for tomorrow")
				return executed
			}
			a.logger.Error("approved plan failed execution",
				logging.F("plan", item.Name),
				logging.Err(err))
			continue
		}
		executed++
	}
	return executed
}

func (a *Agent) drainRejected(ctx context.Context) int {
	items, err := a.orch.GetRejected()
	if err != nil {
		a.logger.Error("could not list rejected plans", logging.Err(err))
		return 0
	}

	reviewed := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return reviewed
		}
		if err := a.orch.ReviewRejected(ctx, item.Name); err != nil {
			a.logger.Error("rejection review failed",
				logging.F("plan", item.Name),
				logging.Err(err))
			continue
		}
		reviewed++
	}
	return reviewed
}
