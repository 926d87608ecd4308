// Package orchestrator drives the approval pipeline: it turns work items into
// plans, routes plans past the confidence gate, executes approved replies,
// and learns from rejections.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/otherjamesbrown/mycroft/pkg/classify"
	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/mail"
	"github.com/otherjamesbrown/mycroft/pkg/reason"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

const actor = "orchestrator"

// Plan status values recorded in frontmatter.
const (
	StatusPendingApproval = "pending_approval"
	StatusAutoApproved    = "auto_approved"
	StatusDone            = "done"
	StatusFailed          = "failed"
)

// Config wires the orchestrator's collaborators. Sender may be nil when the
// deployment has no outbound mail; reply plans then always wait for a human
// and fail execution explicitly.
type Config struct {
	Vault    *vault.Vault
	Reasoner reason.Reasoner
	Sender   mail.Sender
	Logger   logging.Logger
	Metrics  *Metrics

	// AutoApproveThreshold gates unattended execution. The default of 1.0
	// disables it, since no legitimate confidence score exceeds 1.0.
	AutoApproveThreshold float64
	DailySendLimit       int
}

// Orchestrator owns all plan transitions. It assumes single-writer access to
// the vault; safety across concurrent humans rests on atomic move semantics.
type Orchestrator struct {
	vault     *vault.Vault
	reasoner  reason.Reasoner
	sender    mail.Sender
	logger    logging.Logger
	metrics   *Metrics
	audit     *vault.AuditLog
	ledger    *vault.SendLedger
	threshold float64
	sendLimit int
	now       func() time.Time
}

// New creates an orchestrator over the given vault.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	threshold := cfg.AutoApproveThreshold
	if threshold == 0 {
		threshold = 1.0
	}
	limit := cfg.DailySendLimit
	if limit == 0 {
		limit = 20
	}
	return &Orchestrator{
		vault:     cfg.Vault,
		reasoner:  cfg.Reasoner,
		sender:    cfg.Sender,
		logger:    logger,
		metrics:   cfg.Metrics,
		audit:     vault.NewAuditLog(cfg.Vault.LogsDir()),
		ledger:    vault.NewSendLedger(cfg.Vault.LogsDir()),
		threshold: threshold,
		sendLimit: limit,
		now:       time.Now,
	}
}

// Audit exposes the audit log for collaborators recording their own entries.
func (o *Orchestrator) Audit() *vault.AuditLog {
	return o.audit
}

// Ledger exposes the daily send ledger.
func (o *Orchestrator) Ledger() *vault.SendLedger {
	return o.ledger
}

// GetPending returns the work items awaiting a plan, high priority first and
// ties broken by filename. The order is computed once per drain.
func (o *Orchestrator) GetPending() ([]vault.Item, error) {
	needsAction := o.vault.Stage(vault.StageNeedsAction)
	items, err := needsAction.List()
	if err != nil {
		return nil, err
	}

	ranks := make(map[string]int, len(items))
	for _, item := range items {
		rank := classify.PriorityNormal.Rank()
		if content, err := needsAction.Read(item.Name); err == nil {
			fm, _ := vault.ParseFrontmatter(content)
			rank = classify.ParsePriority(fm.Priority).Rank()
		}
		ranks[item.Name] = rank
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := ranks[items[i].Name], ranks[items[j].Name]
		if ri != rj {
			return ri < rj
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// GetApproved returns human-approved plans awaiting execution.
func (o *Orchestrator) GetApproved() ([]vault.Item, error) {
	return o.vault.Stage(vault.StageApproved).List()
}

// GetRejected returns rejected plans awaiting the learning pass.
func (o *Orchestrator) GetRejected() ([]vault.Item, error) {
	return o.vault.Stage(vault.StageRejected).List()
}

// PlanName derives the plan filename from a work item filename.
func PlanName(itemName string) string {
	if rest, ok := strings.CutPrefix(itemName, "email-"); ok {
		return "plan-" + rest
	}
	return "plan-" + itemName
}

// ProcessAction converts one work item into a plan and routes it through the
// approval gate. Reasoner failures degrade to a fallback plan on the human
// path; they never stall the pipeline.
func (o *Orchestrator) ProcessAction(ctx context.Context, name string) error {
	needsAction := o.vault.Stage(vault.StageNeedsAction)
	content, err := needsAction.Read(name)
	if err != nil {
		return err
	}
	itemFM, _ := vault.ParseFrontmatter(content)

	o.logger.Info("processing work item",
		logging.F("item", name),
		logging.F("priority", itemFM.Priority))

	prompt := reason.PlanPrompt(reason.PlanPromptInput{
		Handbook: o.vault.ReadHandbook(),
		Memory:   o.vault.ReadMemory(),
		ItemName: name,
		Content:  content,
	})

	response, genErr := o.reasoner.Generate(ctx, prompt)
	if genErr != nil {
		o.logger.Warn("plan generation failed, using fallback",
			logging.F("item", name),
			logging.Err(genErr))
		response = reason.FallbackPlan(genErr)
		o.metrics.Fallback()
	}
	confidence := reason.ExtractConfidence(response)

	planName := PlanName(name)
	planFM := vault.Frontmatter{
		Source:     name,
		Created:    o.now().UTC().Format(time.RFC3339),
		Status:     StatusPendingApproval,
		Confidence: confidence,
	}
	_, hasReply := vault.ExtractReply(response)
	if hasReply {
		planFM.Action = "reply"
		planFM.GmailID = itemFM.GmailID
		planFM.To = itemFM.From
		planFM.Subject = replySubject(itemFM.Subject)
	}

	title := strings.TrimSuffix(name, ".md")
	body := fmt.Sprintf("# Plan: %s\n\n%s\n", title, strings.TrimSpace(response))

	wantsAuto := confidence >= o.threshold
	if wantsAuto && hasReply && !o.ledger.UnderLimit(o.sendLimit) {
		// Deferred to human review this cycle, not retried later.
		o.logger.Warn("daily send limit reached, deferring to human review",
			logging.F("plan", planName),
			logging.F("limit", o.sendLimit))
		wantsAuto = false
	}

	if !wantsAuto {
		if err := o.vault.Stage(vault.StagePendingApproval).Put(planName, vault.RenderDocument(planFM, body)); err != nil {
			return err
		}
		if err := needsAction.Remove(name); err != nil {
			return err
		}
		o.metrics.PlanCreated()
		o.audit.Record(actor, "plan_created", name, "pending_approval:"+planName)
		o.logger.Info("plan created, awaiting approval",
			logging.F("plan", planName),
			logging.F("confidence", confidence))
		return nil
	}

	planFM.Status = StatusAutoApproved
	if err := o.vault.Stage(vault.StageApproved).Put(planName, vault.RenderDocument(planFM, body)); err != nil {
		return err
	}
	if err := needsAction.Remove(name); err != nil {
		return err
	}
	o.metrics.PlanCreated()
	o.metrics.AutoApproved()
	o.audit.Record(actor, "plan_created", name, "auto_approved:"+planName)
	o.logger.Info("plan auto-approved",
		logging.F("plan", planName),
		logging.F("confidence", confidence),
		logging.F("threshold", o.threshold))

	if execErr := o.ExecuteApproved(ctx, planName); execErr != nil {
		// Never leave an unexecuted plan sitting in Approved.
		approved := o.vault.Stage(vault.StageApproved)
		if approved.Exists(planName) {
			if planContent, err := approved.Read(planName); err == nil {
				fm, planBody := vault.ParseFrontmatter(planContent)
				fm.Status = StatusPendingApproval
				if err := o.vault.Stage(vault.StagePendingApproval).Put(planName, vault.RenderDocument(fm, planBody)); err != nil {
					return err
				}
				if err := approved.Remove(planName); err != nil {
					return err
				}
			}
		}
		o.audit.Record(actor, "auto_approve_fallback", planName, execErr.Error())
		o.logger.Warn("auto-approved plan failed execution, routed to human review",
			logging.F("plan", planName),
			logging.Err(execErr))
	}
	return nil
}

// ExecuteApproved runs one approved plan through the execution gate.
//
// Reply plans check the daily send limit first; at the limit the plan stays
// in Approved untouched. A reply plan without a reply block is a fatal format
// error and archives as failed. A send error leaves the plan in place and
// returns the error so the caller decides where it goes. Non-reply plans
// archive directly.
func (o *Orchestrator) ExecuteApproved(ctx context.Context, name string) error {
	approved := o.vault.Stage(vault.StageApproved)
	done := o.vault.Stage(vault.StageDone)

	content, err := approved.Read(name)
	if err != nil {
		return err
	}
	fm, body := vault.ParseFrontmatter(content)

	if fm.Action == "reply" {
		if !o.ledger.UnderLimit(o.sendLimit) {
			o.logger.Warn("daily send limit reached, skipping",
				logging.F("plan", name),
				logging.F("limit", o.sendLimit))
			o.metrics.Send("limited")
			o.audit.Record(actor, "send_skipped", name, "daily_limit_reached")
			return fmt.Errorf("%s: %w", name, mcerrors.ErrSendLimitReached)
		}

		replyBody, ok := vault.ExtractReply(content)
		if !ok {
			fm.Status = StatusFailed
			if err := done.Put(name, vault.RenderDocument(fm, body)); err != nil {
				return err
			}
			if err := approved.Remove(name); err != nil {
				return err
			}
			o.audit.Record(actor, "reply_failed", name, mcerrors.ErrMissingReplyBlock.Error())
			o.logger.Error("reply plan has no reply block, archived as failed",
				logging.F("plan", name),
				logging.Err(mcerrors.ErrMissingReplyBlock))
			return nil
		}

		if o.sender == nil {
			o.metrics.Send("failed")
			o.audit.Record(actor, "send_failed", name, "no sender configured")
			return fmt.Errorf("%s: no sender configured", name)
		}
		if _, err := o.sender.SendReply(ctx, mail.OutgoingReply{
			GmailID: fm.GmailID,
			To:      fm.To,
			Subject: fm.Subject,
			Body:    replyBody,
		}); err != nil {
			o.metrics.Send("failed")
			o.audit.Record(actor, "send_failed", name, err.Error())
			o.logger.Error("reply send failed",
				logging.F("plan", name),
				logging.F("to", fm.To),
				logging.Err(err))
			return fmt.Errorf("sending reply for %s: %w", name, err)
		}

		count, err := o.ledger.Increment()
		if err != nil {
			o.logger.Warn("send succeeded but counter update failed", logging.Err(err))
		}
		o.metrics.Send("success")
		o.audit.Record(actor, "email_sent", name, "reply_to:"+fm.To)
		o.logger.Info("reply sent",
			logging.F("plan", name),
			logging.F("to", fm.To),
			logging.F("sends_today", count))
	}

	fm.Status = StatusDone
	if err := done.Put(name, vault.RenderDocument(fm, body)); err != nil {
		return err
	}
	if err := approved.Remove(name); err != nil {
		return err
	}
	o.audit.Record(actor, "executed", name, "moved_to_done")
	o.logger.Info("plan executed", logging.F("plan", name))
	return nil
}

// ReviewRejected extracts a lesson from one rejected plan and archives it.
// The plan reaches Done no matter what the reasoner does; a rejection with no
// extractable lesson is not an error.
func (o *Orchestrator) ReviewRejected(ctx context.Context, name string) error {
	rejected := o.vault.Stage(vault.StageRejected)
	content, err := rejected.Read(name)
	if err != nil {
		return err
	}

	lesson := ""
	if response, err := o.reasoner.Generate(ctx, reason.ReviewPrompt(name, content, o.vault.ReadMemory())); err != nil {
		o.logger.Warn("rejection review failed, no lesson recorded",
			logging.F("plan", name),
			logging.Err(err))
	} else {
		lesson = strings.TrimSpace(response)
	}

	if lesson != "" {
		if err := AppendLesson(o.vault, name, lesson, o.now()); err != nil {
			o.logger.Warn("could not append lesson", logging.Err(err))
		} else {
			o.audit.Record(actor, "lesson_learned", name, lesson)
			if n := CountLessons(o.vault.ReadMemory()); n > MemoryWarnThreshold {
				o.logger.Warn("agent memory is getting large",
					logging.F("lessons", n),
					logging.F("threshold", MemoryWarnThreshold))
			}
		}
	}

	fm, body := vault.ParseFrontmatter(content)
	fm.Status = StatusDone
	if err := o.vault.Stage(vault.StageDone).Put(name, vault.RenderDocument(fm, body)); err != nil {
		return err
	}
	if err := rejected.Remove(name); err != nil {
		return err
	}
	o.metrics.RejectionReviewed()
	o.audit.Record(actor, "rejection_reviewed", name, "moved_to_done")
	o.logger.Info("rejected plan reviewed", logging.F("plan", name))
	return nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}
