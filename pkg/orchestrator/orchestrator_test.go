package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
	"github.com/otherjamesbrown/mycroft/pkg/mail"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

type fakeReasoner struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeReasoner) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.response, f.err
}

type fakeSender struct {
	err  error
	sent []mail.OutgoingReply
}

func (f *fakeSender) SendReply(_ context.Context, reply mail.OutgoingReply) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, reply)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

const replyResponse = `## Analysis
Routine request.

## Recommended Actions
1. Reply confirming receipt.

## Requires Approval
- [ ] Send the reply

## Reply Draft
---BEGIN REPLY---
Thanks, confirming receipt.
---END REPLY---

## Confidence
0.92
`

const analysisResponse = `## Analysis
Newsletter, nothing to do.

## Recommended Actions
1. Archive.

## Requires Approval
- [ ] None

## Confidence
0.3
`

func newTestOrchestrator(t *testing.T, r *fakeReasoner, s mail.Sender, threshold float64) (*Orchestrator, *vault.Vault) {
	t.Helper()
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	o := New(Config{
		Vault:                v,
		Reasoner:             r,
		Sender:               s,
		AutoApproveThreshold: threshold,
		DailySendLimit:       20,
	})
	return o, v
}

func putWorkItem(t *testing.T, v *vault.Vault, name string, fm vault.Frontmatter, body string) {
	t.Helper()
	if err := v.Stage(vault.StageNeedsAction).Put(name, vault.RenderDocument(fm, body)); err != nil {
		t.Fatal(err)
	}
}

func emailItem() vault.Frontmatter {
	return vault.Frontmatter{
		Type:    "email",
		From:    "boss@example.com",
		Subject: "Quarterly numbers",
		GmailID: "18c2a9f4",
	}
}

func TestProcessActionHumanPath(t *testing.T) {
	r := &fakeReasoner{response: replyResponse}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	putWorkItem(t, v, "email-quarterly-numbers-18c2a9f4.md", emailItem(), "Can you send the deck?")

	if err := o.ProcessAction(context.Background(), "email-quarterly-numbers-18c2a9f4.md"); err != nil {
		t.Fatalf("ProcessAction: %v", err)
	}

	if v.Stage(vault.StageNeedsAction).Exists("email-quarterly-numbers-18c2a9f4.md") {
		t.Error("work item not consumed")
	}

	planName := "plan-quarterly-numbers-18c2a9f4.md"
	content, err := v.Stage(vault.StagePendingApproval).Read(planName)
	if err != nil {
		t.Fatalf("plan not in Pending_Approval: %v", err)
	}
	fm, _ := vault.ParseFrontmatter(content)
	if fm.Source != "email-quarterly-numbers-18c2a9f4.md" {
		t.Errorf("Source = %q", fm.Source)
	}
	if fm.Status != StatusPendingApproval {
		t.Errorf("Status = %q", fm.Status)
	}
	if fm.Confidence != 0.92 {
		t.Errorf("Confidence = %v", fm.Confidence)
	}
	if fm.Action != "reply" || fm.To != "boss@example.com" || fm.GmailID != "18c2a9f4" {
		t.Errorf("reply metadata = %+v", fm)
	}
	if fm.Subject != "Re: Quarterly numbers" {
		t.Errorf("Subject = %q", fm.Subject)
	}
	if _, ok := vault.ExtractReply(content); !ok {
		t.Error("reply block lost in plan body")
	}
}

func TestProcessActionNoReplyBlock(t *testing.T) {
	r := &fakeReasoner{response: analysisResponse}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	putWorkItem(t, v, "email-news-abc.md", emailItem(), "This week in tech")

	if err := o.ProcessAction(context.Background(), "email-news-abc.md"); err != nil {
		t.Fatal(err)
	}

	content, err := v.Stage(vault.StagePendingApproval).Read("plan-news-abc.md")
	if err != nil {
		t.Fatal(err)
	}
	fm, _ := vault.ParseFrontmatter(content)
	if fm.Action != "" || fm.To != "" {
		t.Errorf("analysis-only plan carries reply metadata: %+v", fm)
	}
}

func TestProcessActionAutoApprove(t *testing.T) {
	r := &fakeReasoner{response: replyResponse}
	sender := &fakeSender{}
	o, v := newTestOrchestrator(t, r, sender, 0.8)

	putWorkItem(t, v, "email-ok-123.md", emailItem(), "Quick question")

	if err := o.ProcessAction(context.Background(), "email-ok-123.md"); err != nil {
		t.Fatal(err)
	}

	// Auto-approved, executed, archived. One send, one counter increment.
	if !v.Stage(vault.StageDone).Exists("plan-ok-123.md") {
		t.Fatal("plan did not reach Done")
	}
	if v.Stage(vault.StageApproved).Exists("plan-ok-123.md") ||
		v.Stage(vault.StagePendingApproval).Exists("plan-ok-123.md") {
		t.Error("plan duplicated across stages")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sends = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "boss@example.com" || sender.sent[0].Body != "Thanks, confirming receipt." {
		t.Errorf("sent reply = %+v", sender.sent[0])
	}
	if got := o.Ledger().Count(); got != 1 {
		t.Errorf("send count = %d, want 1", got)
	}
}

func TestProcessActionConfidenceAtThreshold(t *testing.T) {
	r := &fakeReasoner{response: analysisResponse} // confidence 0.3
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 0.3)

	putWorkItem(t, v, "email-edge-1.md", emailItem(), "body")

	if err := o.ProcessAction(context.Background(), "email-edge-1.md"); err != nil {
		t.Fatal(err)
	}
	// Equal to the threshold counts as auto; non-reply plans archive directly.
	if !v.Stage(vault.StageDone).Exists("plan-edge-1.md") {
		t.Error("plan at exact threshold was not auto-approved")
	}
}

func TestProcessActionSendFailureFallsBack(t *testing.T) {
	r := &fakeReasoner{response: replyResponse}
	sender := &fakeSender{err: errors.New("smtp unavailable")}
	o, v := newTestOrchestrator(t, r, sender, 0.8)

	putWorkItem(t, v, "email-fail-1.md", emailItem(), "body")

	if err := o.ProcessAction(context.Background(), "email-fail-1.md"); err != nil {
		t.Fatal(err)
	}

	if !v.Stage(vault.StagePendingApproval).Exists("plan-fail-1.md") {
		t.Fatal("failed auto plan did not fall back to Pending_Approval")
	}
	if v.Stage(vault.StageApproved).Exists("plan-fail-1.md") ||
		v.Stage(vault.StageDone).Exists("plan-fail-1.md") {
		t.Error("failed auto plan left in Approved or Done")
	}
	if got := o.Ledger().Count(); got != 0 {
		t.Errorf("send count = %d after failed send", got)
	}

	entries, _ := o.Audit().Entries(time.Now())
	var sawFallback bool
	for _, e := range entries {
		if e.Action == "auto_approve_fallback" {
			sawFallback = true
		}
	}
	if !sawFallback {
		t.Error("no auto_approve_fallback audit entry")
	}
}

func TestProcessActionSendLimitForcesHumanPath(t *testing.T) {
	r := &fakeReasoner{response: replyResponse}
	sender := &fakeSender{}
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	o := New(Config{
		Vault:                v,
		Reasoner:             r,
		Sender:               sender,
		AutoApproveThreshold: 0.8,
		DailySendLimit:       1,
	})
	if _, err := o.Ledger().Increment(); err != nil {
		t.Fatal(err)
	}

	putWorkItem(t, v, "email-late-1.md", emailItem(), "body")
	if err := o.ProcessAction(context.Background(), "email-late-1.md"); err != nil {
		t.Fatal(err)
	}

	if !v.Stage(vault.StagePendingApproval).Exists("plan-late-1.md") {
		t.Error("plan should defer to human review at the send limit")
	}
	if len(sender.sent) != 0 {
		t.Error("reply sent despite limit")
	}
}

func TestProcessActionReasonerFailureUsesFallback(t *testing.T) {
	r := &fakeReasoner{err: errors.New("executable file not found in $PATH")}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 0.5)

	putWorkItem(t, v, "email-broken-1.md", emailItem(), "body")
	if err := o.ProcessAction(context.Background(), "email-broken-1.md"); err != nil {
		t.Fatal(err)
	}

	content, err := v.Stage(vault.StagePendingApproval).Read("plan-broken-1.md")
	if err != nil {
		t.Fatalf("fallback plan not routed to human review: %v", err)
	}
	fm, _ := vault.ParseFrontmatter(content)
	if fm.Confidence != 0.0 {
		t.Errorf("fallback confidence = %v, want 0", fm.Confidence)
	}
	if !strings.Contains(content, "Manual review") {
		t.Errorf("fallback body missing review note:\n%s", content)
	}
}

func TestProcessActionPromptIncludesMemory(t *testing.T) {
	r := &fakeReasoner{response: analysisResponse}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	if err := AppendLesson(v, "plan-old.md", "Do not promise delivery dates.", time.Now()); err != nil {
		t.Fatal(err)
	}
	putWorkItem(t, v, "email-m-1.md", emailItem(), "body")
	if err := o.ProcessAction(context.Background(), "email-m-1.md"); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(r.lastPrompt, "Do not promise delivery dates.") {
		t.Error("memory lesson missing from plan prompt")
	}
}

func TestExecuteApprovedNonReply(t *testing.T) {
	o, v := newTestOrchestrator(t, &fakeReasoner{}, &fakeSender{}, 1.0)

	doc := vault.RenderDocument(vault.Frontmatter{Source: "email-x.md", Status: "approved"}, "## Analysis\nNothing to send.")
	if err := v.Stage(vault.StageApproved).Put("plan-x.md", doc); err != nil {
		t.Fatal(err)
	}

	if err := o.ExecuteApproved(context.Background(), "plan-x.md"); err != nil {
		t.Fatalf("ExecuteApproved: %v", err)
	}
	content, err := v.Stage(vault.StageDone).Read("plan-x.md")
	if err != nil {
		t.Fatal("non-reply plan not archived")
	}
	fm, _ := vault.ParseFrontmatter(content)
	if fm.Status != StatusDone {
		t.Errorf("Status = %q", fm.Status)
	}
}

func TestExecuteApprovedMissingReplyBlock(t *testing.T) {
	sender := &fakeSender{}
	o, v := newTestOrchestrator(t, &fakeReasoner{}, sender, 1.0)

	doc := vault.RenderDocument(vault.Frontmatter{
		Action: "reply", To: "a@b.com", Subject: "Re: x",
	}, "## Analysis\nThe draft went missing.")
	if err := v.Stage(vault.StageApproved).Put("plan-y.md", doc); err != nil {
		t.Fatal(err)
	}

	if err := o.ExecuteApproved(context.Background(), "plan-y.md"); err != nil {
		t.Fatalf("missing block should archive, not error: %v", err)
	}
	content, err := v.Stage(vault.StageDone).Read("plan-y.md")
	if err != nil {
		t.Fatal("plan not archived as failed")
	}
	fm, _ := vault.ParseFrontmatter(content)
	if fm.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", fm.Status)
	}
	if len(sender.sent) != 0 {
		t.Error("send attempted without a reply block")
	}

	entries, err := o.Audit().Entries(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range entries {
		if e.Action == "reply_failed" && e.Result == mcerrors.ErrMissingReplyBlock.Error() {
			found = true
		}
	}
	if !found {
		t.Error("reply_failed audit entry does not carry the missing-reply reason")
	}
}

func TestExecuteApprovedAtSendLimit(t *testing.T) {
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}
	o := New(Config{Vault: v, Reasoner: &fakeReasoner{}, Sender: &fakeSender{}, DailySendLimit: 1})
	if _, err := o.Ledger().Increment(); err != nil {
		t.Fatal(err)
	}

	doc := vault.RenderDocument(vault.Frontmatter{Action: "reply", To: "a@b.com"},
		"---BEGIN REPLY---\nhi\n---END REPLY---")
	if err := v.Stage(vault.StageApproved).Put("plan-z.md", doc); err != nil {
		t.Fatal(err)
	}

	err := o.ExecuteApproved(context.Background(), "plan-z.md")
	if err == nil {
		t.Fatal("expected send-limit error")
	}
	if !v.Stage(vault.StageApproved).Exists("plan-z.md") {
		t.Error("limited plan should stay in Approved for the next day")
	}
}

func TestReviewRejectedLearnsLesson(t *testing.T) {
	r := &fakeReasoner{response: "Use formal tone"}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	doc := vault.RenderDocument(vault.Frontmatter{Source: "email-x.md"}, "## Analysis\nToo casual.")
	if err := v.Stage(vault.StageRejected).Put("plan-r.md", doc); err != nil {
		t.Fatal(err)
	}

	if err := o.ReviewRejected(context.Background(), "plan-r.md"); err != nil {
		t.Fatalf("ReviewRejected: %v", err)
	}

	if !v.Stage(vault.StageDone).Exists("plan-r.md") {
		t.Error("rejected plan did not reach Done")
	}
	memory := v.ReadMemory()
	if !strings.Contains(memory, "Use formal tone") {
		t.Errorf("lesson missing from memory:\n%s", memory)
	}
	if !strings.Contains(memory, "(from plan-r.md)") {
		t.Errorf("lesson does not name the rejected plan:\n%s", memory)
	}
	if CountLessons(memory) != 1 {
		t.Errorf("lessons = %d, want 1", CountLessons(memory))
	}
}

func TestReviewRejectedPromptIncludesMemory(t *testing.T) {
	r := &fakeReasoner{response: "New lesson"}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	if err := AppendLesson(v, "plan-old.md", "Keep replies short.", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := v.Stage(vault.StageRejected).Put("plan-r4.md", "## Analysis\nToo long."); err != nil {
		t.Fatal(err)
	}

	if err := o.ReviewRejected(context.Background(), "plan-r4.md"); err != nil {
		t.Fatalf("ReviewRejected: %v", err)
	}
	if !strings.Contains(r.lastPrompt, "Keep replies short.") {
		t.Error("recorded lessons missing from the review prompt")
	}
	if !strings.Contains(r.lastPrompt, "Too long.") {
		t.Error("rejected plan content missing from the review prompt")
	}
}

func TestReviewRejectedReasonerFailure(t *testing.T) {
	r := &fakeReasoner{err: errors.New("reasoner down")}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	before := v.ReadMemory()
	if err := v.Stage(vault.StageRejected).Put("plan-r2.md", "## Analysis\nx"); err != nil {
		t.Fatal(err)
	}

	if err := o.ReviewRejected(context.Background(), "plan-r2.md"); err != nil {
		t.Fatalf("rejection review must never block: %v", err)
	}
	if !v.Stage(vault.StageDone).Exists("plan-r2.md") {
		t.Error("plan stuck outside Done after reasoner failure")
	}
	if v.ReadMemory() != before {
		t.Error("memory changed on a failed review")
	}
}

func TestReviewRejectedEmptyLesson(t *testing.T) {
	r := &fakeReasoner{response: "   \n"}
	o, v := newTestOrchestrator(t, r, &fakeSender{}, 1.0)

	before := v.ReadMemory()
	if err := v.Stage(vault.StageRejected).Put("plan-r3.md", "x"); err != nil {
		t.Fatal(err)
	}
	if err := o.ReviewRejected(context.Background(), "plan-r3.md"); err != nil {
		t.Fatal(err)
	}
	if v.ReadMemory() != before {
		t.Error("memory changed on an empty lesson")
	}
	if !v.Stage(vault.StageDone).Exists("plan-r3.md") {
		t.Error("plan not archived")
	}
}

func TestGetPendingPriorityOrder(t *testing.T) {
	o, v := newTestOrchestrator(t, &fakeReasoner{}, &fakeSender{}, 1.0)

	put := func(name, priority string) {
		t.Helper()
		putWorkItem(t, v, name, vault.Frontmatter{Type: "email", Priority: priority}, "body")
	}
	put("email-c.md", "low")
	put("email-d.md", "normal")
	put("email-a.md", "normal")
	put("email-b.md", "high")
	put("email-e.md", "") // unknown priority drains with normal

	items, err := o.GetPending()
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, item := range items {
		got = append(got, item.Name)
	}
	want := []string{"email-b.md", "email-a.md", "email-d.md", "email-e.md", "email-c.md"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPlanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"email-server-down-abc123.md", "plan-server-down-abc123.md"},
		{"file-scan-receipt.md", "plan-file-scan-receipt.md"},
		{"note.md", "plan-note.md"},
	}
	for _, tt := range tests {
		if got := PlanName(tt.in); got != tt.want {
			t.Errorf("PlanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
