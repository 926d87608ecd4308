package orchestrator

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

func TestGenerateBriefingCountsActivity(t *testing.T) {
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	audit := vault.NewAuditLog(v.LogsDir())
	audit.Record("agent", "plan_created", "email-a.md", "pending_approval:plan-a.md")
	audit.Record("agent", "plan_created", "email-b.md", "auto_approved:plan-b.md")
	audit.Record("agent", "email_sent", "plan-b.md", "reply_to:x@y.com")
	audit.Record("agent", "executed", "plan-a.md", "moved_to_done")
	audit.Record("agent", "rejection_reviewed", "plan-c.md", "moved_to_done")
	audit.Record("agent", "send_failed", "plan-d.md", "smtp refused")

	if err := v.Stage(vault.StageDone).Put("plan-a.md", "done"); err != nil {
		t.Fatal(err)
	}

	// An item that has sat in review for two days is a bottleneck.
	pending := v.Stage(vault.StagePendingApproval)
	if err := pending.Put("plan-stale.md", "waiting"); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(pending.PathTo("plan-stale.md"), stale, stale); err != nil {
		t.Fatal(err)
	}

	briefing, err := GenerateBriefing(v, time.Now(), 7)
	if err != nil {
		t.Fatalf("GenerateBriefing: %v", err)
	}

	for _, want := range []string{
		"| Replies sent | 1 |",
		"| Plans created | 2 |",
		"| Auto-approved | 1 |",
		"| Executed after approval | 1 |",
		"| Rejected | 1 |",
		"| Errors | 1 |",
		"- [x] plan-a.md",
		"plan-stale.md | Pending_Approval",
		"- Pending_Approval: 1 items",
	} {
		if !strings.Contains(briefing, want) {
			t.Errorf("briefing missing %q:\n%s", want, briefing)
		}
	}
}

func TestGenerateBriefingIdleVault(t *testing.T) {
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	briefing, err := GenerateBriefing(v, time.Now(), 7)
	if err != nil {
		t.Fatalf("GenerateBriefing: %v", err)
	}
	for _, want := range []string{
		"No activity recorded this period",
		"No items completed this period",
		"No bottlenecks detected",
		"- Nothing needs attention",
	} {
		if !strings.Contains(briefing, want) {
			t.Errorf("briefing missing %q:\n%s", want, briefing)
		}
	}
}

func TestGenerateBriefingIgnoresOldLogs(t *testing.T) {
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	audit := vault.NewAuditLog(v.LogsDir())
	audit.Record("agent", "email_sent", "plan-a.md", "reply_to:x@y.com")

	// Anchor the briefing a month ahead so today's log file falls outside
	// the 7-day window.
	future := time.Now().AddDate(0, 1, 0)
	briefing, err := GenerateBriefing(v, future, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(briefing, "| Replies sent | 0 |") {
		t.Errorf("out-of-period entries counted:\n%s", briefing)
	}
}

func TestSaveBriefing(t *testing.T) {
	v := vault.Open(t.TempDir())
	if err := v.EnsureLayout(); err != nil {
		t.Fatal(err)
	}

	when := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	path, err := SaveBriefing(v, "# Activity Briefing\n", when)
	if err != nil {
		t.Fatalf("SaveBriefing: %v", err)
	}
	if !strings.HasSuffix(path, "2026-08-28_Briefing.md") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Activity Briefing\n" {
		t.Errorf("content = %q", data)
	}
}
