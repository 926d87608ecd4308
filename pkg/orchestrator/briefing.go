package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// BottleneckAge is how long an item may wait for review before the briefing
// calls it out.
const BottleneckAge = 24 * time.Hour

// BriefingStats aggregates audit-log activity over the reporting period.
type BriefingStats struct {
	EmailsSent       int
	PlansCreated     int
	AutoApproved     int
	ManuallyApproved int
	Rejected         int
	Errors           int
	TotalActions     int
}

func (s *BriefingStats) tally(e vault.AuditEntry) {
	s.TotalActions++
	switch e.Action {
	case "email_sent":
		s.EmailsSent++
	case "plan_created":
		s.PlansCreated++
		if strings.HasPrefix(e.Result, "auto_approved:") {
			s.AutoApproved++
		}
	case "executed":
		s.ManuallyApproved++
	case "rejection_reviewed":
		s.Rejected++
	case "send_failed", "reply_failed":
		s.Errors++
	}
}

// Bottleneck is an item waiting on a human for longer than BottleneckAge.
type Bottleneck struct {
	Name  string
	Stage vault.Stage
	Age   time.Duration
}

// GenerateBriefing builds a markdown activity briefing covering the last
// periodDays days: audit-log counts, completed items, review bottlenecks, and
// queue depths. Corrupt or missing daily logs are skipped, not fatal.
func GenerateBriefing(v *vault.Vault, now time.Time, periodDays int) (string, error) {
	now = now.UTC()
	cutoff := now.AddDate(0, 0, -periodDays)

	var stats BriefingStats
	audit := vault.NewAuditLog(v.LogsDir())
	for d := 0; d <= periodDays; d++ {
		entries, err := audit.Entries(now.AddDate(0, 0, -d))
		if err != nil {
			continue
		}
		for _, e := range entries {
			stats.tally(e)
		}
	}

	completed, err := itemsModifiedSince(v.Stage(vault.StageDone), cutoff)
	if err != nil {
		return "", err
	}

	var bottlenecks []Bottleneck
	for _, stage := range []vault.Stage{vault.StagePendingApproval, vault.StageNeedsAction} {
		items, err := v.Stage(stage).List()
		if err != nil {
			return "", err
		}
		for _, item := range items {
			info, err := os.Stat(item.Path)
			if err != nil {
				continue
			}
			if age := now.Sub(info.ModTime()); age > BottleneckAge {
				bottlenecks = append(bottlenecks, Bottleneck{Name: item.Name, Stage: stage, Age: age})
			}
		}
	}

	needsAction := countItems(v.Stage(vault.StageNeedsAction))
	pendingApproval := countItems(v.Stage(vault.StagePendingApproval))
	quarantined := countItems(v.Stage(vault.StageQuarantine))

	var b strings.Builder
	fmt.Fprintf(&b, "---\ngenerated: %s\nperiod: %s to %s\n---\n\n",
		now.Format(time.RFC3339),
		cutoff.Format("2006-01-02"),
		now.Format("2006-01-02"))
	b.WriteString("# Activity Briefing\n\n")

	b.WriteString("## Executive Summary\n")
	if stats.TotalActions == 0 {
		b.WriteString("No activity recorded this period. The agent is idle.\n")
	} else {
		fmt.Fprintf(&b, "This period saw %d total actions: %d replies sent, %d plans created, and %d errors.\n",
			stats.TotalActions, stats.EmailsSent, stats.PlansCreated, stats.Errors)
	}

	b.WriteString("\n## Activity This Period\n")
	b.WriteString("| Metric | Count |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Replies sent | %d |\n", stats.EmailsSent)
	fmt.Fprintf(&b, "| Plans created | %d |\n", stats.PlansCreated)
	fmt.Fprintf(&b, "| Auto-approved | %d |\n", stats.AutoApproved)
	fmt.Fprintf(&b, "| Executed after approval | %d |\n", stats.ManuallyApproved)
	fmt.Fprintf(&b, "| Rejected | %d |\n", stats.Rejected)
	fmt.Fprintf(&b, "| Errors | %d |\n", stats.Errors)

	b.WriteString("\n## Completed\n")
	if len(completed) == 0 {
		b.WriteString("No items completed this period.\n")
	} else {
		for _, name := range completed {
			fmt.Fprintf(&b, "- [x] %s\n", name)
		}
	}

	b.WriteString("\n## Bottlenecks\n")
	if len(bottlenecks) == 0 {
		b.WriteString("No bottlenecks detected.\n")
	} else {
		b.WriteString("| Item | Stage | Waiting |\n|------|-------|---------|\n")
		for _, bn := range bottlenecks {
			fmt.Fprintf(&b, "| %s | %s | %d hours |\n", bn.Name, bn.Stage, int(bn.Age.Hours()))
		}
	}

	b.WriteString("\n## Pending\n")
	fmt.Fprintf(&b, "- Needs_Action: %d items\n", needsAction)
	fmt.Fprintf(&b, "- Pending_Approval: %d items\n", pendingApproval)
	fmt.Fprintf(&b, "- Quarantine: %d items\n", quarantined)

	b.WriteString("\n## Suggested Follow-ups\n")
	wrote := false
	if len(bottlenecks) > 0 {
		fmt.Fprintf(&b, "- %d item(s) have waited more than %d hours for review\n",
			len(bottlenecks), int(BottleneckAge.Hours()))
		wrote = true
	}
	if quarantined > 0 {
		fmt.Fprintf(&b, "- %d quarantined item(s) need attention\n", quarantined)
		wrote = true
	}
	if stats.Errors > 0 {
		fmt.Fprintf(&b, "- %d error(s) this period; see the Logs folder\n", stats.Errors)
		wrote = true
	}
	if !wrote {
		b.WriteString("- Nothing needs attention\n")
	}

	return b.String(), nil
}

// SaveBriefing writes the briefing to Briefings/YYYY-MM-DD_Briefing.md,
// creating the folder when absent, and returns the path.
func SaveBriefing(v *vault.Vault, content string, now time.Time) (string, error) {
	dir := v.BriefingsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating briefings folder: %w", err)
	}
	path := filepath.Join(dir, now.UTC().Format("2006-01-02")+"_Briefing.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing briefing: %w", err)
	}
	return path, nil
}

func itemsModifiedSince(c *vault.Container, cutoff time.Time) ([]string, error) {
	items, err := c.List()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, item := range items {
		info, err := os.Stat(item.Path)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			names = append(names, item.Name)
		}
	}
	return names, nil
}

func countItems(c *vault.Container) int {
	items, err := c.List()
	if err != nil {
		return 0
	}
	return len(items)
}
