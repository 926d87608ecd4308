package vault

import (
	"errors"
	"strings"
	"testing"
	"time"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

func TestQuarantineItem(t *testing.T) {
	v := testVault(t)
	src := v.Stage(StageNeedsAction)

	doc := RenderDocument(Frontmatter{Type: "email", From: "a@b.com"}, "body")
	if err := src.Put("email-bad.md", doc); err != nil {
		t.Fatal(err)
	}

	if err := v.QuarantineItem(src, "email-bad.md", "reasoner timed out"); err != nil {
		t.Fatalf("QuarantineItem: %v", err)
	}

	if src.Exists("email-bad.md") {
		t.Error("item still in source after quarantine")
	}

	content, err := v.Stage(StageQuarantine).Read("email-bad.md")
	if err != nil {
		t.Fatalf("reading quarantined item: %v", err)
	}
	fm, body := ParseFrontmatter(content)
	if fm.QuarantineReason != "reasoner timed out" {
		t.Errorf("QuarantineReason = %q", fm.QuarantineReason)
	}
	if fm.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", fm.RetryCount)
	}
	if fm.QuarantinedAt == "" {
		t.Error("QuarantinedAt not set")
	}
	if fm.From != "a@b.com" || body != "body\n" {
		t.Errorf("original content mangled: %+v %q", fm, body)
	}
}

func TestRestoreQuarantined(t *testing.T) {
	v := testVault(t)
	q := v.Stage(StageQuarantine)

	old := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	fresh := time.Now().UTC().Format(time.RFC3339)

	put := func(name string, fm Frontmatter) {
		t.Helper()
		if err := q.Put(name, RenderDocument(fm, "body")); err != nil {
			t.Fatal(err)
		}
	}
	put("email-old.md", Frontmatter{QuarantinedAt: old, QuarantineReason: "x", RetryCount: 1})
	put("email-fresh.md", Frontmatter{QuarantinedAt: fresh, QuarantineReason: "x", RetryCount: 1})
	put("email-spent.md", Frontmatter{QuarantinedAt: old, QuarantineReason: "x", RetryCount: 4})

	restored, err := v.RestoreQuarantined(5*time.Minute, 3)
	if err != nil {
		t.Fatalf("RestoreQuarantined: %v", err)
	}
	if len(restored) != 1 || restored[0] != "email-old.md" {
		t.Fatalf("restored = %v, want [email-old.md]", restored)
	}

	if q.Exists("email-old.md") {
		t.Error("restored item still in quarantine")
	}
	if !q.Exists("email-fresh.md") {
		t.Error("item younger than min age left quarantine")
	}
	if !q.Exists("email-spent.md") {
		t.Error("item over the retry budget left quarantine")
	}

	content, err := v.Stage(StageNeedsAction).Read("email-old.md")
	if err != nil {
		t.Fatalf("restored item missing: %v", err)
	}
	if strings.Contains(content, "quarantine_reason") || strings.Contains(content, "quarantined_at") {
		t.Errorf("quarantine metadata survived restore:\n%s", content)
	}
}

func TestClaimItem(t *testing.T) {
	v := testVault(t)
	if err := v.Stage(StagePendingApproval).Put("plan-a.md", "plan"); err != nil {
		t.Fatal(err)
	}

	path, err := v.ClaimItem("plan-a.md", StagePendingApproval, StageApproved)
	if err != nil {
		t.Fatalf("ClaimItem: %v", err)
	}
	if path == "" || !v.Stage(StageApproved).Exists("plan-a.md") {
		t.Error("claim did not land in Approved")
	}

	// The losing claimer sees the item gone from the source.
	_, err = v.ClaimItem("plan-a.md", StagePendingApproval, StageRejected)
	if !errors.Is(err, mcerrors.ErrNotFound) {
		t.Errorf("second claim err = %v, want ErrNotFound", err)
	}
}

func TestClaimToInProgress(t *testing.T) {
	v := testVault(t)
	if err := v.Stage(StageNeedsAction).Put("email-a.md", "work"); err != nil {
		t.Fatal(err)
	}

	if _, err := v.ClaimToInProgress("email-a.md", "cloud"); err != nil {
		t.Fatalf("ClaimToInProgress: %v", err)
	}
	if !v.InProgress("cloud").Exists("email-a.md") {
		t.Error("item not claimed into In_Progress/cloud")
	}

	// A second agent loses the claim while the first still holds the item.
	if err := v.Stage(StageNeedsAction).Put("email-a.md", "work"); err != nil {
		t.Fatal(err)
	}
	_, err := v.ClaimToInProgress("email-a.md", "local")
	if !errors.Is(err, mcerrors.ErrAlreadyClaimed) {
		t.Errorf("competing claim err = %v, want ErrAlreadyClaimed", err)
	}
}
