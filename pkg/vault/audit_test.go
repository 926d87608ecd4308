package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAuditLogRecordAndEntries(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	day := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return day }

	if err := log.Record("orchestrator", "plan_created", "email-x.md", "success"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := log.Record("orchestrator", "email_sent", "plan-x.md", "success"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := log.Entries(day)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Action != "plan_created" || entries[1].Action != "email_sent" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[0].Actor != "orchestrator" || entries[0].Result != "success" {
		t.Errorf("entry fields: %+v", entries[0])
	}
}

func TestAuditLogDailyFiles(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)

	day1 := time.Date(2026, 8, 26, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 27, 0, 1, 0, 0, time.UTC)

	log.now = func() time.Time { return day1 }
	if err := log.Record("agent", "a", "s", "r"); err != nil {
		t.Fatal(err)
	}
	log.now = func() time.Time { return day2 }
	if err := log.Record("agent", "b", "s", "r"); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"2026-08-26.json", "2026-08-27.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	e1, _ := log.Entries(day1)
	e2, _ := log.Entries(day2)
	if len(e1) != 1 || len(e2) != 1 {
		t.Errorf("entries per day = %d, %d, want 1, 1", len(e1), len(e2))
	}
}

func TestAuditLogCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	log := NewAuditLog(dir)
	day := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return day }

	path := filepath.Join(dir, "2026-08-27.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := log.Record("agent", "recovered", "s", "r"); err != nil {
		t.Fatalf("Record over corrupt file: %v", err)
	}
	entries, err := log.Entries(day)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "recovered" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestAuditLogEntriesMissingDay(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	entries, err := log.Entries(time.Now())
	if err != nil || entries != nil {
		t.Errorf("missing day = %v, %v, want nil, nil", entries, err)
	}
}
