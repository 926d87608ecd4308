package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSendLedgerIncrement(t *testing.T) {
	l := NewSendLedger(t.TempDir())

	if got := l.Count(); got != 0 {
		t.Errorf("initial Count = %d", got)
	}

	for i := 1; i <= 3; i++ {
		n, err := l.Increment()
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if n != i {
			t.Errorf("Increment = %d, want %d", n, i)
		}
	}
	if got := l.Count(); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestSendLedgerUnderLimit(t *testing.T) {
	l := NewSendLedger(t.TempDir())

	if !l.UnderLimit(2) {
		t.Error("fresh ledger should be under limit")
	}
	l.Increment()
	l.Increment()
	if l.UnderLimit(2) {
		t.Error("ledger at limit should not be under it")
	}
	if l.UnderLimit(0) {
		t.Error("zero limit disables sending")
	}
}

func TestSendLedgerResetsAcrossDays(t *testing.T) {
	l := NewSendLedger(t.TempDir())
	day1 := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day1 }

	l.Increment()
	l.Increment()
	if got := l.Count(); got != 2 {
		t.Fatalf("day one Count = %d", got)
	}

	l.now = func() time.Time { return day1.Add(24 * time.Hour) }
	if got := l.Count(); got != 0 {
		t.Errorf("next day Count = %d, want 0", got)
	}
	if n, _ := l.Increment(); n != 1 {
		t.Errorf("next day Increment = %d, want 1", n)
	}
}

func TestSendLedgerCorruptFileReadsZero(t *testing.T) {
	dir := t.TempDir()
	l := NewSendLedger(dir)
	day := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	path := filepath.Join(dir, ".send_count_2026-08-27.json")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := l.Count(); got != 0 {
		t.Errorf("corrupt Count = %d, want 0", got)
	}
	if n, err := l.Increment(); err != nil || n != 1 {
		t.Errorf("Increment over corrupt file = %d, %v", n, err)
	}
}
