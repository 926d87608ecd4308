package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SendLedger tracks the number of outbound sends per UTC day. The counter
// lives in a hidden file under Logs/ so it survives restarts and is visible
// to anyone inspecting the vault. A missing or corrupt counter file reads as
// zero; losing the count is safer than blocking sends forever.
type SendLedger struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

type sendCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// NewSendLedger creates a ledger storing counters in the given directory.
func NewSendLedger(dir string) *SendLedger {
	return &SendLedger{dir: dir, now: time.Now}
}

// Count returns today's send count.
func (l *SendLedger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// UnderLimit reports whether another send is allowed today.
// A non-positive limit means sending is disabled entirely.
func (l *SendLedger) UnderLimit(limit int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read() < limit
}

// Increment bumps today's counter and returns the new count.
func (l *SendLedger) Increment() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating logs directory: %w", err)
	}

	count := l.read() + 1
	data, err := json.Marshal(sendCount{Date: l.today(), Count: count})
	if err != nil {
		return 0, fmt.Errorf("encoding send count: %w", err)
	}
	if err := os.WriteFile(l.path(), data, 0o644); err != nil {
		return 0, fmt.Errorf("writing send count: %w", err)
	}
	return count, nil
}

func (l *SendLedger) read() int {
	data, err := os.ReadFile(l.path())
	if err != nil {
		return 0
	}
	var sc sendCount
	if err := json.Unmarshal(data, &sc); err != nil {
		return 0
	}
	return sc.Count
}

func (l *SendLedger) today() string {
	return l.now().UTC().Format("2006-01-02")
}

func (l *SendLedger) path() string {
	return filepath.Join(l.dir, ".send_count_"+l.today()+".json")
}
