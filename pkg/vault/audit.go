package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry is one structured record in the daily audit log.
type AuditEntry struct {
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Source    string `json:"source"`
	Result    string `json:"result"`
}

// AuditLog appends structured action records to daily JSON files under Logs/.
// The files are the human-auditable trail of everything the agent did; each
// day's file is a JSON array so it stays readable in any viewer.
type AuditLog struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewAuditLog creates an audit log writing into the given directory.
func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{dir: dir, now: time.Now}
}

// Record appends one entry to today's audit file.
func (a *AuditLog) Record(actor, action, source, result string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	now := a.now().UTC()
	path := a.pathFor(now)

	var entries []AuditEntry
	if data, err := os.ReadFile(path); err == nil {
		// A corrupt file starts a fresh array rather than blocking the pipeline.
		_ = json.Unmarshal(data, &entries)
	}

	entries = append(entries, AuditEntry{
		Timestamp: now.Format(time.RFC3339Nano),
		Actor:     actor,
		Action:    action,
		Source:    source,
		Result:    result,
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding audit entries: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	return nil
}

// Entries returns the audit entries recorded on the given day.
func (a *AuditLog) Entries(day time.Time) ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.pathFor(day.UTC()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	var entries []AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing audit log: %w", err)
	}
	return entries, nil
}

func (a *AuditLog) pathFor(t time.Time) string {
	return filepath.Join(a.dir, t.Format("2006-01-02")+".json")
}
