package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// captureWriter records batches for assertions.
type captureWriter struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (w *captureWriter) WriteBatch(ctx context.Context, entries []LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, entries...)
	return nil
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func TestAsyncSinkFlush(t *testing.T) {
	writer := &captureWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{Writer: writer})
	defer sink.Close()

	for i := 0; i < 5; i++ {
		sink.Write(LogEntry{Message: "entry", Timestamp: time.Now()})
	}

	if err := sink.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := writer.count(); got != 5 {
		t.Errorf("wrote %d entries, want 5", got)
	}
}

func TestAsyncSinkCloseDrains(t *testing.T) {
	writer := &captureWriter{}
	sink := NewAsyncSink(AsyncSinkConfig{Writer: writer, FlushInterval: time.Hour})

	for i := 0; i < 10; i++ {
		sink.Write(LogEntry{Message: "entry"})
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := writer.count(); got != 10 {
		t.Errorf("wrote %d entries after close, want 10", got)
	}

	// Writes after close are dropped silently.
	sink.Write(LogEntry{Message: "late"})
	if got := writer.count(); got != 10 {
		t.Errorf("entry accepted after close")
	}
}

func TestFileWriterAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agent.log")
	writer, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	entries := []LogEntry{
		{Level: "info", Message: "first"},
		{Level: "warn", Message: "second", Fields: map[string]string{"item": "a.md"}},
	}
	if err := writer.WriteBatch(context.Background(), entries); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if err := writer.WriteBatch(context.Background(), []LogEntry{{Level: "info", Message: "third"}}); err != nil {
		t.Fatalf("second WriteBatch: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening log file: %v", err)
	}
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		messages = append(messages, entry.Message)
	}

	want := []string{"first", "second", "third"}
	if len(messages) != len(want) {
		t.Fatalf("got %d lines, want %d", len(messages), len(want))
	}
	for i, msg := range want {
		if messages[i] != msg {
			t.Errorf("line %d = %q, want %q", i, messages[i], msg)
		}
	}
}
