package orchestrator

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// MemoryWarnThreshold is the lesson count past which the memory document is
// probably diluting the prompt more than guiding it.
const MemoryWarnThreshold = 50

const memorySeedHeader = `# Agent Memory

Learnings from past decisions. This file is read alongside the Company Handbook
when generating plans.

## Patterns
`

// AppendLesson appends one timestamped lesson bullet to the agent memory
// document, creating the document with its header when absent. The document
// is append-only: existing lessons are never rewritten. The source names the
// rejected plan the lesson came from.
func AppendLesson(v *vault.Vault, source, lesson string, now time.Time) error {
	lesson = strings.TrimSpace(lesson)
	if lesson == "" {
		return nil
	}

	path := v.MemoryPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(memorySeedHeader), 0o644); err != nil {
			return fmt.Errorf("creating memory document: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening memory document: %w", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("- **%s** (from %s): %s\n", now.UTC().Format(time.RFC3339), source, lesson)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("appending lesson: %w", err)
	}
	return nil
}

// CountLessons counts lesson bullets in a memory document.
func CountLessons(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "- ") {
			count++
		}
	}
	return count
}
