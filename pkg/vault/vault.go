// Package vault implements the markdown vault the agent and its humans share:
// stage folders acting as queues, frontmatter-tagged documents, the audit log,
// the daily send ledger, quarantine, and git-based synchronization.
//
// The vault layout is a compatibility contract. Humans approve or reject work
// by moving files between folders (usually in Obsidian), so every transition
// here uses atomic move semantics: an item is a member of exactly one stage
// folder at any observable moment.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Well-known documents at the vault root.
const (
	HandbookFile = "Company_Handbook.md"
	MemoryFile   = "Agent_Memory.md"
)

const defaultHandbook = `# Company Handbook

## About
This handbook contains rules and preferences that guide your agent's behavior.
Edit this file to customize how plans are generated for your emails and tasks.

## Email Processing Rules
- Prioritize emails from known contacts
- Flag invoices and payment requests for approval
- Archive newsletters after summarizing
- Urgent keywords: "urgent", "asap", "deadline", "overdue"

## Approval Thresholds
- All email replies: require approval
- All payment-related actions: require approval
- Archiving/labeling: auto-approve

## Tone & Style
- Professional and concise in all drafted responses
- Match the sender's formality level
- Always acknowledge receipt of important items
`

const defaultMemory = `# Agent Memory

Learnings from past decisions. This file is read alongside the Company Handbook
when generating plans.

## Patterns
<!-- New learnings are appended here automatically -->
`

// Vault is a handle on the vault root directory.
type Vault struct {
	root string
}

// Open returns a Vault rooted at the given directory. The directory does not
// need to exist yet; EnsureLayout creates it.
func Open(root string) *Vault {
	return &Vault{root: root}
}

// Root returns the vault root path.
func (v *Vault) Root() string {
	return v.root
}

// Stage returns the container for the given stage folder.
func (v *Vault) Stage(s Stage) *Container {
	return &Container{dir: filepath.Join(v.root, string(s)), stage: s}
}

// InProgress returns the per-agent claim container under In_Progress/.
func (v *Vault) InProgress(agent string) *Container {
	return &Container{
		dir:   filepath.Join(v.root, string(StageInProgress), agent),
		stage: StageInProgress,
	}
}

// LogsDir returns the path of the Logs folder.
func (v *Vault) LogsDir() string {
	return filepath.Join(v.root, string(StageLogs))
}

// BriefingsDir returns the path of the Briefings folder. It is created on
// demand by the briefing writer, not by EnsureLayout.
func (v *Vault) BriefingsDir() string {
	return filepath.Join(v.root, "Briefings")
}

// HandbookPath returns the path of the handbook document.
func (v *Vault) HandbookPath() string {
	return filepath.Join(v.root, HandbookFile)
}

// MemoryPath returns the path of the agent memory document.
func (v *Vault) MemoryPath() string {
	return filepath.Join(v.root, MemoryFile)
}

// EnsureLayout creates the vault folder structure and seeds the handbook and
// memory documents when absent. Existing files are never overwritten.
func (v *Vault) EnsureLayout() error {
	if err := os.MkdirAll(v.root, 0o755); err != nil {
		return fmt.Errorf("creating vault root: %w", err)
	}
	for _, stage := range Stages() {
		if err := os.MkdirAll(filepath.Join(v.root, string(stage)), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", stage, err)
		}
	}

	if err := writeIfMissing(v.HandbookPath(), defaultHandbook); err != nil {
		return err
	}
	if err := writeIfMissing(v.MemoryPath(), defaultMemory); err != nil {
		return err
	}
	return nil
}

// ReadHandbook returns the handbook content, or empty when the file is absent.
func (v *Vault) ReadHandbook() string {
	data, err := os.ReadFile(v.HandbookPath())
	if err != nil {
		return ""
	}
	return string(data)
}

// ReadMemory returns the agent memory content, or empty when the file is absent.
func (v *Vault) ReadMemory() string {
	data, err := os.ReadFile(v.MemoryPath())
	if err != nil {
		return ""
	}
	return string(data)
}

func writeIfMissing(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe    = regexp.MustCompile(`[\s_]+`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// Slugify converts text to a filesystem-safe slug for item filenames.
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
