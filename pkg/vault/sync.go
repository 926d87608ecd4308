package vault

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

// Syncer synchronizes the vault through git, supporting split cloud/local
// deployments. The claim-by-move protocol rides on top: the cloud zone writes
// drafts to Pending_Approval/ and the local zone claims items by moving them
// to Approved/ or Rejected/, so only one zone ever modifies a file.
type Syncer struct {
	vault   *Vault
	timeout time.Duration
}

// SyncStatus describes the vault repository state.
type SyncStatus struct {
	IsRepo         bool
	HasRemote      bool
	PendingChanges int
	LastSync       string
}

// SyncResult reports what a full sync cycle did.
type SyncResult struct {
	Pulled bool
	Pushed bool
}

// NewSyncer creates a Syncer for the given vault.
func NewSyncer(v *Vault) *Syncer {
	return &Syncer{vault: v, timeout: 60 * time.Second}
}

func (s *Syncer) git(ctx context.Context, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.vault.Root()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", "", fmt.Errorf("git %s timed out", strings.Join(args, " "))
	}
	return stdout.String(), stderr.String(), err
}

// IsRepo reports whether the vault is inside a git work tree.
func (s *Syncer) IsRepo(ctx context.Context) bool {
	out, _, err := s.git(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Init initializes a git repository in the vault when one does not exist.
// Returns true when a new repository was created.
func (s *Syncer) Init(ctx context.Context) (bool, error) {
	if s.IsRepo(ctx) {
		return false, nil
	}
	if _, stderr, err := s.git(ctx, "init"); err != nil {
		return false, fmt.Errorf("git init failed: %s: %w", strings.TrimSpace(stderr), err)
	}
	return true, nil
}

// Status returns the current sync state of the vault repository.
func (s *Syncer) Status(ctx context.Context) SyncStatus {
	status := SyncStatus{LastSync: "never"}

	if !s.IsRepo(ctx) {
		return status
	}
	status.IsRepo = true

	if out, _, err := s.git(ctx, "remote"); err == nil {
		status.HasRemote = strings.TrimSpace(out) != ""
	}

	if out, _, err := s.git(ctx, "status", "--porcelain"); err == nil {
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			if strings.TrimSpace(line) != "" {
				status.PendingChanges++
			}
		}
	}

	if out, _, err := s.git(ctx, "log", "-1", "--format=%s"); err == nil {
		if msg := strings.TrimSpace(out); msg != "" {
			status.LastSync = msg
		}
	}

	return status
}

// Push commits all local vault changes and pushes them when a remote is
// configured. Returns true when there were changes to commit.
func (s *Syncer) Push(ctx context.Context, message string) (bool, error) {
	if !s.IsRepo(ctx) {
		return false, fmt.Errorf("vault is not a git repository")
	}

	if _, stderr, err := s.git(ctx, "add", "-A"); err != nil {
		return false, fmt.Errorf("git add failed: %s: %w", strings.TrimSpace(stderr), err)
	}

	out, _, err := s.git(ctx, "status", "--porcelain")
	if err != nil || strings.TrimSpace(out) == "" {
		return false, nil
	}

	if _, stderr, err := s.git(ctx, "commit", "-m", message); err != nil {
		return false, fmt.Errorf("git commit failed: %s: %w", strings.TrimSpace(stderr), err)
	}

	remote, _, _ := s.git(ctx, "remote")
	if strings.TrimSpace(remote) != "" {
		if _, stderr, err := s.git(ctx, "push"); err != nil {
			return false, fmt.Errorf("git push failed: %s: %w", strings.TrimSpace(stderr), err)
		}
	}

	return true, nil
}

// Pull rebases onto the remote vault state. Returns true when new changes
// arrived. A vault with no remote pulls nothing.
func (s *Syncer) Pull(ctx context.Context) (bool, error) {
	if !s.IsRepo(ctx) {
		return false, fmt.Errorf("vault is not a git repository")
	}

	remote, _, _ := s.git(ctx, "remote")
	if strings.TrimSpace(remote) == "" {
		return false, nil
	}

	out, stderr, err := s.git(ctx, "pull", "--rebase")
	if err != nil {
		return false, fmt.Errorf("git pull failed: %s: %w", strings.TrimSpace(stderr), err)
	}

	if strings.Contains(out, "Already up to date") || strings.Contains(out, "Already up-to-date") {
		return false, nil
	}
	return true, nil
}

// Sync runs a full cycle: pull then push.
func (s *Syncer) Sync(ctx context.Context, message string) (SyncResult, error) {
	var result SyncResult

	pulled, err := s.Pull(ctx)
	if err != nil {
		return result, err
	}
	result.Pulled = pulled

	pushed, err := s.Push(ctx, message)
	if err != nil {
		return result, err
	}
	result.Pushed = pushed

	return result, nil
}

// ClaimItem moves an item between stages under the claim-by-move protocol.
// The move fails when the destination already holds the item, which is how
// competing claimers lose the race.
func (v *Vault) ClaimItem(name string, from, to Stage) (string, error) {
	return v.Stage(from).Take(name, v.Stage(to))
}

// ClaimToInProgress claims an item from Needs_Action into In_Progress/<agent>/.
// The first agent to move the item owns it; if any agent's folder already
// holds the item the claim fails with ErrAlreadyClaimed.
func (v *Vault) ClaimToInProgress(name, agent string) (string, error) {
	inProgressRoot := v.Stage(StageInProgress).Dir()
	entries, err := os.ReadDir(inProgressRoot)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			holder := v.InProgress(entry.Name())
			if holder.Exists(name) {
				return "", fmt.Errorf("%s claimed by %s: %w", name, entry.Name(), mcerrors.ErrAlreadyClaimed)
			}
		}
	}

	return v.Stage(StageNeedsAction).Take(name, v.InProgress(agent))
}
