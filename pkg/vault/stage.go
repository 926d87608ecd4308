package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mcerrors "github.com/otherjamesbrown/mycroft/pkg/errors"
)

// Stage names a pipeline container. The values are the literal folder names
// inside the vault, which humans and Obsidian interact with directly.
type Stage string

const (
	StageNeedsAction     Stage = "Needs_Action"
	StagePlans           Stage = "Plans"
	StagePendingApproval Stage = "Pending_Approval"
	StageApproved        Stage = "Approved"
	StageRejected        Stage = "Rejected"
	StageDone            Stage = "Done"
	StageLogs            Stage = "Logs"
	StageIncomingFiles   Stage = "Incoming_Files"
	StageQuarantine      Stage = "Quarantine"
	StageInProgress      Stage = "In_Progress"
	StageUpdates         Stage = "Updates"
)

// Stages returns every folder the vault layout contains.
func Stages() []Stage {
	return []Stage{
		StageNeedsAction,
		StagePlans,
		StagePendingApproval,
		StageApproved,
		StageRejected,
		StageDone,
		StageLogs,
		StageIncomingFiles,
		StageQuarantine,
		StageInProgress,
		StageUpdates,
	}
}

// Item is a reference to one document inside a container.
type Item struct {
	Name string
	Path string
}

// Container is one stage folder. All item transitions go through Take, which
// enforces move semantics: an item lives in exactly one container at a time.
type Container struct {
	dir   string
	stage Stage
}

// Stage returns the container's stage name.
func (c *Container) Stage() Stage {
	return c.stage
}

// Dir returns the container's directory path.
func (c *Container) Dir() string {
	return c.dir
}

// PathTo returns the path an item with the given name would occupy.
func (c *Container) PathTo(name string) string {
	return filepath.Join(c.dir, name)
}

// Exists reports whether an item with the given name is present.
func (c *Container) Exists(name string) bool {
	_, err := os.Stat(c.PathTo(name))
	return err == nil
}

// List returns the container's markdown items sorted by filename.
// Hidden files and subdirectories are skipped. A missing container directory
// lists as empty rather than failing, so a partially initialized vault is
// still usable.
func (c *Container) List() ([]Item, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", c.stage, err)
	}

	var items []Item
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		items = append(items, Item{Name: name, Path: filepath.Join(c.dir, name)})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Read returns the content of the named item.
func (c *Container) Read(name string) (string, error) {
	data, err := os.ReadFile(c.PathTo(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s/%s: %w", c.stage, name, mcerrors.ErrNotFound)
		}
		return "", fmt.Errorf("reading %s/%s: %w", c.stage, name, err)
	}
	return string(data), nil
}

// Put writes an item atomically: content goes to a hidden temp file first,
// then a rename publishes it. A concurrent reader never observes a partial
// document.
func (c *Container) Put(name, content string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.stage, err)
	}

	tmp := filepath.Join(c.dir, ".tmp-"+name)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s/%s: %w", c.stage, name, err)
	}
	if err := os.Rename(tmp, c.PathTo(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing %s/%s: %w", c.stage, name, err)
	}
	return nil
}

// Take moves the named item into dst and returns its new path. The move is
// write-then-delete: the destination is fully written before the source is
// removed, so a crash can duplicate work but never lose an item. Taking onto
// an existing destination item fails with ErrAlreadyExists.
func (c *Container) Take(name string, dst *Container) (string, error) {
	src := c.PathTo(name)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%s/%s: %w", c.stage, name, mcerrors.ErrNotFound)
	}
	if dst.Exists(name) {
		return "", fmt.Errorf("%s/%s: %w", dst.stage, name, mcerrors.ErrAlreadyExists)
	}
	if err := os.MkdirAll(dst.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dst.stage, err)
	}

	dstPath := dst.PathTo(name)
	if err := os.Rename(src, dstPath); err == nil {
		return dstPath, nil
	}

	// Rename failed (cross-device vault layouts): copy, publish, then delete.
	content, err := c.Read(name)
	if err != nil {
		return "", err
	}
	if err := dst.Put(name, content); err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("removing %s/%s after move: %w", c.stage, name, err)
	}
	return dstPath, nil
}

// Remove deletes the named item. Removing a missing item is not an error.
func (c *Container) Remove(name string) error {
	if err := os.Remove(c.PathTo(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s/%s: %w", c.stage, name, err)
	}
	return nil
}
