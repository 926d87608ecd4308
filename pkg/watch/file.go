package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/otherjamesbrown/mycroft/pkg/classify"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// supportedExtensions are the file types the watcher picks up.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// processedDirName is where originals go after a work item is created, so a
// rescan never double-processes them.
const processedDirName = ".processed"

// FileWatcher scans Incoming_Files/ for dropped documents and images.
type FileWatcher struct {
	vault  *vault.Vault
	audit  *vault.AuditLog
	logger logging.Logger
	dryRun bool
}

// NewFileWatcher creates a watcher over the vault's Incoming_Files folder.
// In dry-run mode detected files are logged but no work items are created
// and nothing is moved.
func NewFileWatcher(v *vault.Vault, logger logging.Logger, dryRun bool) *FileWatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileWatcher{
		vault:  v,
		audit:  vault.NewAuditLog(v.LogsDir()),
		logger: logger,
		dryRun: dryRun,
	}
}

func (w *FileWatcher) incomingDir() string {
	return w.vault.Stage(vault.StageIncomingFiles).Dir()
}

// RunOnce scans the incoming folder and creates one work item per new file.
func (w *FileWatcher) RunOnce(ctx context.Context) (int, error) {
	dir := w.incomingDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("scanning incoming files: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if w.dryRun {
			info, _ := os.Stat(filepath.Join(dir, name))
			var size int64
			if info != nil {
				size = info.Size()
			}
			w.logger.Info("dry-run: detected file",
				logging.F("file", name),
				logging.F("size_bytes", size))
			continue
		}
		if err := w.createWorkItem(name); err != nil {
			w.logger.Error("could not process incoming file",
				logging.F("file", name),
				logging.Err(err))
			continue
		}
		count++
	}
	return count, nil
}

func (w *FileWatcher) createWorkItem(fileName string) error {
	srcPath := filepath.Join(w.incomingDir(), fileName)
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	detectedAt := time.Now().UTC().Format(time.RFC3339)

	slug := vault.Slugify(fileName)
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "file"
	}
	// Two drops can share a slug (Report.pdf then report.PDF); a numbered
	// suffix keeps the second from overwriting the first work item.
	needsAction := w.vault.Stage(vault.StageNeedsAction)
	itemName := "file-" + slug + ".md"
	for i := 2; needsAction.Exists(itemName); i++ {
		itemName = fmt.Sprintf("file-%s-%d.md", slug, i)
	}

	fm := vault.Frontmatter{
		Type:       "file",
		Filename:   fileName,
		Extension:  ext,
		DetectedAt: detectedAt,
		SizeBytes:  info.Size(),
		Priority:   string(classify.PriorityNormal),
	}

	body := fmt.Sprintf(`# New File: %s

**Filename:** %s
**Type:** %s
**Detected:** %s
**Size:** %d bytes

## Summary
Pending analysis. Review manually.

## Suggested Actions
- [ ] Review file contents
- [ ] Categorize and file
- [ ] Forward to relevant party
- [ ] Archive
`, fileName, fileName, ext, detectedAt, info.Size())

	if err := needsAction.Put(itemName, vault.RenderDocument(fm, body)); err != nil {
		return err
	}

	// Archive the original so a rescan skips it. The destination gets the
	// same numbered-suffix treatment; rename would silently replace an
	// archived file of the same name.
	processedDir := filepath.Join(w.incomingDir(), processedDirName)
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	origExt := filepath.Ext(fileName)
	dst := filepath.Join(processedDir, fileName)
	for i := 2; ; i++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			break
		}
		dst = filepath.Join(processedDir,
			fmt.Sprintf("%s-%d%s", strings.TrimSuffix(fileName, origExt), i, origExt))
	}
	if err := os.Rename(srcPath, dst); err != nil {
		return fmt.Errorf("archiving %s: %w", fileName, err)
	}

	w.audit.Record("file_watcher", "file_detected", fileName, "action_file_created:"+itemName)
	w.logger.Info("work item created for file",
		logging.F("file", fileName),
		logging.F("item", itemName))
	return nil
}

// Watch blocks, running a scan whenever the incoming folder changes, until
// the context is cancelled. It is an optional alternative to polling RunOnce;
// the polling loop stays authoritative because editors and sync tools do not
// always emit events.
func (w *FileWatcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := os.MkdirAll(w.incomingDir(), 0o755); err != nil {
		return err
	}
	if err := fsw.Add(w.incomingDir()); err != nil {
		return fmt.Errorf("watching %s: %w", w.incomingDir(), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("event-triggered scan failed", logging.Err(err))
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("filesystem watcher error", logging.Err(err))
		}
	}
}

var _ Watcher = (*FileWatcher)(nil)
