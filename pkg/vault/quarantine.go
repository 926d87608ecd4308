package vault

import (
	"fmt"
	"time"
)

// Quarantine defaults. Items rest in quarantine for a minimum age before the
// retry sweep considers them, and give up after a bounded number of attempts.
const (
	DefaultQuarantineMinAge     = 5 * time.Minute
	DefaultQuarantineMaxRetries = 3
)

// QuarantineItem moves an item that failed processing from its container into
// Quarantine/, recording the failure reason and bumping the retry counter in
// the item's frontmatter.
func (v *Vault) QuarantineItem(from *Container, name, reason string) error {
	content, err := from.Read(name)
	if err != nil {
		return err
	}

	fm, body := ParseFrontmatter(content)
	fm.QuarantineReason = reason
	fm.QuarantinedAt = time.Now().UTC().Format(time.RFC3339)
	fm.RetryCount++

	quarantine := v.Stage(StageQuarantine)
	if err := quarantine.Put(name, RenderDocument(fm, body)); err != nil {
		return fmt.Errorf("quarantining %s: %w", name, err)
	}
	if err := from.Remove(name); err != nil {
		return err
	}
	return nil
}

// RestoreQuarantined moves quarantined items older than minAge back to
// Needs_Action/ with their quarantine metadata stripped, and returns the names
// restored. Items that already used up maxRetries attempts stay put for a
// human to look at.
func (v *Vault) RestoreQuarantined(minAge time.Duration, maxRetries int) ([]string, error) {
	quarantine := v.Stage(StageQuarantine)
	needsAction := v.Stage(StageNeedsAction)

	items, err := quarantine.List()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var restored []string

	for _, item := range items {
		content, err := quarantine.Read(item.Name)
		if err != nil {
			continue
		}

		fm, body := ParseFrontmatter(content)
		if fm.RetryCount > maxRetries {
			continue
		}
		if fm.QuarantinedAt != "" {
			at, err := time.Parse(time.RFC3339, fm.QuarantinedAt)
			if err == nil && now.Sub(at) < minAge {
				continue
			}
			// An unparsable timestamp counts as old enough to retry.
		}

		fm.QuarantineReason = ""
		fm.QuarantinedAt = ""

		if err := needsAction.Put(item.Name, RenderDocument(fm, body)); err != nil {
			return restored, err
		}
		if err := quarantine.Remove(item.Name); err != nil {
			return restored, err
		}
		restored = append(restored, item.Name)
	}

	return restored, nil
}
