// Package watch turns external stimuli into work items in Needs_Action/.
package watch

import "context"

// Watcher polls one external source and creates work items for anything new.
// RunOnce returns the number of items created.
type Watcher interface {
	RunOnce(ctx context.Context) (int, error)
}
