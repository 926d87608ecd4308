// Package classify assigns processing priority to incoming work items.
package classify

// Priority is a work item's processing priority. Lower rank drains first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the drain order of the priority. High-priority items come
// first; anything unrecognized sorts with normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// ParsePriority maps a frontmatter string to a Priority. Unknown or empty
// values default to normal so a hand-edited item still drains.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return Priority(s)
	default:
		return PriorityNormal
	}
}
