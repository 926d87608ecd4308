package classify

import "strings"

// DefaultUrgentKeywords flag a message as high priority when present in the
// subject or body.
var DefaultUrgentKeywords = []string{"urgent", "asap", "deadline", "overdue"}

// newsletterMarkers are sender substrings that indicate bulk mail.
var newsletterMarkers = []string{
	"newsletter",
	"noreply",
	"no-reply",
	"notifications",
	"mailer-daemon",
	"marketing",
}

// Classifier assigns a priority to incoming mail based on sender and subject.
type Classifier struct {
	vipSenders     []string
	urgentKeywords []string
}

// Option configures the classifier.
type Option func(*Classifier)

// WithVIPSenders sets the sender addresses that always classify as high
// priority. Matching is a case-insensitive equality check on the address.
func WithVIPSenders(senders []string) Option {
	return func(c *Classifier) {
		c.vipSenders = senders
	}
}

// WithUrgentKeywords replaces the default urgency keyword list.
func WithUrgentKeywords(keywords []string) Option {
	return func(c *Classifier) {
		c.urgentKeywords = keywords
	}
}

// NewClassifier creates a classifier with the default keyword list.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		urgentKeywords: DefaultUrgentKeywords,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classification is the outcome of one priority decision.
type Classification struct {
	Priority Priority
	Rule     string
	Reason   string
}

// priorityRule defines one classification rule. Rules apply in slice order;
// the first match wins.
type priorityRule struct {
	name     string
	priority Priority
	reason   string
	matches  func(c *Classifier, from, subject, body string) bool
}

var priorityRules = []priorityRule{
	{
		name:     "urgent_keyword",
		priority: PriorityHigh,
		reason:   "Subject or body contains an urgency keyword",
		matches: func(c *Classifier, from, subject, body string) bool {
			subjectLower := strings.ToLower(subject)
			bodyLower := strings.ToLower(body)
			for _, kw := range c.urgentKeywords {
				kwLower := strings.ToLower(kw)
				if strings.Contains(subjectLower, kwLower) || strings.Contains(bodyLower, kwLower) {
					return true
				}
			}
			return false
		},
	},
	// VIP outranks the newsletter rule: a VIP using a no-reply alias still
	// classifies high.
	{
		name:     "vip_sender",
		priority: PriorityHigh,
		reason:   "Sender is on the VIP list",
		matches: func(c *Classifier, from, subject, body string) bool {
			fromLower := strings.ToLower(strings.TrimSpace(from))
			for _, vip := range c.vipSenders {
				if fromLower == strings.ToLower(strings.TrimSpace(vip)) {
					return true
				}
			}
			return false
		},
	},
	{
		name:     "newsletter_sender",
		priority: PriorityLow,
		reason:   "Sender address looks like bulk mail",
		matches: func(c *Classifier, from, subject, body string) bool {
			fromLower := strings.ToLower(from)
			for _, marker := range newsletterMarkers {
				if strings.Contains(fromLower, marker) {
					return true
				}
			}
			return false
		},
	},
}

// Classify applies the priority rules in order and returns the first match.
// Unmatched mail is normal priority.
func (c *Classifier) Classify(from, subject, body string) Classification {
	for _, rule := range priorityRules {
		if rule.matches(c, from, subject, body) {
			return Classification{
				Priority: rule.priority,
				Rule:     rule.name,
				Reason:   rule.reason,
			}
		}
	}
	return Classification{
		Priority: PriorityNormal,
		Rule:     "default",
		Reason:   "No rule matched",
	}
}
