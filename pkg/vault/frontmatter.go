package vault

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter lines for the reply block embedded in a plan body.
const (
	BeginReplyMarker = "---BEGIN REPLY---"
	EndReplyMarker   = "---END REPLY---"
)

const frontmatterDelimiter = "---"

// Frontmatter is the typed header block of a vault document. Work items and
// plans share the type; unused fields stay empty and are omitted on render.
type Frontmatter struct {
	// Work item fields, written by watchers.
	Type     string `yaml:"type,omitempty"`
	From     string `yaml:"from,omitempty"`
	Date     string `yaml:"date,omitempty"`
	Priority string `yaml:"priority,omitempty"`
	GmailID  string `yaml:"gmail_id,omitempty"`

	// File item fields, written by the file watcher.
	Filename   string `yaml:"filename,omitempty"`
	Extension  string `yaml:"extension,omitempty"`
	DetectedAt string `yaml:"detected_at,omitempty"`
	SizeBytes  int64  `yaml:"size_bytes,omitempty"`
	Extracted  bool   `yaml:"extracted,omitempty"`

	// Plan fields, written by the orchestrator.
	Source     string  `yaml:"source,omitempty"`
	Created    string  `yaml:"created,omitempty"`
	Status     string  `yaml:"status,omitempty"`
	Confidence float64 `yaml:"confidence,omitempty"`
	Action     string  `yaml:"action,omitempty"`
	To         string  `yaml:"to,omitempty"`

	// Shared by both.
	Subject string `yaml:"subject,omitempty"`

	// Quarantine bookkeeping, written by the retry sweep.
	QuarantineReason string `yaml:"quarantine_reason,omitempty"`
	QuarantinedAt    string `yaml:"quarantined_at,omitempty"`
	RetryCount       int    `yaml:"retry_count,omitempty"`
}

// ParseFrontmatter splits a document into its frontmatter header and body.
// Parsing is tolerant: a document without a delimiter block, or with a header
// that fails to parse, yields a zero Frontmatter and the whole document as
// body. It never returns an error.
func ParseFrontmatter(doc string) (Frontmatter, string) {
	var fm Frontmatter

	rest, ok := strings.CutPrefix(doc, frontmatterDelimiter+"\n")
	if !ok {
		return fm, doc
	}

	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return fm, doc
	}

	header := rest[:end]
	body := rest[end+len("\n"+frontmatterDelimiter):]
	// Drop the remainder of the delimiter line and one blank separator line.
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Frontmatter{}, doc
	}
	return fm, body
}

// RenderDocument serializes a frontmatter header and body into a vault document.
func RenderDocument(fm Frontmatter, body string) string {
	header, err := yaml.Marshal(&fm)
	if err != nil {
		// Marshal of a plain struct cannot fail; keep the document usable anyway.
		header = nil
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	b.Write(header)
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// ExtractBlock returns the text strictly between the two literal marker lines,
// trimmed of surrounding whitespace. The second return is false when either
// marker is missing, so callers can distinguish "no block" from "empty block".
func ExtractBlock(doc, begin, end string) (string, bool) {
	start := strings.Index(doc, begin)
	if start < 0 {
		return "", false
	}
	rest := doc[start+len(begin):]
	stop := strings.Index(rest, end)
	if stop < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:stop]), true
}

// ExtractReply returns the reply body delimited by the reply markers.
func ExtractReply(doc string) (string, bool) {
	return ExtractBlock(doc, BeginReplyMarker, EndReplyMarker)
}
