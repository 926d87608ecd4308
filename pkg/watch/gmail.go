package watch

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/otherjamesbrown/mycroft/pkg/classify"
	"github.com/otherjamesbrown/mycroft/pkg/logging"
	"github.com/otherjamesbrown/mycroft/pkg/retry"
	"github.com/otherjamesbrown/mycroft/pkg/vault"
)

// ProcessedLabel marks Gmail messages that already have a work item, so the
// unread query never produces duplicates across runs.
const ProcessedLabel = "Processed-by-FTE"

// DefaultGmailFilter selects the messages worth turning into work items.
const DefaultGmailFilter = "is:unread -label:" + ProcessedLabel

const maxMessagesPerRun = 10

// GmailWatcher polls Gmail for new messages and writes one work item per
// message into Needs_Action/, tagged with a priority from the classifier.
type GmailWatcher struct {
	service    *gmail.Service
	vault      *vault.Vault
	audit      *vault.AuditLog
	classifier *classify.Classifier
	logger     logging.Logger
	filter     string

	processedLabelID string
}

// NewGmailWatcher creates a watcher over the authenticated Gmail account.
// An empty filter uses DefaultGmailFilter.
func NewGmailWatcher(service *gmail.Service, v *vault.Vault, classifier *classify.Classifier, logger logging.Logger, filter string) *GmailWatcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if filter == "" {
		filter = DefaultGmailFilter
	}
	if classifier == nil {
		classifier = classify.NewClassifier()
	}
	return &GmailWatcher{
		service:    service,
		vault:      v,
		audit:      vault.NewAuditLog(v.LogsDir()),
		classifier: classifier,
		logger:     logger,
		filter:     filter,
	}
}

// RunOnce fetches matching messages and creates work items for each. The
// list call retries on transient failures; a rate-limited poll just waits.
func (w *GmailWatcher) RunOnce(ctx context.Context) (int, error) {
	var list *gmail.ListMessagesResponse
	err := retry.Do(ctx, retry.DefaultPolicy(), "gmail_list", func(ctx context.Context) error {
		var listErr error
		list, listErr = w.service.Users.Messages.List("me").
			Q(w.filter).MaxResults(maxMessagesPerRun).Context(ctx).Do()
		return listErr
	})
	if err != nil {
		return 0, fmt.Errorf("listing messages: %w", err)
	}

	count := 0
	for _, ref := range list.Messages {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		msg, err := w.service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			w.logger.Error("could not fetch message",
				logging.F("gmail_id", ref.Id),
				logging.Err(err))
			continue
		}
		if err := w.createWorkItem(ctx, parseMessage(msg)); err != nil {
			w.logger.Error("could not create work item",
				logging.F("gmail_id", ref.Id),
				logging.Err(err))
			continue
		}
		count++
	}
	return count, nil
}

// incomingMessage is the watcher's view of one Gmail message.
type incomingMessage struct {
	ID      string
	From    string
	Subject string
	Date    string
	Body    string
	Labels  []string
}

func parseMessage(msg *gmail.Message) incomingMessage {
	m := incomingMessage{
		ID:      msg.Id,
		From:    "unknown",
		Subject: "(no subject)",
		Date:    time.Now().UTC().Format(time.RFC3339),
		Labels:  msg.LabelIds,
	}
	if msg.Payload == nil {
		return m
	}
	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			m.From = h.Value
		case "subject":
			m.Subject = h.Value
		case "date":
			m.Date = h.Value
		}
	}
	m.Body = extractBody(msg.Payload)
	return m
}

func extractBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(data)
			}
		}
	}
	return ""
}

func (w *GmailWatcher) createWorkItem(ctx context.Context, msg incomingMessage) error {
	priority := w.classifier.Classify(msg.From, msg.Subject, msg.Body)

	slug := vault.Slugify(msg.Subject)
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "no-subject"
	}
	id8 := msg.ID
	if len(id8) > 8 {
		id8 = id8[:8]
	}
	itemName := fmt.Sprintf("email-%s-%s.md", slug, id8)

	fm := vault.Frontmatter{
		Type:     "email",
		From:     msg.From,
		Subject:  msg.Subject,
		Date:     msg.Date,
		Priority: string(priority.Priority),
		GmailID:  msg.ID,
	}
	body := fmt.Sprintf(`# New Email: %s

**From:** %s
**Date:** %s
**Labels:** %s

## Body
%s

## Suggested Actions
- [ ] Reply
- [ ] Forward
- [ ] Archive
`, msg.Subject, msg.From, msg.Date, strings.Join(msg.Labels, ", "), msg.Body)

	if err := w.vault.Stage(vault.StageNeedsAction).Put(itemName, vault.RenderDocument(fm, body)); err != nil {
		return err
	}

	w.audit.Record("gmail_watcher", "email_detected", msg.ID, "action_file_created:"+itemName)
	w.logger.Info("work item created for email",
		logging.F("item", itemName),
		logging.F("from", msg.From),
		logging.F("priority", string(priority.Priority)),
		logging.F("rule", priority.Rule))

	w.markProcessed(ctx, msg.ID)
	return nil
}

// markProcessed labels the message so it never matches the filter again.
// Label failures are logged, not fatal; the filename's gmail_id suffix keeps
// a relabel-failure from producing a second distinct work item.
func (w *GmailWatcher) markProcessed(ctx context.Context, messageID string) {
	labelID, err := w.ensureLabel(ctx)
	if err != nil {
		w.logger.Warn("could not resolve processed label", logging.Err(err))
		return
	}
	_, err = w.service.Users.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		AddLabelIds: []string{labelID},
	}).Context(ctx).Do()
	if err != nil {
		w.logger.Warn("could not label message",
			logging.F("gmail_id", messageID),
			logging.Err(err))
	}
}

func (w *GmailWatcher) ensureLabel(ctx context.Context) (string, error) {
	if w.processedLabelID != "" {
		return w.processedLabelID, nil
	}
	labels, err := w.service.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	for _, label := range labels.Labels {
		if label.Name == ProcessedLabel {
			w.processedLabelID = label.Id
			return label.Id, nil
		}
	}
	created, err := w.service.Users.Labels.Create("me", &gmail.Label{Name: ProcessedLabel}).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	w.processedLabelID = created.Id
	return created.Id, nil
}

var _ Watcher = (*GmailWatcher)(nil)
