package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/otherjamesbrown/mycroft/pkg/logging"
)

// GmailSender sends replies through the Gmail API on behalf of the
// authenticated user.
type GmailSender struct {
	service *gmail.Service
	logger  logging.Logger
}

// NewGmailSender wraps an authenticated Gmail service.
func NewGmailSender(service *gmail.Service, logger logging.Logger) *GmailSender {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GmailSender{service: service, logger: logger}
}

// SendReply sends the reply, threading it onto the original Gmail
// conversation when the original message is still retrievable.
func (g *GmailSender) SendReply(ctx context.Context, reply OutgoingReply) (string, error) {
	if reply.To == "" {
		return "", fmt.Errorf("reply has no recipient")
	}

	var threadID, origMessageID string
	if reply.GmailID != "" {
		orig, err := g.service.Users.Messages.Get("me", reply.GmailID).
			Format("metadata").MetadataHeaders("Message-ID").Context(ctx).Do()
		if err != nil {
			// The original may have been deleted; send unthreaded rather
			// than fail the reply.
			g.logger.Warn("original message lookup failed, sending unthreaded",
				logging.F("gmail_id", reply.GmailID),
				logging.Err(err))
		} else {
			threadID = orig.ThreadId
			for _, h := range orig.Payload.Headers {
				if strings.EqualFold(h.Name, "Message-ID") {
					origMessageID = h.Value
				}
			}
		}
	}

	raw := buildMIME(reply, origMessageID)
	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: threadID,
	}

	sent, err := g.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send reply to %s: %w", reply.To, err)
	}

	g.logger.Info("reply sent",
		logging.F("to", reply.To),
		logging.F("message_id", sent.Id),
		logging.F("thread_id", sent.ThreadId))
	return sent.Id, nil
}

func buildMIME(reply OutgoingReply, origMessageID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", reply.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", reply.Subject)
	if origMessageID != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", origMessageID)
		fmt.Fprintf(&b, "References: %s\r\n", origMessageID)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(reply.Body)
	return b.String()
}

var _ Sender = (*GmailSender)(nil)
