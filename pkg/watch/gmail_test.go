package watch

import (
	"encoding/base64"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func TestParseMessage(t *testing.T) {
	body := base64.URLEncoding.EncodeToString([]byte("Please review the attached."))
	msg := &gmail.Message{
		Id:       "18c2a9f4aabbccdd",
		LabelIds: []string{"UNREAD", "INBOX"},
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "boss@example.com"},
				{Name: "Subject", Value: "Quarterly numbers"},
				{Name: "Date", Value: "Thu, 27 Aug 2026 10:00:00 +0000"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "aWdub3JlZA"}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: body}},
			},
		},
	}

	got := parseMessage(msg)
	if got.From != "boss@example.com" || got.Subject != "Quarterly numbers" {
		t.Errorf("headers = %+v", got)
	}
	if got.Body != "Please review the attached." {
		t.Errorf("body = %q", got.Body)
	}
	if got.ID != "18c2a9f4aabbccdd" {
		t.Errorf("id = %q", got.ID)
	}
}

func TestParseMessageDefaults(t *testing.T) {
	got := parseMessage(&gmail.Message{Id: "x"})
	if got.From != "unknown" || got.Subject != "(no subject)" {
		t.Errorf("defaults = %+v", got)
	}
}
