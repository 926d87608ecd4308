// Package mail sends approved replies through Gmail.
package mail

import "context"

// OutgoingReply is one approved reply ready to send.
type OutgoingReply struct {
	// GmailID is the message being replied to. When set, the reply is
	// threaded onto the original conversation.
	GmailID string
	To      string
	Subject string
	Body    string
}

// Sender delivers replies. Implementations return the provider's message ID.
type Sender interface {
	SendReply(ctx context.Context, reply OutgoingReply) (string, error)
}
