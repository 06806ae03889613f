// Package messenger abstracts the outbound message transport used to reach
// patients and physicians. The core pipeline only depends on the Messenger
// interface; the WhatsApp Cloud API adapter lives in whatsapp.go.
package messenger

import "context"

// Messenger delivers text messages to a phone number and acknowledges
// inbound messages as read.
type Messenger interface {
	Send(ctx context.Context, phone, text string) error
	MarkRead(ctx context.Context, messageID string) error
}
