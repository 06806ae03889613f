package webhook

import (
	"strconv"
	"time"

	"github.com/aftercare/aftercare/internal/domain/conversation"
)

// Envelope is the WhatsApp Cloud API webhook payload. One delivery may
// carry zero or more messages and/or status events.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type Message struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *Text        `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Interactive struct {
	Type        string       `json:"type"`
	ButtonReply *ButtonReply `json:"button_reply,omitempty"`
	ListReply   *ListReply   `json:"list_reply,omitempty"`
}

type ButtonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ListReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Status is a delivery receipt for an outbound message. Consumed for
// logging only.
type Status struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// InboundMessages flattens the envelope into the processing model,
// skipping message types that carry no usable text.
func (e *Envelope) InboundMessages() []conversation.InboundMessage {
	var out []conversation.InboundMessage
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				text := m.Body()
				if text == "" {
					continue
				}
				out = append(out, conversation.InboundMessage{
					MessageID:  m.ID,
					FromPhone:  m.From,
					Text:       text,
					ReceivedAt: m.Time(),
				})
			}
		}
	}
	return out
}

// Body returns the usable text content of a message: plain text, or the
// title of an interactive button/list reply.
func (m *Message) Body() string {
	if m.Text != nil {
		return m.Text.Body
	}
	if m.Interactive != nil {
		if m.Interactive.ButtonReply != nil {
			return m.Interactive.ButtonReply.Title
		}
		if m.Interactive.ListReply != nil {
			return m.Interactive.ListReply.Title
		}
	}
	return ""
}

// Time parses the provider's unix-seconds timestamp, falling back to
// now when it is malformed.
func (m *Message) Time() time.Time {
	secs, err := strconv.ParseInt(m.Timestamp, 10, 64)
	if err != nil {
		return time.Now()
	}
	return time.Unix(secs, 0)
}
