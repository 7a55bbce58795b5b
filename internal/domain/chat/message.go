// Package chat models direct messages between two marketplace users.
package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/marketplace/orderflow/internal/domain/shared"
)

// MaxMessageLength bounds a single message body
const MaxMessageLength = 2000

// Message is a single chat message. Pending messages were appended locally
// and are not yet acknowledged by the server; their ID is a local one.
type Message struct {
	ID      string
	From    string
	To      string
	Text    string
	SentAt  time.Time
	Pending bool
}

// IsFrom reports whether userID authored the message
func (m Message) IsFrom(userID string) bool {
	return m.From == userID
}

// ValidateText trims and checks a message body before it is sent
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", shared.NewDomainError("EMPTY_MESSAGE", "Message cannot be empty")
	}
	if len([]rune(text)) > MaxMessageLength {
		return "", shared.NewDomainError("MESSAGE_TOO_LONG", "Message is too long")
	}
	return text, nil
}

// ConversationKey identifies the conversation between two users regardless
// of who sends
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Merge combines the server's messages with locally pending ones. Server
// messages win for a shared ID; pending messages stay at the end in their
// original order. The result is sorted by send time.
func Merge(server []Message, pending []Message) []Message {
	seen := make(map[string]struct{}, len(server))
	out := make([]Message, 0, len(server)+len(pending))
	for _, m := range server {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	for _, m := range pending {
		if _, dup := seen[m.ID]; !dup {
			out = append(out, m)
		}
	}
	return out
}
