package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PlaceholderTitle is the title a conversation carries until one is generated or set.
const PlaceholderTitle = "Untitled chat"

type Message struct {
	Role    Role    `json:"role" yaml:"role"`
	Content Content `json:"content" yaml:"content"`
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: Text(text)}
}

// Millis is a Unix timestamp in milliseconds, the format the chats blob uses.
type Millis int64

func MillisOf(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

type Conversation struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Created  Millis    `json:"created" yaml:"created"`
	LastUsed Millis    `json:"lastUsed,omitempty" yaml:"last_used,omitempty"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// LastActivity returns LastUsed, falling back to Created for records
// written before LastUsed existed.
func (c *Conversation) LastActivity() Millis {
	if c.LastUsed != 0 {
		return c.LastUsed
	}
	return c.Created
}

// Attachment is an uploaded file waiting to be folded into the next user message.
type Attachment struct {
	URL       string `json:"url"`
	MediaType string `json:"type"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MediaType, "image/")
}
