package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single chat message. A Message value is never mutated
// after creation; streaming updates replace the conversation's last message
// with a new value carrying the same ID, role and timestamp.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id and the current time.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WithContent returns a copy of m carrying new content. ID, role and
// timestamp are preserved so the message keeps its identity across
// streaming updates.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// Conversation is an ordered transcript of messages plus display metadata.
// Messages are append-only except that the final element may be replaced
// while a response is streaming into it.
type Conversation struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"last_updated"`
}
