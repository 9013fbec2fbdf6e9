package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable entry of a conversation. System messages are only
// built when a request is assembled and never stored in a session.
type Message struct {
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// NewMessage stamps a message with a fresh id and the supplied time.
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}
