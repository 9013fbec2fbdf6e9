package session

import (
	"sync"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

// Buffer is the ordered, append-only message history of one session.
type Buffer struct {
	mu       sync.RWMutex
	messages []chat.Message
}

func newBuffer(messages []chat.Message) *Buffer {
	b := &Buffer{messages: make([]chat.Message, 0, 16)}
	b.messages = append(b.messages, messages...)
	return b
}

// Append adds msg at the end of the history.
func (b *Buffer) Append(msg chat.Message) {
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
}

// Snapshot returns a copy of the whole history.
func (b *Buffer) Snapshot() []chat.Message {
	return b.Tail(0)
}

// Tail returns a copy of the last n messages; n <= 0 returns everything.
func (b *Buffer) Tail(n int) []chat.Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if n > 0 && len(b.messages) > n {
		start = len(b.messages) - n
	}
	copied := make([]chat.Message, len(b.messages)-start)
	copy(copied, b.messages[start:])
	return copied
}

// Last returns the newest message, if any.
func (b *Buffer) Last() (chat.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.messages) == 0 {
		return chat.Message{}, false
	}
	return b.messages[len(b.messages)-1], true
}

// Len reports the number of buffered messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// Clear drops every message.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.messages = make([]chat.Message, 0, 16)
	b.mu.Unlock()
}
