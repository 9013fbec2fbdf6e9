package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

func msg(role chat.Role, content string) chat.Message {
	return chat.NewMessage(role, content, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
}

func TestBufferKeepsInsertionOrder(t *testing.T) {
	b := newBuffer(nil)
	b.Append(msg(chat.RoleUser, "one"))
	b.Append(msg(chat.RoleUser, "two"))
	b.Append(msg(chat.RoleAssistant, "three"))

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "one", snap[0].Content)
	assert.Equal(t, "two", snap[1].Content)
	assert.Equal(t, "three", snap[2].Content)
}

func TestBufferSnapshotIsDetached(t *testing.T) {
	b := newBuffer(nil)
	b.Append(msg(chat.RoleUser, "hello"))

	snap := b.Snapshot()
	snap[0].Content = "mutated"
	_ = append(snap, msg(chat.RoleAssistant, "extra"))

	again := b.Snapshot()
	require.Len(t, again, 1)
	assert.Equal(t, "hello", again[0].Content)
}

func TestBufferTail(t *testing.T) {
	b := newBuffer(nil)
	for _, c := range []string{"a", "b", "c", "d"} {
		b.Append(msg(chat.RoleUser, c))
	}

	tail := b.Tail(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "c", tail[0].Content)
	assert.Equal(t, "d", tail[1].Content)

	assert.Len(t, b.Tail(0), 4)
	assert.Len(t, b.Tail(10), 4)
	assert.Equal(t, 4, b.Len())
}

func TestBufferClearAndLast(t *testing.T) {
	b := newBuffer(nil)
	_, ok := b.Last()
	assert.False(t, ok)

	b.Append(msg(chat.RoleUser, "q"))
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "q", last.Content)

	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Snapshot())
}
