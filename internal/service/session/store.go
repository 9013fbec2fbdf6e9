package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoActiveSession   = errors.New("no active session")
	ErrWriteFailure      = errors.New("transcript write failed")
	ErrCorruptTranscript = errors.New("transcript is unreadable")
)

const defaultName = "Untitled"

// Session is a named conversation owned by a Store.
type Session struct {
	info   chat.Info
	buffer *Buffer
	turn   sync.Mutex
}

// Info returns the session metadata.
func (s *Session) Info() chat.Info { return s.info }

// ID returns the session identifier.
func (s *Session) ID() string { return s.info.ID }

// Buffer exposes the session history.
func (s *Session) Buffer() *Buffer { return s.buffer }

// LockTurn serializes turns on this session. Call the returned func to release.
func (s *Session) LockTurn() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

// Store keeps every session of the process plus the current-session pointer.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	seq     uint64
	order   []string
	items   map[string]*Session
	current string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		items: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new session and makes it current.
func (s *Store) Create(name string) chat.Info {
	now := s.now()
	return s.insert(name, now, now, nil)
}

// insert stamps the id with idTime; createdAt may differ for imported sessions.
func (s *Store) insert(name string, idTime, createdAt time.Time, history []chat.Message) chat.Info {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The sequence number keeps ids unique when two sessions share a clock tick.
	s.seq++
	info := chat.Info{
		ID:        fmt.Sprintf("session_%s_%d", idTime.Format("20060102_150405"), s.seq),
		Name:      name,
		CreatedAt: createdAt,
	}

	s.items[info.ID] = &Session{info: info, buffer: newBuffer(history)}
	s.order = append(s.order, info.ID)
	s.current = info.ID
	return info
}

// Get looks up a session by id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Current returns the session the current pointer designates.
func (s *Store) Current() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == "" {
		return nil, false
	}
	sess, ok := s.items[s.current]
	return sess, ok
}

// Select moves the current pointer to id.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.current = id
	return nil
}

// List returns session metadata in creation order.
func (s *Store) List() []chat.Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chat.Info, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].info)
	}
	return out
}

// resolve maps an empty id to the current session.
func (s *Store) resolve(id string) (*Session, error) {
	if id != "" {
		return s.Get(id)
	}
	sess, ok := s.Current()
	if !ok {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}
