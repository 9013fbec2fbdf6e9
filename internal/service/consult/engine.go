package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/model/chat"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/session"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrNothingToRetry  = errors.New("last message is not an unanswered user message")
	ErrUnknownWorkflow = errors.New("unknown workflow")
)

// Completer is the completion gateway contract the engine depends on.
type Completer interface {
	Complete(ctx context.Context, instruction string, history []chat.Message, params ai.Params) (chat.Message, error)
}

// Engine orchestrates turns: template selection, dialogue state and the
// provider call. Construct one per process and share it between shells.
type Engine struct {
	store         *session.Store
	templates     mode.Registry
	gateway       Completer
	params        ai.Params
	historyWindow int
	now           func() time.Time
	logger        *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithParams sets the default generation parameters.
func WithParams(p ai.Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithHistoryWindow limits how many buffered messages are sent per request.
// Zero sends the whole buffer.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.historyWindow = n
		}
	}
}

// WithClock overrides the timestamp source for user messages.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine wires the store, template registry and gateway together.
func NewEngine(store *session.Store, templates mode.Registry, gateway Completer, opts ...Option) (*Engine, error) {
	if store == nil || templates == nil || gateway == nil {
		return nil, errors.New("store, templates and gateway are required")
	}

	e := &Engine{
		store:     store,
		templates: templates,
		gateway:   gateway,
		params:    ai.DefaultParams(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// TurnOption overrides generation parameters for a single call.
type TurnOption func(*ai.Params)

// WithTemperature overrides the temperature for one turn.
func WithTemperature(t float32) TurnOption {
	return func(p *ai.Params) { p.Temperature = t }
}

// WithMaxOutputTokens overrides the output token limit for one turn.
func WithMaxOutputTokens(n int) TurnOption {
	return func(p *ai.Params) { p.MaxOutputTokens = n }
}

func (e *Engine) paramsFor(opts []TurnOption) (ai.Params, error) {
	p := e.params
	for _, opt := range opts {
		opt(&p)
	}
	return p, p.Validate()
}

// Turn appends the user's text to the session, asks the provider for a reply
// and appends the reply. On failure the user message stays as the last entry
// and the classified error is returned unchanged.
func (e *Engine) Turn(ctx context.Context, sessionID string, m mode.Mode, text string, opts ...TurnOption) (string, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}
	tpl, err := e.templates.Resolve(m)
	if err != nil {
		return "", err
	}
	params, err := e.paramsFor(opts)
	if err != nil {
		return "", err
	}

	unlock := sess.LockTurn()
	defer unlock()

	// Committed before the provider call so a failed or cancelled turn keeps the input.
	sess.Buffer().Append(chat.NewMessage(chat.RoleUser, text, e.now()))

	return e.complete(ctx, sess, tpl, params)
}

// RetryLast re-sends the buffer when its last entry is an unanswered user
// message, without appending that message again.
func (e *Engine) RetryLast(ctx context.Context, sessionID string, m mode.Mode, opts ...TurnOption) (string, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return "", err
	}
	tpl, err := e.templates.Resolve(m)
	if err != nil {
		return "", err
	}
	params, err := e.paramsFor(opts)
	if err != nil {
		return "", err
	}

	unlock := sess.LockTurn()
	defer unlock()

	last, ok := sess.Buffer().Last()
	if !ok || last.Role != chat.RoleUser {
		return "", ErrNothingToRetry
	}

	return e.complete(ctx, sess, tpl, params)
}

// complete runs the provider call; the caller holds the session's turn lock.
func (e *Engine) complete(ctx context.Context, sess *session.Session, tpl mode.Template, params ai.Params) (string, error) {
	history := sess.Buffer().Tail(e.historyWindow)

	started := time.Now()
	reply, err := e.gateway.Complete(ctx, tpl.Instruction, history, params)
	if err != nil {
		e.logger.Warn("turn failed",
			zap.String("session", sess.ID()),
			zap.String("mode", string(tpl.Mode)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return "", err
	}

	sess.Buffer().Append(reply)
	e.logger.Info("turn completed",
		zap.String("session", sess.ID()),
		zap.String("mode", string(tpl.Mode)),
		zap.Int("buffered", sess.Buffer().Len()),
		zap.Int("length", len(reply.Content)),
		zap.Duration("elapsed", time.Since(started)))
	return reply.Content, nil
}

// Reset clears the session history while keeping its id, name and creation time.
func (e *Engine) Reset(sessionID string) error {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return err
	}
	unlock := sess.LockTurn()
	defer unlock()

	sess.Buffer().Clear()
	e.logger.Info("session reset", zap.String("session", sessionID))
	return nil
}

// CreateSession registers a named session and makes it current.
func (e *Engine) CreateSession(name string) chat.Info {
	info := e.store.Create(name)
	e.logger.Info("session created", zap.String("session", info.ID), zap.String("name", info.Name))
	return info
}

// ListSessions returns sessions in creation order.
func (e *Engine) ListSessions() []chat.Info {
	return e.store.List()
}

// CurrentSession returns the current session metadata, if any.
func (e *Engine) CurrentSession() (chat.Info, bool) {
	sess, ok := e.store.Current()
	if !ok {
		return chat.Info{}, false
	}
	return sess.Info(), true
}

// SelectSession moves the current pointer.
func (e *Engine) SelectSession(sessionID string) error {
	return e.store.Select(sessionID)
}

// History returns a copy of the session's messages.
func (e *Engine) History(sessionID string) ([]chat.Message, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Buffer().Snapshot(), nil
}

// ExportSession writes the session transcript; an empty id exports the current session.
func (e *Engine) ExportSession(sessionID, path string) error {
	if err := e.store.Export(sessionID, path); err != nil {
		return err
	}
	e.logger.Info("session exported", zap.String("session", sessionID), zap.String("path", path))
	return nil
}

// ImportSession restores an exported transcript as a new current session.
func (e *Engine) ImportSession(path string) (chat.Info, error) {
	info, err := e.store.Import(path)
	if err != nil {
		return chat.Info{}, fmt.Errorf("import %s: %w", path, err)
	}
	e.logger.Info("session imported", zap.String("session", info.ID), zap.String("path", path))
	return info, nil
}

// Modes lists the available instruction templates.
func (e *Engine) Modes() []mode.Template {
	return e.templates.List()
}
