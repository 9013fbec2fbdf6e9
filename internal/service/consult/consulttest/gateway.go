// Package consulttest provides an in-memory completion gateway for tests of
// packages built on the consultation engine.
package consulttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zhouzirui/consultant/internal/model/chat"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/session"
)

// Gateway echoes the last buffered message as "re: <text>" unless an error
// has been queued with Fail. A non-zero Delay holds every call that long,
// or until the context ends.
type Gateway struct {
	Delay time.Duration

	mu           sync.Mutex
	errs         []error
	instructions []string
	params       []ai.Params
}

// Fail queues errors returned by the next calls, in order.
func (g *Gateway) Fail(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs = append(g.errs, errs...)
}

// Instructions returns the system instructions received so far.
func (g *Gateway) Instructions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.instructions...)
}

// Params returns the generation parameters received so far.
func (g *Gateway) Params() []ai.Params {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.Params(nil), g.params...)
}

// Complete implements consult.Completer.
func (g *Gateway) Complete(ctx context.Context, instruction string, history []chat.Message, params ai.Params) (chat.Message, error) {
	g.mu.Lock()
	g.instructions = append(g.instructions, instruction)
	g.params = append(g.params, params)
	var err error
	if len(g.errs) > 0 {
		err, g.errs = g.errs[0], g.errs[1:]
	}
	g.mu.Unlock()

	if err != nil {
		return chat.Message{}, err
	}
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return chat.Message{}, ai.Classify(ctxErr)
	}

	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return chat.NewMessage(chat.RoleAssistant, "re: "+last, time.Now().UTC()), nil
}

// NewEngine builds an engine over a fresh store with the embedded templates.
func NewEngine(t testing.TB, gw consult.Completer, opts ...consult.Option) *consult.Engine {
	t.Helper()
	engine, err := consult.NewEngine(session.NewStore(), mode.Default(), gw, opts...)
	if err != nil {
		t.Fatalf("NewEngine err: %v", err)
	}
	return engine
}
