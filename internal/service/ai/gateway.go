package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/model/chat"
)

// Gateway sends one instruction plus history to the chat model and returns
// the assistant reply. It never retries.
type Gateway struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithTimeout bounds each provider call; zero disables the bound.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithGatewayClock overrides the timestamp source for replies.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithGatewayLogger attaches a logger.
func WithGatewayLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway wraps a chat model.
func NewGateway(chatModel model.BaseChatModel, opts ...GatewayOption) (*Gateway, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	g := &Gateway{
		chatModel: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{instruction}"),
			schema.MessagesPlaceholder("history", false),
		),
		now:    func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Complete builds [system instruction, history...] and asks the model for one reply.
func (g *Gateway) Complete(ctx context.Context, instruction string, history []chat.Message, params Params) (chat.Message, error) {
	if err := params.Validate(); err != nil {
		return chat.Message{}, err
	}

	messages, err := g.buildMessages(ctx, instruction, history)
	if err != nil {
		return chat.Message{}, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	response, err := g.chatModel.Generate(ctx, messages,
		model.WithTemperature(params.Temperature),
		model.WithMaxTokens(params.MaxOutputTokens),
	)
	if err != nil {
		failure := Classify(err)
		g.logger.Warn("completion failed",
			zap.String("kind", string(failure.Kind)),
			zap.Int("status", failure.Status),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return chat.Message{}, failure
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return chat.Message{}, &Failure{Kind: KindProvider, Err: errors.New("malformed response: empty completion")}
	}

	g.logger.Debug("completion finished",
		zap.Int("history", len(history)),
		zap.Int("length", len(response.Content)),
		zap.Duration("elapsed", time.Since(started)))

	return chat.NewMessage(chat.RoleAssistant, response.Content, g.now()), nil
}

func (g *Gateway) buildMessages(ctx context.Context, instruction string, history []chat.Message) ([]*schema.Message, error) {
	converted := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			converted = append(converted, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			converted = append(converted, schema.AssistantMessage(msg.Content, nil))
		}
	}

	messages, err := g.template.Format(ctx, map[string]any{
		"instruction": instruction,
		"history":     converted,
	})
	if err != nil {
		return nil, fmt.Errorf("format request: %w", err)
	}
	return messages, nil
}
