// Package gemini exposes Google Gemini as an eino chat model so the
// completion gateway can treat it like any other provider.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Config holds the Gemini connection settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// ChatModel implements model.ChatModel on top of the GenAI SDK.
type ChatModel struct {
	client *genai.Client
	cfg    Config
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel creates a Gemini-backed chat model.
func NewChatModel(ctx context.Context, cfg Config) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &ChatModel{client: client, cfg: cfg}, nil
}

// Generate sends the conversation and returns the assistant reply.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		Model:       &m.cfg.Model,
	}, opts...)

	system, contents := toContents(input)
	if len(contents) == 0 {
		return nil, errors.New("gemini request has no conversation turns")
	}

	config := &genai.GenerateContentConfig{SystemInstruction: system}
	if options.Temperature != nil {
		config.Temperature = genai.Ptr(*options.Temperature)
	}
	if options.MaxTokens != nil {
		config.MaxOutputTokens = int32(*options.MaxTokens)
	}

	modelName := m.cfg.Model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	resp, err := m.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	return schema.AssistantMessage(resp.Text(), nil), nil
}

// Stream produces the full reply as a single chunk.
func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is not supported; consultations never call tools.
func (m *ChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("gemini chat model does not support tools")
}

// toContents splits system messages into the system instruction and maps the
// rest onto Gemini's user/model roles.
func toContents(input []*schema.Message) (*genai.Content, []*genai.Content) {
	var systemParts []string
	contents := make([]*genai.Content, 0, len(input))

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			systemParts = append(systemParts, msg.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(systemParts) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser), contents
}
