// Package app assembles the consultation engine from configuration for the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/config"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/session"
)

// Build loads templates, connects the configured provider and returns a ready
// engine together with its template registry.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*consult.Engine, mode.Registry, error) {
	templates, err := cfg.AI.Templates()
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init %s chat model: %w", cfg.AI.Provider, err)
	}

	gateway, err := ai.NewGateway(chatModel,
		ai.WithTimeout(cfg.AI.Timeout),
		ai.WithGatewayLogger(logger.Named("gateway")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init gateway: %w", err)
	}

	engine, err := consult.NewEngine(session.NewStore(), templates, gateway,
		consult.WithParams(cfg.AI.Params()),
		consult.WithHistoryWindow(cfg.AI.HistoryWindow),
		consult.WithLogger(logger.Named("engine")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init engine: %w", err)
	}

	logger.Info("consultation engine ready",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", cfg.AI.Model),
		zap.Int("templates", len(templates.List())),
		zap.Int("history_window", cfg.AI.HistoryWindow))
	return engine, templates, nil
}
