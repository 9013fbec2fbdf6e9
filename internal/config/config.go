package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/provider/gemini"
	"github.com/zhouzirui/consultant/internal/service/ai"
)

const (
	ProviderArk    = "ark"
	ProviderGemini = "gemini"
)

// Config aggregates every setting of the service.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Storage StorageConfig
	Log     LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	aiCfg, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      aiCfg,
		Storage: StorageConfig{ExportDir: getEnvOrDefault("EXPORT_DIR", "sessions")},
		Log:     logCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StorageConfig controls where transcripts are written.
type StorageConfig struct {
	ExportDir string
}

// AIConfig describes the completion provider and generation defaults.
type AIConfig struct {
	Provider      string
	Model         string
	APIKey        string
	AccessKey     string
	SecretKey     string
	BaseURL       string
	Region        string
	GeminiAPIKey  string
	Temperature   float32
	MaxTokens     int
	Timeout       time.Duration
	HistoryWindow int
	TemplatesPath string
}

// Enabled reports whether the selected provider has credentials.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != ""
	default:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	}
}

// Params returns the default generation parameters.
func (c AIConfig) Params() ai.Params {
	return ai.Params{Temperature: c.Temperature, MaxOutputTokens: c.MaxTokens}
}

// Templates loads the instruction templates, falling back to the embedded set.
func (c AIConfig) Templates() (*mode.MemoryStore, error) {
	if c.TemplatesPath == "" {
		return mode.Default(), nil
	}
	return mode.LoadFile(c.TemplatesPath)
}

// NewChatModel builds the chat model for the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%s provider credentials or model missing: set ARK_API_KEY + LLM_MODEL, ARK_ACCESS_KEY/ARK_SECRET_KEY, or GEMINI_API_KEY", c.Provider)
	}

	temperature := c.Temperature
	maxTokens := c.MaxTokens

	if c.Provider == ProviderGemini {
		return gemini.NewChatModel(ctx, gemini.Config{
			APIKey:      c.GeminiAPIKey,
			Model:       c.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderArk))
	if provider != ProviderArk && provider != ProviderGemini {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	params := ai.DefaultParams()

	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature != nil {
		params.Temperature = float32(*temperature)
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens != nil {
		params.MaxOutputTokens = *maxTokens
	}

	if err := params.Validate(); err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	window := 0
	if override, err := parseOptionalIntEnv("HISTORY_WINDOW"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		window = *override
	}

	defaultModel := ""
	if provider == ProviderGemini {
		defaultModel = gemini.DefaultModel
	}

	return AIConfig{
		Provider:      provider,
		Model:         getEnvOrDefault("LLM_MODEL", defaultModel),
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		GeminiAPIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Temperature:   params.Temperature,
		MaxTokens:     params.MaxOutputTokens,
		Timeout:       timeout,
		HistoryWindow: window,
		TemplatesPath: strings.TrimSpace(os.Getenv("TEMPLATES_PATH")),
	}, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  zapcore.Level
	Format string
}

// NewLogger builds a console (development) or JSON (production) logger.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if c.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(c.Level)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func loadLogConfig() (LogConfig, error) {
	level, err := zapcore.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return LogConfig{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console"))
	if format != "console" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q", format)
	}

	return LogConfig{Level: level, Format: format}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
