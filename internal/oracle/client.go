// Package oracle implements the language-model backed collaborators of the
// search: identifying a fragment's input and output variables, generating
// a runnable forward harness and an inverse program, compiling and running
// them, and guessing inputs directly.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Client sends one prompt to a language model and returns its reply.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoAPIKey is returned when the configured API key variable is empty.
var ErrNoAPIKey = errors.New("api key not set")

// ClientConfig selects and configures a model provider.
type ClientConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider string `yaml:"provider" validate:"oneof=openai gemini"`
	Model    string `yaml:"model" validate:"required"`
	// BaseURL overrides the OpenAI endpoint, e.g. for a self-hosted gateway.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv   string  `yaml:"api_key_env" validate:"required"`
	Temperature float32 `yaml:"temperature" validate:"gte=0,lte=2"`

	// RequestsPerMinute throttles calls. Zero disables throttling.
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"gte=0"`
	// Timeout bounds each call. Zero means no limit beyond ctx.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultClientConfig targets the OpenAI API.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Provider:          "openai",
		Model:             "gpt-4o-mini",
		APIKeyEnv:         "OPENAI_API_KEY",
		Temperature:       0.5,
		RequestsPerMinute: 30,
		Timeout:           2 * time.Minute,
	}
}

// NewClient builds the configured client, wrapped with throttling and
// logging.
func NewClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: $%s is empty", ErrNoAPIKey, cfg.APIKeyEnv)
	}

	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case "", "openai":
		c = NewOpenAIClient(key, cfg.BaseURL, cfg.Model, cfg.Temperature)
	case "gemini":
		c, err = NewGeminiClient(ctx, key, cfg.Model, cfg.Temperature)
	default:
		err = fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("model client ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return &loggingClient{
		next:    NewRateLimited(c, cfg.RequestsPerMinute),
		timeout: cfg.Timeout,
		logger:  logger.Named("llm"),
	}, nil
}

// loggingClient applies the per-call timeout and logs every exchange at
// debug level.
type loggingClient struct {
	next    Client
	timeout time.Duration
	logger  *zap.Logger
}

func (c *loggingClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	reply, err := c.next.Generate(ctx, prompt)
	llmCalls.WithLabelValues(outcomeLabel(err)).Inc()
	llmLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", err
	}
	c.logger.Debug("model call",
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("reply_bytes", len(reply)),
		zap.Duration("elapsed", time.Since(start)))
	return reply, nil
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
