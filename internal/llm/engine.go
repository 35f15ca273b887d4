package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// Engine is the completion-engine contract the extractors depend on. The
// returned text is expected to contain a JSON object, but the engine gives
// no format guarantee beyond a best-effort JSON-mode hint; callers own all
// recovery.
type Engine interface {
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}

// ChatCompleter mirrors the single go-openai method we call, so any
// OpenAI-compatible backend (vLLM, Ollama, OpenAI) can be stubbed in tests.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	BaseURL string // OpenAI-compatible endpoint
	APIKey  string // "EMPTY" for local deployments
	Model   string
	Timeout time.Duration
}

// Client adapts an OpenAI-compatible chat-completions backend to Engine.
// Construct one per process and pass it by reference into the pipeline.
type Client struct {
	cfg    Config
	chat   ChatCompleter
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434/v1"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "EMPTY"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	return &Client{cfg: cfg, chat: openai.NewClientWithConfig(oc), logger: logger}
}

// NewClientWith builds a Client around an injected backend (tests).
func NewClientWith(cfg Config, chat ChatCompleter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, chat: chat, logger: logger}
}

// Generate runs one chat completion with JSON-object response format.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.logger.Debug("llm.generate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", temperature,
		"max_tokens", maxTokens,
		"prompt_len", len(prompt),
	)

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("llm.generate.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.generate.no_choices", "req_id", rid)
		return "", fmt.Errorf("no choices in completion response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("llm.generate.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// GenerateJSON runs Generate and returns the recovered JSON object text.
func GenerateJSON(ctx context.Context, eng Engine, prompt string, temperature float32, maxTokens int) (string, error) {
	if !strings.Contains(strings.ToLower(prompt), "json") {
		prompt += "\n\nPlease respond with a valid JSON object only."
	}
	text, err := eng.Generate(ctx, prompt, temperature, maxTokens)
	if err != nil {
		return "", err
	}
	return RecoverJSON(text)
}
