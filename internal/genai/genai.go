// Package genai provides the AI question-answering client used by the
// assistant flow, backed by OpenRouter's OpenAI-compatible API.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults for the OpenRouter client.
const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "openrouter/auto"
	DefaultTimeout   = 30 * time.Second
	defaultMaxTokens = 500
)

// KnowledgeError wraps any failure of the knowledge service: network, auth,
// rate limit or timeout. Flows treat all kinds the same way.
type KnowledgeError struct {
	Err error
}

func (e *KnowledgeError) Error() string {
	return fmt.Sprintf("knowledge request failed: %v", e.Err)
}

func (e *KnowledgeError) Unwrap() error { return e.Err }

// completionService is the minimal chat-completion surface used by Ask.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configuration options for the knowledge client.
type Opts struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Option defines a configuration option for the knowledge client.
type Option func(*Opts)

// WithAPIKey sets the OpenRouter API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel overrides the model identifier.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.Timeout = timeout }
}

// Client answers user questions through a chat-completion model.
type Client struct {
	completions completionService
	model       string
	timeout     time.Duration
}

// NewClient initializes a knowledge client, falling back to the
// OPENROUTER_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey), option.WithBaseURL(cfg.BaseURL))
	slog.Debug("Knowledge client created", "model", cfg.Model, "timeout", cfg.Timeout)
	return &Client{completions: &cli.Chat.Completions, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Ask answers a question in the voice constrained by systemPrompt, addressing
// the user by name. The request is bounded by the configured timeout.
func (c *Client) Ask(ctx context.Context, question, userName, systemPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := question
	if userName != "" {
		prompt = fmt.Sprintf("Usuario: %s\n\n%s", userName, question)
	}

	resp, err := c.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(defaultMaxTokens),
	})
	if err != nil {
		slog.Error("Knowledge request failed", "error", err, "model", c.model)
		return "", &KnowledgeError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &KnowledgeError{Err: fmt.Errorf("no choices returned")}
	}

	slog.Debug("Knowledge request succeeded", "model", c.model, "answer_length", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
