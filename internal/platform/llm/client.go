// Package llm is the chat-completions client shared by the planner, the
// extractor and the summarizer. It speaks the OpenAI wire format, which both
// OpenRouter and Groq expose.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"zonescout/internal/platform/config"
	"zonescout/internal/platform/httpclient"
)

// Default endpoints per provider.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
)

// NarrativeTokenCap bounds free-text completions regardless of configuration.
const NarrativeTokenCap = 800

var (
	ErrMissingAPIKey   = errors.New("llm: missing API key")
	ErrPayloadTooLarge = errors.New("llm: input too large for the model (413)")
	ErrRateLimited     = errors.New("llm: rate limited (429)")
	ErrEmptyResponse   = errors.New("llm: response had no choices")
)

// Request is one system+user exchange.
type Request struct {
	System string
	User   string
	// JSON asks the provider for a single JSON object.
	JSON bool
	// MaxTokens overrides the default output cap when positive.
	MaxTokens int
}

// Client sends chat completions.
type Client struct {
	api           *openai.Client
	provider      string
	model         string
	temperature   float32
	maxTokens     int
	jsonMaxTokens int
	hasKey        bool
	logger        *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger     *slog.Logger
	httpClient *http.Client
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// New builds a client for the configured provider. A missing API key is not
// fatal here: every call fails with ErrMissingAPIKey so the pipeline degrades
// instead of refusing to start.
func New(cfg config.LLM, opts ...Option) *Client {
	o := clientOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	provider := strings.ToLower(cfg.Provider)
	if o.httpClient == nil {
		var mw []httpclient.Middleware
		if provider != config.ProviderGroq {
			mw = append(mw, httpclient.WithHeaders(map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			}))
		}
		o.httpClient = httpclient.New(httpclient.TimeoutsFor(cfg.RequestTimeoutSec), mw...)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = BaseURL(provider, cfg.BaseURL)
	apiCfg.HTTPClient = o.httpClient

	if cfg.APIKey == "" {
		o.logger.Warn("llm API key is not set; LLM stages will degrade", "provider", provider)
	}

	return &Client{
		api:           openai.NewClientWithConfig(apiCfg),
		provider:      provider,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		jsonMaxTokens: cfg.JSONMaxTokens,
		hasKey:        cfg.APIKey != "",
		logger:        o.logger,
	}
}

// BaseURL resolves the API root. A configured URL that points at the
// chat/completions path is trimmed back to the root.
func BaseURL(provider, configured string) string {
	u := strings.TrimRight(strings.TrimSpace(configured), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	if u != "" {
		return u
	}
	if provider == config.ProviderGroq {
		return GroqBaseURL
	}
	return OpenRouterBaseURL
}

// Complete sends the request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.hasKey {
		return "", ErrMissingAPIKey
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.defaultMaxTokens(req.JSON)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	c.logger.DebugContext(ctx, "llm request",
		"model", c.model,
		"json", req.JSON,
		"max_tokens", maxTokens,
		"system_len", len(req.System),
		"user_len", len(req.User),
	)

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		err = classify(err)
		c.logger.ErrorContext(ctx, "llm request failed",
			"model", c.model,
			"json", req.JSON,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.DebugContext(ctx, "llm response",
		"model", c.model,
		"finish_reason", resp.Choices[0].FinishReason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) defaultMaxTokens(jsonMode bool) int {
	if jsonMode {
		if c.jsonMaxTokens > 0 {
			return c.jsonMaxTokens
		}
		return 400
	}
	if c.maxTokens <= 0 {
		return NarrativeTokenCap
	}
	return min(c.maxTokens, NarrativeTokenCap)
}

func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("llm request: %w", err)
}
