// Package llm generates text through an OpenAI-compatible chat completions
// endpoint (Anthropic's compatibility layer by default).
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chromara/hq/internal/metrics"
	"github.com/chromara/hq/internal/provider"
	"github.com/chromara/hq/internal/ratelimit"
)

// DefaultBaseURL is Anthropic's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.anthropic.com/v1"

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// ChatClient is the subset of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Prompt is a single-turn request.
type Prompt struct {
	System string
	User   string
}

// Options configures a Generator.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	RPS         float64
}

// Generator produces completions for prompts.
type Generator struct {
	client  ChatClient
	opts    Options
	limiter *ratelimit.Limiter
}

// NewGenerator wraps an existing chat client.
func NewGenerator(client ChatClient, opts Options) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1024
	}
	return &Generator{
		client:  client,
		opts:    opts,
		limiter: ratelimit.New(ratelimit.Config{RPS: opts.RPS, Burst: 1}),
	}
}

// New builds a Generator backed by go-openai pointed at baseURL.
func New(providerOpts provider.Options, opts Options) (*Generator, error) {
	if providerOpts.APIKey == "" {
		return nil, fmt.Errorf("llm: %w", provider.ErrNotConfigured)
	}
	if opts.Model == "" {
		return nil, errors.New("llm: model is required")
	}
	cfg := openai.DefaultConfig(providerOpts.APIKey)
	cfg.BaseURL = DefaultBaseURL
	if providerOpts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(providerOpts.BaseURL, "/")
	}
	if providerOpts.HTTPClient != nil {
		cfg.HTTPClient = providerOpts.HTTPClient
	}
	if opts.RPS == 0 {
		opts.RPS = providerOpts.RPS
	}
	return NewGenerator(openai.NewClientWithConfig(cfg), opts), nil
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.opts.Model }

// Generate returns the first choice's trimmed text.
func (g *Generator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if err := g.limiter.Wait(ctx, "llm"); err != nil {
		return "", fmt.Errorf("llm: %w", err)
	}
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.opts.Model,
		Messages:    messages,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		N:           1,
	})
	metrics.ObserveProviderCall("llm", statusOf(err), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func statusOf(err error) int {
	if err == nil {
		return 200
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
