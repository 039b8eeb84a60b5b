package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/llm"
)

// Defaults applied to content requests.
const (
	DefaultChannel = "blog"
	DefaultTone    = "professional"
)

const contentSystemPrompt = "You write marketing copy for Chromara, a color science company. " +
	"Return only the draft text without preamble."

// ContentRequest asks for one marketing draft.
type ContentRequest struct {
	Topic   string `json:"topic"`
	Channel string `json:"channel"`
	Tone    string `json:"tone"`
}

// ContentAgent drafts marketing copy.
type ContentAgent struct {
	gen    TextGenerator
	store  agent.ContentStore
	ids    agent.IDGenerator
	clock  agent.Clock
	logger *zap.Logger
}

// NewContentAgent wires a ContentAgent. gen may be nil when no model is configured.
func NewContentAgent(gen TextGenerator, store agent.ContentStore, ids agent.IDGenerator, clock agent.Clock, logger *zap.Logger) *ContentAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentAgent{gen: gen, store: store, ids: ids, clock: clock, logger: logger}
}

// Generate drafts copy for req and persists it.
func (a *ContentAgent) Generate(ctx context.Context, owner string, req ContentRequest) (agent.GeneratedContent, error) {
	if a.gen == nil {
		return agent.GeneratedContent{}, fmt.Errorf("%w: no language model configured", ErrUnavailable)
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return agent.GeneratedContent{}, fmt.Errorf("%w: topic required", ErrInvalidInput)
	}
	if req.Channel = strings.TrimSpace(req.Channel); req.Channel == "" {
		req.Channel = DefaultChannel
	}
	if req.Tone = strings.TrimSpace(req.Tone); req.Tone == "" {
		req.Tone = DefaultTone
	}

	body, err := a.gen.Generate(ctx, llm.Prompt{System: contentSystemPrompt, User: contentPrompt(req)})
	if err != nil {
		return agent.GeneratedContent{}, fmt.Errorf("generate draft: %w", err)
	}
	id, err := a.ids.NewID()
	if err != nil {
		return agent.GeneratedContent{}, fmt.Errorf("generate content id: %w", err)
	}
	draft := agent.GeneratedContent{
		ID:        id,
		OwnerID:   owner,
		Topic:     req.Topic,
		Channel:   req.Channel,
		Tone:      req.Tone,
		Body:      strings.TrimSpace(body),
		Model:     a.gen.Model(),
		CreatedAt: a.clock.Now(),
	}
	if err := a.store.SaveContent(ctx, draft); err != nil {
		return agent.GeneratedContent{}, fmt.Errorf("save content: %w", err)
	}
	a.logger.Info("content drafted", zap.String("channel", draft.Channel), zap.Int("chars", len(draft.Body)))
	return draft, nil
}

func contentPrompt(req ContentRequest) string {
	return fmt.Sprintf("Write a %s post about %q in a %s tone.", req.Channel, req.Topic, req.Tone)
}
