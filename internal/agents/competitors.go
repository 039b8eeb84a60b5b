package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/llm"
)

const (
	excerptRunes  = 500
	summaryPrompt = "You summarize competitor web pages for a product team. " +
		"Reply with three short bullet points covering positioning, pricing signals and notable features."
	summaryInputRunes = 6000
)

// CompetitorAgent scrapes competitor pages for queued runs.
type CompetitorAgent struct {
	scraper  agent.PageScraper
	insights agent.InsightStore
	summary  TextGenerator
	ids      agent.IDGenerator
	clock    agent.Clock
	logger   *zap.Logger
}

// NewCompetitorAgent wires a CompetitorAgent. summary may be nil.
func NewCompetitorAgent(
	scraper agent.PageScraper,
	insights agent.InsightStore,
	summary TextGenerator,
	ids agent.IDGenerator,
	clock agent.Clock,
	logger *zap.Logger,
) *CompetitorAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompetitorAgent{
		scraper:  scraper,
		insights: insights,
		summary:  summary,
		ids:      ids,
		clock:    clock,
		logger:   logger,
	}
}

// HandleUnit scrapes one competitor URL and stores an insight. A failed
// summary does not fail the unit.
func (a *CompetitorAgent) HandleUnit(ctx context.Context, item agent.QueueItem, input string) error {
	page, err := a.scraper.Scrape(ctx, input)
	if err != nil {
		return err
	}
	domain, err := contacts.NormalizeDomain(page.URL)
	if err != nil {
		domain = ""
	}
	id, err := a.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate insight id: %w", err)
	}
	insight := agent.CompetitorInsight{
		ID:          id,
		RunID:       item.RunID,
		OwnerID:     item.OwnerID,
		URL:         page.URL,
		Domain:      domain,
		Title:       page.Title,
		Excerpt:     truncateRunes(strings.TrimSpace(page.Text), excerptRunes),
		ContentHash: page.ContentHash,
		BlobURI:     page.BlobURI,
		CreatedAt:   a.clock.Now(),
	}
	if a.summary != nil && page.Text != "" {
		text, err := a.summary.Generate(ctx, llm.Prompt{
			System: summaryPrompt,
			User:   truncateRunes(page.Text, summaryInputRunes),
		})
		if err != nil {
			a.logger.Warn("competitor summary failed", zap.String("run_id", item.RunID), zap.String("url", page.URL), zap.Error(err))
		} else {
			insight.Summary = strings.TrimSpace(text)
		}
	}
	if err := a.insights.SaveInsight(ctx, insight); err != nil {
		return fmt.Errorf("save insight: %w", err)
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
