package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
)

// PatentAgent runs patent searches for queued runs.
type PatentAgent struct {
	search  PatentSearcher
	patents agent.PatentStore
	limit   int
	logger  *zap.Logger
}

// NewPatentAgent wires a PatentAgent.
func NewPatentAgent(search PatentSearcher, patents agent.PatentStore, limit int, logger *zap.Logger) *PatentAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatentAgent{search: search, patents: patents, limit: limit, logger: logger}
}

// HandleUnit searches one query and upserts every hit. No hits is a success.
func (a *PatentAgent) HandleUnit(ctx context.Context, item agent.QueueItem, input string) error {
	found, err := a.search.Search(ctx, input, a.limit)
	if err != nil {
		return fmt.Errorf("search %q: %w", input, err)
	}
	for _, p := range found {
		p.Query = input
		p.RunID = item.RunID
		if err := a.patents.UpsertPatent(ctx, p); err != nil {
			return fmt.Errorf("upsert patent %s: %w", p.PatentID, err)
		}
	}
	a.logger.Debug("patent query stored", zap.String("run_id", item.RunID), zap.String("query", input), zap.Int("hits", len(found)))
	return nil
}
