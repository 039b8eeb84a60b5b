package agent

import (
	"context"
	"io"
	"time"
)

// RunStore persists run status rows.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	MarkRunning(ctx context.Context, runID string, at time.Time) error
	CompleteRun(ctx context.Context, runID string, status RunStatus, outcome Outcome, errText string, at time.Time) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
}

// LookupStore persists contact lookups.
type LookupStore interface {
	SaveLookup(ctx context.Context, lookup ContactLookup) error
	// ListLookups filters on ContactLookup.Company when company is non-empty.
	ListLookups(ctx context.Context, company string, window Window) ([]ContactLookup, error)
}

// InsightStore persists competitor insights.
type InsightStore interface {
	SaveInsight(ctx context.Context, insight CompetitorInsight) error
	ListInsights(ctx context.Context, window Window) ([]CompetitorInsight, error)
}

// PatentStore persists patent search results.
type PatentStore interface {
	UpsertPatent(ctx context.Context, patent Patent) error
	ListPatents(ctx context.Context, window Window) ([]Patent, error)
}

// ContentStore persists generated drafts.
type ContentStore interface {
	SaveContent(ctx context.Context, content GeneratedContent) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// PageScraper turns a URL into rendered page text.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (Page, error)
}

// Queue provides enqueue/dequeue semantics for agent runs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// UnitHandler processes one input of a queued run.
type UnitHandler interface {
	HandleUnit(ctx context.Context, item QueueItem, input string) error
}

// UnitHandlerFunc adapts a function to UnitHandler.
type UnitHandlerFunc func(ctx context.Context, item QueueItem, input string) error

// HandleUnit calls f.
func (f UnitHandlerFunc) HandleUnit(ctx context.Context, item QueueItem, input string) error {
	return f(ctx, item, input)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
