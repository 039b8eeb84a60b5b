package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/chromara/hq/internal/agent"
)

// RunStore keeps agent runs in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]agent.Run
}

// NewRunStore constructs a RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]agent.Run)}
}

// CreateRun stores a new run.
func (s *RunStore) CreateRun(_ context.Context, run agent.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	run.Inputs = slices.Clone(run.Inputs)
	s.runs[run.ID] = run
	return nil
}

// MarkRunning flips a run to running and stamps its start time once.
func (s *RunStore) MarkRunning(_ context.Context, runID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return agent.ErrNotFound
	}
	run.Status = agent.RunRunning
	if run.Started == nil {
		run.Started = &at
	}
	s.runs[runID] = run
	return nil
}

// CompleteRun records the terminal status and outcome.
func (s *RunStore) CompleteRun(
	_ context.Context,
	runID string,
	status agent.RunStatus,
	outcome agent.Outcome,
	errText string,
	at time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return agent.ErrNotFound
	}
	run.Status = status
	run.Outcome = agent.Outcome{Succeeded: outcome.Succeeded, Failures: slices.Clone(outcome.Failures)}
	run.ErrorText = errText
	run.Finished = &at
	s.runs[runID] = run
	return nil
}

// GetRun fetches a run by ID.
func (s *RunStore) GetRun(_ context.Context, runID string) (agent.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return agent.Run{}, agent.ErrNotFound
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *RunStore) ListRuns(_ context.Context, filter agent.RunFilter) ([]agent.Run, error) {
	s.mu.RLock()
	out := make([]agent.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.Kind != "" && run.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		out = append(out, run)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].ID > out[j].ID
		}
		return out[i].Submitted.After(out[j].Submitted)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

// LookupStore keeps contact lookups in insertion order.
type LookupStore struct {
	mu      sync.RWMutex
	lookups []agent.ContactLookup
}

// NewLookupStore constructs a LookupStore.
func NewLookupStore() *LookupStore {
	return &LookupStore{}
}

// SaveLookup appends a lookup.
func (s *LookupStore) SaveLookup(_ context.Context, lookup agent.ContactLookup) error {
	lookup.Contacts = slices.Clone(lookup.Contacts)
	s.mu.Lock()
	s.lookups = append(s.lookups, lookup)
	s.mu.Unlock()
	return nil
}

// ListLookups returns lookups newest first, optionally restricted to one company.
func (s *LookupStore) ListLookups(_ context.Context, company string, window agent.Window) ([]agent.ContactLookup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agent.ContactLookup, 0, len(s.lookups))
	for i := len(s.lookups) - 1; i >= 0; i-- {
		if company != "" && s.lookups[i].Company != company {
			continue
		}
		out = append(out, s.lookups[i])
	}
	return page(out, window.Limit, window.Offset), nil
}

// InsightStore keeps competitor insights in insertion order.
type InsightStore struct {
	mu       sync.RWMutex
	insights []agent.CompetitorInsight
}

// NewInsightStore constructs an InsightStore.
func NewInsightStore() *InsightStore {
	return &InsightStore{}
}

// SaveInsight appends an insight.
func (s *InsightStore) SaveInsight(_ context.Context, insight agent.CompetitorInsight) error {
	s.mu.Lock()
	s.insights = append(s.insights, insight)
	s.mu.Unlock()
	return nil
}

// ListInsights returns insights newest first.
func (s *InsightStore) ListInsights(_ context.Context, window agent.Window) ([]agent.CompetitorInsight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agent.CompetitorInsight, 0, len(s.insights))
	for i := len(s.insights) - 1; i >= 0; i-- {
		out = append(out, s.insights[i])
	}
	return page(out, window.Limit, window.Offset), nil
}

// PatentStore keeps one record per patent id.
type PatentStore struct {
	mu      sync.RWMutex
	patents map[string]agent.Patent
}

// NewPatentStore constructs a PatentStore.
func NewPatentStore() *PatentStore {
	return &PatentStore{patents: make(map[string]agent.Patent)}
}

// UpsertPatent inserts or replaces a patent keyed by PatentID.
func (s *PatentStore) UpsertPatent(_ context.Context, patent agent.Patent) error {
	if patent.PatentID == "" {
		return fmt.Errorf("patent id is required")
	}
	patent.Assignees = slices.Clone(patent.Assignees)
	s.mu.Lock()
	s.patents[patent.PatentID] = patent
	s.mu.Unlock()
	return nil
}

// ListPatents returns patents by most recently fetched.
func (s *PatentStore) ListPatents(_ context.Context, window agent.Window) ([]agent.Patent, error) {
	s.mu.RLock()
	out := make([]agent.Patent, 0, len(s.patents))
	for _, p := range s.patents {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].FetchedAt.Equal(out[j].FetchedAt) {
			return out[i].PatentID < out[j].PatentID
		}
		return out[i].FetchedAt.After(out[j].FetchedAt)
	})
	return page(out, window.Limit, window.Offset), nil
}

// ContentStore keeps generated drafts.
type ContentStore struct {
	mu       sync.RWMutex
	contents []agent.GeneratedContent
}

// NewContentStore constructs a ContentStore.
func NewContentStore() *ContentStore {
	return &ContentStore{}
}

// SaveContent appends a draft.
func (s *ContentStore) SaveContent(_ context.Context, content agent.GeneratedContent) error {
	s.mu.Lock()
	s.contents = append(s.contents, content)
	s.mu.Unlock()
	return nil
}

// Contents returns a copy of every stored draft.
func (s *ContentStore) Contents() []agent.GeneratedContent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contents)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
