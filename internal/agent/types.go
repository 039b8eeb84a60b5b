package agent

import (
	"errors"
	"net/http"
	"time"

	"github.com/chromara/hq/internal/contacts"
)

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrQueueClosed is returned by queues that no longer hand out work.
	ErrQueueClosed = errors.New("queue closed")
)

// RunStatus represents the lifecycle state of an agent run.
type RunStatus string

// Run status values persisted in the run store.
const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Kind names a queued agent.
type Kind string

// Agents that execute through the run queue.
const (
	KindCompetitorScrape Kind = "competitor_scrape"
	KindPatentSearch     Kind = "patent_search"
)

// UnitFailure records one input that could not be processed.
type UnitFailure struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// Outcome aggregates independent unit results for a run.
type Outcome struct {
	Succeeded int           `json:"succeeded"`
	Failures  []UnitFailure `json:"failures"`
}

// Record folds one unit result into the outcome.
func (o *Outcome) Record(input string, err error) {
	if err == nil {
		o.Succeeded++
		return
	}
	o.Failures = append(o.Failures, UnitFailure{Input: input, Error: err.Error()})
}

// Run is the status row written around a unit of agent work.
type Run struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	OwnerID   string     `json:"owner_id"`
	Status    RunStatus  `json:"status"`
	Inputs    []string   `json:"inputs"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Finished  *time.Time `json:"finished_at,omitempty"`
	Outcome   Outcome    `json:"outcome"`
	ErrorText string     `json:"error_text,omitempty"`
}

// RunFilter narrows run listings. Zero values mean "any".
type RunFilter struct {
	Kind   Kind
	Status RunStatus
	Limit  int
	Offset int
}

// QueueItem wraps a run ready to execute.
type QueueItem struct {
	RunID     string
	Kind      Kind
	OwnerID   string
	Inputs    []string
	Submitted int64
}

// PageSource identifies how a page was fetched.
type PageSource string

// Page sources.
const (
	SourceFirecrawl PageSource = "firecrawl"
	SourceProbe     PageSource = "probe"
	SourceHeadless  PageSource = "headless"
)

// Page is the rendered text content of a scraped URL.
type Page struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Text        string     `json:"-"`
	StatusCode  int        `json:"status_code"`
	Source      PageSource `json:"source"`
	ContentHash string     `json:"content_hash"`
	BlobURI     string     `json:"blob_uri,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL         string
	UseHeadless bool
	Headers     http.Header
}

// FetchResponse is the raw result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// LookupSource identifies where a contact lookup's contacts came from.
type LookupSource string

// Lookup sources.
const (
	LookupFromPage   LookupSource = "page"
	LookupFromApollo LookupSource = "apollo"
)

// ContactLookup is the persisted result of one contact search against a domain.
type ContactLookup struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Domain  string `json:"domain"`
	// Company is the registrable domain lookups are grouped under.
	Company   string             `json:"company"`
	SourceURL string             `json:"source_url,omitempty"`
	Source    LookupSource       `json:"source"`
	Contacts  []contacts.Contact `json:"contacts"`
	CreatedAt time.Time          `json:"created_at"`
}

// CompetitorInsight is a scraped competitor page summary.
type CompetitorInsight struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	OwnerID     string    `json:"owner_id"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Summary     string    `json:"summary,omitempty"`
	ContentHash string    `json:"content_hash"`
	BlobURI     string    `json:"blob_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Patent is a patent record returned by a patent search.
type Patent struct {
	PatentID  string    `json:"patent_id"`
	Title     string    `json:"title"`
	Abstract  string    `json:"abstract"`
	GrantDate string    `json:"grant_date"`
	Assignees []string  `json:"assignees"`
	Query     string    `json:"query"`
	RunID     string    `json:"run_id,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// GeneratedContent is a marketing draft produced by the language model.
type GeneratedContent struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Topic     string    `json:"topic"`
	Channel   string    `json:"channel"`
	Tone      string    `json:"tone"`
	Body      string    `json:"body"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}

// Window bounds a listing by limit and offset.
type Window struct {
	Limit  int
	Offset int
}
