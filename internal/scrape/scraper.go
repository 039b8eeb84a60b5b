// Package scrape turns a URL into page text, through Firecrawl when it is
// configured and through the local probe/headless fetchers otherwise.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/extract"
	"github.com/chromara/hq/internal/metrics"
	"github.com/chromara/hq/internal/telemetry"
)

// DefaultContentType is used for snapshots when none is configured.
const DefaultContentType = "text/markdown; charset=utf-8"

// Options wires a Scraper. Probe, Hasher and Clock are required.
type Options struct {
	// Remote, when set, replaces the local fetchers entirely.
	Remote   agent.PageScraper
	Probe    agent.Fetcher
	Headless agent.Fetcher
	Detector agent.HeadlessDetector
	Blobs    agent.BlobStore
	Hasher   agent.Hasher
	Clock    agent.Clock
	Logger   *zap.Logger
	// Prefix is the object path prefix for snapshots.
	Prefix      string
	ContentType string
}

// Scraper implements agent.PageScraper.
type Scraper struct {
	opts   Options
	logger *zap.Logger
}

// New validates options and builds a Scraper.
func New(opts Options) (*Scraper, error) {
	if opts.Remote == nil && opts.Probe == nil {
		return nil, errors.New("scraper needs a remote scraper or a probe fetcher")
	}
	if opts.Hasher == nil || opts.Clock == nil {
		return nil, errors.New("scraper needs a hasher and a clock")
	}
	if opts.ContentType == "" {
		opts.ContentType = DefaultContentType
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{opts: opts, logger: logger}, nil
}

// Scrape fetches url, hashes the text and stores a snapshot when a blob
// store is configured. Snapshot failures are logged and do not fail the scrape.
func (s *Scraper) Scrape(ctx context.Context, url string) (agent.Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "scrape.page")
	defer span.End()
	start := time.Now()

	var (
		page agent.Page
		err  error
	)
	if s.opts.Remote != nil {
		page, err = s.opts.Remote.Scrape(ctx, url)
	} else {
		page, err = s.fetchLocal(ctx, url)
	}
	if err != nil {
		span.RecordError(err)
		return agent.Page{}, fmt.Errorf("scrape %s: %w", url, err)
	}
	if page.FetchedAt.IsZero() {
		page.FetchedAt = s.opts.Clock.Now()
	}

	hash, err := s.opts.Hasher.Hash([]byte(page.Text))
	if err != nil {
		return agent.Page{}, fmt.Errorf("hash page: %w", err)
	}
	page.ContentHash = hash

	if s.opts.Blobs != nil && page.Text != "" {
		key := s.snapshotPath(page.URL, hash)
		uri, err := s.opts.Blobs.PutObject(ctx, key, s.opts.ContentType, strings.NewReader(page.Text))
		if err != nil {
			s.logger.Warn("snapshot write failed", zap.String("url", page.URL), zap.String("object", key), zap.Error(err))
		} else {
			page.BlobURI = uri
		}
	}

	metrics.ObservePage(page.URL, string(page.Source))
	telemetry.ObserveScrape(ctx, string(page.Source), time.Since(start))
	s.logger.Debug("page scraped",
		zap.String("url", page.URL),
		zap.String("source", string(page.Source)),
		zap.Int("status", page.StatusCode),
		zap.Int("text_len", len(page.Text)),
	)
	return page, nil
}

func (s *Scraper) fetchLocal(ctx context.Context, url string) (agent.Page, error) {
	resp, err := s.opts.Probe.Fetch(ctx, agent.FetchRequest{URL: url})
	if err != nil {
		return agent.Page{}, fmt.Errorf("probe: %w", err)
	}
	source := agent.SourceProbe

	if s.opts.Headless != nil && s.opts.Detector != nil && s.opts.Detector.ShouldPromote(resp) {
		rendered, err := s.opts.Headless.Fetch(ctx, agent.FetchRequest{URL: url, UseHeadless: true})
		if err != nil {
			s.logger.Warn("headless promotion failed, using probe body", zap.String("url", url), zap.Error(err))
		} else {
			resp = rendered
			source = agent.SourceHeadless
		}
	}
	if resp.StatusCode >= 400 {
		return agent.Page{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := extract.FromHTML(resp.Body)
	if err != nil {
		return agent.Page{}, err
	}
	finalURL := resp.URL
	if finalURL == "" {
		finalURL = url
	}
	return agent.Page{
		URL:        finalURL,
		Title:      doc.Title,
		Text:       doc.PlainText(),
		StatusCode: resp.StatusCode,
		Source:     source,
	}, nil
}

func (s *Scraper) snapshotPath(pageURL, hash string) string {
	domain, err := contacts.NormalizeDomain(pageURL)
	if err != nil {
		domain = "unknown"
	}
	return path.Join(s.opts.Prefix, domain, hash+".md")
}
