// Package firecrawl scrapes pages through the Firecrawl API.
package firecrawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/provider"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// Client calls POST /v1/scrape.
type Client struct {
	api   *provider.Client
	clock agent.Clock
}

// New builds a Firecrawl client. The key is sent as a bearer token.
func New(opts provider.Options, clock agent.Clock) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("firecrawl: %w", provider.ErrNotConfigured)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	headers := http.Header{"Authorization": {"Bearer " + opts.APIKey}}
	return &Client{api: provider.NewClient("firecrawl", opts, headers), clock: clock}, nil
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title      string `json:"title"`
			SourceURL  string `json:"sourceURL"`
			StatusCode int    `json:"statusCode"`
		} `json:"metadata"`
	} `json:"data"`
}

// Scrape returns the page rendered as markdown.
func (c *Client) Scrape(ctx context.Context, url string) (agent.Page, error) {
	var resp scrapeResponse
	req := scrapeRequest{URL: url, Formats: []string{"markdown"}, OnlyMainContent: true}
	if err := c.api.PostJSON(ctx, "/v1/scrape", req, &resp); err != nil {
		return agent.Page{}, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "scrape unsuccessful"
		}
		return agent.Page{}, fmt.Errorf("firecrawl: %w", errors.New(msg))
	}

	page := agent.Page{
		URL:        resp.Data.Metadata.SourceURL,
		Title:      strings.TrimSpace(resp.Data.Metadata.Title),
		Text:       resp.Data.Markdown,
		StatusCode: resp.Data.Metadata.StatusCode,
		Source:     agent.SourceFirecrawl,
		FetchedAt:  c.clock.Now(),
	}
	if page.URL == "" {
		page.URL = url
	}
	if page.StatusCode == 0 {
		page.StatusCode = http.StatusOK
	}
	return page, nil
}
