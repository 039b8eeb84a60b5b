// Package patents searches granted US patents through the PatentsView
// PatentSearch API.
package patents

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/provider"
)

// DefaultBaseURL is the hosted PatentSearch API.
const DefaultBaseURL = "https://search.patentsview.org"

// MaxPageSize is the largest page the API accepts.
const MaxPageSize = 1000

var fields = []string{
	"patent_id",
	"patent_title",
	"patent_date",
	"patent_abstract",
	"assignees.assignee_organization",
}

// Client calls POST /api/v1/patent/.
type Client struct {
	api   *provider.Client
	clock agent.Clock
}

// New builds a PatentsView client. The key is sent in the X-Api-Key header.
func New(opts provider.Options, clock agent.Clock) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("patents: %w", provider.ErrNotConfigured)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	headers := http.Header{"X-Api-Key": {opts.APIKey}}
	return &Client{api: provider.NewClient("patents", opts, headers), clock: clock}, nil
}

type searchRequest struct {
	Query   map[string]any      `json:"q"`
	Fields  []string            `json:"f"`
	Options map[string]int      `json:"o"`
	Sort    []map[string]string `json:"s"`
}

type searchResponse struct {
	Error   bool `json:"error"`
	Count   int  `json:"count"`
	Patents []struct {
		PatentID  string `json:"patent_id"`
		Title     string `json:"patent_title"`
		Date      string `json:"patent_date"`
		Abstract  string `json:"patent_abstract"`
		Assignees []struct {
			Organization string `json:"assignee_organization"`
		} `json:"assignees"`
	} `json:"patents"`
}

// Search returns up to limit patents whose abstract mentions any word in query,
// newest first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]agent.Patent, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("patents: empty query")
	}
	if limit <= 0 {
		limit = 25
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	req := searchRequest{
		Query:   map[string]any{"_text_any": map[string]string{"patent_abstract": query}},
		Fields:  fields,
		Options: map[string]int{"size": limit},
		Sort:    []map[string]string{{"patent_date": "desc"}},
	}
	var resp searchResponse
	if err := c.api.PostJSON(ctx, "/api/v1/patent/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error {
		return nil, fmt.Errorf("patents: search reported an error for %q", query)
	}

	now := c.clock.Now()
	out := make([]agent.Patent, 0, len(resp.Patents))
	for _, p := range resp.Patents {
		if p.PatentID == "" {
			continue
		}
		assignees := make([]string, 0, len(p.Assignees))
		for _, a := range p.Assignees {
			if org := strings.TrimSpace(a.Organization); org != "" {
				assignees = append(assignees, org)
			}
		}
		out = append(out, agent.Patent{
			PatentID:  p.PatentID,
			Title:     strings.TrimSpace(p.Title),
			Abstract:  strings.TrimSpace(p.Abstract),
			GrantDate: p.Date,
			Assignees: assignees,
			Query:     query,
			FetchedAt: now,
		})
	}
	return out, nil
}
