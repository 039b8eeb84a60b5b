// Package apollo searches people at a company through the Apollo.io API.
package apollo

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/provider"
)

// DefaultBaseURL is the hosted Apollo API.
const DefaultBaseURL = "https://api.apollo.io"

// Confidence is assigned to vendor-verified contacts.
const Confidence = 0.9

// lockedEmailMarker prefixes placeholder addresses returned for contacts the
// account has not unlocked.
const lockedEmailMarker = "email_not_unlocked"

// Client calls POST /v1/mixed_people/search.
type Client struct {
	api *provider.Client
}

// New builds an Apollo client. The key is sent in the X-Api-Key header.
func New(opts provider.Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("apollo: %w", provider.ErrNotConfigured)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	headers := http.Header{
		"X-Api-Key":     {opts.APIKey},
		"Cache-Control": {"no-cache"},
	}
	return &Client{api: provider.NewClient("apollo", opts, headers)}, nil
}

type searchRequest struct {
	Domains string   `json:"q_organization_domains"`
	Titles  []string `json:"person_titles,omitempty"`
	Page    int      `json:"page"`
	PerPage int      `json:"per_page"`
}

type person struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Name        string `json:"name"`
	Title       string `json:"title"`
	Email       string `json:"email"`
	LinkedInURL string `json:"linkedin_url"`
}

type searchResponse struct {
	People []person `json:"people"`
}

// SearchPeople returns up to limit people employed at domain whose titles
// match any of titles.
func (c *Client) SearchPeople(ctx context.Context, domain string, titles []string, limit int) ([]contacts.Contact, error) {
	if limit <= 0 {
		limit = 10
	}
	req := searchRequest{Domains: domain, Titles: titles, Page: 1, PerPage: limit}
	var resp searchResponse
	if err := c.api.PostJSON(ctx, "/v1/mixed_people/search", req, &resp); err != nil {
		return nil, err
	}
	out := make([]contacts.Contact, 0, len(resp.People))
	for _, p := range resp.People {
		out = append(out, toContact(p))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func toContact(p person) contacts.Contact {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.FirstName + " " + p.LastName)
	}
	if name == "" {
		name = "Unknown"
	}
	email := strings.TrimSpace(p.Email)
	if strings.HasPrefix(email, lockedEmailMarker) {
		email = ""
	}
	return contacts.Contact{
		Name:       name,
		Title:      strings.TrimSpace(p.Title),
		Email:      email,
		LinkedIn:   strings.TrimSpace(p.LinkedInURL),
		Confidence: Confidence,
	}
}
