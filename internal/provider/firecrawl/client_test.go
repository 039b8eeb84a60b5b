package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/provider"
)

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(provider.Options{}, fixedClock{})
	require.True(t, errors.Is(err, provider.ErrNotConfigured))
}

func TestScrapeMapsMarkdownPage(t *testing.T) {
	t.Parallel()

	var got scrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/scrape", r.URL.Path)
		require.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"Jane Doe - CEO\njane@acme.com",
			"metadata":{"title":" Team ","sourceURL":"https://acme.com/team","statusCode":200}}}`))
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := New(provider.Options{APIKey: "fc-key", BaseURL: srv.URL}, fixedClock{t: now})
	require.NoError(t, err)

	page, err := c.Scrape(context.Background(), "https://acme.com/team")
	require.NoError(t, err)
	require.Equal(t, scrapeRequest{URL: "https://acme.com/team", Formats: []string{"markdown"}, OnlyMainContent: true}, got)
	require.Equal(t, agent.Page{
		URL:        "https://acme.com/team",
		Title:      "Team",
		Text:       "Jane Doe - CEO\njane@acme.com",
		StatusCode: 200,
		Source:     agent.SourceFirecrawl,
		FetchedAt:  now,
	}, page)
}

func TestScrapeUnsuccessful(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"blocked by site"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(provider.Options{APIKey: "k", BaseURL: srv.URL}, fixedClock{})
	require.NoError(t, err)
	_, err = c.Scrape(context.Background(), "https://acme.com")
	require.ErrorContains(t, err, "blocked by site")
}

func TestScrapeStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	t.Cleanup(srv.Close)

	c, err := New(provider.Options{APIKey: "k", BaseURL: srv.URL}, fixedClock{})
	require.NoError(t, err)
	_, err = c.Scrape(context.Background(), "https://acme.com")
	require.Equal(t, http.StatusPaymentRequired, provider.StatusCode(err))
}
