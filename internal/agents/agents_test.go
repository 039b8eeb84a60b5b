package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/llm"
)

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{}

func (fakeClock) Now() time.Time { return fixedTime }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("id-%d", s.n), nil
}

type stubScraper struct {
	pages map[string]agent.Page
	calls []string
}

func (s *stubScraper) Scrape(_ context.Context, url string) (agent.Page, error) {
	s.calls = append(s.calls, url)
	page, ok := s.pages[url]
	if !ok {
		return agent.Page{}, errors.New("unreachable")
	}
	if page.URL == "" {
		page.URL = url
	}
	return page, nil
}

type stubPeople struct {
	people []contacts.Contact
	err    error
	domain string
}

func (s *stubPeople) SearchPeople(_ context.Context, domain string, _ []string, _ int) ([]contacts.Contact, error) {
	s.domain = domain
	return s.people, s.err
}

type stubGenerator struct {
	text    string
	err     error
	prompts []llm.Prompt
}

func (g *stubGenerator) Generate(_ context.Context, p llm.Prompt) (string, error) {
	g.prompts = append(g.prompts, p)
	return g.text, g.err
}

func (g *stubGenerator) Model() string { return "test-model" }

// mockPatentSearcher mocks the PatentSearcher interface.
type mockPatentSearcher struct {
	mock.Mock
}

func (m *mockPatentSearcher) Search(ctx context.Context, query string, limit int) ([]agent.Patent, error) {
	args := m.Called(ctx, query, limit)
	hits, _ := args.Get(0).([]agent.Patent)
	return hits, args.Error(1)
}
