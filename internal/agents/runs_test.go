package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/storage/memory"
)

func TestCompetitorHandleUnit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 700)
	scraper := &stubScraper{pages: map[string]agent.Page{
		"https://rival.com/pricing": {Title: "Pricing", Text: long, ContentHash: "abc", BlobURI: "mem://x"},
	}}
	gen := &stubGenerator{text: " - cheap\n"}
	store := memory.NewInsightStore()
	a := NewCompetitorAgent(scraper, store, gen, &seqIDs{}, fakeClock{}, nil)

	item := agent.QueueItem{RunID: "run-1", OwnerID: "admin"}
	require.NoError(t, a.HandleUnit(context.Background(), item, "https://rival.com/pricing"))

	saved, err := store.ListInsights(context.Background(), agent.Window{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	got := saved[0]
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, "rival.com", got.Domain)
	require.Equal(t, "Pricing", got.Title)
	require.Equal(t, "- cheap", got.Summary)
	require.Equal(t, 500, len([]rune(got.Excerpt)))
	require.Equal(t, "abc", got.ContentHash)
	require.Len(t, gen.prompts, 1)
}

func TestCompetitorHandleUnitSummaryFailureKeepsInsight(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{"https://rival.com": {Text: "hello"}}}
	store := memory.NewInsightStore()
	a := NewCompetitorAgent(scraper, store, &stubGenerator{err: errors.New("429")}, &seqIDs{}, fakeClock{}, nil)

	require.NoError(t, a.HandleUnit(context.Background(), agent.QueueItem{RunID: "r"}, "https://rival.com"))
	saved, err := store.ListInsights(context.Background(), agent.Window{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Empty(t, saved[0].Summary)
}

func TestCompetitorHandleUnitScrapeFailure(t *testing.T) {
	t.Parallel()

	a := NewCompetitorAgent(&stubScraper{}, memory.NewInsightStore(), nil, &seqIDs{}, fakeClock{}, nil)
	require.Error(t, a.HandleUnit(context.Background(), agent.QueueItem{}, "https://down.example"))
}

func TestPatentHandleUnit(t *testing.T) {
	t.Parallel()

	store := memory.NewPatentStore()
	search := new(mockPatentSearcher)
	search.On("Search", mock.Anything, "color sensor", 10).
		Return([]agent.Patent{{PatentID: "1"}, {PatentID: "2"}}, nil).Once()
	a := NewPatentAgent(search, store, 10, nil)

	require.NoError(t, a.HandleUnit(context.Background(), agent.QueueItem{RunID: "run-9"}, "color sensor"))
	saved, err := store.ListPatents(context.Background(), agent.Window{})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	for _, p := range saved {
		require.Equal(t, "run-9", p.RunID)
		require.Equal(t, "color sensor", p.Query)
	}

	search.AssertExpectations(t)

	broken := new(mockPatentSearcher)
	broken.On("Search", mock.Anything, "q", 10).Return(nil, errors.New("boom"))
	failing := NewPatentAgent(broken, store, 10, nil)
	require.ErrorContains(t, failing.HandleUnit(context.Background(), agent.QueueItem{}, "q"), "boom")
	broken.AssertNumberOfCalls(t, "Search", 1)
}

func TestContentGenerate(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{text: "  Fresh colors.  "}
	store := memory.NewContentStore()
	a := NewContentAgent(gen, store, &seqIDs{}, fakeClock{}, nil)

	draft, err := a.Generate(context.Background(), "owner-1", ContentRequest{Topic: "spring launch"})
	require.NoError(t, err)
	require.Equal(t, "Fresh colors.", draft.Body)
	require.Equal(t, DefaultChannel, draft.Channel)
	require.Equal(t, DefaultTone, draft.Tone)
	require.Equal(t, "test-model", draft.Model)
	require.Equal(t, "owner-1", draft.OwnerID)
	require.Contains(t, gen.prompts[0].User, `"spring launch"`)
	require.Len(t, store.Contents(), 1)
}

func TestContentGenerateErrors(t *testing.T) {
	t.Parallel()

	_, err := NewContentAgent(nil, memory.NewContentStore(), &seqIDs{}, fakeClock{}, nil).
		Generate(context.Background(), "o", ContentRequest{Topic: "x"})
	require.ErrorIs(t, err, ErrUnavailable)

	a := NewContentAgent(&stubGenerator{text: "x"}, memory.NewContentStore(), &seqIDs{}, fakeClock{}, nil)
	_, err = a.Generate(context.Background(), "o", ContentRequest{Topic: "  "})
	require.ErrorIs(t, err, ErrInvalidInput)

	b := NewContentAgent(&stubGenerator{err: errors.New("down")}, memory.NewContentStore(), &seqIDs{}, fakeClock{}, nil)
	_, err = b.Generate(context.Background(), "o", ContentRequest{Topic: "x"})
	require.ErrorContains(t, err, "down")
}
