package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
)

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	submitted := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	run := agent.Run{
		ID:        "run-1",
		Kind:      agent.KindCompetitorScrape,
		OwnerID:   "admin",
		Status:    agent.RunQueued,
		Inputs:    []string{"https://a.com", "https://b.com"},
		Submitted: submitted,
	}

	require.NoError(t, store.CreateRun(ctx, run))
	require.Error(t, store.CreateRun(ctx, run))

	started := submitted.Add(time.Second)
	require.NoError(t, store.MarkRunning(ctx, run.ID, started))
	require.NoError(t, store.MarkRunning(ctx, run.ID, started.Add(time.Hour)))

	outcome := agent.Outcome{Succeeded: 1, Failures: []agent.UnitFailure{{Input: "https://b.com", Error: "timeout"}}}
	finished := started.Add(time.Minute)
	require.NoError(t, store.CompleteRun(ctx, run.ID, agent.RunCompleted, outcome, "", finished))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, agent.RunCompleted, got.Status)
	require.Equal(t, started, *got.Started)
	require.Equal(t, finished, *got.Finished)
	require.Equal(t, outcome, got.Outcome)

	_, err = store.GetRun(ctx, "missing")
	require.True(t, errors.Is(err, agent.ErrNotFound))
	require.ErrorIs(t, store.MarkRunning(ctx, "missing", started), agent.ErrNotFound)
	require.ErrorIs(t, store.CompleteRun(ctx, "missing", agent.RunFailed, agent.Outcome{}, "", finished), agent.ErrNotFound)
}

func TestRunStoreListFiltersAndOrders(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateRun(ctx, agent.Run{ID: "a", Kind: agent.KindPatentSearch, Status: agent.RunQueued, Submitted: base}))
	require.NoError(t, store.CreateRun(ctx, agent.Run{ID: "b", Kind: agent.KindCompetitorScrape, Status: agent.RunQueued, Submitted: base.Add(time.Minute)}))
	require.NoError(t, store.CreateRun(ctx, agent.Run{ID: "c", Kind: agent.KindPatentSearch, Status: agent.RunFailed, Submitted: base.Add(2 * time.Minute)}))

	all, err := store.ListRuns(ctx, agent.RunFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b", "a"}, runIDs(all))

	patents, err := store.ListRuns(ctx, agent.RunFilter{Kind: agent.KindPatentSearch})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a"}, runIDs(patents))

	queued, err := store.ListRuns(ctx, agent.RunFilter{Status: agent.RunQueued, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, runIDs(queued))

	past, err := store.ListRuns(ctx, agent.RunFilter{Offset: 10})
	require.NoError(t, err)
	require.Empty(t, past)
	require.NotNil(t, past)
}

func TestLookupStoreListsNewestFirstByDomain(t *testing.T) {
	t.Parallel()

	store := NewLookupStore()
	ctx := context.Background()
	require.NoError(t, store.SaveLookup(ctx, agent.ContactLookup{ID: "1", Domain: "acme.com", Company: "acme.com", Contacts: []contacts.Contact{{Name: "Jane"}}}))
	require.NoError(t, store.SaveLookup(ctx, agent.ContactLookup{ID: "2", Domain: "other.com", Company: "other.com"}))
	require.NoError(t, store.SaveLookup(ctx, agent.ContactLookup{ID: "3", Domain: "jobs.acme.com", Company: "acme.com"}))

	acme, err := store.ListLookups(ctx, "acme.com", agent.Window{})
	require.NoError(t, err)
	require.Len(t, acme, 2)
	require.Equal(t, "3", acme[0].ID)
	require.Equal(t, "1", acme[1].ID)

	all, err := store.ListLookups(ctx, "", agent.Window{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "2", all[0].ID)
}

func TestInsightAndContentStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	insights := NewInsightStore()
	require.NoError(t, insights.SaveInsight(ctx, agent.CompetitorInsight{ID: "i1"}))
	require.NoError(t, insights.SaveInsight(ctx, agent.CompetitorInsight{ID: "i2"}))
	got, err := insights.ListInsights(ctx, agent.Window{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, "i2", got[0].ID)

	contents := NewContentStore()
	require.NoError(t, contents.SaveContent(ctx, agent.GeneratedContent{ID: "c1", Body: "draft"}))
	require.Len(t, contents.Contents(), 1)
}

func TestPatentStoreUpserts(t *testing.T) {
	t.Parallel()

	store := NewPatentStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Error(t, store.UpsertPatent(ctx, agent.Patent{}))
	require.NoError(t, store.UpsertPatent(ctx, agent.Patent{PatentID: "1", Title: "old", FetchedAt: base}))
	require.NoError(t, store.UpsertPatent(ctx, agent.Patent{PatentID: "2", Title: "other", FetchedAt: base}))
	require.NoError(t, store.UpsertPatent(ctx, agent.Patent{PatentID: "1", Title: "new", FetchedAt: base.Add(time.Hour)}))

	list, err := store.ListPatents(ctx, agent.Window{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].Title)
	require.Equal(t, "2", list[1].PatentID)
}

func runIDs(runs []agent.Run) []string {
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}
