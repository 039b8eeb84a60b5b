package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/storage/memory"
)

const teamPage = "Our team\nJane Doe - CEO, co-founder\nsales@acme.io\nrandom@gmail.com\n"

func TestContactLookupFromPage(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{"https://acme.io": {Text: teamPage}}}
	store := memory.NewLookupStore()
	a := NewContactAgent(scraper, store, &seqIDs{}, fakeClock{}, ContactOptions{}, nil)

	res, err := a.Lookup(context.Background(), "admin", "https://www.Acme.io/about", "")
	require.NoError(t, err)
	require.Equal(t, []string{"https://acme.io"}, scraper.calls)
	require.Equal(t, "acme.io", res.Domain)
	require.Equal(t, 2, res.Count)
	require.Equal(t, []contacts.Contact{
		{Name: "sales", Title: "Contact", Email: "sales@acme.io", Confidence: 0.5},
		{Name: "Jane Doe", Title: "CEO", Confidence: 0.6},
	}, res.Contacts)
	require.Len(t, res.Lookups, 1)
	require.Equal(t, agent.LookupFromPage, res.Lookups[0].Source)
	require.Equal(t, "https://acme.io", res.Lookups[0].SourceURL)
	require.Equal(t, fixedTime, res.Lookups[0].CreatedAt)

	stored, err := store.ListLookups(context.Background(), "acme.io", agent.Window{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestContactLookupZeroContactsIsNotAnError(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{"https://acme.io/contact": {Text: "nothing here"}}}
	a := NewContactAgent(scraper, memory.NewLookupStore(), &seqIDs{}, fakeClock{}, ContactOptions{}, nil)

	res, err := a.Lookup(context.Background(), "admin", "acme.io", "https://acme.io/contact")
	require.NoError(t, err)
	require.Zero(t, res.Count)
	require.NotNil(t, res.Contacts)
}

func TestContactLookupAddsPeopleSearch(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{"https://acme.io": {Text: teamPage}}}
	people := &stubPeople{people: []contacts.Contact{{Name: "Ann Lee", Title: "CTO", Email: "ann@acme.io", Confidence: 0.9}}}
	store := memory.NewLookupStore()
	a := NewContactAgent(scraper, store, &seqIDs{}, fakeClock{}, ContactOptions{People: people}, nil)

	res, err := a.Lookup(context.Background(), "admin", "acme.io", "")
	require.NoError(t, err)
	require.Equal(t, "acme.io", people.domain)
	require.Equal(t, 3, res.Count)
	require.Len(t, res.Lookups, 2)
	require.Equal(t, agent.LookupFromApollo, res.Lookups[1].Source)
	require.Equal(t, "Ann Lee", res.Contacts[2].Name)
}

func TestContactLookupPeopleSearchFailureIsLogged(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{"https://acme.io": {Text: teamPage}}}
	people := &stubPeople{err: errors.New("quota")}
	a := NewContactAgent(scraper, memory.NewLookupStore(), &seqIDs{}, fakeClock{}, ContactOptions{People: people}, nil)

	res, err := a.Lookup(context.Background(), "admin", "acme.io", "")
	require.NoError(t, err)
	require.Len(t, res.Lookups, 1)
}

func TestContactLookupErrors(t *testing.T) {
	t.Parallel()

	a := NewContactAgent(&stubScraper{}, memory.NewLookupStore(), &seqIDs{}, fakeClock{}, ContactOptions{}, nil)

	_, err := a.Lookup(context.Background(), "admin", "not a domain", "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = a.Lookup(context.Background(), "admin", "acme.io", "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidInput)
}

func TestContactLookupsGroupBySubdomainCompany(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{pages: map[string]agent.Page{
		"https://acme.co.uk":         {Text: "hello@acme.co.uk\n"},
		"https://careers.acme.co.uk": {Text: "Jane Doe - Head of People\njobs@acme.co.uk\n"},
		"https://rival.co.uk":        {Text: "info@rival.co.uk\n"},
	}}
	store := memory.NewLookupStore()
	a := NewContactAgent(scraper, store, &seqIDs{}, fakeClock{}, ContactOptions{}, nil)
	ctx := context.Background()

	careers, err := a.Lookup(ctx, "admin", "careers.acme.co.uk", "")
	require.NoError(t, err)
	require.Equal(t, "careers.acme.co.uk", careers.Domain)
	require.Equal(t, "acme.co.uk", careers.Lookups[0].Company)
	require.Equal(t, "jobs@acme.co.uk", careers.Contacts[0].Email)

	_, err = a.Lookup(ctx, "admin", "https://www.acme.co.uk", "")
	require.NoError(t, err)
	_, err = a.Lookup(ctx, "admin", "rival.co.uk", "")
	require.NoError(t, err)

	grouped, err := store.ListLookups(ctx, "acme.co.uk", agent.Window{})
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	require.Equal(t, "acme.co.uk", grouped[0].Domain)
	require.Equal(t, "careers.acme.co.uk", grouped[1].Domain)
}
