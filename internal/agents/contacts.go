package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/metrics"
)

// ContactAgent finds likely contacts for a company.
type ContactAgent struct {
	scraper agent.PageScraper
	lookups agent.LookupStore
	people  PeopleSearcher
	ids     agent.IDGenerator
	clock   agent.Clock
	titles  []string
	limit   int
	logger  *zap.Logger
}

// ContactOptions configures the optional Apollo search.
type ContactOptions struct {
	People PeopleSearcher
	Titles []string
	Limit  int
}

// ContactResult is everything one lookup produced.
type ContactResult struct {
	Domain   string                `json:"domain"`
	Contacts []contacts.Contact    `json:"contacts"`
	Count    int                   `json:"count"`
	Lookups  []agent.ContactLookup `json:"lookups"`
}

// NewContactAgent wires a ContactAgent.
func NewContactAgent(
	scraper agent.PageScraper,
	lookups agent.LookupStore,
	ids agent.IDGenerator,
	clock agent.Clock,
	opts ContactOptions,
	logger *zap.Logger,
) *ContactAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return &ContactAgent{
		scraper: scraper,
		lookups: lookups,
		people:  opts.People,
		ids:     ids,
		clock:   clock,
		titles:  opts.Titles,
		limit:   opts.Limit,
		logger:  logger,
	}
}

// Lookup scrapes pageURL (or the company home page), runs the contact
// heuristic over its text and persists the result. When a people search is
// configured its contacts are stored as a second lookup. Finding nobody is
// not an error.
func (a *ContactAgent) Lookup(ctx context.Context, owner, identifier, pageURL string) (ContactResult, error) {
	domain, err := contacts.NormalizeDomain(identifier)
	if err != nil {
		return ContactResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if pageURL == "" {
		pageURL = "https://" + domain
	}
	logger := a.logger.With(zap.String("domain", domain), zap.String("url", pageURL))

	page, err := a.scraper.Scrape(ctx, pageURL)
	if err != nil {
		return ContactResult{}, fmt.Errorf("scrape %s: %w", domain, err)
	}
	found := contacts.ExtractPossibleContacts(page.Text, domain)
	metrics.ObserveContacts(string(agent.LookupFromPage), len(found))

	pageLookup, err := a.save(ctx, owner, domain, page.URL, agent.LookupFromPage, found)
	if err != nil {
		return ContactResult{}, err
	}
	result := ContactResult{
		Domain:   domain,
		Contacts: append([]contacts.Contact{}, found...),
		Lookups:  []agent.ContactLookup{pageLookup},
	}

	if a.people != nil {
		people, err := a.people.SearchPeople(ctx, domain, a.titles, a.limit)
		if err != nil {
			logger.Warn("people search failed", zap.Error(err))
		} else {
			metrics.ObserveContacts(string(agent.LookupFromApollo), len(people))
			vendorLookup, err := a.save(ctx, owner, domain, "", agent.LookupFromApollo, people)
			if err != nil {
				return ContactResult{}, err
			}
			result.Contacts = append(result.Contacts, people...)
			result.Lookups = append(result.Lookups, vendorLookup)
		}
	}

	result.Count = len(result.Contacts)
	logger.Info("contact lookup finished", zap.Int("count", result.Count))
	return result, nil
}

func (a *ContactAgent) save(
	ctx context.Context,
	owner, domain, sourceURL string,
	source agent.LookupSource,
	found []contacts.Contact,
) (agent.ContactLookup, error) {
	id, err := a.ids.NewID()
	if err != nil {
		return agent.ContactLookup{}, fmt.Errorf("generate lookup id: %w", err)
	}
	lookup := agent.ContactLookup{
		ID:        id,
		OwnerID:   owner,
		Domain:    domain,
		Company:   contacts.RegistrableDomain(domain),
		SourceURL: sourceURL,
		Source:    source,
		Contacts:  found,
		CreatedAt: a.clock.Now(),
	}
	if err := a.lookups.SaveLookup(ctx, lookup); err != nil {
		return agent.ContactLookup{}, fmt.Errorf("save %s lookup: %w", source, err)
	}
	return lookup, nil
}
