package agents

import (
	"context"
	"errors"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/contacts"
	"github.com/chromara/hq/internal/llm"
)

var (
	// ErrInvalidInput marks caller mistakes that should surface as 400s.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable means an optional provider the request needs is not configured.
	ErrUnavailable = errors.New("agent unavailable")
)

// PeopleSearcher looks up vendor-verified contacts for a domain.
type PeopleSearcher interface {
	SearchPeople(ctx context.Context, domain string, titles []string, limit int) ([]contacts.Contact, error)
}

// PatentSearcher runs a full-text patent query.
type PatentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]agent.Patent, error)
}

// TextGenerator produces model completions.
type TextGenerator interface {
	Generate(ctx context.Context, prompt llm.Prompt) (string, error)
	Model() string
}
