package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chromara/hq/internal/agent"
)

// SaveLookup inserts a contact lookup with its contacts as JSONB.
func (s *Store) SaveLookup(ctx context.Context, lookup agent.ContactLookup) error {
	found, err := json.Marshal(nonNil(lookup.Contacts))
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO contact_lookups (id, owner_id, domain, company, source_url, source, contacts, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		lookup.ID,
		lookup.OwnerID,
		lookup.Domain,
		lookup.Company,
		lookup.SourceURL,
		string(lookup.Source),
		found,
		lookup.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact lookup: %w", err)
	}
	return nil
}

// ListLookups returns lookups newest first, optionally for one company.
func (s *Store) ListLookups(ctx context.Context, company string, window agent.Window) ([]agent.ContactLookup, error) {
	query := `SELECT id, owner_id, domain, company, source_url, source, contacts, created_at FROM contact_lookups`
	args := []any{}
	if company != "" {
		query += ` WHERE company = $1`
		args = append(args, company)
	}
	args = append(args, limitOf(window.Limit), offsetOf(window.Offset))
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact lookups: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (agent.ContactLookup, error) {
		var (
			l      agent.ContactLookup
			source string
			raw    []byte
		)
		if err := row.Scan(&l.ID, &l.OwnerID, &l.Domain, &l.Company, &l.SourceURL, &source, &raw, &l.CreatedAt); err != nil {
			return l, err
		}
		l.Source = agent.LookupSource(source)
		if err := json.Unmarshal(raw, &l.Contacts); err != nil {
			return l, fmt.Errorf("decode contacts: %w", err)
		}
		return l, nil
	})
}

// SaveInsight inserts a competitor insight.
func (s *Store) SaveInsight(ctx context.Context, in agent.CompetitorInsight) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO competitor_insights (id, run_id, owner_id, url, domain, title, excerpt, summary, content_hash, blob_uri, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		in.ID, in.RunID, in.OwnerID, in.URL, in.Domain, in.Title, in.Excerpt, in.Summary, in.ContentHash, in.BlobURI, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert competitor insight: %w", err)
	}
	return nil
}

// ListInsights returns insights newest first.
func (s *Store) ListInsights(ctx context.Context, window agent.Window) ([]agent.CompetitorInsight, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, run_id, owner_id, url, domain, title, excerpt, summary, content_hash, blob_uri, created_at
FROM competitor_insights
ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limitOf(window.Limit), offsetOf(window.Offset))
	if err != nil {
		return nil, fmt.Errorf("list competitor insights: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (agent.CompetitorInsight, error) {
		var in agent.CompetitorInsight
		err := row.Scan(&in.ID, &in.RunID, &in.OwnerID, &in.URL, &in.Domain, &in.Title, &in.Excerpt,
			&in.Summary, &in.ContentHash, &in.BlobURI, &in.CreatedAt)
		return in, err
	})
}

// UpsertPatent inserts a patent or refreshes it when the id already exists.
func (s *Store) UpsertPatent(ctx context.Context, p agent.Patent) error {
	if p.PatentID == "" {
		return fmt.Errorf("patent id is required")
	}
	assignees, err := json.Marshal(nonNil(p.Assignees))
	if err != nil {
		return fmt.Errorf("marshal assignees: %w", err)
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO patents (patent_id, title, abstract, grant_date, assignees, query, run_id, fetched_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (patent_id) DO UPDATE SET
	title = EXCLUDED.title,
	abstract = EXCLUDED.abstract,
	grant_date = EXCLUDED.grant_date,
	assignees = EXCLUDED.assignees,
	query = EXCLUDED.query,
	run_id = EXCLUDED.run_id,
	fetched_at = EXCLUDED.fetched_at`,
		p.PatentID, p.Title, p.Abstract, p.GrantDate, assignees, p.Query, p.RunID, p.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert patent: %w", err)
	}
	return nil
}

// ListPatents returns patents by most recently fetched.
func (s *Store) ListPatents(ctx context.Context, window agent.Window) ([]agent.Patent, error) {
	rows, err := s.db.Query(ctx, `
SELECT patent_id, title, abstract, grant_date, assignees, query, run_id, fetched_at
FROM patents
ORDER BY fetched_at DESC, patent_id LIMIT $1 OFFSET $2`, limitOf(window.Limit), offsetOf(window.Offset))
	if err != nil {
		return nil, fmt.Errorf("list patents: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (agent.Patent, error) {
		var (
			p   agent.Patent
			raw []byte
		)
		if err := row.Scan(&p.PatentID, &p.Title, &p.Abstract, &p.GrantDate, &raw, &p.Query, &p.RunID, &p.FetchedAt); err != nil {
			return p, err
		}
		if err := json.Unmarshal(raw, &p.Assignees); err != nil {
			return p, fmt.Errorf("decode assignees: %w", err)
		}
		return p, nil
	})
}

// SaveContent inserts a generated draft.
func (s *Store) SaveContent(ctx context.Context, c agent.GeneratedContent) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO generated_content (id, owner_id, topic, channel, tone, body, model, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.OwnerID, c.Topic, c.Channel, c.Tone, c.Body, c.Model, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generated content: %w", err)
	}
	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
