package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Upsert inserts or updates an event keyed by slug. Re-running with
// unchanged data is a no-op apart from updated_at.
func (s *EventStore) Upsert(ctx context.Context, ev domain.Event) error {
	const query = `
		INSERT INTO events (
			slug, event_id, title, description, neg_risk, active, closed,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			event_id    = EXCLUDED.event_id,
			title       = EXCLUDED.title,
			description = EXCLUDED.description,
			neg_risk    = EXCLUDED.neg_risk,
			active      = EXCLUDED.active,
			closed      = EXCLUDED.closed,
			updated_at  = NOW()`

	_, err := s.pool.Exec(ctx, query,
		ev.Slug, ev.EventID, ev.Title, ev.Description,
		ev.NegRisk, ev.Active, ev.Closed, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert event %s: %w", ev.Slug, err)
	}
	return nil
}

const eventCols = `slug, event_id, title, description, neg_risk, active, closed,
	created_at, updated_at`

// GetBySlug retrieves an event by its slug.
func (s *EventStore) GetBySlug(ctx context.Context, slug string) (domain.Event, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+eventCols+` FROM events WHERE slug = $1`, slug)

	var ev domain.Event
	err := row.Scan(
		&ev.Slug, &ev.EventID, &ev.Title, &ev.Description,
		&ev.NegRisk, &ev.Active, &ev.Closed,
		&ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("postgres: get event %s: %w", slug, err)
	}
	return ev, nil
}
