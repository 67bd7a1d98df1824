package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akarpov91/polyindexer/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Upsert inserts or updates a market keyed by slug. A unique-constraint
// failure on condition_id or a token id means two market slugs claim the same
// protocol identity, which is a storage invariant violation, not a transient
// conflict.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			slug, event_slug, question, description, condition_id,
			question_id, oracle, collateral_token,
			yes_token_id, no_token_id, neg_risk, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, NOW()
		)
		ON CONFLICT (slug) DO UPDATE SET
			event_slug       = EXCLUDED.event_slug,
			question         = EXCLUDED.question,
			description      = EXCLUDED.description,
			condition_id     = EXCLUDED.condition_id,
			question_id      = EXCLUDED.question_id,
			oracle           = EXCLUDED.oracle,
			collateral_token = EXCLUDED.collateral_token,
			yes_token_id     = EXCLUDED.yes_token_id,
			no_token_id      = EXCLUDED.no_token_id,
			neg_risk         = EXCLUDED.neg_risk,
			status           = EXCLUDED.status,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.Slug, m.EventSlug, m.Question, m.Description, m.ConditionID,
		m.QuestionID, m.Oracle, m.CollateralToken,
		m.YesTokenID, m.NoTokenID, m.NegRisk, string(m.Status),
		m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: market %s: %s", domain.ErrStorageInvariant, m.Slug, pgErr.ConstraintName)
		}
		return fmt.Errorf("postgres: upsert market %s: %w", m.Slug, err)
	}
	return nil
}

const marketCols = `slug, event_slug, question, description, condition_id,
	question_id, oracle, collateral_token,
	yes_token_id, no_token_id, neg_risk, status,
	created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status string
	err := row.Scan(
		&m.Slug, &m.EventSlug, &m.Question, &m.Description, &m.ConditionID,
		&m.QuestionID, &m.Oracle, &m.CollateralToken,
		&m.YesTokenID, &m.NoTokenID, &m.NegRisk, &status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	return m, nil
}

// GetBySlug retrieves a market by its slug.
func (s *MarketStore) GetBySlug(ctx context.Context, slug string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE slug = $1`, slug)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market by slug %s: %w", slug, err)
	}
	return m, nil
}

// GetByTokenID retrieves the market owning either side of the given outcome
// token id.
func (s *MarketStore) GetByTokenID(ctx context.Context, tokenID string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE yes_token_id = $1 OR no_token_id = $1`, tokenID)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market by token %s: %w", tokenID, err)
	}
	return m, nil
}

// ListByEvent returns every market belonging to the given event slug in
// stable slug order. An event with no markets yields an empty slice.
func (s *MarketStore) ListByEvent(ctx context.Context, eventSlug string) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM markets WHERE event_slug = $1 ORDER BY slug ASC`, eventSlug)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets for event %s: %w", eventSlug, err)
	}
	defer rows.Close()

	markets := []domain.Market{}
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}
