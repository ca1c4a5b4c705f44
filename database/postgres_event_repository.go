package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisian8787/wrestleguess/models"
)

// PostgresEventRepository reads events and their matches from Postgres
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository constructs a repository backed by Postgres
func NewPostgresEventRepository(pg *Postgres) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pg.Pool}
}

// GetEventWithMatches loads the event and its matches in card order. Returns nil, nil when absent.
func (r *PostgresEventRepository) GetEventWithMatches(ctx context.Context, eventID string) (*models.Event, error) {
	const eventQuery = `
		SELECT id, name, brand, date, locked, scored, scored_at, COALESCE(created_by, ''), created_at, updated_at
		FROM events
		WHERE id = $1
	`
	var e models.Event
	err := r.pool.QueryRow(ctx, eventQuery, eventID).Scan(
		&e.ID, &e.Name, &e.Brand, &e.Date, &e.Locked, &e.Scored, &e.ScoredAt, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find event %s: %w", eventID, err)
	}

	const matchQuery = `
		SELECT match_id, match_order, match_type, title_match, competitors, COALESCE(winner, ''), multiplier::float8
		FROM matches
		WHERE event_id = $1
		ORDER BY match_order
	`
	rows, err := r.pool.Query(ctx, matchQuery, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches of event %s: %w", eventID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.MatchID, &m.Order, &m.Type, &m.TitleMatch, &m.Competitors, &m.Winner, &m.Multiplier); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		e.Matches = append(e.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches of event %s: %w", eventID, err)
	}
	return &e, nil
}

// MarkEventScored sets scored on an event that is not scored yet
func (r *PostgresEventRepository) MarkEventScored(ctx context.Context, eventID string, scoredAt time.Time) (bool, error) {
	const q = `
		UPDATE events
		SET scored = TRUE, scored_at = $2, updated_at = $2
		WHERE id = $1 AND NOT scored
	`
	tag, err := r.pool.Exec(ctx, q, eventID, scoredAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark event %s scored: %w", eventID, err)
	}
	return tag.RowsAffected() == 1, nil
}
