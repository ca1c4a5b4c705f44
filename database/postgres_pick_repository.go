package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisian8787/wrestleguess/models"
)

// PostgresPickRepository stores picks with one pick_choices row per match.
// Legacy (version 1) rows have a NULL confidence.
type PostgresPickRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPickRepository constructs a repository backed by Postgres
func NewPostgresPickRepository(pg *Postgres) *PostgresPickRepository {
	return &PostgresPickRepository{pool: pg.Pool}
}

const pickSelect = `
	SELECT p.id, p.event_id, p.user_id, p.version, p.submitted_at, p.updated_at,
	       c.match_id, c.winner, c.confidence
	FROM picks p
	LEFT JOIN pick_choices c ON c.pick_id = p.id
`

// GetPicksForEvent returns every pick submitted for an event
func (r *PostgresPickRepository) GetPicksForEvent(ctx context.Context, eventID string) ([]models.Pick, error) {
	rows, err := r.pool.Query(ctx, pickSelect+` WHERE p.event_id = $1 ORDER BY p.user_id, c.match_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query picks for event %s: %w", eventID, err)
	}
	picks, err := collectPicks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read picks for event %s: %w", eventID, err)
	}
	return picks, nil
}

// GetPick returns one user's pick for an event, or nil, nil
func (r *PostgresPickRepository) GetPick(ctx context.Context, eventID, userID string) (*models.Pick, error) {
	rows, err := r.pool.Query(ctx, pickSelect+` WHERE p.event_id = $1 AND p.user_id = $2 ORDER BY c.match_id`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pick: %w", err)
	}
	picks, err := collectPicks(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read pick: %w", err)
	}
	if len(picks) == 0 {
		return nil, nil
	}
	return &picks[0], nil
}

// collectPicks folds joined pick/choice rows, ordered by pick, into picks
func collectPicks(rows pgx.Rows) ([]models.Pick, error) {
	defer rows.Close()

	var picks []models.Pick
	for rows.Next() {
		var (
			p          models.Pick
			version    int
			matchID    *string
			winner     *string
			confidence *int
		)
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &version, &p.SubmittedAt, &p.UpdatedAt, &matchID, &winner, &confidence); err != nil {
			return nil, err
		}
		p.Version = models.PickVersion(version)

		if len(picks) == 0 || picks[len(picks)-1].ID != p.ID {
			if p.IsLegacy() {
				p.LegacyChoices = make(map[string]string)
			} else {
				p.Choices = make(map[string]models.Choice)
			}
			picks = append(picks, p)
		}
		if matchID == nil || winner == nil {
			continue
		}

		current := &picks[len(picks)-1]
		if current.IsLegacy() {
			current.LegacyChoices[*matchID] = *winner
			continue
		}
		choice := models.Choice{Winner: *winner}
		if confidence != nil {
			choice.Confidence = *confidence
		}
		current.Choices[*matchID] = choice
	}
	return picks, rows.Err()
}

// UpsertPick writes the pick and replaces its choices in one transaction
func (r *PostgresPickRepository) UpsertPick(ctx context.Context, pick *models.Pick) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var total *int
		if !pick.IsLegacy() {
			t := pick.TotalConfidence()
			total = &t
		}

		const upsert = `
			INSERT INTO picks (event_id, user_id, version, total_confidence, submitted_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (event_id, user_id)
			DO UPDATE SET version = EXCLUDED.version,
			              total_confidence = EXCLUDED.total_confidence,
			              updated_at = EXCLUDED.updated_at
			RETURNING id, submitted_at
		`
		err := tx.QueryRow(ctx, upsert, pick.EventID, pick.UserID, int(pick.Version), total, pick.SubmittedAt, pick.UpdatedAt).
			Scan(&pick.ID, &pick.SubmittedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert pick: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM pick_choices WHERE pick_id = $1`, pick.ID); err != nil {
			return fmt.Errorf("failed to clear pick choices: %w", err)
		}

		const insertChoice = `INSERT INTO pick_choices (pick_id, match_id, winner, confidence) VALUES ($1, $2, $3, $4)`
		batch := &pgx.Batch{}
		if pick.IsLegacy() {
			for matchID, winner := range pick.LegacyChoices {
				batch.Queue(insertChoice, pick.ID, matchID, winner, nil)
			}
		} else {
			for matchID, choice := range pick.Choices {
				batch.Queue(insertChoice, pick.ID, matchID, choice.Winner, choice.Confidence)
			}
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert pick choices: %w", err)
		}
		return nil
	})
}
