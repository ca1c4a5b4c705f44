package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisian8787/wrestleguess/models"
)

// PostgresLeagueRepository reads leagues and memberships and applies event scores to standings
type PostgresLeagueRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLeagueRepository constructs a repository backed by Postgres
func NewPostgresLeagueRepository(pg *Postgres) *PostgresLeagueRepository {
	return &PostgresLeagueRepository{pool: pg.Pool}
}

// GetLeague finds a league by id. Returns nil, nil when absent.
func (r *PostgresLeagueRepository) GetLeague(ctx context.Context, leagueID string) (*models.League, error) {
	const q = `
		SELECT id, name, join_code, COALESCE(created_by, ''), created_at
		FROM leagues
		WHERE id = $1
	`
	var l models.League
	if err := r.pool.QueryRow(ctx, q, leagueID).Scan(&l.ID, &l.Name, &l.JoinCode, &l.CreatedBy, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find league %s: %w", leagueID, err)
	}
	return &l, nil
}

// GetLeagueIDsForUser lists the leagues the user is a member of
func (r *PostgresLeagueRepository) GetLeagueIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT league_id FROM league_members WHERE user_id = $1 ORDER BY league_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues for user %s: %w", userID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read leagues for user %s: %w", userID, err)
	}
	return ids, nil
}

const memberColumns = `league_id, user_id, display_name, total_points::float8, event_scores, joined_at`

func scanMember(row pgx.Row) (*models.LeagueMember, error) {
	var (
		m      models.LeagueMember
		scores []byte
	)
	if err := row.Scan(&m.LeagueID, &m.UserID, &m.DisplayName, &m.TotalPoints, &scores, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.EventScores = make(map[string]models.EventScore)
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &m.EventScores); err != nil {
			return nil, fmt.Errorf("failed to decode event_scores for %s/%s: %w", m.LeagueID, m.UserID, err)
		}
	}
	return &m, nil
}

// GetMembership finds one membership. Returns nil, nil when absent.
func (r *PostgresLeagueRepository) GetMembership(ctx context.Context, leagueID, userID string) (*models.LeagueMember, error) {
	q := `SELECT ` + memberColumns + ` FROM league_members WHERE league_id = $1 AND user_id = $2`
	m, err := scanMember(r.pool.QueryRow(ctx, q, leagueID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}
	return m, nil
}

// GetLeagueMembers returns the league's members by total points desc, then display name
func (r *PostgresLeagueRepository) GetLeagueMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error) {
	q := `SELECT ` + memberColumns + ` FROM league_members WHERE league_id = $1 ORDER BY total_points DESC, display_name`
	rows, err := r.pool.Query(ctx, q, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members of league %s: %w", leagueID, err)
	}
	defer rows.Close()

	var members []models.LeagueMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read members of league %s: %w", leagueID, err)
	}
	return members, nil
}

// GetGlobalLeaderboard sums total_points over every membership of each user
func (r *PostgresLeagueRepository) GetGlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	const q = `
		SELECT u.id, u.display_name, SUM(lm.total_points)::float8 AS total_score, COUNT(DISTINCT lm.league_id) AS leagues
		FROM users u
		JOIN league_members lm ON lm.user_id = u.id
		GROUP BY u.id, u.display_name
		ORDER BY total_score DESC, u.display_name
		LIMIT $1
	`
	var limitArg interface{}
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, q, limitArg)
	if err != nil {
		return nil, fmt.Errorf("failed to query global leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.TotalScore, &e.Leagues); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read global leaderboard: %w", err)
	}
	return entries, nil
}

// applyScoreSQL credits a membership only if the event has not been applied to it yet
const applyScoreSQL = `
	UPDATE league_members
	SET event_scores = event_scores || jsonb_build_object($3::text, $4::jsonb),
	    total_points = total_points + $5
	WHERE league_id = $1
	  AND user_id = $2
	  AND NOT COALESCE((event_scores -> $3::text ->> 'scored')::boolean, false)
`

// ApplyEventScores commits one chunk in a single transaction. Each row update
// is conditional, so memberships that already carry the event are skipped.
func (r *PostgresLeagueRepository) ApplyEventScores(ctx context.Context, eventID string, scoredAt time.Time, chunk []models.MembershipScore) (int, int, error) {
	if len(chunk) == 0 {
		return 0, 0, nil
	}

	batch := &pgx.Batch{}
	for _, ms := range chunk {
		entry, err := json.Marshal(ms.Score.ToEventScore(scoredAt))
		if err != nil {
			return 0, 0, fmt.Errorf("failed to encode event score: %w", err)
		}
		batch.Queue(applyScoreSQL, ms.LeagueID, ms.UserID, eventID, string(entry), ms.Score.Points)
	}

	applied := 0
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for range chunk {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return err
			}
			applied += int(tag.RowsAffected())
		}
		return results.Close()
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to apply %d standings updates for event %s: %w", len(chunk), eventID, err)
	}
	return applied, len(chunk) - applied, nil
}
