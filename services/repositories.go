package services

import (
	"context"
	"time"

	"github.com/lewisian8787/wrestleguess/models"
)

// EventRepository reads events with their match outcomes and flips the scored flag.
// GetEventWithMatches returns nil, nil when the event does not exist.
type EventRepository interface {
	GetEventWithMatches(ctx context.Context, eventID string) (*models.Event, error)
	// MarkEventScored sets scored/scored_at only if the event is not already
	// scored. marked is false when another run got there first.
	MarkEventScored(ctx context.Context, eventID string, scoredAt time.Time) (marked bool, err error)
}

// PickRepository reads and stores picks. One pick per (event, user).
type PickRepository interface {
	GetPicksForEvent(ctx context.Context, eventID string) ([]models.Pick, error)
	// GetPick returns nil, nil when the user has no pick for the event
	GetPick(ctx context.Context, eventID, userID string) (*models.Pick, error)
	UpsertPick(ctx context.Context, pick *models.Pick) error
}

// LeagueRepository reads league membership.
// GetLeague and GetMembership return nil, nil when absent.
type LeagueRepository interface {
	GetLeague(ctx context.Context, leagueID string) (*models.League, error)
	GetLeagueIDsForUser(ctx context.Context, userID string) ([]string, error)
	GetMembership(ctx context.Context, leagueID, userID string) (*models.LeagueMember, error)
	GetLeagueMembers(ctx context.Context, leagueID string) ([]models.LeagueMember, error)
	GetGlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// StandingsStore commits one chunk of membership score updates.
//
// For every entry the store must, in a single conditional write, add the
// score's points to total_points and set event_scores[eventID] with
// scored=true, but only when event_scores[eventID].scored is not already true.
// applied counts memberships written, skipped counts guard no-ops (already
// scored, or no such membership).
type StandingsStore interface {
	ApplyEventScores(ctx context.Context, eventID string, scoredAt time.Time, chunk []models.MembershipScore) (applied, skipped int, err error)
}

// UserRepository is used by authentication and admin seeding.
// GetUserByEmail and GetUserByID return nil, nil when absent.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}
