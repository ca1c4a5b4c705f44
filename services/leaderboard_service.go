package services

import (
	"context"
	"fmt"

	"github.com/lewisian8787/wrestleguess/models"
)

// Leaderboard limits used when the caller does not configure them
const (
	DefaultLeaderboardLimit    = 100
	DefaultLeaderboardMaxLimit = 500
)

// LeaderboardService reads league standings and the global leaderboard
type LeaderboardService struct {
	leagues      LeagueRepository
	defaultLimit int
	maxLimit     int
}

// NewLeaderboardService creates a leaderboard service. Non-positive limits fall back to the defaults.
func NewLeaderboardService(leagues LeagueRepository, defaultLimit, maxLimit int) *LeaderboardService {
	if maxLimit <= 0 {
		maxLimit = DefaultLeaderboardMaxLimit
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLeaderboardLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &LeaderboardService{
		leagues:      leagues,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// LeagueStandings returns the league's members ranked by total points.
// Members on equal points share a rank.
func (s *LeaderboardService) LeagueStandings(ctx context.Context, leagueID string) ([]models.StandingEntry, error) {
	league, err := s.leagues.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load league %s: %w", leagueID, err)
	}
	if league == nil {
		return nil, fmt.Errorf("%w: %s", ErrLeagueNotFound, leagueID)
	}

	members, err := s.leagues.GetLeagueMembers(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of league %s: %w", leagueID, err)
	}

	standings := make([]models.StandingEntry, len(members))
	for i, m := range members {
		rank := i + 1
		if i > 0 && m.TotalPoints == members[i-1].TotalPoints {
			rank = standings[i-1].Rank
		}
		standings[i] = models.StandingEntry{
			Rank:        rank,
			UserID:      m.UserID,
			DisplayName: m.DisplayName,
			TotalPoints: m.TotalPoints,
			EventScores: m.EventScores,
			JoinedAt:    m.JoinedAt,
		}
	}
	return standings, nil
}

// GlobalLeaderboard sums each user's total points over all of their leagues.
// A user in several leagues has each event counted once per league.
func (s *LeaderboardService) GlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	limit = s.ClampLimit(limit)
	entries, err := s.leagues.GetGlobalLeaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load global leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// ClampLimit applies the default to non-positive limits and caps at the maximum
func (s *LeaderboardService) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
