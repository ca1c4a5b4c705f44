package models

import (
	"time"
)

// League groups users that compete on an independent standings table
type League struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	JoinCode  string    `json:"joinCode" bson:"join_code"`
	CreatedBy string    `json:"createdBy" bson:"created_by"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// EventScore is the per-event entry stored on a league membership
type EventScore struct {
	Points       float64    `json:"points" bson:"points"`
	CorrectPicks int        `json:"correctPicks" bson:"correct_picks"`
	TotalPicks   int        `json:"totalPicks" bson:"total_picks"`
	Scored       bool       `json:"scored" bson:"scored"`
	ScoredAt     *time.Time `json:"scoredAt,omitempty" bson:"scored_at,omitempty"`
}

// LeagueMember holds a user's running total inside one league.
// TotalPoints only ever grows, by exactly EventScores[e].Points when
// EventScores[e].Scored flips to true.
type LeagueMember struct {
	LeagueID    string                `json:"leagueId" bson:"league_id"`
	UserID      string                `json:"userId" bson:"user_id"`
	DisplayName string                `json:"displayName" bson:"display_name"`
	TotalPoints float64               `json:"totalPoints" bson:"total_points"`
	EventScores map[string]EventScore `json:"eventScores" bson:"event_scores"`
	JoinedAt    time.Time             `json:"joinedAt" bson:"joined_at"`
}

// HasScoredEvent returns true if the event has already been applied to this membership
func (m *LeagueMember) HasScoredEvent(eventID string) bool {
	if m.EventScores == nil {
		return false
	}
	return m.EventScores[eventID].Scored
}

// ScoreRecord is the calculator's output for one user on one event
type ScoreRecord struct {
	Points       float64 `json:"points"`
	CorrectPicks int     `json:"correctPicks"`
	TotalPicks   int     `json:"totalPicks"`
}

// ToEventScore converts a score record into the persisted membership entry
func (r ScoreRecord) ToEventScore(scoredAt time.Time) EventScore {
	return EventScore{
		Points:       r.Points,
		CorrectPicks: r.CorrectPicks,
		TotalPicks:   r.TotalPicks,
		Scored:       true,
		ScoredAt:     &scoredAt,
	}
}

// MembershipScore pairs a league membership with the score to apply to it
type MembershipScore struct {
	LeagueID string      `json:"leagueId"`
	UserID   string      `json:"userId"`
	Score    ScoreRecord `json:"score"`
}

// StandingEntry is one row of a league standings table
type StandingEntry struct {
	Rank        int                   `json:"rank"`
	UserID      string                `json:"userId"`
	DisplayName string                `json:"displayName"`
	TotalPoints float64               `json:"totalPoints"`
	EventScores map[string]EventScore `json:"eventScores"`
	JoinedAt    time.Time             `json:"joinedAt"`
}

// LeaderboardEntry is one row of the global leaderboard.
// TotalScore sums TotalPoints over every membership the user holds, so an
// event counts once per league the user belongs to (Leagues shows how many).
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	TotalScore  float64 `json:"totalScore"`
	Leagues     int     `json:"leagues"`
}
