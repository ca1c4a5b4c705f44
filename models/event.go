package models

import (
	"time"
)

// DefaultMultiplier applies to matches stored without an explicit multiplier
const DefaultMultiplier = 1.0

// Event represents a wrestling card that users make picks for
type Event struct {
	ID        string     `json:"id" bson:"_id"`
	Name      string     `json:"name" bson:"name"`
	Brand     string     `json:"brand" bson:"brand"`
	Date      time.Time  `json:"date" bson:"date"`
	Locked    bool       `json:"locked" bson:"locked"`
	Scored    bool       `json:"scored" bson:"scored"`
	ScoredAt  *time.Time `json:"scoredAt,omitempty" bson:"scored_at,omitempty"`
	Matches   []Match    `json:"matches" bson:"matches"`
	CreatedBy string     `json:"createdBy,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Match is a single bout on an event card
type Match struct {
	MatchID     string   `json:"matchId" bson:"match_id"`
	Order       int      `json:"order" bson:"order"`
	Type        string   `json:"type" bson:"type"` // "Singles", "Tag Team", ...
	TitleMatch  bool     `json:"titleMatch" bson:"title_match"`
	Competitors []string `json:"competitors" bson:"competitors"`
	Winner      string   `json:"winner,omitempty" bson:"winner,omitempty"` // empty until recorded
	Multiplier  float64  `json:"multiplier" bson:"multiplier"`
}

// HasWinner returns true once a result has been recorded for the match
func (m *Match) HasWinner() bool {
	return m.Winner != ""
}

// MultiplierOrDefault maps a zero or negative multiplier to DefaultMultiplier
func MultiplierOrDefault(multiplier float64) float64 {
	if multiplier <= 0 {
		return DefaultMultiplier
	}
	return multiplier
}

// HasCompetitor reports whether name is one of the match's competitors (exact match)
func (m *Match) HasCompetitor(name string) bool {
	for _, c := range m.Competitors {
		if c == name {
			return true
		}
	}
	return false
}

// MatchByID returns the match with the given id, or nil
func (e *Event) MatchByID(matchID string) *Match {
	for i := range e.Matches {
		if e.Matches[i].MatchID == matchID {
			return &e.Matches[i]
		}
	}
	return nil
}

// MatchesMissingWinners returns the ids of matches without a recorded winner
func (e *Event) MatchesMissingWinners() []string {
	var missing []string
	for _, m := range e.Matches {
		if !m.HasWinner() {
			missing = append(missing, m.MatchID)
		}
	}
	return missing
}

// AllMatchesHaveWinners returns true when every match has a recorded winner
func (e *Event) AllMatchesHaveWinners() bool {
	return len(e.MatchesMissingWinners()) == 0
}
