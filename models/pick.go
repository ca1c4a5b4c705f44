package models

import (
	"time"
)

// PickVersion tags the storage format of a pick
type PickVersion int

const (
	// PickVersionLegacy picks store a plain winner per match and carry no confidence
	PickVersionLegacy PickVersion = 1
	// PickVersionConfidence picks store winner + confidence per match
	PickVersionConfidence PickVersion = 2
)

// RequiredConfidenceTotal is the confidence budget every current pick must spend
const RequiredConfidenceTotal = 100

// Choice is a user's prediction for one match
type Choice struct {
	Winner     string `json:"winner" bson:"winner"`
	Confidence int    `json:"confidence" bson:"confidence"`
}

// Pick is one user's submission for one event.
//
// Exactly one of Choices (version 2) or LegacyChoices (version 1) is populated.
// Anything that is not version 2 is treated as legacy and never scored.
type Pick struct {
	ID            string            `json:"id" bson:"_id"`
	EventID       string            `json:"eventId" bson:"event_id"`
	UserID        string            `json:"userId" bson:"user_id"`
	Version       PickVersion       `json:"version" bson:"version"`
	Choices       map[string]Choice `json:"choices,omitempty" bson:"-"`
	LegacyChoices map[string]string `json:"legacyChoices,omitempty" bson:"-"`
	SubmittedAt   time.Time         `json:"submittedAt" bson:"submitted_at"`
	UpdatedAt     time.Time         `json:"updatedAt" bson:"updated_at"`
}

// NewConfidencePick builds a current-format pick
func NewConfidencePick(eventID, userID string, choices map[string]Choice) *Pick {
	now := time.Now()
	return &Pick{
		EventID:     eventID,
		UserID:      userID,
		Version:     PickVersionConfidence,
		Choices:     choices,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// NewLegacyPick builds a version 1 pick (winner strings only)
func NewLegacyPick(eventID, userID string, winners map[string]string) *Pick {
	now := time.Now()
	return &Pick{
		EventID:       eventID,
		UserID:        userID,
		Version:       PickVersionLegacy,
		LegacyChoices: winners,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

// IsLegacy returns true for picks that predate confidence weighting
func (p *Pick) IsLegacy() bool {
	return p.Version != PickVersionConfidence
}

// ConfidenceChoices returns the confidence-weighted choices, ok is false for legacy picks
func (p *Pick) ConfidenceChoices() (map[string]Choice, bool) {
	if p.IsLegacy() {
		return nil, false
	}
	return p.Choices, true
}

// TotalConfidence sums the confidence spent across all choices
func (p *Pick) TotalConfidence() int {
	total := 0
	for _, c := range p.Choices {
		total += c.Confidence
	}
	return total
}
