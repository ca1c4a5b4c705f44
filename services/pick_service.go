package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/models"
)

// PickService handles business logic for picks
type PickService struct {
	events  EventRepository
	picks   PickRepository
	metrics *metrics.Manager
	now     func() time.Time
	logger  *logging.Logger
}

// NewPickService creates a new pick service
func NewPickService(events EventRepository, picks PickRepository, m *metrics.Manager) *PickService {
	return &PickService{
		events:  events,
		picks:   picks,
		metrics: m,
		now:     time.Now,
		logger:  logging.WithPrefix("Picks"),
	}
}

// SubmitPicks validates and stores a user's confidence picks for an event.
// Resubmitting before the event locks replaces the previous pick.
func (s *PickService) SubmitPicks(ctx context.Context, userID, eventID string, choices map[string]models.Choice) (*models.Pick, error) {
	event, err := s.events.GetEventWithMatches(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if event.Locked || event.Scored {
		return nil, fmt.Errorf("%w: %s", ErrEventLocked, eventID)
	}

	if err := ValidateChoices(event, choices); err != nil {
		return nil, err
	}

	pick := models.NewConfidencePick(eventID, userID, choices)
	now := s.now().UTC()
	pick.UpdatedAt = now
	pick.SubmittedAt = now
	if existing, err := s.picks.GetPick(ctx, eventID, userID); err != nil {
		return nil, fmt.Errorf("failed to load existing pick: %w", err)
	} else if existing != nil {
		pick.ID = existing.ID
		pick.SubmittedAt = existing.SubmittedAt
	}

	if err := s.picks.UpsertPick(ctx, pick); err != nil {
		return nil, fmt.Errorf("failed to save pick for user %s on event %s: %w", userID, eventID, err)
	}

	s.metrics.RecordPickSubmitted()
	s.logger.Debugf("User %s saved picks for event %s", userID, eventID)
	return pick, nil
}

// GetPick returns the user's pick for an event, or nil if there is none
func (s *PickService) GetPick(ctx context.Context, userID, eventID string) (*models.Pick, error) {
	pick, err := s.picks.GetPick(ctx, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pick: %w", err)
	}
	return pick, nil
}

// ValidateChoices applies the submission rules: one choice per match, winners
// drawn from the match's competitors, confidence between 0 and 100 and a total
// of exactly 100.
func ValidateChoices(event *models.Event, choices map[string]models.Choice) error {
	if len(choices) == 0 {
		return invalidPick("choices are required")
	}

	matchIDs := make([]string, 0, len(choices))
	for matchID := range choices {
		matchIDs = append(matchIDs, matchID)
	}
	sort.Strings(matchIDs)

	total := 0
	for _, matchID := range matchIDs {
		choice := choices[matchID]
		match := event.MatchByID(matchID)
		if match == nil {
			return invalidPick("unknown match %s", matchID)
		}
		if choice.Winner == "" {
			return invalidPick("match %s has no winner selected", matchID)
		}
		if len(match.Competitors) > 0 && !match.HasCompetitor(choice.Winner) {
			return invalidPick("%s is not a competitor in match %s", choice.Winner, matchID)
		}
		if choice.Confidence < 0 || choice.Confidence > models.RequiredConfidenceTotal {
			return invalidPick("confidence for match %s must be between 0 and %d", matchID, models.RequiredConfidenceTotal)
		}
		total += choice.Confidence
	}

	if total != models.RequiredConfidenceTotal {
		return invalidPick("total confidence must equal %d. Current total: %d", models.RequiredConfidenceTotal, total)
	}
	if len(choices) != len(event.Matches) {
		return invalidPick("you must make a pick for every match")
	}
	return nil
}
