package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/metrics"
	"github.com/lewisian8787/wrestleguess/models"
)

// ScoreEventResult reports what a scoring run did
type ScoreEventResult struct {
	EventID            string    `json:"eventId"`
	UsersScored        int       `json:"usersScored"`
	MembershipsUpdated int       `json:"membershipsUpdated"`
	MembershipsSkipped int       `json:"membershipsSkipped"`
	LegacySkipped      int       `json:"legacySkipped"`
	Chunks             int       `json:"chunks"`
	ScoredAt           time.Time `json:"scoredAt"`
}

// ScoringService scores a finished event and applies the results to every
// league standings table the scored users belong to
type ScoringService struct {
	events   EventRepository
	picks    PickRepository
	leagues  LeagueRepository
	updater  *StandingsUpdater
	notifier Notifier
	metrics  *metrics.Manager
	now      func() time.Time
	logger   *logging.Logger
}

// NewScoringService creates a scoring service. A nil notifier disables notifications.
func NewScoringService(events EventRepository, picks PickRepository, leagues LeagueRepository, updater *StandingsUpdater, notifier Notifier, m *metrics.Manager) *ScoringService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &ScoringService{
		events:   events,
		picks:    picks,
		leagues:  leagues,
		updater:  updater,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
		logger:   logging.WithPrefix("Scoring"),
	}
}

// ScoreEvent scores an event once.
//
// It fails with ErrEventNotFound, ErrEventAlreadyScored or an
// *IncompleteOutcomesError before writing anything. If the standings update
// stops part way the event stays unscored and the *PartialWriteError is
// returned; calling ScoreEvent again finishes the remaining memberships.
func (s *ScoringService) ScoreEvent(ctx context.Context, eventID string) (*ScoreEventResult, error) {
	start := time.Now()
	result, err := s.scoreEvent(ctx, eventID)
	s.metrics.RecordScoringRun(scoringOutcome(err), time.Since(start).Seconds())
	return result, err
}

func (s *ScoringService) scoreEvent(ctx context.Context, eventID string) (*ScoreEventResult, error) {
	log := s.logger.WithField("event", eventID)

	event, err := s.loadScorableEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	picks, err := s.picks.GetPicksForEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load picks for event %s: %w", eventID, err)
	}

	sheet := CalculateScores(event.Matches, picks)
	if n := len(sheet.SkippedLegacy); n > 0 {
		log.Warnf("Skipping %d legacy pick(s) without confidence: %v", n, sheet.SkippedLegacy)
		s.metrics.RecordLegacySkipped(n)
	}
	log.Infof("Calculated scores for %d user(s) across %d match(es)", len(sheet.Scores), len(event.Matches))

	memberships, err := s.membershipScores(ctx, sheet)
	if err != nil {
		return nil, err
	}

	applied, err := s.updater.Apply(ctx, eventID, memberships)
	s.metrics.RecordStandings(applied.Applied, applied.Skipped, applied.Chunks)
	if err != nil {
		var partial *PartialWriteError
		if errors.As(err, &partial) {
			log.Errorf("Standings partially applied, event left unscored: %d pending membership(s)", len(partial.Pending))
		}
		return nil, err
	}

	scoredAt := s.now().UTC()
	marked, err := s.events.MarkEventScored(ctx, eventID, scoredAt)
	if err != nil {
		return nil, fmt.Errorf("standings applied but failed to mark event %s scored: %w", eventID, err)
	}
	if !marked {
		// Another run finished first; the membership guard kept totals correct.
		log.Warn("Event was marked scored by a concurrent run")
		return nil, fmt.Errorf("%w: %s", ErrEventAlreadyScored, eventID)
	}

	result := &ScoreEventResult{
		EventID:            eventID,
		UsersScored:        len(sheet.Scores),
		MembershipsUpdated: applied.Applied,
		MembershipsSkipped: applied.Skipped,
		LegacySkipped:      len(sheet.SkippedLegacy),
		Chunks:             applied.Chunks,
		ScoredAt:           scoredAt,
	}
	log.Infof("Scored %d user(s): %d membership(s) updated, %d already applied",
		result.UsersScored, result.MembershipsUpdated, result.MembershipsSkipped)

	s.notify(ctx, result)
	return result, nil
}

// PreviewScores runs the calculator without touching standings. The event
// must pass the same preconditions as ScoreEvent.
func (s *ScoringService) PreviewScores(ctx context.Context, eventID string) (ScoreSheet, error) {
	event, err := s.loadScorableEvent(ctx, eventID)
	if err != nil {
		return ScoreSheet{}, err
	}
	picks, err := s.picks.GetPicksForEvent(ctx, eventID)
	if err != nil {
		return ScoreSheet{}, fmt.Errorf("failed to load picks for event %s: %w", eventID, err)
	}
	return CalculateScores(event.Matches, picks), nil
}

// loadScorableEvent checks the preconditions in order: exists, not scored, all winners set
func (s *ScoringService) loadScorableEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.events.GetEventWithMatches(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	if event.Scored {
		return nil, fmt.Errorf("%w: %s", ErrEventAlreadyScored, eventID)
	}
	if missing := event.MatchesMissingWinners(); len(missing) > 0 {
		return nil, &IncompleteOutcomesError{EventID: eventID, MatchIDs: missing}
	}
	return event, nil
}

// membershipScores pairs every scored user's record with each league they belong to
func (s *ScoringService) membershipScores(ctx context.Context, sheet ScoreSheet) ([]models.MembershipScore, error) {
	var memberships []models.MembershipScore
	for _, userID := range sheet.UserIDs() {
		leagueIDs, err := s.leagues.GetLeagueIDsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list leagues for user %s: %w", userID, err)
		}
		for _, leagueID := range leagueIDs {
			memberships = append(memberships, models.MembershipScore{
				LeagueID: leagueID,
				UserID:   userID,
				Score:    sheet.Scores[userID],
			})
		}
	}
	return memberships, nil
}

func (s *ScoringService) notify(ctx context.Context, result *ScoreEventResult) {
	err := s.notifier.Notify(ctx, Notification{
		Type:               NotificationEventScored,
		EventID:            result.EventID,
		UsersScored:        result.UsersScored,
		MembershipsUpdated: result.MembershipsUpdated,
		Timestamp:          result.ScoredAt,
	})
	if err != nil {
		s.logger.Warnf("Failed to send %s notification for event %s: %v", NotificationEventScored, result.EventID, err)
	}
}

func scoringOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeScored
	case errors.Is(err, ErrEventNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrEventAlreadyScored):
		return metrics.OutcomeAlreadyScored
	case errors.Is(err, ErrIncompleteOutcomes):
		return metrics.OutcomeIncomplete
	case errors.Is(err, ErrPartialWrite):
		return metrics.OutcomePartial
	default:
		return metrics.OutcomeError
	}
}
