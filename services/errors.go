package services

import (
	"errors"
	"fmt"

	"github.com/lewisian8787/wrestleguess/models"
)

// Scoring precondition failures. Each is reported before anything is written.
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyScored = errors.New("event has already been scored")
	ErrIncompleteOutcomes = errors.New("all matches must have winners before scoring")
)

// ErrPartialWrite matches any *PartialWriteError via errors.Is
var ErrPartialWrite = errors.New("standings update partially applied")

// Pick submission and read-side failures
var (
	ErrEventLocked        = errors.New("event is locked")
	ErrInvalidPick        = errors.New("invalid pick")
	ErrLeagueNotFound     = errors.New("league not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// IncompleteOutcomesError lists the matches that still need a winner
type IncompleteOutcomesError struct {
	EventID  string
	MatchIDs []string
}

func (e *IncompleteOutcomesError) Error() string {
	return fmt.Sprintf("%s: event %s has %d match(es) without a winner %v",
		ErrIncompleteOutcomes, e.EventID, len(e.MatchIDs), e.MatchIDs)
}

func (e *IncompleteOutcomesError) Unwrap() error { return ErrIncompleteOutcomes }

// PartialWriteError reports a standings run that stopped on a failed chunk.
// Chunks before the failure stay committed; Pending holds every membership
// from the failed chunk onward. Re-running the same event is safe.
type PartialWriteError struct {
	EventID         string
	ChunksTotal     int
	ChunksCommitted int
	Applied         int
	Skipped         int
	Pending         []models.MembershipScore
	Err             error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s for event %s: %d/%d chunks committed (%d applied, %d already scored, %d pending): %v",
		ErrPartialWrite, e.EventID, e.ChunksCommitted, e.ChunksTotal, e.Applied, e.Skipped, len(e.Pending), e.Err)
}

// Is lets errors.Is(err, ErrPartialWrite) match
func (e *PartialWriteError) Is(target error) bool { return target == ErrPartialWrite }

func (e *PartialWriteError) Unwrap() error { return e.Err }

// InvalidPickError carries the human-readable reason a submission was rejected
type InvalidPickError struct {
	Reason string
}

func (e *InvalidPickError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPick, e.Reason)
}

func (e *InvalidPickError) Unwrap() error { return ErrInvalidPick }

func invalidPick(format string, args ...interface{}) error {
	return &InvalidPickError{Reason: fmt.Sprintf(format, args...)}
}
