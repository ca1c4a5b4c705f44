package services

import (
	"context"
	"fmt"
	"time"

	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// DefaultBatchSize keeps each commit under a 500-operation backend ceiling
const DefaultBatchSize = 450

// ApplyResult summarises a standings run
type ApplyResult struct {
	Applied int // memberships whose totals changed
	Skipped int // memberships already scored for the event (or missing)
	Chunks  int // chunks committed
}

// StandingsUpdater applies score records to league memberships in bounded
// chunks. Each chunk commits on its own; the store's conditional write keeps
// a membership from being credited twice, so a failed run can simply be
// repeated.
type StandingsUpdater struct {
	store     StandingsStore
	batchSize int
	now       func() time.Time
	logger    *logging.Logger
}

// NewStandingsUpdater creates an updater. batchSize <= 0 commits everything in one chunk.
func NewStandingsUpdater(store StandingsStore, batchSize int) *StandingsUpdater {
	return &StandingsUpdater{
		store:     store,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logging.WithPrefix("Standings"),
	}
}

// Apply writes every membership score for the event.
// On a failed chunk it stops and returns a *PartialWriteError; chunks already
// committed are left in place.
func (u *StandingsUpdater) Apply(ctx context.Context, eventID string, scores []models.MembershipScore) (ApplyResult, error) {
	var result ApplyResult
	chunks := ChunkMemberships(scores, u.batchSize)
	scoredAt := u.now().UTC()
	log := u.logger.WithField("event", eventID)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, u.partial(eventID, chunks, i, result, fmt.Errorf("cancelled before chunk %d: %w", i+1, err))
		}

		applied, skipped, err := u.store.ApplyEventScores(ctx, eventID, scoredAt, chunk)
		if err != nil {
			log.Errorf("Chunk %d/%d failed after %d committed: %v", i+1, len(chunks), i, err)
			return result, u.partial(eventID, chunks, i, result, err)
		}

		result.Applied += applied
		result.Skipped += skipped
		result.Chunks++

		log.Debugf("Committed chunk %d/%d: %d applied, %d skipped", i+1, len(chunks), applied, skipped)
		if skipped > 0 {
			log.Warnf("%d membership(s) in chunk %d were already scored or missing", skipped, i+1)
		}
	}

	return result, nil
}

func (u *StandingsUpdater) partial(eventID string, chunks [][]models.MembershipScore, failedAt int, result ApplyResult, err error) error {
	var pending []models.MembershipScore
	for _, chunk := range chunks[failedAt:] {
		pending = append(pending, chunk...)
	}
	return &PartialWriteError{
		EventID:         eventID,
		ChunksTotal:     len(chunks),
		ChunksCommitted: result.Chunks,
		Applied:         result.Applied,
		Skipped:         result.Skipped,
		Pending:         pending,
		Err:             err,
	}
}

// ChunkMemberships splits scores into consecutive chunks of at most size
// entries. size <= 0 yields a single chunk; an empty input yields none.
func ChunkMemberships(scores []models.MembershipScore, size int) [][]models.MembershipScore {
	if len(scores) == 0 {
		return nil
	}
	if size <= 0 || size >= len(scores) {
		return [][]models.MembershipScore{scores}
	}

	chunks := make([][]models.MembershipScore, 0, (len(scores)+size-1)/size)
	for start := 0; start < len(scores); start += size {
		end := start + size
		if end > len(scores) {
			end = len(scores)
		}
		chunks = append(chunks, scores[start:end:end])
	}
	return chunks
}
