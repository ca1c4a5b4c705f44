package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/lewisian8787/wrestleguess/database"
	"github.com/lewisian8787/wrestleguess/models"
	"github.com/lewisian8787/wrestleguess/services"
)

// flakyStore fails ApplyEventScores on the listed call numbers (1-based)
type flakyStore struct {
	inner  services.StandingsStore
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

var errStoreDown = errors.New("store unavailable")

func (f *flakyStore) ApplyEventScores(ctx context.Context, eventID string, scoredAt time.Time, chunk []models.MembershipScore) (int, int, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failOn[f.calls]
	f.mu.Unlock()
	if fail {
		return 0, 0, errStoreDown
	}
	return f.inner.ApplyEventScores(ctx, eventID, scoredAt, chunk)
}

// recordingNotifier keeps every notification it receives
type recordingNotifier struct {
	mu   sync.Mutex
	sent []services.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n services.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func seedCard(store *database.MemoryStore) *models.Event {
	return store.SaveEvent(&models.Event{
		ID:     "wm40",
		Name:   "WrestleMania 40",
		Brand:  "PLE",
		Locked: true,
		Matches: []models.Match{
			{MatchID: "m1", Order: 0, Competitors: []string{"Cody Rhodes", "Roman Reigns"}, Winner: "Cody Rhodes", Multiplier: 1.0},
			{MatchID: "m2", Order: 1, Competitors: []string{"Rhea Ripley", "Becky Lynch"}, Winner: "Rhea Ripley", Multiplier: 1.5},
		},
	})
}

func savePick(store *database.MemoryStore, eventID, userID string, choices map[string]models.Choice) {
	So(store.UpsertPick(context.Background(), models.NewConfidencePick(eventID, userID, choices)), ShouldBeNil)
}

func newScoring(store *database.MemoryStore, standings services.StandingsStore, batchSize int, notifier services.Notifier) *services.ScoringService {
	return services.NewScoringService(store, store, store, services.NewStandingsUpdater(standings, batchSize), notifier, nil)
}

func memberPoints(store *database.MemoryStore, leagueID, userID string) float64 {
	m, err := store.GetMembership(context.Background(), leagueID, userID)
	So(err, ShouldBeNil)
	So(m, ShouldNotBeNil)
	return m.TotalPoints
}

func TestScoreEvent(t *testing.T) {
	ctx := context.Background()

	Convey("Given a locked event with every winner recorded", t, func() {
		store := database.NewMemoryStore()
		seedCard(store)
		store.SaveLeague(&models.League{ID: "L1", Name: "Main Event Mafia"})
		store.SaveLeague(&models.League{ID: "L2", Name: "Office Pool"})
		store.AddMember("L1", "alice", "Alice")
		store.AddMember("L1", "bob", "Bob")
		store.AddMember("L2", "alice", "Alice")

		savePick(store, "wm40", "alice", map[string]models.Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 40},
			"m2": {Winner: "Rhea Ripley", Confidence: 60},
		})
		savePick(store, "wm40", "bob", map[string]models.Choice{
			"m1": {Winner: "Roman Reigns", Confidence: 30},
			"m2": {Winner: "Rhea Ripley", Confidence: 70},
		})

		notifier := &recordingNotifier{}
		scoring := newScoring(store, store, services.DefaultBatchSize, notifier)

		Convey("When the event is scored", func() {
			result, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then every membership is credited once", func() {
				So(err, ShouldBeNil)
				So(result.UsersScored, ShouldEqual, 2)
				So(result.MembershipsUpdated, ShouldEqual, 3)
				So(result.MembershipsSkipped, ShouldEqual, 0)
				So(result.LegacySkipped, ShouldEqual, 0)
				So(result.Chunks, ShouldEqual, 1)

				So(memberPoints(store, "L1", "alice"), ShouldEqual, 130.0)
				So(memberPoints(store, "L1", "bob"), ShouldEqual, 105.0)
			})

			Convey("Then a user in two leagues gets the same increment in both", func() {
				So(memberPoints(store, "L1", "alice"), ShouldEqual, memberPoints(store, "L2", "alice"))

				m, _ := store.GetMembership(ctx, "L2", "alice")
				So(m.EventScores["wm40"].Scored, ShouldBeTrue)
				So(m.EventScores["wm40"].CorrectPicks, ShouldEqual, 2)
				So(m.EventScores["wm40"].TotalPicks, ShouldEqual, 2)
				So(m.EventScores["wm40"].ScoredAt, ShouldNotBeNil)
			})

			Convey("Then the event is marked scored", func() {
				event, _ := store.GetEventWithMatches(ctx, "wm40")
				So(event.Scored, ShouldBeTrue)
				So(event.ScoredAt, ShouldNotBeNil)
			})

			Convey("Then subscribers are told", func() {
				So(notifier.sent, ShouldHaveLength, 1)
				So(notifier.sent[0].Type, ShouldEqual, services.NotificationEventScored)
				So(notifier.sent[0].EventID, ShouldEqual, "wm40")
				So(notifier.sent[0].UsersScored, ShouldEqual, 2)
			})

			Convey("And scoring it again fails without changing any total", func() {
				again, err := scoring.ScoreEvent(ctx, "wm40")
				So(again, ShouldBeNil)
				So(errors.Is(err, services.ErrEventAlreadyScored), ShouldBeTrue)
				So(memberPoints(store, "L1", "alice"), ShouldEqual, 130.0)
				So(memberPoints(store, "L2", "alice"), ShouldEqual, 130.0)
				So(memberPoints(store, "L1", "bob"), ShouldEqual, 105.0)
				So(notifier.sent, ShouldHaveLength, 1)
			})
		})

		Convey("When the notifier fails", func() {
			notifier.err = errors.New("broker down")
			result, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then scoring still succeeds", func() {
				So(err, ShouldBeNil)
				So(result.MembershipsUpdated, ShouldEqual, 3)
			})
		})

		Convey("When a user only has a legacy pick", func() {
			store.AddMember("L1", "carl", "Carl")
			So(store.UpsertPick(ctx, models.NewLegacyPick("wm40", "carl", map[string]string{
				"m1": "Cody Rhodes", "m2": "Rhea Ripley",
			})), ShouldBeNil)

			result, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then they are skipped and their membership is untouched", func() {
				So(err, ShouldBeNil)
				So(result.UsersScored, ShouldEqual, 2)
				So(result.LegacySkipped, ShouldEqual, 1)

				m, _ := store.GetMembership(ctx, "L1", "carl")
				So(m.TotalPoints, ShouldEqual, 0)
				So(m.HasScoredEvent("wm40"), ShouldBeFalse)
			})
		})

		Convey("When a scored user belongs to no league", func() {
			savePick(store, "wm40", "drifter", map[string]models.Choice{
				"m1": {Winner: "Cody Rhodes", Confidence: 100},
			})
			result, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then they count as scored but update nothing", func() {
				So(err, ShouldBeNil)
				So(result.UsersScored, ShouldEqual, 3)
				So(result.MembershipsUpdated, ShouldEqual, 3)
			})
		})

		Convey("When a membership already carries this event", func() {
			_, _, err := store.ApplyEventScores(ctx, "wm40", time.Now(), []models.MembershipScore{
				{LeagueID: "L1", UserID: "bob", Score: models.ScoreRecord{Points: 105, CorrectPicks: 1, TotalPicks: 2}},
			})
			So(err, ShouldBeNil)

			result, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then it is skipped rather than credited again", func() {
				So(err, ShouldBeNil)
				So(result.MembershipsUpdated, ShouldEqual, 2)
				So(result.MembershipsSkipped, ShouldEqual, 1)
				So(memberPoints(store, "L1", "bob"), ShouldEqual, 105.0)
			})
		})

		Convey("When a preview is requested", func() {
			sheet, err := scoring.PreviewScores(ctx, "wm40")

			Convey("Then scores are computed and nothing is written", func() {
				So(err, ShouldBeNil)
				So(sheet.Scores["alice"].Points, ShouldEqual, 130.0)
				So(memberPoints(store, "L1", "alice"), ShouldEqual, 0)
				event, _ := store.GetEventWithMatches(ctx, "wm40")
				So(event.Scored, ShouldBeFalse)
			})
		})
	})

	Convey("Given an unknown event", t, func() {
		store := database.NewMemoryStore()
		scoring := newScoring(store, store, 0, nil)

		Convey("ScoreEvent reports it as not found", func() {
			_, err := scoring.ScoreEvent(ctx, "nope")
			So(errors.Is(err, services.ErrEventNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a three match card", t, func() {
		winners := []string{"A", "B", "C"}

		Convey("Every combination with a missing winner is rejected before any write", func() {
			for mask := 0; mask < 7; mask++ {
				store := database.NewMemoryStore()
				event := &models.Event{ID: "evt", Locked: true}
				for i, w := range winners {
					match := models.Match{MatchID: w, Competitors: []string{w, "X"}, Multiplier: 1}
					if mask&(1<<i) != 0 {
						match.Winner = w
					}
					event.Matches = append(event.Matches, match)
				}
				store.SaveEvent(event)
				store.SaveLeague(&models.League{ID: "L"})
				store.AddMember("L", "u", "U")
				savePick(store, "evt", "u", map[string]models.Choice{
					"A": {Winner: "A", Confidence: 30},
					"B": {Winner: "B", Confidence: 30},
					"C": {Winner: "C", Confidence: 40},
				})

				_, err := newScoring(store, store, 0, nil).ScoreEvent(ctx, "evt")
				So(errors.Is(err, services.ErrIncompleteOutcomes), ShouldBeTrue)

				var incomplete *services.IncompleteOutcomesError
				So(errors.As(err, &incomplete), ShouldBeTrue)
				So(incomplete.MatchIDs, ShouldNotBeEmpty)

				So(memberPoints(store, "L", "u"), ShouldEqual, 0)
				stored, _ := store.GetEventWithMatches(ctx, "evt")
				So(stored.Scored, ShouldBeFalse)
			}
		})

		Convey("All winners present scores normally", func() {
			store := database.NewMemoryStore()
			event := &models.Event{ID: "evt", Locked: true}
			for _, w := range winners {
				event.Matches = append(event.Matches, models.Match{MatchID: w, Competitors: []string{w, "X"}, Winner: w})
			}
			store.SaveEvent(event)
			store.SaveLeague(&models.League{ID: "L"})
			store.AddMember("L", "u", "U")
			savePick(store, "evt", "u", map[string]models.Choice{
				"A": {Winner: "A", Confidence: 30},
				"B": {Winner: "B", Confidence: 30},
				"C": {Winner: "C", Confidence: 40},
			})

			_, err := newScoring(store, store, 0, nil).ScoreEvent(ctx, "evt")
			So(err, ShouldBeNil)
			So(memberPoints(store, "L", "u"), ShouldEqual, 100.0)
		})
	})

	Convey("Given more memberships than fit in one chunk", t, func() {
		store := database.NewMemoryStore()
		seedCard(store)
		users := []string{"u1", "u2", "u3", "u4", "u5"}
		for _, u := range users {
			store.SaveLeague(&models.League{ID: "L-" + u})
			store.AddMember("L-"+u, u, u)
			savePick(store, "wm40", u, map[string]models.Choice{
				"m1": {Winner: "Cody Rhodes", Confidence: 50},
				"m2": {Winner: "Becky Lynch", Confidence: 50},
			})
		}

		flaky := &flakyStore{inner: store, failOn: map[int]bool{2: true}}
		scoring := newScoring(store, flaky, 2, nil)

		Convey("When the second chunk fails", func() {
			_, err := scoring.ScoreEvent(ctx, "wm40")

			Convey("Then the first chunk stays committed and the event stays unscored", func() {
				So(errors.Is(err, services.ErrPartialWrite), ShouldBeTrue)
				So(errors.Is(err, errStoreDown), ShouldBeTrue)

				var partial *services.PartialWriteError
				So(errors.As(err, &partial), ShouldBeTrue)
				So(partial.ChunksTotal, ShouldEqual, 3)
				So(partial.ChunksCommitted, ShouldEqual, 1)
				So(partial.Applied, ShouldEqual, 2)
				So(partial.Pending, ShouldHaveLength, 3)

				So(memberPoints(store, "L-u1", "u1"), ShouldEqual, 50.0)
				So(memberPoints(store, "L-u2", "u2"), ShouldEqual, 50.0)
				So(memberPoints(store, "L-u3", "u3"), ShouldEqual, 0)

				event, _ := store.GetEventWithMatches(ctx, "wm40")
				So(event.Scored, ShouldBeFalse)
			})

			Convey("And a retry finishes only the pending memberships", func() {
				result, err := scoring.ScoreEvent(ctx, "wm40")
				So(err, ShouldBeNil)
				So(result.MembershipsUpdated, ShouldEqual, 3)
				So(result.MembershipsSkipped, ShouldEqual, 2)

				for _, u := range users {
					So(memberPoints(store, "L-"+u, u), ShouldEqual, 50.0)
				}
				event, _ := store.GetEventWithMatches(ctx, "wm40")
				So(event.Scored, ShouldBeTrue)
			})
		})
	})

	Convey("Given a cancelled context", t, func() {
		store := database.NewMemoryStore()
		seedCard(store)
		store.SaveLeague(&models.League{ID: "L1"})
		store.AddMember("L1", "alice", "Alice")
		savePick(store, "wm40", "alice", map[string]models.Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 100},
		})

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		Convey("Scoring stops before the first chunk and leaves the event unscored", func() {
			_, err := newScoring(store, store, 0, nil).ScoreEvent(cancelled, "wm40")
			So(errors.Is(err, services.ErrPartialWrite), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(memberPoints(store, "L1", "alice"), ShouldEqual, 0)
		})
	})
}
