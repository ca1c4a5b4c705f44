package app

import (
	"context"
	"time"

	"github.com/lewisian8787/wrestleguess/database"
	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/models"
)

// DemoPassword is shared by every seeded demo player
const DemoPassword = "wrestleguess"

// Demo ids, stable so they can be used from curl
const (
	DemoLockedEventID = "demo-wm40"
	DemoOpenEventID   = "demo-raw"
	DemoLeagueID      = "demo-league"
)

type demoPlayer struct {
	name   string
	email  string
	legacy bool
	picks  map[string]models.Choice
}

var demoPlayers = []demoPlayer{
	{
		name:  "Cody Fan",
		email: "cody@demo.wrestleguess.com",
		picks: map[string]models.Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 40},
			"m2": {Winner: "Rhea Ripley", Confidence: 60},
		},
	},
	{
		name:  "Becky Fan",
		email: "becky@demo.wrestleguess.com",
		picks: map[string]models.Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 70},
			"m2": {Winner: "Becky Lynch", Confidence: 30},
		},
	},
	{
		name:   "Old Timer",
		email:  "oldtimer@demo.wrestleguess.com",
		legacy: true,
		picks: map[string]models.Choice{
			"m1": {Winner: "Roman Reigns"},
			"m2": {Winner: "Rhea Ripley"},
		},
	},
}

// SeedDemo fills store with a scorable card, an open card, one league and
// a few players, one of them holding a legacy pick.
func SeedDemo(store *database.MemoryStore) *database.MemoryStore {
	logger := logging.WithPrefix("Demo")
	ctx := context.Background()
	now := time.Now().UTC()

	store.SaveEvent(&models.Event{
		ID:     DemoLockedEventID,
		Name:   "WrestleMania 40 Night 2",
		Brand:  "PLE",
		Date:   now.Add(-24 * time.Hour),
		Locked: true,
		Matches: []models.Match{
			{MatchID: "m1", Order: 0, Type: "Singles", TitleMatch: true, Competitors: []string{"Cody Rhodes", "Roman Reigns"}, Winner: "Cody Rhodes", Multiplier: 1.0},
			{MatchID: "m2", Order: 1, Type: "Singles", TitleMatch: true, Competitors: []string{"Rhea Ripley", "Becky Lynch"}, Winner: "Rhea Ripley", Multiplier: 1.5},
		},
	})
	store.SaveEvent(&models.Event{
		ID:    DemoOpenEventID,
		Name:  "Monday Night Raw",
		Brand: "Raw",
		Date:  now.Add(7 * 24 * time.Hour),
		Matches: []models.Match{
			{MatchID: "m1", Order: 0, Type: "Singles", Competitors: []string{"Gunther", "Sami Zayn"}, Multiplier: 1.0},
			{MatchID: "m2", Order: 1, Type: "Tag Team", Competitors: []string{"The Judgment Day", "Awesome Truth"}, Multiplier: 1.0},
			{MatchID: "m3", Order: 2, Type: "Singles", Competitors: []string{"Liv Morgan", "Bayley"}, Multiplier: 2.0},
		},
	})
	store.SaveLeague(&models.League{ID: DemoLeagueID, Name: "Demo League", JoinCode: "demo01"})

	for _, p := range demoPlayers {
		user := &models.User{DisplayName: p.name, Email: p.email}
		if err := user.HashPassword(DemoPassword); err != nil {
			logger.Errorf("Failed to hash demo password for %s: %v", p.email, err)
			continue
		}
		user = store.SaveUser(user)
		store.AddMember(DemoLeagueID, user.ID, p.name)

		var pick *models.Pick
		if p.legacy {
			winners := make(map[string]string, len(p.picks))
			for matchID, c := range p.picks {
				winners[matchID] = c.Winner
			}
			pick = models.NewLegacyPick(DemoLockedEventID, user.ID, winners)
		} else {
			pick = models.NewConfidencePick(DemoLockedEventID, user.ID, p.picks)
		}
		if err := store.UpsertPick(ctx, pick); err != nil {
			logger.Errorf("Failed to seed pick for %s: %v", p.email, err)
		}
	}

	logger.Infof("Seeded %d demo players (password %q), events %s and %s",
		len(demoPlayers), DemoPassword, DemoLockedEventID, DemoOpenEventID)
	return store
}
