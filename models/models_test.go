package models

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	Convey("Given a card with one result recorded", t, func() {
		event := &Event{
			ID: "e1",
			Matches: []Match{
				{MatchID: "m1", Competitors: []string{"Cody Rhodes", "Roman Reigns"}, Winner: "Cody Rhodes", Multiplier: 1.5},
				{MatchID: "m2", Competitors: []string{"Rhea Ripley", "Becky Lynch"}},
			},
		}

		Convey("Missing winners are listed by match id", func() {
			So(event.MatchesMissingWinners(), ShouldResemble, []string{"m2"})
			So(event.AllMatchesHaveWinners(), ShouldBeFalse)

			event.Matches[1].Winner = "Becky Lynch"
			So(event.MatchesMissingWinners(), ShouldBeEmpty)
			So(event.AllMatchesHaveWinners(), ShouldBeTrue)
		})

		Convey("Matches are found by id", func() {
			So(event.MatchByID("m2").Competitors, ShouldContain, "Becky Lynch")
			So(event.MatchByID("m9"), ShouldBeNil)
		})

		Convey("Unset multipliers default to 1", func() {
			So(MultiplierOrDefault(event.Matches[0].Multiplier), ShouldEqual, 1.5)
			So(MultiplierOrDefault(event.Matches[1].Multiplier), ShouldEqual, DefaultMultiplier)
			So(MultiplierOrDefault(-1), ShouldEqual, DefaultMultiplier)
			So(MultiplierOrDefault(2), ShouldEqual, 2)
		})

		Convey("Competitor names match exactly", func() {
			So(event.Matches[0].HasCompetitor("Cody Rhodes"), ShouldBeTrue)
			So(event.Matches[0].HasCompetitor("cody rhodes"), ShouldBeFalse)
		})
	})
}

func TestPick(t *testing.T) {
	Convey("Confidence picks expose their choices", t, func() {
		pick := NewConfidencePick("e1", "u1", map[string]Choice{
			"m1": {Winner: "Cody Rhodes", Confidence: 60},
			"m2": {Winner: "Rhea Ripley", Confidence: 40},
		})
		So(pick.IsLegacy(), ShouldBeFalse)
		choices, ok := pick.ConfidenceChoices()
		So(ok, ShouldBeTrue)
		So(choices, ShouldHaveLength, 2)
		So(pick.TotalConfidence(), ShouldEqual, RequiredConfidenceTotal)
	})

	Convey("Legacy picks carry no confidence", t, func() {
		pick := NewLegacyPick("e1", "u1", map[string]string{"m1": "Cody Rhodes"})
		So(pick.IsLegacy(), ShouldBeTrue)
		_, ok := pick.ConfidenceChoices()
		So(ok, ShouldBeFalse)
		So(pick.TotalConfidence(), ShouldEqual, 0)
	})

	Convey("An unknown version is treated as legacy", t, func() {
		pick := &Pick{Version: 0, Choices: map[string]Choice{"m1": {Winner: "A", Confidence: 100}}}
		So(pick.IsLegacy(), ShouldBeTrue)
	})
}

func TestLeagueMember(t *testing.T) {
	Convey("Given a score record", t, func() {
		at := time.Date(2024, 4, 7, 23, 0, 0, 0, time.UTC)
		entry := ScoreRecord{Points: 130, CorrectPicks: 2, TotalPicks: 2}.ToEventScore(at)

		So(entry.Scored, ShouldBeTrue)
		So(entry.Points, ShouldEqual, 130)
		So(*entry.ScoredAt, ShouldEqual, at)

		Convey("A membership only reports events it carries as scored", func() {
			member := &LeagueMember{}
			So(member.HasScoredEvent("e1"), ShouldBeFalse)

			member.EventScores = map[string]EventScore{"e1": entry, "e2": {Points: 10}}
			So(member.HasScoredEvent("e1"), ShouldBeTrue)
			So(member.HasScoredEvent("e2"), ShouldBeFalse)
		})
	})
}

func TestUser(t *testing.T) {
	Convey("Passwords are hashed and never serialized", t, func() {
		user := &User{ID: "u1", Email: "fan@example.com", DisplayName: "Fan"}
		So(user.HashPassword("hunter22"), ShouldBeNil)
		So(user.Password, ShouldNotEqual, "hunter22")
		So(user.CheckPassword("hunter22"), ShouldBeTrue)
		So(user.CheckPassword("hunter23"), ShouldBeFalse)

		raw, err := json.Marshal(user)
		So(err, ShouldBeNil)
		So(string(raw), ShouldNotContainSubstring, user.Password)

		So(user.ToSafeUser().Password, ShouldBeEmpty)
	})
}
