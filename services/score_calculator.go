package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/lewisian8787/wrestleguess/models"
)

// pointsPlaces is the precision score records are rounded to
const pointsPlaces = 2

// ScoreSheet is the calculator's result for one event
type ScoreSheet struct {
	// Scores holds one record per user with a current-format pick
	Scores map[string]models.ScoreRecord `json:"scores"`
	// SkippedLegacy lists users whose pick was legacy-format, sorted
	SkippedLegacy []string `json:"skippedLegacy"`
}

// UserIDs returns the scored users in a stable order
func (s ScoreSheet) UserIDs() []string {
	ids := make([]string, 0, len(s.Scores))
	for id := range s.Scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CalculateScores maps picks against recorded match outcomes.
//
// A correct choice earns confidence x multiplier; anything else earns 0. The
// per-user sum is kept exact and rounded once, half-up, to two places.
// Confidence is never normalised, so a pick that does not total 100 still
// produces a result. A match without a winner contributes nothing.
func CalculateScores(matches []models.Match, picks []models.Pick) ScoreSheet {
	sheet := ScoreSheet{Scores: make(map[string]models.ScoreRecord, len(picks))}
	totalPicks := len(matches)

	for i := range picks {
		pick := &picks[i]

		choices, ok := pick.ConfidenceChoices()
		if !ok {
			sheet.SkippedLegacy = append(sheet.SkippedLegacy, pick.UserID)
			continue
		}

		points := decimal.Zero
		correct := 0
		for j := range matches {
			match := &matches[j]
			choice, picked := choices[match.MatchID]
			if !picked || !match.HasWinner() {
				continue
			}
			if choice.Winner != match.Winner {
				continue
			}
			points = points.Add(matchPoints(choice.Confidence, match.Multiplier))
			correct++
		}

		sheet.Scores[pick.UserID] = models.ScoreRecord{
			Points:       roundPoints(points),
			CorrectPicks: correct,
			TotalPicks:   totalPicks,
		}
	}

	sort.Strings(sheet.SkippedLegacy)
	return sheet
}

// MatchPoints returns the rounded points a correct choice earns on one match.
// A zero multiplier counts as 1.
func MatchPoints(confidence int, multiplier float64) float64 {
	return roundPoints(matchPoints(confidence, multiplier))
}

func matchPoints(confidence int, multiplier float64) decimal.Decimal {
	m := models.MultiplierOrDefault(multiplier)
	return decimal.NewFromInt(int64(confidence)).Mul(decimal.NewFromFloat(m))
}

// roundPoints rounds half away from zero, which is half-up for non-negative points
func roundPoints(d decimal.Decimal) float64 {
	return d.Round(pointsPlaces).InexactFloat64()
}
