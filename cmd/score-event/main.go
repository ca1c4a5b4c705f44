// Command score-event scores one event outside the HTTP server. Run it again
// with the same event id to finish a run that stopped part way.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/lewisian8787/wrestleguess/app"
	"github.com/lewisian8787/wrestleguess/config"
	"github.com/lewisian8787/wrestleguess/logging"
	"github.com/lewisian8787/wrestleguess/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit
func run() int {
	eventID := flag.String("event", "", "id of the event to score (required)")
	dryRun := flag.Bool("dry-run", false, "print the calculated scores without writing anything")
	batchSize := flag.Int("batch-size", -1, "memberships per commit; overrides WG_SCORING_BATCH_SIZE when >= 0")
	flag.Parse()

	if *eventID == "" {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Errorf("Failed to load configuration: %v", err)
		return 1
	}
	logging.Configure(cfg.ToLoggingConfig())
	if *batchSize >= 0 {
		cfg.ScoringBatchSize = *batchSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.Open(ctx, cfg)
	if err != nil {
		logging.Errorf("Failed to open %s backend: %v", cfg.DBDriver, err)
		return 1
	}
	defer stores.Close()

	svc := app.NewServices(cfg, stores, nil, nil)

	if *dryRun {
		sheet, err := svc.Scoring.PreviewScores(ctx, *eventID)
		if err != nil {
			return report(os.Stderr, err)
		}
		printSheet(sheet)
		return 0
	}

	result, err := svc.Scoring.ScoreEvent(ctx, *eventID)
	if err != nil {
		return report(os.Stderr, err)
	}
	fmt.Printf("Event %s scored: %d user(s), %d membership(s) updated, %d already applied, %d legacy pick(s) skipped, %d chunk(s)\n",
		result.EventID, result.UsersScored, result.MembershipsUpdated, result.MembershipsSkipped, result.LegacySkipped, result.Chunks)
	return 0
}

func printSheet(sheet services.ScoreSheet) {
	users := sheet.UserIDs()
	sort.SliceStable(users, func(i, j int) bool {
		return sheet.Scores[users[i]].Points > sheet.Scores[users[j]].Points
	})
	for _, userID := range users {
		rec := sheet.Scores[userID]
		fmt.Printf("%-36s %8.2f  %d/%d correct\n", userID, rec.Points, rec.CorrectPicks, rec.TotalPicks)
	}
	if len(sheet.SkippedLegacy) > 0 {
		fmt.Printf("Skipped %d legacy pick(s): %v\n", len(sheet.SkippedLegacy), sheet.SkippedLegacy)
	}
}

// report prints err and returns 3 when a rerun can finish the run
func report(w io.Writer, err error) int {
	var partial *services.PartialWriteError
	if errors.As(err, &partial) {
		fmt.Fprintf(w, "%v\nRun the same command again to apply the %d pending membership(s).\n", err, len(partial.Pending))
		return 3
	}
	fmt.Fprintln(w, err)
	return 1
}
