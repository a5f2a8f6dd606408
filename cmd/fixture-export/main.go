// Command fixture-export turns a user's recorded session into a replay
// fixture: the provenance log already carries every signal the gate saw,
// so the exported fixture reproduces the session's verdicts exactly.
package main

import (
	"flag"
	"fmt"
	"os"

	"loomgate/internal/logging"
	"loomgate/internal/replay"
	"loomgate/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to loomgate.db")
	userID := flag.String("user", "", "user id to export")
	outPath := flag.String("out", "fixture.json", "output fixture path")
	desc := flag.String("desc", "", "fixture description")
	flag.Parse()

	if *dbPath == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/loomgate.db --user id [--out fixture.json] [--desc text]")
		os.Exit(2)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	records, err := logging.VerdictRecordsForUser(st.DB(), *userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no recorded verdicts for user")
		os.Exit(1)
	}

	fixture := buildFixture(*userID, *desc, records)
	if err := replay.SaveFixture(*outPath, fixture); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported %d turns to %s\n", len(fixture.Turns), *outPath)
}

// #endregion main

// #region build

func buildFixture(userID, desc string, records []logging.VerdictRecord) *replay.Fixture {
	first := records[0]
	light, dark := 0.7, 0.3
	if first.ActiveMask == "dark" {
		light, dark = 0.3, 0.7
	}
	f := &replay.Fixture{
		Description: desc,
		UserID:      userID,
		StartState: replay.FixtureStartState{
			Entropy:     first.EntropyBefore,
			ActiveMask:  first.ActiveMask,
			LightWeight: light,
			DarkWeight:  dark,
		},
	}
	for _, rec := range records {
		f.Turns = append(f.Turns, replay.FixtureTurn{
			Text:            rec.Text,
			PatternRepeat:   rec.PatternRepeat,
			SelfSabotage:    rec.SelfSabotage,
			RecommendedGate: rec.RecommendedGate,
			ExpectedGate:    rec.Gate,
		})
	}
	return f
}

// #endregion build
