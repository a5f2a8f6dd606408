// Command replay re-runs gating decisions deterministically. Fixture mode
// runs a scripted session through the full scoring pipeline; DB mode
// re-evaluates recorded verdicts under the current thresholds and reports
// any that would gate differently today.
package main

import (
	"flag"
	"fmt"
	"os"

	"loomgate/internal/gate"
	"loomgate/internal/logging"
	"loomgate/internal/replay"
	"loomgate/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to loomgate.db (DB mode)")
	userID := flag.String("user", "", "user id (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/loomgate.db --user id")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		if *userID == "" {
			fmt.Fprintln(os.Stderr, "DB mode requires --user")
			os.Exit(2)
		}
		exitCode = runDBMode(*dbPath, *userID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	results := replay.Run(f)
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}

	fmt.Printf("%-4s  %-8s  %7s  %7s  %7s  %7s  %s\n",
		"Turn", "Gate", "Novelty", "Weight", "Meaning", "Entropy", "Text")
	for _, r := range results {
		marker := ""
		if r.Mismatch {
			marker = fmt.Sprintf("  [expected %s]", r.ExpectedGate)
		} else if r.Overridden {
			marker = "  [overridden]"
		}
		fmt.Printf("%-4d  %-8s  %7.3f  %7.3f  %7.3f  %7.3f  %s%s\n",
			r.Index, r.Gate, r.Novelty, r.NarrativeWeight, r.Meaningfulness, r.Entropy,
			truncate(r.Text, 40), marker)
	}

	s := replay.Summarize(results)
	fmt.Printf("\n%d turns: ", s.TotalTurns)
	for gateName, n := range s.PerGate {
		fmt.Printf("%s=%d ", gateName, n)
	}
	fmt.Printf("| final entropy %.3f\n", s.FinalEntropy)

	if s.Mismatches > 0 {
		fmt.Fprintf(os.Stderr, "%d expectation mismatch(es)\n", s.Mismatches)
		return 1
	}
	return 0
}

// #endregion fixture-mode

// #region db-mode

func runDBMode(dbPath, userID string) int {
	st, err := store.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	records, err := logging.VerdictRecordsForUser(st.DB(), userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no recorded verdicts found")
		return 0
	}

	results := replay.ReplayRecords(records, gate.DefaultThresholds())
	drifted := 0
	for _, r := range results {
		if !r.Drifted {
			continue
		}
		drifted++
		fmt.Printf("%s: %s -> %s (%s)  %s\n",
			shortID(r.EventID), r.Recorded, r.Reevaluated, r.Reason, truncate(r.Text, 40))
	}

	fmt.Printf("\n%d recorded verdicts, %d would gate differently\n", len(results), drifted)
	if drifted > 0 {
		return 1
	}
	return 0
}

// #endregion db-mode

// #region helpers

// truncate shortens to n runes; byte slicing would split multibyte text.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion helpers
