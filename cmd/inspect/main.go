// Command inspect is a read-only debugging tool for a loomgate database:
// per-user state, recent gated events, and pattern echoes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"loomgate/internal/event"
	"loomgate/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to loomgate.db")
	userID := flag.String("user", "", "user id to inspect")
	last := flag.Int("last", 20, "show N most recent events")
	patterns := flag.Bool("patterns", false, "show pattern echoes instead of events")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/loomgate.db --user id [--last N] [--patterns] [--json]")
		os.Exit(2)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	if *patterns {
		err = runPatternMode(ctx, st, *userID, *last, *jsonOut)
	} else {
		err = runEventMode(ctx, st, *userID, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region event-mode

type eventRow struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Gate           string  `json:"gate"`
	Novelty        float64 `json:"novelty"`
	Weight         float64 `json:"narrative_weight"`
	Meaningfulness float64 `json:"meaningfulness"`
	EntropyDelta   float64 `json:"entropy_delta"`
	Patterns       int     `json:"patterns"`
	Text           string  `json:"text"`
}

func runEventMode(ctx context.Context, st *store.Store, userID string, last int, jsonOut bool) error {
	snap, err := st.GetState(ctx, userID)
	if err != nil {
		return err
	}
	events, err := st.RecentEvents(ctx, userID, last)
	if err != nil {
		return err
	}

	// Store returns newest first, reverse for chronological reading.
	rows := make([]eventRow, len(events))
	for i, ev := range events {
		rows[len(events)-1-i] = eventRow{
			ID:             shortID(ev.ID),
			Timestamp:      ev.Timestamp.Format("2006-01-02T15:04:05Z"),
			Gate:           string(ev.Gate),
			Novelty:        ev.Novelty,
			Weight:         ev.NarrativeWeight,
			Meaningfulness: ev.Meaningfulness,
			EntropyDelta:   ev.EntropyDelta,
			Patterns:       len(ev.PatternIDs),
			Text:           ev.Text,
		}
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"state":  stateOutput(snap),
			"events": rows,
		})
	}

	fmt.Printf("User: %s\n", userID)
	fmt.Printf("State: entropy=%.3f streak=%d dormancy=%v risk=%.3f mask=%s v%d\n\n",
		snap.Entropy, snap.SilenceStreak, snap.Dormancy, snap.DependencyRisk, snap.ActiveMask, snap.Version)

	fmt.Printf("%-10s  %-20s  %-8s  %7s  %7s  %7s  %3s  %s\n",
		"Event", "Time", "Gate", "Novelty", "Weight", "Meaning", "Pat", "Text")
	for _, r := range rows {
		fmt.Printf("%-10s  %-20s  %-8s  %7.3f  %7.3f  %7.3f  %3d  %s\n",
			r.ID, r.Timestamp, r.Gate, r.Novelty, r.Weight, r.Meaningfulness, r.Patterns, truncate(r.Text, 48))
	}
	return nil
}

func stateOutput(st event.LoomState) map[string]interface{} {
	return map[string]interface{}{
		"entropy":         st.Entropy,
		"silence_streak":  st.SilenceStreak,
		"dormancy":        st.Dormancy,
		"dependency_risk": st.DependencyRisk,
		"active_mask":     st.ActiveMask,
		"mask_weights":    st.MaskWeights,
		"version":         st.Version,
	}
}

// #endregion event-mode

// #region pattern-mode

type patternRow struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Strength float64 `json:"strength"`
	Recency  float64 `json:"recency"`
	LastSeen string  `json:"last_seen"`
	Summary  string  `json:"summary"`
}

func runPatternMode(ctx context.Context, st *store.Store, userID string, last int, jsonOut bool) error {
	echoes, err := st.PatternsForUser(ctx, userID, last)
	if err != nil {
		return err
	}
	if len(echoes) == 0 {
		fmt.Fprintln(os.Stderr, "no pattern echoes found")
		return nil
	}

	rows := make([]patternRow, len(echoes))
	for i, e := range echoes {
		rows[i] = patternRow{
			ID:       shortID(e.ID),
			Type:     string(e.Type),
			Status:   string(e.Status),
			Strength: e.Strength,
			Recency:  e.Recency,
			LastSeen: e.LastSeenAt.Format("2006-01-02T15:04:05Z"),
			Summary:  e.Summary,
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-15s  %-8s  %8s  %7s  %-20s  %s\n",
		"Echo", "Type", "Status", "Strength", "Recency", "Last Seen", "Summary")
	for _, r := range rows {
		fmt.Printf("%-10s  %-15s  %-8s  %8.2f  %7.2f  %-20s  %s\n",
			r.ID, r.Type, r.Status, r.Strength, r.Recency, r.LastSeen, truncate(r.Summary, 48))
	}
	return nil
}

// #endregion pattern-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens to n runes; byte slicing would split multibyte text.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion output
