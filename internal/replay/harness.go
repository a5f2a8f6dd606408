package replay

import (
	"loomgate/internal/event"
	"loomgate/internal/gate"
	"loomgate/internal/logging"
	"loomgate/internal/score"
)

// #region types

// Result captures the outcome of replaying one turn through the pipeline.
type Result struct {
	Index int
	Text  string

	// Recomputed signals
	Novelty         float64
	NarrativeWeight float64
	Meaningfulness  float64
	Entropy         float64 // after the turn

	Gate       event.Gate
	Reason     string
	Overridden bool

	// Expectation check; Mismatch is false when no expectation was set.
	ExpectedGate event.Gate
	Mismatch     bool
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns   int
	PerGate      map[event.Gate]int
	Mismatches   int
	FinalEntropy float64
}

// #endregion types

// #region replay

const noveltyWindow = 5

// Run iterates through the fixture's turns, applying the scoring and gate
// pipeline in memory: novelty, flags, entropy, meaningfulness, decision.
func Run(f *Fixture) []Result {
	st := f.StartState.ToState(f.UserID)
	decider := gate.NewDecider(f.Thresholds.ToThresholds())

	var recent []string
	results := make([]Result, 0, len(f.Turns))

	for i, turn := range f.Turns {
		novelty := score.NoveltyOf(turn.Text, recent)
		flags := score.ExtractFlags(turn.Text)
		weight := score.EstimateNarrativeWeight(flags)

		entropy := score.UpdateEntropy(st.Entropy, novelty, turn.PatternRepeat)
		meaningfulness := score.ComputeMeaningfulness(weight, novelty, entropy)

		decision := decider.Decide(gate.Inputs{
			Meaningfulness:  meaningfulness,
			NarrativeWeight: weight,
			UtilityFlag:     score.IsUtilityRequest(turn.Text),
			MaskConflict:    st.MaskWeights.Conflicted(),
			SelfSabotage:    turn.SelfSabotage,
			ActiveMask:      st.ActiveMask,
			RecommendedGate: event.Gate(turn.RecommendedGate),
		})

		r := Result{
			Index:           i,
			Text:            turn.Text,
			Novelty:         novelty,
			NarrativeWeight: weight,
			Meaningfulness:  meaningfulness,
			Entropy:         entropy,
			Gate:            decision.Gate,
			Reason:          decision.Reason,
			Overridden:      decision.Overridden,
		}
		if turn.ExpectedGate != "" {
			r.ExpectedGate = event.Gate(turn.ExpectedGate)
			r.Mismatch = r.ExpectedGate != decision.Gate
		}
		results = append(results, r)

		st.Entropy = entropy
		recent = append([]string{turn.Text}, recent...)
		if len(recent) > noveltyWindow {
			recent = recent[:noveltyWindow]
		}
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{
		TotalTurns: len(results),
		PerGate:    make(map[event.Gate]int),
	}
	for _, r := range results {
		s.PerGate[r.Gate]++
		if r.Mismatch {
			s.Mismatches++
		}
		s.FinalEntropy = r.Entropy
	}
	return s
}

// #endregion replay

// #region records

// RecordResult is one recorded verdict re-evaluated under new thresholds.
type RecordResult struct {
	EventID     string
	Text        string
	Recorded    event.Gate
	Reevaluated event.Gate
	Reason      string
	Drifted     bool
}

// ReplayRecords re-runs recorded verdicts under the given thresholds,
// using the exact signal values captured at decision time. A drifted
// result means the same turn would gate differently today.
func ReplayRecords(records []logging.VerdictRecord, th gate.Thresholds) []RecordResult {
	decider := gate.NewDecider(th)
	results := make([]RecordResult, 0, len(records))

	for _, rec := range records {
		decision := decider.Decide(gate.Inputs{
			Meaningfulness:  rec.Meaningfulness,
			NarrativeWeight: rec.NarrativeWeight,
			UtilityFlag:     rec.UtilityFlag,
			MaskConflict:    rec.MaskConflict,
			SelfSabotage:    rec.SelfSabotage,
			ActiveMask:      event.Mask(rec.ActiveMask),
			RecommendedGate: event.Gate(rec.RecommendedGate),
		})
		results = append(results, RecordResult{
			EventID:     rec.EventID,
			Text:        rec.Text,
			Recorded:    event.Gate(rec.Gate),
			Reevaluated: decision.Gate,
			Reason:      decision.Reason,
			Drifted:     string(decision.Gate) != rec.Gate,
		})
	}
	return results
}

// #endregion records
