package score

import (
	"github.com/agnivade/levenshtein"

	"loomgate/internal/event"
)

// #region entropy
// UpdateEntropy nudges the per-user entropy scalar after one turn.
// The three adjustments are independent and can stack in a single call:
// low novelty pushes entropy up, high novelty pulls it down, and a pattern
// of the same type repeating within the lookback window pushes it up.
func UpdateEntropy(current, novelty float64, patternRepeat bool) float64 {
	next := current
	if novelty < 0.3 {
		next += 0.08
	}
	if novelty > 0.6 {
		next -= 0.06
	}
	if patternRepeat {
		next += 0.10
	}
	return event.Clamp01(next)
}

// #endregion entropy

// #region narrative-weight
// Flags are the lexical signals feeding the narrative-weight estimate.
type Flags struct {
	DesireFearConfession bool
	ReferencesPast       bool
	DecisionPoint        bool
	IdentityStatement    bool
}

// EstimateNarrativeWeight starts at 0.2 and adds 0.2 per raised flag,
// clamped to 1.0.
func EstimateNarrativeWeight(f Flags) float64 {
	count := 0
	for _, on := range []bool{f.DesireFearConfession, f.ReferencesPast, f.DecisionPoint, f.IdentityStatement} {
		if on {
			count++
		}
	}
	return weightForFlagCount(count)
}

// weightForFlagCount keeps the clamp honest if flag families are added:
// four flags already sum to exactly 1.0, so any fifth must saturate.
func weightForFlagCount(count int) float64 {
	return event.Clamp01(0.2 + 0.2*float64(count))
}

// #endregion narrative-weight

// #region meaningfulness
// ComputeMeaningfulness blends narrative weight, novelty, and inverse
// entropy into the primary gating score.
func ComputeMeaningfulness(narrativeWeight, novelty, entropy float64) float64 {
	return event.Clamp01(0.5*narrativeWeight + 0.3*novelty + 0.2*(1.0-entropy))
}

// #endregion meaningfulness

// #region novelty
// NoveltyOf scores how unlike the recent history a text is. With no history
// the text is maximally novel. Otherwise novelty is 1 - maxSimilarity over
// the window, where similarity is a normalized edit-distance ratio.
//
// This is a lexical proxy for semantic novelty; an embedding-based
// similarity returning a comparable [0,1] score (higher = more similar)
// can replace Similarity without touching callers.
func NoveltyOf(text string, recent []string) float64 {
	if len(recent) == 0 {
		return 1.0
	}
	maxSim := 0.0
	for _, prev := range recent {
		if prev == "" {
			continue
		}
		if sim := Similarity(text, prev); sim > maxSim {
			maxSim = sim
		}
	}
	return event.Clamp01(1.0 - maxSim)
}

// Similarity is a normalized Levenshtein ratio in [0,1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return event.Clamp01(1.0 - float64(dist)/float64(longest))
}

// #endregion novelty
