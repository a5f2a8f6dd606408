package pattern

import (
	"context"
	"time"

	"loomgate/internal/event"
)

// #region oracle
// Oracle is the external text-reasoning service used for classification.
// It is an untrusted black box: output may be prose, partial JSON, or
// garbage, and the caller owns the timeout.
type Oracle interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// #endregion oracle

// #region candidate
// Candidate is one pattern reported by the oracle, validated against the
// closed PatternType set.
type Candidate struct {
	Type     event.PatternType
	Summary  string
	Strength float64
}

// Analysis is the structured result of one detection pass.
type Analysis struct {
	Candidates []Candidate

	// RecommendedGate optionally steers the gate decision on high-stakes
	// turns. Empty when the oracle made no recommendation.
	RecommendedGate event.Gate
}

// SelfSabotage reports whether any candidate is of a self-sabotaging type.
func (a *Analysis) SelfSabotage() bool {
	if a == nil {
		return false
	}
	for _, c := range a.Candidates {
		if c.Type == event.PatternLoop || c.Type == event.PatternContradiction {
			return true
		}
	}
	return false
}

// #endregion candidate

// #region config
// Config holds detector tunables.
type Config struct {
	HistoryLimit      int           // events of context sent to the oracle
	StrengthThreshold float64       // candidates below this are dropped
	Timeout           time.Duration // hard cap on the oracle call
	EvidenceLimit     int           // recent event ids attached to new echoes
}

// DefaultConfig returns the standard detector tuning.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:      10,
		StrengthThreshold: 0.6,
		Timeout:           8 * time.Second,
		EvidenceLimit:     3,
	}
}

// #endregion config
