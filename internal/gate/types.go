package gate

import "loomgate/internal/event"

// #region inputs
// Inputs are the per-turn signals feeding the decision.
type Inputs struct {
	Meaningfulness  float64
	NarrativeWeight float64
	UtilityFlag     bool
	MaskConflict    bool
	SelfSabotage    bool
	ActiveMask      event.Mask

	// RecommendedGate is an optional steer from the pattern detector.
	// Empty means no recommendation.
	RecommendedGate event.Gate
}

// #endregion inputs

// #region thresholds
// Thresholds holds the tunable decision boundaries.
type Thresholds struct {
	SilenceLight  float64 // silence below this when the light mask is active
	SilenceDark   float64 // dark persona tolerates lower meaningfulness before silence
	RefuseWeight  float64 // refuse task requests with narrative weight below this
	ConfrontDark  float64 // dark mask confronts above this meaningfulness
	ConfrontSelf  float64 // self-sabotage confrontation floor
	OverrideFloor float64 // detector recommendations apply above this meaningfulness
}

// DefaultThresholds returns the standard decision boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SilenceLight:  0.25,
		SilenceDark:   0.4,
		RefuseWeight:  0.5,
		ConfrontDark:  0.6,
		ConfrontSelf:  0.75,
		OverrideFloor: 0.6,
	}
}

// #endregion thresholds

// #region decision
// Decision is the output of one gate evaluation.
type Decision struct {
	Gate       event.Gate
	Reason     string
	Overridden bool // true when a detector recommendation replaced the rule result
}

// #endregion decision
