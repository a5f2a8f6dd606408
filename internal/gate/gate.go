package gate

import (
	"fmt"

	"loomgate/internal/event"
)

// #region decider
// Decider maps per-turn scores and flags to a gate verdict. It is a pure
// policy evaluation: the verdict is terminal for the turn, while the
// inputs (mask, entropy) evolve slowly across turns in LoomState.
type Decider struct {
	config Thresholds
}

// NewDecider creates a decider with the given thresholds.
func NewDecider(config Thresholds) *Decider {
	return &Decider{config: config}
}

// #endregion decider

// #region decide

// Decide walks the rules in order; the first match wins. A detector
// recommendation then overrides the rule result when meaningfulness is
// above the override floor. The override is a deliberate escape hatch that
// lets the pattern classifier steer high-stakes turns, so rule order alone
// is not authoritative.
func (d *Decider) Decide(in Inputs) Decision {
	result := d.applyRules(in)

	if in.RecommendedGate != "" && in.Meaningfulness > d.config.OverrideFloor && in.RecommendedGate != result.Gate {
		return Decision{
			Gate:       in.RecommendedGate,
			Reason:     fmt.Sprintf("detector override (%s -> %s)", result.Gate, in.RecommendedGate),
			Overridden: true,
		}
	}
	return result
}

func (d *Decider) applyRules(in Inputs) Decision {
	silenceThreshold := d.config.SilenceLight
	if in.ActiveMask == event.MaskDark {
		silenceThreshold = d.config.SilenceDark
	}

	if in.Meaningfulness < silenceThreshold {
		return Decision{
			Gate:   event.GateSilence,
			Reason: fmt.Sprintf("meaningfulness %.2f below %.2f threshold", in.Meaningfulness, silenceThreshold),
		}
	}

	// Low-stakes task requests are out of scope for the narrative layer.
	if in.UtilityFlag && in.NarrativeWeight < d.config.RefuseWeight {
		return Decision{
			Gate:   event.GateRefuse,
			Reason: fmt.Sprintf("utility request with narrative weight %.2f", in.NarrativeWeight),
		}
	}

	if in.MaskConflict {
		return Decision{
			Gate:   event.GateDelay,
			Reason: "mask weights in conflict",
		}
	}

	if in.ActiveMask == event.MaskDark && in.Meaningfulness > d.config.ConfrontDark {
		return Decision{
			Gate:   event.GateConfront,
			Reason: fmt.Sprintf("dark mask, meaningfulness %.2f", in.Meaningfulness),
		}
	}

	if in.Meaningfulness > d.config.ConfrontSelf && in.SelfSabotage {
		return Decision{
			Gate:   event.GateConfront,
			Reason: fmt.Sprintf("self-sabotage pattern, meaningfulness %.2f", in.Meaningfulness),
		}
	}

	return Decision{Gate: event.GateReply, Reason: "default"}
}

// #endregion decide
