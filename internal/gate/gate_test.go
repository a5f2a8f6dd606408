package gate

import (
	"testing"

	"loomgate/internal/event"
)

func baseInputs() Inputs {
	return Inputs{
		Meaningfulness:  0.6,
		NarrativeWeight: 0.6,
		ActiveMask:      event.MaskLight,
	}
}

func TestSilenceBelowLightThreshold(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.2

	got := d.Decide(in)
	if got.Gate != event.GateSilence {
		t.Fatalf("expected silence, got %s: %s", got.Gate, got.Reason)
	}
}

func TestDarkMaskRaisesSilenceThreshold(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.3

	if got := d.Decide(in); got.Gate != event.GateReply {
		t.Fatalf("light mask at 0.3 should reply, got %s", got.Gate)
	}

	in.ActiveMask = event.MaskDark
	if got := d.Decide(in); got.Gate != event.GateSilence {
		t.Fatalf("dark mask at 0.3 should be silent, got %s", got.Gate)
	}
}

func TestRefuseLowStakesUtility(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.UtilityFlag = true
	in.NarrativeWeight = 0.4

	got := d.Decide(in)
	if got.Gate != event.GateRefuse {
		t.Fatalf("expected refuse, got %s: %s", got.Gate, got.Reason)
	}
}

func TestUtilityWithHighWeightStillReplies(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.UtilityFlag = true
	in.NarrativeWeight = 0.8

	if got := d.Decide(in); got.Gate != event.GateReply {
		t.Fatalf("expected reply, got %s", got.Gate)
	}
}

func TestDelayOnMaskConflict(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.MaskConflict = true

	got := d.Decide(in)
	if got.Gate != event.GateDelay {
		t.Fatalf("expected delay, got %s", got.Gate)
	}
}

func TestDarkMaskConfrontsHighMeaningfulness(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.ActiveMask = event.MaskDark
	in.Meaningfulness = 0.7

	got := d.Decide(in)
	if got.Gate != event.GateConfront {
		t.Fatalf("expected confront, got %s: %s", got.Gate, got.Reason)
	}
}

func TestConfrontOnSelfSabotage(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.8
	in.SelfSabotage = true

	got := d.Decide(in)
	if got.Gate != event.GateConfront {
		t.Fatalf("expected confront, got %s: %s", got.Gate, got.Reason)
	}
}

func TestSelfSabotageBelowFloorReplies(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.7
	in.SelfSabotage = true

	if got := d.Decide(in); got.Gate != event.GateReply {
		t.Fatalf("expected reply, got %s", got.Gate)
	}
}

func TestDefaultReply(t *testing.T) {
	d := NewDecider(DefaultThresholds())

	got := d.Decide(baseInputs())
	if got.Gate != event.GateReply {
		t.Fatalf("expected reply, got %s: %s", got.Gate, got.Reason)
	}
	if got.Overridden {
		t.Fatal("default decision should not be marked overridden")
	}
}

func TestRecommendationOverridesAboveFloor(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.65
	in.RecommendedGate = event.GateConfront

	got := d.Decide(in)
	if got.Gate != event.GateConfront {
		t.Fatalf("expected recommendation to win, got %s", got.Gate)
	}
	if !got.Overridden {
		t.Fatal("expected decision marked as overridden")
	}
}

func TestRecommendationIgnoredBelowFloor(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.5
	in.RecommendedGate = event.GateConfront

	got := d.Decide(in)
	if got.Gate != event.GateReply {
		t.Fatalf("expected rules to stand below floor, got %s", got.Gate)
	}
	if got.Overridden {
		t.Fatal("decision should not be marked overridden")
	}
}

func TestRecommendationMatchingRulesIsNotAnOverride(t *testing.T) {
	d := NewDecider(DefaultThresholds())
	in := baseInputs()
	in.Meaningfulness = 0.65
	in.RecommendedGate = event.GateReply

	got := d.Decide(in)
	if got.Gate != event.GateReply || got.Overridden {
		t.Fatalf("expected plain reply, got %s overridden=%v", got.Gate, got.Overridden)
	}
}
