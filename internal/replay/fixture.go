// Package replay re-runs recorded or scripted turns through the scoring
// and gate pipeline deterministically, without a database or an oracle.
// It exists to answer one question: if the thresholds change, which past
// verdicts change with them.
package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"loomgate/internal/event"
	"loomgate/internal/gate"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string            `json:"description"`
	UserID      string            `json:"user_id"`
	StartState  FixtureStartState `json:"start_state"`
	Thresholds  FixtureThresholds `json:"thresholds"`
	Turns       []FixtureTurn     `json:"turns"`
}

// FixtureStartState is the JSON-serializable initial state. A zero value
// means the standard defaults for a fresh user.
type FixtureStartState struct {
	Entropy     float64 `json:"entropy"`
	ActiveMask  string  `json:"active_mask"`
	LightWeight float64 `json:"light_weight"`
	DarkWeight  float64 `json:"dark_weight"`
}

// FixtureTurn is one scripted user message. Oracle-derived signals are
// recorded alongside the text so the run stays deterministic.
type FixtureTurn struct {
	Text            string `json:"text"`
	PatternRepeat   bool   `json:"pattern_repeat"`
	SelfSabotage    bool   `json:"self_sabotage"`
	RecommendedGate string `json:"recommended_gate,omitempty"`
	ExpectedGate    string `json:"expected_gate,omitempty"`
}

// FixtureThresholds mirrors gate.Thresholds with JSON tags. Zero values
// fall back to the defaults so fixtures only list what they override.
type FixtureThresholds struct {
	SilenceLight  float64 `json:"silence_light"`
	SilenceDark   float64 `json:"silence_dark"`
	RefuseWeight  float64 `json:"refuse_weight"`
	ConfrontDark  float64 `json:"confront_dark"`
	ConfrontSelf  float64 `json:"confront_self"`
	OverrideFloor float64 `json:"override_floor"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, turn := range f.Turns {
		if turn.Text == "" {
			return nil, fmt.Errorf("fixture %s: turn %d has no text", path, i)
		}
		if turn.ExpectedGate != "" {
			if _, err := event.ParseGate(turn.ExpectedGate); err != nil {
				return nil, fmt.Errorf("fixture %s: turn %d: %w", path, i, err)
			}
		}
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToState converts the start state to a domain LoomState.
func (s *FixtureStartState) ToState(userID string) event.LoomState {
	if s.ActiveMask == "" && s.Entropy == 0 {
		return event.DefaultState(userID)
	}
	st := event.DefaultState(userID)
	st.Entropy = event.Clamp01(s.Entropy)
	if mask, err := event.ParseMask(s.ActiveMask); err == nil {
		st.ActiveMask = mask
	}
	if s.LightWeight != 0 || s.DarkWeight != 0 {
		st.MaskWeights = event.MaskWeights{
			Light: event.Clamp01(s.LightWeight),
			Dark:  event.Clamp01(s.DarkWeight),
		}
	}
	return st
}

// ToThresholds converts to domain thresholds, defaulting zero fields.
func (t *FixtureThresholds) ToThresholds() gate.Thresholds {
	th := gate.DefaultThresholds()
	if t.SilenceLight != 0 {
		th.SilenceLight = t.SilenceLight
	}
	if t.SilenceDark != 0 {
		th.SilenceDark = t.SilenceDark
	}
	if t.RefuseWeight != 0 {
		th.RefuseWeight = t.RefuseWeight
	}
	if t.ConfrontDark != 0 {
		th.ConfrontDark = t.ConfrontDark
	}
	if t.ConfrontSelf != 0 {
		th.ConfrontSelf = t.ConfrontSelf
	}
	if t.OverrideFloor != 0 {
		th.OverrideFloor = t.OverrideFloor
	}
	return th
}

// #endregion fixture-loader
