package logging

import "time"

// #region verdict-entry
// VerdictEntry is a single row in the gate_provenance table.
type VerdictEntry struct {
	EventID    string
	UserID     string
	Gate       string
	Reason     string
	Overridden bool
	RecordJSON string
	CreatedAt  time.Time
}

// #endregion verdict-entry

// #region verdict-record
// VerdictRecord captures the complete gate evaluation inputs for a single
// turn. Serialized as JSON into gate_provenance.record_json so a recorded
// session can be re-run deterministically after threshold changes.
type VerdictRecord struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Text    string `json:"text"`

	// Exact signals as evaluated at runtime
	Novelty         float64 `json:"novelty"`
	NarrativeWeight float64 `json:"narrative_weight"`
	Meaningfulness  float64 `json:"meaningfulness"`
	EntropyBefore   float64 `json:"entropy_before"`
	EntropyAfter    float64 `json:"entropy_after"`
	PatternRepeat   bool    `json:"pattern_repeat"`
	UtilityFlag     bool    `json:"utility_flag"`
	MaskConflict    bool    `json:"mask_conflict"`
	SelfSabotage    bool    `json:"self_sabotage"`
	ActiveMask      string  `json:"active_mask"`
	RecommendedGate string  `json:"recommended_gate,omitempty"`

	// Gate output
	Gate       string `json:"gate"`
	Reason     string `json:"reason"`
	Overridden bool   `json:"overridden"`
}

// #endregion verdict-record
