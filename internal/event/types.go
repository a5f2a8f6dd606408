package event

import (
	"fmt"
	"math"
	"time"
)

// #region gate
// Gate is the per-turn verdict controlling whether and how the agent responds.
type Gate string

const (
	GateSilence  Gate = "silence"
	GateReply    Gate = "reply"
	GateRefuse   Gate = "refuse"
	GateDelay    Gate = "delay"
	GateConfront Gate = "confront"
)

// ParseGate validates a raw gate value at a parsing boundary.
func ParseGate(s string) (Gate, error) {
	switch Gate(s) {
	case GateSilence, GateReply, GateRefuse, GateDelay, GateConfront:
		return Gate(s), nil
	}
	return "", fmt.Errorf("invalid gate %q", s)
}

// #endregion gate

// #region pattern-type
// PatternType enumerates the recurring behavioral signals the detector can report.
type PatternType string

const (
	PatternContradiction PatternType = "contradiction"
	PatternLoop          PatternType = "loop"
	PatternConfession    PatternType = "confession"
	PatternBoundary      PatternType = "boundary"
	PatternDesire        PatternType = "desire"
	PatternFear          PatternType = "fear"
	PatternGoal          PatternType = "goal"
	PatternIdentityClaim PatternType = "identity_claim"
	PatternTrigger       PatternType = "trigger"
)

// ParsePatternType validates a raw pattern type at a parsing boundary.
func ParsePatternType(s string) (PatternType, error) {
	switch PatternType(s) {
	case PatternContradiction, PatternLoop, PatternConfession, PatternBoundary,
		PatternDesire, PatternFear, PatternGoal, PatternIdentityClaim, PatternTrigger:
		return PatternType(s), nil
	}
	return "", fmt.Errorf("invalid pattern type %q", s)
}

// #endregion pattern-type

// #region pattern-status
// PatternStatus is the lifecycle state of a pattern echo.
type PatternStatus string

const (
	StatusActive   PatternStatus = "active"
	StatusResolved PatternStatus = "resolved"
	StatusDormant  PatternStatus = "dormant"
	StatusRetired  PatternStatus = "retired"
)

// #endregion pattern-status

// #region role-channel
// Role identifies who produced a turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Channel identifies the medium a turn arrived on.
type Channel string

const (
	ChannelChat  Channel = "chat"
	ChannelVoice Channel = "voice"
	ChannelImage Channel = "image"
	ChannelFile  Channel = "file"
)

// #endregion role-channel

// #region mask
// Mask is the active persona variant modulating gating thresholds.
type Mask string

const (
	MaskLight Mask = "light"
	MaskDark  Mask = "dark"
)

// ParseMask validates a raw mask value.
func ParseMask(s string) (Mask, error) {
	switch Mask(s) {
	case MaskLight, MaskDark:
		return Mask(s), nil
	}
	return "", fmt.Errorf("invalid mask %q", s)
}

// MaskWeights carries the relative pull of each persona variant.
type MaskWeights struct {
	Light float64 `json:"light"`
	Dark  float64 `json:"dark"`
}

// Conflicted reports whether the persona weights pull hard in both
// directions at once: both masks engaged and nearly balanced.
func (w MaskWeights) Conflicted() bool {
	return w.Light >= 0.3 && w.Dark >= 0.3 && math.Abs(w.Light-w.Dark) < 0.2
}

// #endregion mask

// #region interaction-event
// InteractionEvent is the immutable record of one processed turn.
type InteractionEvent struct {
	ID              string
	UserID          string
	Timestamp       time.Time
	Role            Role
	Text            string
	Channel         Channel
	UtilityFlag     bool
	Novelty         float64 // 0..1
	NarrativeWeight float64 // 0..1
	EntropyDelta    float64 // -1..1
	Meaningfulness  float64 // 0..1
	Gate            Gate
	PatternIDs      []string
}

// Validate rejects events whose scalar fields escaped clamping or whose
// enums are outside the closed sets. The scoring layer clamps at the
// boundary, so a failure here indicates a caller bug.
func (e InteractionEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id empty")
	}
	if e.UserID == "" {
		return fmt.Errorf("event user id empty")
	}
	if _, err := ParseGate(string(e.Gate)); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"novelty":          e.Novelty,
		"narrative_weight": e.NarrativeWeight,
		"meaningfulness":   e.Meaningfulness,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s %.4f out of [0,1]", name, v)
		}
	}
	if e.EntropyDelta < -1 || e.EntropyDelta > 1 {
		return fmt.Errorf("entropy_delta %.4f out of [-1,1]", e.EntropyDelta)
	}
	return nil
}

// #endregion interaction-event

// #region pattern-echo
// PatternEcho is a detected recurring behavioral signal for one user.
type PatternEcho struct {
	ID               string
	UserID           string
	Type             PatternType
	Summary          string
	EvidenceEventIDs []string
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	Strength         float64 // 0..1
	Recency          float64 // 0..1
	LoreWeight       float64 // 0..1
	Status           PatternStatus
}

// #endregion pattern-echo

// #region loom-state
// LoomState is the rolling per-user state read and rewritten on every turn.
// Exactly one row exists per user; it is created lazily and never deleted.
type LoomState struct {
	UserID         string
	Entropy        float64 // 0..1
	SilenceStreak  int
	Dormancy       bool
	LastActiveAt   time.Time
	DependencyRisk float64 // 0..1
	ActiveMask     Mask
	MaskWeights    MaskWeights
	Version        int64 // optimistic-concurrency counter, managed by the store
}

// DefaultState returns the lazily-created state for a user's first message.
func DefaultState(userID string) LoomState {
	return LoomState{
		UserID:      userID,
		Entropy:     0.5,
		ActiveMask:  MaskLight,
		MaskWeights: MaskWeights{Light: 0.7, Dark: 0.3},
	}
}

// #endregion loom-state

// #region clamp
// Clamp01 bounds a scalar score to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampDelta bounds an entropy delta to [-1, 1].
func ClampDelta(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion clamp
