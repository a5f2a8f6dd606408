// Package engine orchestrates one gating pass per inbound message: load
// state, score the turn, run pattern detection, decide the gate, and
// commit the event and rewritten state as a single unit.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"loomgate/internal/event"
	"loomgate/internal/gate"
	"loomgate/internal/logging"
	"loomgate/internal/pattern"
	"loomgate/internal/score"
	"loomgate/internal/store"
)

// #region config
// Config holds engine tunables.
type Config struct {
	NoveltyWindow  int           // recent texts compared for novelty
	RepeatWindow   time.Duration // pattern-repeat lookback for entropy
	DormancyStreak int           // silence streak that flips dormancy on
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() Config {
	return Config{
		NoveltyWindow:  5,
		RepeatWindow:   48 * time.Hour,
		DormancyStreak: 6,
	}
}

// #endregion config

// #region engine
// Engine is the single entry point for the narrative gating subsystem.
// Construct one per store and share it; all dependencies are injected.
type Engine struct {
	store    *store.Store
	detector *pattern.Detector
	decider  *gate.Decider
	log      *zap.Logger
	config   Config
	locks    *userLocks
}

// New wires an engine.
func New(st *store.Store, detector *pattern.Detector, log *zap.Logger, config Config) *Engine {
	if config.NoveltyWindow <= 0 {
		config.NoveltyWindow = DefaultConfig().NoveltyWindow
	}
	if config.RepeatWindow <= 0 {
		config.RepeatWindow = DefaultConfig().RepeatWindow
	}
	if config.DormancyStreak <= 0 {
		config.DormancyStreak = DefaultConfig().DormancyStreak
	}
	return &Engine{
		store:    st,
		detector: detector,
		decider:  gate.NewDecider(gate.DefaultThresholds()),
		log:      log,
		config:   config,
		locks:    newUserLocks(),
	}
}

// #endregion engine

// #region process

// Process runs the full gating pass for one user message and returns the
// verdict. Store failures propagate so the caller can fail the turn
// loudly; pattern detection failures degrade silently to "no patterns".
func (e *Engine) Process(ctx context.Context, userID, text string) (event.Gate, error) {
	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.store.GetState(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("process %s: %w", userID, err)
	}

	texts, err := e.store.RecentTexts(ctx, userID, e.config.NoveltyWindow)
	if err != nil {
		return "", fmt.Errorf("process %s: %w", userID, err)
	}
	novelty := score.NoveltyOf(text, texts)

	flags := score.ExtractFlags(text)
	weight := score.EstimateNarrativeWeight(flags)

	// The repeat window must be sampled before detection runs: Detect
	// stamps echoes with the current time, which would otherwise make
	// every detection count as its own repeat.
	seenBefore, err := e.store.PatternTypesSeenWithin(ctx, userID, e.config.RepeatWindow)
	if err != nil {
		return "", fmt.Errorf("process %s: %w", userID, err)
	}
	analysis, patternIDs := e.detector.Detect(ctx, userID, text)
	repeat := repeatedType(analysis, seenBefore)

	newEntropy := score.UpdateEntropy(st.Entropy, novelty, repeat)
	meaningfulness := score.ComputeMeaningfulness(weight, novelty, newEntropy)

	inputs := gate.Inputs{
		Meaningfulness:  meaningfulness,
		NarrativeWeight: weight,
		UtilityFlag:     score.IsUtilityRequest(text),
		MaskConflict:    st.MaskWeights.Conflicted(),
		SelfSabotage:    analysis.SelfSabotage(),
		ActiveMask:      st.ActiveMask,
		RecommendedGate: recommendedGate(analysis),
	}
	decision := e.decider.Decide(inputs)

	now := time.Now().UTC()
	ev := event.InteractionEvent{
		ID:              uuid.New().String(),
		UserID:          userID,
		Timestamp:       now,
		Role:            event.RoleUser,
		Text:            text,
		Channel:         event.ChannelChat,
		UtilityFlag:     score.IsUtilityRequest(text),
		Novelty:         novelty,
		NarrativeWeight: weight,
		EntropyDelta:    event.ClampDelta(newEntropy - st.Entropy),
		Meaningfulness:  meaningfulness,
		Gate:            decision.Gate,
		PatternIDs:      patternIDs,
	}

	next := e.nextState(st, ev, flags, now)
	if err := e.store.CommitTurn(ctx, ev, next); err != nil {
		return "", fmt.Errorf("process %s: %w", userID, err)
	}
	e.logProvenance(ev, st.Entropy, inputs, repeat, decision, now)

	e.log.Info("gated turn",
		zap.String("user", userID),
		zap.String("gate", string(decision.Gate)),
		zap.String("reason", decision.Reason),
		zap.Bool("overridden", decision.Overridden),
		zap.Float64("novelty", novelty),
		zap.Float64("narrative_weight", weight),
		zap.Float64("meaningfulness", meaningfulness),
		zap.Float64("entropy", next.Entropy),
		zap.Int("patterns", len(patternIDs)),
	)
	return decision.Gate, nil
}

// logProvenance records the full verdict for offline replay. The turn is
// already committed, so a provenance failure only warns.
func (e *Engine) logProvenance(ev event.InteractionEvent, entropyBefore float64, in gate.Inputs, repeat bool, decision gate.Decision, now time.Time) {
	record := logging.VerdictRecord{
		EventID:         ev.ID,
		UserID:          ev.UserID,
		Text:            ev.Text,
		Novelty:         ev.Novelty,
		NarrativeWeight: ev.NarrativeWeight,
		Meaningfulness:  ev.Meaningfulness,
		EntropyBefore:   entropyBefore,
		EntropyAfter:    event.Clamp01(entropyBefore + ev.EntropyDelta),
		PatternRepeat:   repeat,
		UtilityFlag:     in.UtilityFlag,
		MaskConflict:    in.MaskConflict,
		SelfSabotage:    in.SelfSabotage,
		ActiveMask:      string(in.ActiveMask),
		RecommendedGate: string(in.RecommendedGate),
		Gate:            string(decision.Gate),
		Reason:          decision.Reason,
		Overridden:      decision.Overridden,
	}
	recordJSON, _ := json.Marshal(record)

	err := logging.LogVerdict(e.store.DB(), logging.VerdictEntry{
		EventID:    ev.ID,
		UserID:     ev.UserID,
		Gate:       string(decision.Gate),
		Reason:     decision.Reason,
		Overridden: decision.Overridden,
		RecordJSON: string(recordJSON),
		CreatedAt:  now,
	})
	if err != nil {
		e.log.Warn("provenance write failed", zap.String("event", ev.ID), zap.Error(err))
	}
}

// nextState rewrites the rolling state after one turn.
func (e *Engine) nextState(st event.LoomState, ev event.InteractionEvent, flags score.Flags, now time.Time) event.LoomState {
	next := st
	next.Entropy = st.Entropy + ev.EntropyDelta
	next.Entropy = event.Clamp01(next.Entropy)
	next.LastActiveAt = now

	if ev.Gate == event.GateSilence {
		next.SilenceStreak = st.SilenceStreak + 1
	} else {
		next.SilenceStreak = 0
	}
	next.Dormancy = next.SilenceStreak >= e.config.DormancyStreak

	// Craving-shaped turns with nothing new in them nudge dependency risk
	// up; every other turn lets it bleed off.
	if flags.DesireFearConfession && ev.Novelty < 0.3 {
		next.DependencyRisk = event.Clamp01(st.DependencyRisk + 0.03)
	} else {
		next.DependencyRisk = event.Clamp01(st.DependencyRisk - 0.01)
	}
	return next
}

func repeatedType(analysis *pattern.Analysis, seen map[event.PatternType]bool) bool {
	if analysis == nil {
		return false
	}
	for _, c := range analysis.Candidates {
		if seen[c.Type] {
			return true
		}
	}
	return false
}

func recommendedGate(analysis *pattern.Analysis) event.Gate {
	if analysis == nil {
		return ""
	}
	return analysis.RecommendedGate
}

// #endregion process

// #region snapshot

// GetState returns a read-only snapshot of a user's rolling state, for
// prompt construction or display. Defaults for unseen users.
func (e *Engine) GetState(ctx context.Context, userID string) (event.LoomState, error) {
	return e.store.GetState(ctx, userID)
}

// SwitchMask persists an explicit persona-mask override. The weights
// follow the dominant mask so a switch also clears any standing conflict.
func (e *Engine) SwitchMask(ctx context.Context, userID string, mask event.Mask) error {
	if _, err := event.ParseMask(string(mask)); err != nil {
		return fmt.Errorf("switch mask %s: %w", userID, err)
	}

	lock := e.locks.get(userID)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.store.GetState(ctx, userID)
	if err != nil {
		return fmt.Errorf("switch mask %s: %w", userID, err)
	}
	st.ActiveMask = mask
	if mask == event.MaskDark {
		st.MaskWeights = event.MaskWeights{Light: 0.3, Dark: 0.7}
	} else {
		st.MaskWeights = event.MaskWeights{Light: 0.7, Dark: 0.3}
	}
	if err := e.store.UpdateState(ctx, st); err != nil {
		return fmt.Errorf("switch mask %s: %w", userID, err)
	}

	e.log.Info("mask switched", zap.String("user", userID), zap.String("mask", string(mask)))
	return nil
}

// #endregion snapshot
