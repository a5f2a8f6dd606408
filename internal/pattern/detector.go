package pattern

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"loomgate/internal/dirtyjson"
	"loomgate/internal/event"
	"loomgate/internal/store"
)

// #region prompt
const classifySystemPrompt = `Analyze the conversation history for recurring behavioral patterns.
Look for:
- contradiction: saying one thing, doing another.
- loop: repeating the same issue without resolution.
- confession: admitting a hidden truth.
- boundary: testing limits.
- desire: expressing a want.
- fear: expressing anxiety.
- goal: stating an objective.
- identity_claim: "I am X".
- trigger: a specific topic causing reaction.

Return JSON only:
{
  "patterns": [
    {"type": "loop", "summary": "User keeps asking about X...", "strength": 0.0}
  ],
  "recommended_gate": "silence" | "reply" | "refuse" | "delay" | "confront" | null
}
Report an empty patterns list when nothing recurs. Only recommend a gate
when the pattern clearly calls for one.`

// #endregion prompt

// #region detector
// Detector asks the oracle to classify recent history and persists any
// sufficiently strong patterns. Detection is best-effort: every failure
// path degrades to "no patterns this turn" and is logged, never returned.
type Detector struct {
	store  *store.Store
	oracle Oracle
	log    *zap.Logger
	config Config
}

// NewDetector wires a detector. oracle may be nil, which disables
// detection entirely (useful for operating without a reasoning backend).
func NewDetector(st *store.Store, oracle Oracle, log *zap.Logger, config Config) *Detector {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if config.StrengthThreshold <= 0 {
		config.StrengthThreshold = DefaultConfig().StrengthThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.EvidenceLimit <= 0 {
		config.EvidenceLimit = DefaultConfig().EvidenceLimit
	}
	return &Detector{store: st, oracle: oracle, log: log, config: config}
}

// #endregion detector

// #region detect

// Detect classifies the user's recent history plus the current text and
// returns the analysis and ids of the echoes persisted or refreshed this
// turn. A nil analysis means detection was skipped or failed.
func (d *Detector) Detect(ctx context.Context, userID, text string) (*Analysis, []string) {
	if d.oracle == nil {
		return nil, nil
	}

	events, err := d.store.RecentEvents(ctx, userID, d.config.HistoryLimit)
	if err != nil {
		d.log.Warn("pattern detection: history load failed", zap.String("user", userID), zap.Error(err))
		return nil, nil
	}

	oracleCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	raw, err := d.oracle.Classify(oracleCtx, classifySystemPrompt, buildUserPrompt(events, text))
	if err != nil {
		d.log.Warn("pattern detection: oracle failed", zap.String("user", userID), zap.Error(err))
		return nil, nil
	}

	analysis := d.parseResponse(raw)
	if analysis == nil {
		d.log.Warn("pattern detection: unparseable oracle output", zap.String("user", userID))
		return nil, nil
	}

	ids := d.persist(ctx, userID, events, analysis)
	return analysis, ids
}

// buildUserPrompt renders history oldest-first so the oracle reads the
// conversation in natural order.
func buildUserPrompt(events []event.InteractionEvent, current string) string {
	var b strings.Builder
	b.WriteString("History:\n")
	for i := len(events) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%s: %s\n", events[i].Role, events[i].Text)
	}
	b.WriteString("\nCurrent Message:\n")
	b.WriteString(current)
	return b.String()
}

// #endregion detect

// #region parse

// parseResponse decodes the oracle output leniently and validates every
// enum at the boundary. Malformed candidates are dropped, not propagated.
func (d *Detector) parseResponse(raw string) *Analysis {
	obj, err := dirtyjson.DecodeObject(raw)
	if err != nil {
		return nil
	}

	analysis := &Analysis{}

	if g, ok := obj["recommended_gate"].(string); ok {
		if gate, err := event.ParseGate(g); err == nil {
			analysis.RecommendedGate = gate
		}
	}

	for _, item := range candidateObjects(obj) {
		typeStr, _ := item["type"].(string)
		ptype, err := event.ParsePatternType(typeStr)
		if err != nil {
			d.log.Debug("pattern detection: dropping candidate", zap.String("type", typeStr))
			continue
		}
		summary, _ := item["summary"].(string)
		strength, _ := item["strength"].(float64)
		analysis.Candidates = append(analysis.Candidates, Candidate{
			Type:     ptype,
			Summary:  summary,
			Strength: event.Clamp01(strength),
		})
	}
	return analysis
}

// candidateObjects accepts both response shapes seen in the wild: a
// "patterns" array, or a single flat object with "pattern_found".
func candidateObjects(obj map[string]any) []map[string]any {
	if arr, ok := obj["patterns"].([]any); ok {
		var out []map[string]any
		for _, it := range arr {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	if found, ok := obj["pattern_found"].(bool); ok && found {
		return []map[string]any{obj}
	}
	return nil
}

// #endregion parse

// #region persist

// persist applies the match policy: one active echo per (user, type).
// Re-detections refresh the existing echo; new types insert a fresh one.
func (d *Detector) persist(ctx context.Context, userID string, history []event.InteractionEvent, analysis *Analysis) []string {
	now := time.Now().UTC()
	var ids []string

	for _, c := range analysis.Candidates {
		if c.Strength <= d.config.StrengthThreshold {
			continue
		}

		existing, ok, err := d.store.ActivePatternByType(ctx, userID, c.Type)
		if err != nil {
			d.log.Warn("pattern detection: lookup failed", zap.String("user", userID), zap.Error(err))
			continue
		}
		if ok {
			if err := d.store.TouchPattern(ctx, existing.ID, now, c.Strength); err != nil {
				d.log.Warn("pattern detection: touch failed", zap.String("id", existing.ID), zap.Error(err))
				continue
			}
			ids = append(ids, existing.ID)
			continue
		}

		id, err := d.store.InsertPattern(ctx, event.PatternEcho{
			UserID:           userID,
			Type:             c.Type,
			Summary:          c.Summary,
			EvidenceEventIDs: evidenceIDs(history, d.config.EvidenceLimit),
			FirstSeenAt:      now,
			LastSeenAt:       now,
			Strength:         c.Strength,
			Recency:          1.0,
			LoreWeight:       0.5,
			Status:           event.StatusActive,
		})
		if err != nil {
			d.log.Warn("pattern detection: insert failed", zap.String("user", userID), zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func evidenceIDs(history []event.InteractionEvent, limit int) []string {
	var ids []string
	for i := 0; i < len(history) && i < limit; i++ {
		ids = append(ids, history[i].ID)
	}
	return ids
}

// #endregion persist
