package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"loomgate/internal/event"
	"loomgate/internal/pattern"
	"loomgate/internal/store"
)

// #region helpers

type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func tempStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "loom.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testEngine(t *testing.T, oracle pattern.Oracle, config Config) (*Engine, *store.Store) {
	t.Helper()
	st := tempStore(t)
	det := pattern.NewDetector(st, oracle, zap.NewNop(), pattern.DefaultConfig())
	return New(st, det, zap.NewNop(), config), st
}

// #endregion helpers

func TestProcessFirstMessage(t *testing.T) {
	eng, st := testEngine(t, nil, DefaultConfig())
	ctx := context.Background()

	gate, err := eng.Process(ctx, "user-1", "hello there")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := event.ParseGate(string(gate)); err != nil {
		t.Fatalf("invalid gate %q: %v", gate, err)
	}

	n, err := st.EventCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("event count: %v", err)
	}
	if n != 1 {
		t.Fatalf("event count = %d, want 1", n)
	}

	snap, err := eng.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	// First message is maximally novel, so entropy drops from the 0.5 default.
	if snap.Entropy >= 0.5 {
		t.Fatalf("entropy = %v, want < 0.5", snap.Entropy)
	}

	// The verdict lands in the provenance log alongside the event.
	var provRows int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM gate_provenance WHERE user_id = ?`, "user-1").Scan(&provRows); err != nil {
		t.Fatalf("count provenance: %v", err)
	}
	if provRows != 1 {
		t.Fatalf("provenance rows = %d, want 1", provRows)
	}
}

func TestSilenceStreakAndDormancy(t *testing.T) {
	config := DefaultConfig()
	config.DormancyStreak = 3
	eng, _ := testEngine(t, nil, config)
	ctx := context.Background()

	// Identical bland turns have zero novelty and near-zero weight, so
	// each one lands below the silence threshold and ratchets the streak.
	for i := 0; i < 4; i++ {
		if _, err := eng.Process(ctx, "user-1", "ok sure"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	snap, err := eng.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if snap.SilenceStreak < config.DormancyStreak {
		t.Fatalf("silence streak = %d, want >= %d", snap.SilenceStreak, config.DormancyStreak)
	}
	if !snap.Dormancy {
		t.Fatal("dormancy not set after sustained silence")
	}

	// A heavy, novel turn gets through and clears the streak.
	gate, err := eng.Process(ctx, "user-1", "i'm scared of what happens if i decide to leave, should i")
	if err != nil {
		t.Fatalf("heavy turn: %v", err)
	}
	if gate == event.GateSilence {
		t.Fatalf("heavy novel turn gated as silence")
	}
	snap, err = eng.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if snap.SilenceStreak != 0 {
		t.Fatalf("silence streak = %d after non-silence turn, want 0", snap.SilenceStreak)
	}
	if snap.Dormancy {
		t.Fatal("dormancy still set after non-silence turn")
	}
}

func TestUtilityRefusal(t *testing.T) {
	eng, _ := testEngine(t, nil, DefaultConfig())

	gate, err := eng.Process(context.Background(), "user-1", "write code to fix my csv parser")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if gate != event.GateRefuse {
		t.Fatalf("gate = %q, want %q", gate, event.GateRefuse)
	}
}

func TestDarkMaskConfront(t *testing.T) {
	eng, _ := testEngine(t, nil, DefaultConfig())
	ctx := context.Background()

	if err := eng.SwitchMask(ctx, "user-1", event.MaskDark); err != nil {
		t.Fatalf("switch mask: %v", err)
	}
	gate, err := eng.Process(ctx, "user-1", "i'm scared i always end up here, should i finally admit who i am")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if gate != event.GateConfront {
		t.Fatalf("gate = %q, want %q", gate, event.GateConfront)
	}
}

func TestPatternIDsAttachedToEvent(t *testing.T) {
	oracle := &fakeOracle{response: `{"patterns": [{"type": "loop", "summary": "returns to the same fight", "strength": 0.9}]}`}
	eng, st := testEngine(t, oracle, DefaultConfig())
	ctx := context.Background()

	if _, err := eng.Process(ctx, "user-1", "here we go again with the same argument"); err != nil {
		t.Fatalf("process: %v", err)
	}

	events, err := st.RecentEvents(ctx, "user-1", 1)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 || len(events[0].PatternIDs) != 1 {
		t.Fatalf("event pattern ids = %v, want exactly one", events)
	}
	echoes, err := st.PatternsForUser(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("patterns for user: %v", err)
	}
	if len(echoes) != 1 {
		t.Fatalf("echoes = %d, want 1", len(echoes))
	}
	if echoes[0].ID != events[0].PatternIDs[0] {
		t.Fatalf("event references echo %q, stored echo is %q", events[0].PatternIDs[0], echoes[0].ID)
	}
}

func TestGarbageOracleStillGates(t *testing.T) {
	oracle := &fakeOracle{response: "the model had a bad day and returned prose with no json at all"}
	eng, st := testEngine(t, oracle, DefaultConfig())
	ctx := context.Background()

	gate, err := eng.Process(ctx, "user-1", "remember that night before everything changed")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, err := event.ParseGate(string(gate)); err != nil {
		t.Fatalf("invalid gate %q: %v", gate, err)
	}
	n, err := st.EventCount(ctx, "user-1")
	if err != nil {
		t.Fatalf("event count: %v", err)
	}
	if n != 1 {
		t.Fatalf("event count = %d, want 1", n)
	}
}

func TestSwitchMask(t *testing.T) {
	eng, _ := testEngine(t, nil, DefaultConfig())
	ctx := context.Background()

	if err := eng.SwitchMask(ctx, "user-1", event.Mask("trickster")); err == nil {
		t.Fatal("unknown mask accepted")
	}

	if err := eng.SwitchMask(ctx, "user-1", event.MaskDark); err != nil {
		t.Fatalf("switch mask: %v", err)
	}
	snap, err := eng.GetState(ctx, "user-1")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if snap.ActiveMask != event.MaskDark {
		t.Fatalf("active mask = %q, want %q", snap.ActiveMask, event.MaskDark)
	}
	if snap.MaskWeights.Dark <= snap.MaskWeights.Light {
		t.Fatalf("mask weights %+v not dark-dominant", snap.MaskWeights)
	}
}

func TestConcurrentProcess(t *testing.T) {
	eng, st := testEngine(t, nil, DefaultConfig())
	ctx := context.Background()

	users := []string{"u1", "u2", "u3", "u4", "u5"}
	const turns = 10

	var wg sync.WaitGroup
	errs := make(chan error, len(users)*turns)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				if _, err := eng.Process(ctx, userID, "thinking about what comes next"); err != nil {
					errs <- err
				}
			}
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent process: %v", err)
	}

	for _, u := range users {
		n, err := st.EventCount(ctx, u)
		if err != nil {
			t.Fatalf("event count %s: %v", u, err)
		}
		if n != turns {
			t.Fatalf("user %s event count = %d, want %d", u, n, turns)
		}
		snap, err := eng.GetState(ctx, u)
		if err != nil {
			t.Fatalf("get state %s: %v", u, err)
		}
		if snap.Version != turns {
			t.Fatalf("user %s state version = %d, want %d", u, snap.Version, turns)
		}
	}
}
