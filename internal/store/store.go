package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"loomgate/internal/event"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS interaction_event (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	ts               TEXT NOT NULL,
	role             TEXT NOT NULL CHECK(role IN ('user', 'agent', 'system')),
	text             TEXT,
	channel          TEXT NOT NULL CHECK(channel IN ('chat', 'voice', 'image', 'file')),
	utility_flag     INTEGER NOT NULL DEFAULT 0,
	novelty          REAL CHECK(novelty BETWEEN 0 AND 1),
	narrative_weight REAL CHECK(narrative_weight BETWEEN 0 AND 1),
	entropy_delta    REAL CHECK(entropy_delta BETWEEN -1 AND 1),
	meaningfulness   REAL CHECK(meaningfulness BETWEEN 0 AND 1),
	gate             TEXT NOT NULL CHECK(gate IN ('silence', 'reply', 'refuse', 'delay', 'confront')),
	pattern_ids      TEXT
);
CREATE INDEX IF NOT EXISTS idx_event_user ON interaction_event(user_id);

CREATE TABLE IF NOT EXISTS pattern_echo (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	type               TEXT NOT NULL CHECK(type IN ('contradiction', 'loop', 'confession', 'boundary', 'desire', 'fear', 'goal', 'identity_claim', 'trigger')),
	summary            TEXT,
	evidence_event_ids TEXT,
	first_seen_ts      TEXT NOT NULL,
	last_seen_ts       TEXT NOT NULL,
	strength           REAL CHECK(strength BETWEEN 0 AND 1),
	recency            REAL CHECK(recency BETWEEN 0 AND 1),
	lore_weight        REAL CHECK(lore_weight BETWEEN 0 AND 1),
	status             TEXT NOT NULL CHECK(status IN ('active', 'resolved', 'dormant', 'retired'))
);
CREATE INDEX IF NOT EXISTS idx_pattern_user_type ON pattern_echo(user_id, type, status);

CREATE TABLE IF NOT EXISTS loom_state (
	user_id         TEXT PRIMARY KEY,
	entropy         REAL NOT NULL CHECK(entropy BETWEEN 0 AND 1),
	silence_streak  INTEGER NOT NULL DEFAULT 0,
	dormancy        INTEGER NOT NULL DEFAULT 0,
	last_active_ts  TEXT,
	dependency_risk REAL NOT NULL DEFAULT 0 CHECK(dependency_risk BETWEEN 0 AND 1),
	active_mask     TEXT NOT NULL CHECK(active_mask IN ('light', 'dark')),
	mask_weights    TEXT,
	version         INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS gate_provenance (
	event_id    TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	gate        TEXT NOT NULL CHECK(gate IN ('silence', 'reply', 'refuse', 'delay', 'confront')),
	reason      TEXT,
	overridden  INTEGER NOT NULL DEFAULT 0,
	record_json TEXT,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_provenance_user ON gate_provenance(user_id);
`

// #endregion schema

// #region store-struct
// Store is the durable event log and per-user state backing the gating
// engine. WAL journaling keeps readers off the writer's lock, so writes to
// different users only contend on SQLite's single-writer slot; same-user
// serialization is the engine's responsibility, with the loom_state
// version column as a backstop against lost updates.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// Open opens (creating if needed) the SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	// The pragmas ride on the DSN so every pooled connection gets them;
	// PRAGMA statements via db.Exec only reach the one connection that
	// happens to run them.
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for read-only tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region get-state
// GetState reads the rolling state for a user, returning defaults when the
// row does not exist yet. It never fails for a well-formed id.
func (s *Store) GetState(ctx context.Context, userID string) (event.LoomState, error) {
	var (
		st        event.LoomState
		lastTS    sql.NullString
		weightsJS sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, entropy, silence_streak, dormancy, last_active_ts, dependency_risk, active_mask, mask_weights, version
		 FROM loom_state WHERE user_id = ?`, userID,
	).Scan(&st.UserID, &st.Entropy, &st.SilenceStreak, &st.Dormancy, &lastTS,
		&st.DependencyRisk, &st.ActiveMask, &weightsJS, &st.Version)
	if err == sql.ErrNoRows {
		return event.DefaultState(userID), nil
	}
	if err != nil {
		return event.LoomState{}, fmt.Errorf("get state %s: %w", userID, err)
	}
	if lastTS.Valid {
		st.LastActiveAt, _ = time.Parse(time.RFC3339Nano, lastTS.String)
	}
	if weightsJS.Valid && weightsJS.String != "" {
		if err := json.Unmarshal([]byte(weightsJS.String), &st.MaskWeights); err != nil {
			return event.LoomState{}, fmt.Errorf("get state %s: mask weights: %w", userID, err)
		}
	}
	return st, nil
}

// #endregion get-state

// #region update-state
// UpdateState upserts the full state row. The whole row is written in one
// statement, so readers never observe partial field writes. The version
// check rejects writes racing a concurrent update for the same user.
func (s *Store) UpdateState(ctx context.Context, st event.LoomState) error {
	return s.upsertState(ctx, s.db, st)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) upsertState(ctx context.Context, ex execer, st event.LoomState) error {
	weightsJS, err := json.Marshal(st.MaskWeights)
	if err != nil {
		return fmt.Errorf("update state %s: marshal weights: %w", st.UserID, err)
	}

	var lastTS any
	if !st.LastActiveAt.IsZero() {
		lastTS = st.LastActiveAt.UTC().Format(time.RFC3339Nano)
	}

	if st.Version == 0 {
		// First write for this user. A concurrent first write shows up as
		// a unique-constraint failure, reported as a conflict.
		_, err = ex.ExecContext(ctx,
			`INSERT INTO loom_state (user_id, entropy, silence_streak, dormancy, last_active_ts, dependency_risk, active_mask, mask_weights, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			st.UserID, st.Entropy, st.SilenceStreak, boolToInt(st.Dormancy), lastTS,
			st.DependencyRisk, string(st.ActiveMask), string(weightsJS),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("update state %s: %w", st.UserID, ErrStateConflict)
			}
			return fmt.Errorf("update state %s: %w", st.UserID, err)
		}
		return nil
	}

	res, err := ex.ExecContext(ctx,
		`UPDATE loom_state
		 SET entropy = ?, silence_streak = ?, dormancy = ?, last_active_ts = ?,
		     dependency_risk = ?, active_mask = ?, mask_weights = ?, version = version + 1
		 WHERE user_id = ? AND version = ?`,
		st.Entropy, st.SilenceStreak, boolToInt(st.Dormancy), lastTS,
		st.DependencyRisk, string(st.ActiveMask), string(weightsJS),
		st.UserID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("update state %s: %w", st.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update state %s: %w", st.UserID, err)
	}
	if n == 0 {
		return fmt.Errorf("update state %s: %w", st.UserID, ErrStateConflict)
	}
	return nil
}

// #endregion update-state

// #region append-event
// AppendEvent inserts one interaction event. Events are insert-only and
// never mutated.
func (s *Store) AppendEvent(ctx context.Context, ev event.InteractionEvent) error {
	return s.insertEvent(ctx, s.db, ev)
}

func (s *Store) insertEvent(ctx context.Context, ex execer, ev event.InteractionEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("append event: %w: %v", ErrInvalidEvent, err)
	}
	patternJS, err := json.Marshal(ev.PatternIDs)
	if err != nil {
		return fmt.Errorf("append event %s: marshal pattern ids: %w", ev.ID, err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO interaction_event
		 (id, user_id, ts, role, text, channel, utility_flag, novelty, narrative_weight, entropy_delta, meaningfulness, gate, pattern_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.Timestamp.UTC().Format(time.RFC3339Nano),
		string(ev.Role), ev.Text, string(ev.Channel), boolToInt(ev.UtilityFlag),
		ev.Novelty, ev.NarrativeWeight, ev.EntropyDelta, ev.Meaningfulness,
		string(ev.Gate), string(patternJS),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append event %s: %w", ev.ID, ErrDuplicateID)
		}
		return fmt.Errorf("append event %s: %w", ev.ID, err)
	}
	return nil
}

// #endregion append-event

// #region commit-turn
// CommitTurn appends the turn's event and upserts the user's state in a
// single transaction. Neither write is ever observable without the other.
func (s *Store) CommitTurn(ctx context.Context, ev event.InteractionEvent, st event.LoomState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit turn: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.insertEvent(ctx, tx, ev); err != nil {
		return err
	}
	if err := s.upsertState(ctx, tx, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// #endregion commit-turn

// #region recent
// RecentEvents returns up to limit events for a user, most recent first.
// Ordering follows commit order (rowid), so ties in wall-clock timestamps
// cannot reorder the window.
func (s *Store) RecentEvents(ctx context.Context, userID string, limit int) ([]event.InteractionEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, ts, role, text, channel, utility_flag, novelty, narrative_weight, entropy_delta, meaningfulness, gate, pattern_ids
		 FROM interaction_event WHERE user_id = ? ORDER BY rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events %s: %w", userID, err)
	}
	defer rows.Close()

	var events []event.InteractionEvent
	for rows.Next() {
		var (
			ev        event.InteractionEvent
			tsStr     string
			utility   int
			patternJS sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &tsStr, &ev.Role, &ev.Text, &ev.Channel,
			&utility, &ev.Novelty, &ev.NarrativeWeight, &ev.EntropyDelta,
			&ev.Meaningfulness, &ev.Gate, &patternJS); err != nil {
			return nil, fmt.Errorf("recent events %s: scan: %w", userID, err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, tsStr)
		ev.UtilityFlag = utility != 0
		if patternJS.Valid && patternJS.String != "" {
			if err := json.Unmarshal([]byte(patternJS.String), &ev.PatternIDs); err != nil {
				return nil, fmt.Errorf("recent events %s: pattern ids: %w", userID, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// RecentTexts returns the text of up to limit recent events, most recent
// first. Lightweight subset of RecentEvents for novelty comparison.
func (s *Store) RecentTexts(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM interaction_event WHERE user_id = ? ORDER BY rowid DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent texts %s: %w", userID, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t sql.NullString
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("recent texts %s: scan: %w", userID, err)
		}
		texts = append(texts, t.String)
	}
	return texts, rows.Err()
}

// EventCount returns the number of persisted events for a user.
func (s *Store) EventCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interaction_event WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("event count %s: %w", userID, err)
	}
	return n, nil
}

// #endregion recent

// #region helpers
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// #endregion helpers
