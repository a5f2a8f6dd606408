package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loomgate/internal/event"
)

// #region insert-pattern
// InsertPattern inserts a new pattern echo and returns its id (generated
// when empty).
func (s *Store) InsertPattern(ctx context.Context, echo event.PatternEcho) (string, error) {
	if echo.ID == "" {
		echo.ID = uuid.New().String()
	}
	if _, err := event.ParsePatternType(string(echo.Type)); err != nil {
		return "", fmt.Errorf("insert pattern: %w", err)
	}
	evidenceJS, err := json.Marshal(echo.EvidenceEventIDs)
	if err != nil {
		return "", fmt.Errorf("insert pattern %s: marshal evidence: %w", echo.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pattern_echo
		 (id, user_id, type, summary, evidence_event_ids, first_seen_ts, last_seen_ts, strength, recency, lore_weight, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		echo.ID, echo.UserID, string(echo.Type), echo.Summary, string(evidenceJS),
		echo.FirstSeenAt.UTC().Format(time.RFC3339Nano),
		echo.LastSeenAt.UTC().Format(time.RFC3339Nano),
		echo.Strength, echo.Recency, echo.LoreWeight, string(echo.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("insert pattern %s: %w", echo.ID, ErrDuplicateID)
		}
		return "", fmt.Errorf("insert pattern %s: %w", echo.ID, err)
	}
	return echo.ID, nil
}

// #endregion insert-pattern

// #region touch-pattern
// TouchPattern refreshes a pattern on re-detection: lastSeen moves
// forward, recency resets to 1.0, and strength keeps the maximum of the
// stored and newly observed values.
func (s *Store) TouchPattern(ctx context.Context, id string, seenAt time.Time, strength float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pattern_echo
		 SET last_seen_ts = ?, recency = 1.0, strength = MAX(strength, ?)
		 WHERE id = ?`,
		seenAt.UTC().Format(time.RFC3339Nano), event.Clamp01(strength), id,
	)
	if err != nil {
		return fmt.Errorf("touch pattern %s: %w", id, err)
	}
	return requireRow(res, id)
}

// #endregion touch-pattern

// #region retire-pattern
// RetirePattern is the only way a pattern leaves circulation; rows are
// never physically deleted.
func (s *Store) RetirePattern(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pattern_echo SET status = ? WHERE id = ?`,
		string(event.StatusRetired), id,
	)
	if err != nil {
		return fmt.Errorf("retire pattern %s: %w", id, err)
	}
	return requireRow(res, id)
}

// #endregion retire-pattern

// #region lookups
// ActivePatternByType returns the most recently seen active echo of the
// given type for a user, if one exists.
func (s *Store) ActivePatternByType(ctx context.Context, userID string, t event.PatternType) (event.PatternEcho, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, summary, evidence_event_ids, first_seen_ts, last_seen_ts, strength, recency, lore_weight, status
		 FROM pattern_echo
		 WHERE user_id = ? AND type = ? AND status = ?
		 ORDER BY last_seen_ts DESC LIMIT 1`,
		userID, string(t), string(event.StatusActive),
	)
	echo, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return event.PatternEcho{}, false, nil
	}
	if err != nil {
		return event.PatternEcho{}, false, fmt.Errorf("active pattern %s/%s: %w", userID, t, err)
	}
	return echo, true, nil
}

// PatternTypesSeenWithin reports which pattern types were last seen inside
// the window ending now. Feeds the repeat check in entropy scoring.
func (s *Store) PatternTypesSeenWithin(ctx context.Context, userID string, window time.Duration) (map[event.PatternType]bool, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT type FROM pattern_echo
		 WHERE user_id = ? AND last_seen_ts >= ? AND status != ?`,
		userID, cutoff, string(event.StatusRetired),
	)
	if err != nil {
		return nil, fmt.Errorf("pattern types within %s: %w", userID, err)
	}
	defer rows.Close()

	seen := map[event.PatternType]bool{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("pattern types within %s: scan: %w", userID, err)
		}
		seen[event.PatternType(t)] = true
	}
	return seen, rows.Err()
}

// PatternsForUser lists a user's echoes, most recently seen first.
func (s *Store) PatternsForUser(ctx context.Context, userID string, limit int) ([]event.PatternEcho, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, summary, evidence_event_ids, first_seen_ts, last_seen_ts, strength, recency, lore_weight, status
		 FROM pattern_echo WHERE user_id = ? ORDER BY last_seen_ts DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("patterns for %s: %w", userID, err)
	}
	defer rows.Close()

	var echoes []event.PatternEcho
	for rows.Next() {
		echo, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("patterns for %s: %w", userID, err)
		}
		echoes = append(echoes, echo)
	}
	return echoes, rows.Err()
}

// #endregion lookups

// #region scan
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (event.PatternEcho, error) {
	var (
		echo       event.PatternEcho
		evidenceJS sql.NullString
		firstTS    string
		lastTS     string
	)
	err := row.Scan(&echo.ID, &echo.UserID, &echo.Type, &echo.Summary, &evidenceJS,
		&firstTS, &lastTS, &echo.Strength, &echo.Recency, &echo.LoreWeight, &echo.Status)
	if err != nil {
		return event.PatternEcho{}, err
	}
	echo.FirstSeenAt, _ = time.Parse(time.RFC3339Nano, firstTS)
	echo.LastSeenAt, _ = time.Parse(time.RFC3339Nano, lastTS)
	if evidenceJS.Valid && evidenceJS.String != "" {
		if err := json.Unmarshal([]byte(evidenceJS.String), &echo.EvidenceEventIDs); err != nil {
			return event.PatternEcho{}, fmt.Errorf("evidence ids: %w", err)
		}
	}
	return echo, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pattern %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("pattern %s: %w", id, ErrNotFound)
	}
	return nil
}

// #endregion scan
