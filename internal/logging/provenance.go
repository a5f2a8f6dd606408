package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// #region log-verdict
// LogVerdict writes a provenance entry to the gate_provenance table.
func LogVerdict(db *sql.DB, entry VerdictEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO gate_provenance (event_id, user_id, gate, reason, overridden, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID,
		entry.UserID,
		entry.Gate,
		nullIfEmpty(entry.Reason),
		boolToInt(entry.Overridden),
		nullIfEmpty(entry.RecordJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log verdict: %w", err)
	}
	return nil
}

// #endregion log-verdict

// #region read-verdicts
// VerdictRecordsForUser loads the recorded verdicts for one user in
// commit order, for replay tooling. Rows without a record payload are
// skipped.
func VerdictRecordsForUser(db *sql.DB, userID string) ([]VerdictRecord, error) {
	rows, err := db.Query(
		`SELECT record_json FROM gate_provenance
		 WHERE user_id = ? AND record_json IS NOT NULL
		 ORDER BY created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var records []VerdictRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		var r VerdictRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return records, nil
}

// #endregion read-verdicts

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
