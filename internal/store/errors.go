package store

import "errors"

// #region errors
var (
	// ErrDuplicateID means an event id was inserted twice. Ids are
	// UUID-generated, so this indicates a caller bug and is surfaced hard.
	ErrDuplicateID = errors.New("store: duplicate event id")

	// ErrInvalidEvent means an event failed validation before insert.
	ErrInvalidEvent = errors.New("store: invalid event")

	// ErrStateConflict means a loom_state write lost an optimistic-
	// concurrency race: the row version moved since the state was read.
	ErrStateConflict = errors.New("store: state version conflict")

	// ErrNotFound means a pattern echo id does not exist.
	ErrNotFound = errors.New("store: not found")
)

// #endregion errors
