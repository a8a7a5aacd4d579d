package model

import "errors"

// Sentinel kinds shared by the selector, updater and reader.
var (
	// ErrNoEligiblePair means every pair has been judged; it is not a failure.
	ErrNoEligiblePair = errors.New("no eligible pair left to compare")
	// ErrPersistence wraps storage failures surfaced to callers.
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidScore rejects scores other than 0, 0.5 and 1.
	ErrInvalidScore = errors.New("invalid score")
	// ErrInvalidContest rejects contests that cannot be judged.
	ErrInvalidContest = errors.New("invalid contest")

	// ErrNotFound and ErrAlreadyJudged are raised by stores and inspected
	// by the engine.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyJudged = errors.New("pair already judged in group")
)
