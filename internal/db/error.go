package db

import "errors"

// DuplicateKeyError is an error type for duplicate key errors
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	return e.Message
}

// NotFoundError is an error type for missing documents
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// TournamentFullError signals a confirmed registration against a tournament
// already at max participants.
type TournamentFullError struct {
	TournamentID string
}

func (e *TournamentFullError) Error() string {
	return "tournament is at max participants: " + e.TournamentID
}

// TournamentClosedError signals a registration change against a tournament
// already in a terminal state.
type TournamentClosedError struct {
	TournamentID string
}

func (e *TournamentClosedError) Error() string {
	return "tournament is in a terminal state: " + e.TournamentID
}

// StaleCursorError signals an advance that would move a cursor backwards.
type StaleCursorError struct {
	ParticipantID string
}

func (e *StaleCursorError) Error() string {
	return "cursor advance is stale for participant: " + e.ParticipantID
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsTournamentFullError(err error) bool {
	var target *TournamentFullError
	return errors.As(err, &target)
}

func IsTournamentClosedError(err error) bool {
	var target *TournamentClosedError
	return errors.As(err, &target)
}

func IsStaleCursorError(err error) bool {
	var target *StaleCursorError
	return errors.As(err, &target)
}
