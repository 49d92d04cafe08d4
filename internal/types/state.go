package types

// Enum values for tournament lifecycle state
type TournamentState string

const (
	TournamentDraft              TournamentState = "DRAFT"
	TournamentRegistrationOpen   TournamentState = "REGISTRATION_OPEN"
	TournamentRegistrationClosed TournamentState = "REGISTRATION_CLOSED"
	TournamentActive             TournamentState = "ACTIVE"
	TournamentCompleted          TournamentState = "COMPLETED"
	TournamentCancelled          TournamentState = "CANCELLED"
)

func (s TournamentState) String() string {
	return string(s)
}

// Terminal reports whether the tournament can no longer change.
func (s TournamentState) Terminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// Enum values for participant state
type ParticipantState string

const (
	ParticipantPending           ParticipantState = "PENDING"
	ParticipantActive            ParticipantState = "ACTIVE"
	ParticipantInactiveCancelled ParticipantState = "INACTIVE_CANCELLED"
	ParticipantInactiveRefunded  ParticipantState = "INACTIVE_REFUNDED"
)

func (s ParticipantState) String() string {
	return string(s)
}

// Terminal reports whether the participant state is final.
func (s ParticipantState) Terminal() bool {
	return s == ParticipantInactiveCancelled || s == ParticipantInactiveRefunded
}

// QualifiedStatesForConfirmed returns the current states from which a
// confirmed purchase may activate a participant.
func QualifiedStatesForConfirmed() []ParticipantState {
	return []ParticipantState{ParticipantPending}
}

// QualifiedStatesForCancelled returns the current states from which a
// cancellation may deactivate a participant.
func QualifiedStatesForCancelled() []ParticipantState {
	return []ParticipantState{ParticipantPending, ParticipantActive}
}

// QualifiedStatesForRefunded returns the current states from which a refund
// may deactivate a participant.
func QualifiedStatesForRefunded() []ParticipantState {
	return []ParticipantState{ParticipantPending, ParticipantActive}
}
