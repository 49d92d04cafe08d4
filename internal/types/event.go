package types

// RegistrationEventType is the closed set of ticketing webhook event types.
type RegistrationEventType string

const (
	EventRegistrationConfirmed RegistrationEventType = "registration.confirmed"
	EventRegistrationCancelled RegistrationEventType = "registration.cancelled"
	EventRegistrationRefunded  RegistrationEventType = "registration.refunded"
)

func (e RegistrationEventType) String() string {
	return string(e)
}

// Valid reports whether the webhook delivered a known event type.
func (e RegistrationEventType) Valid() bool {
	switch e {
	case EventRegistrationConfirmed, EventRegistrationCancelled, EventRegistrationRefunded:
		return true
	}
	return false
}
