package models

// TripEvent is one delivery on a trip subscription channel. Exactly one of
// Trip or Err is set. A non-nil Err is transient: it is surfaced to the
// consumer but does not end the subscription.
type TripEvent struct {
	Trip *TripRequest
	Err  error
}

// PresenceEvent is one delivery on a driver presence subscription channel.
type PresenceEvent struct {
	Presence *DriverPresence
	Err      error
}
