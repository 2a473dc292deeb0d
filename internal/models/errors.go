package models

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP codes; services wrap
// them with context via fmt.Errorf and %w.
var (
	// ErrNotFound: the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClaimed: a driver lost the accept race; the request was
	// claimed by someone else or is no longer pending.
	ErrAlreadyClaimed = errors.New("request already claimed")

	// ErrInsufficientBalance: a wallet debit would overdraw the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyProcessed: a settlement with the same idempotency reference
	// has already been applied.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrPollingTimeout: no matching ledger transaction appeared within the
	// polling window.
	ErrPollingTimeout = errors.New("payment polling timed out")

	// ErrTransient: the store or network is temporarily unavailable; safe to
	// retry, local state unchanged.
	ErrTransient = errors.New("transient failure")

	// ErrInvalidRoute: pickup/destination could not be resolved to a route.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrTerminalStatus: the trip is completed or canceled and accepts no
	// further transitions.
	ErrTerminalStatus = errors.New("trip is in a terminal status")

	// ErrBadDocument: a stored document failed schema validation on read.
	ErrBadDocument = errors.New("malformed document")

	// ErrDriverOffline: a location update or pending-feed subscription was
	// attempted while the driver is disconnected.
	ErrDriverOffline = errors.New("driver is not connected")

	// ErrNotParticipant: the caller is neither the customer nor the assigned
	// driver of the trip it is acting on.
	ErrNotParticipant = errors.New("caller is not a party to this trip")
)
