package utils

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes returned in API error envelopes.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyClaimed      = "ALREADY_CLAIMED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeAlreadyProcessed    = "ALREADY_PROCESSED"
	CodePaymentTimeout      = "PAYMENT_TIMEOUT"
	CodeInvalidRoute        = "INVALID_ROUTE"
	CodeTerminalStatus      = "TERMINAL_STATUS"
	CodeDriverOffline       = "DRIVER_OFFLINE"
	CodeTransient           = "TRANSIENT"
	CodeInternal            = "INTERNAL"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeBadRequest          = "BAD_REQUEST"
)

// Context keys set by middleware.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)
