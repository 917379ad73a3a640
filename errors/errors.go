package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Scoped to the triggering connection or message, never fatal.
	ErrValidation         = fmt.Errorf("validation failed")
	ErrProfanityRejected  = fmt.Errorf("profanity is not allowed")
	ErrPersistenceFailure = fmt.Errorf("message could not be persisted")
	ErrRelayLoss          = fmt.Errorf("relay delivery lost")
	ErrUnknownEvent       = fmt.Errorf("unknown event")
	ErrMalformedFrame     = fmt.Errorf("malformed frame")

	// Outbound delivery to one connection.
	ErrSlowConsumer     = fmt.Errorf("outbound buffer full, event dropped")
	ErrConnectionClosed = fmt.Errorf("connection closed")

	// Client side.
	ErrTokenExpired = fmt.Errorf("token expired")
	ErrLoggedOut    = fmt.Errorf("session logged out")
	ErrInvalidToken = fmt.Errorf("invalid token")
	ErrProfile      = fmt.Errorf("incomplete account profile")
)
