package notifier

import "errors"

// Errors returned by the notifier package.
var (
	// ErrAlreadyStarted is returned when Start() is called on an already started notifier.
	ErrAlreadyStarted = errors.New("notifier already started")

	// ErrNotStarted is returned when Stop() is called on a notifier that hasn't started.
	ErrNotStarted = errors.New("notifier not started")

	// ErrMalformedEvent is returned when an inbound message is not a typed event.
	ErrMalformedEvent = errors.New("malformed push event")

	// ErrChannel is reported when the push channel cannot be opened or drops.
	ErrChannel = errors.New("push channel failure")
)
