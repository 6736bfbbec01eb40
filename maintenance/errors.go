package maintenance

import "errors"

// Errors returned by the maintenance package.
var (
	// ErrNotStarted is returned when Stop() is called on a service that hasn't started.
	ErrNotStarted = errors.New("service not started")
)
