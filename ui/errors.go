package ui

import "errors"

// UI package errors.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("ui: invalid configuration")

	// ErrNoPanel indicates neither a control nor a monitor was given.
	ErrNoPanel = errors.New("ui: control or monitor required")
)
