// Package storage persists client preferences such as the selected device.
//
// Stores are small key/value tables. The file store is the default for a
// single workstation; the SQL stores let several panels share one selection.
package storage

import (
	"context"
	"errors"
	"time"
)

// KeyDeviceID is the key holding the selected device identifier.
const KeyDeviceID = "device_id"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Store defines the persistence interface for client preferences.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Close releases resources held by the store.
	Close() error
}

// Preference is one stored key/value pair.
type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
