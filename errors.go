package roverpanel

import (
	"errors"
	"fmt"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/notifier"
)

// Common errors
var (
	// ErrValidation is returned for bad local input. Nothing is sent to the network.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDevice is returned when a device id is not a positive integer
	ErrInvalidDevice = fmt.Errorf("%w: invalid device id", ErrValidation)

	// ErrModeConflict is returned when ModesExclusive forbids overlapping recording and playback
	ErrModeConflict = errors.New("recording and playback cannot overlap")

	// ErrRequest matches network faults and non-success answers of the remote API
	ErrRequest = api.ErrRequest

	// ErrParse matches malformed push channel messages
	ErrParse = notifier.ErrMalformedEvent

	// ErrChannel matches push channel open and drop failures
	ErrChannel = notifier.ErrChannel

	// ErrStorage is returned when a storage operation failed
	ErrStorage = errors.New("storage operation failed")

	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")
)

// PanelError represents an error with additional context
type PanelError struct {
	Op       string // Operation that failed
	DeviceID int    // Device the operation targeted, if any
	Err      error  // Underlying error
}

// Error implements the error interface
func (e *PanelError) Error() string {
	if e.DeviceID > 0 {
		return fmt.Sprintf("%s (device=%d): %v", e.Op, e.DeviceID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *PanelError) Unwrap() error {
	return e.Err
}

// NewPanelError creates a new PanelError
func NewPanelError(op string, deviceID int, err error) *PanelError {
	return &PanelError{
		Op:       op,
		DeviceID: deviceID,
		Err:      err,
	}
}

// SagaStage names a step of the obstacle/evasion flow.
type SagaStage string

const (
	StageObstacle SagaStage = "obstacle"
	StageEvasion  SagaStage = "evasion"
)

// SagaError reports which step of the obstacle/evasion flow failed.
// Steps before Stage stay applied on the server.
type SagaError struct {
	Stage       SagaStage
	ObstacleKey int
	Err         error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("%s step for obstacle %d: %v", e.Stage, e.ObstacleKey, e.Err)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// SaveError reports the first step that could not be saved. Steps
// 1..Order-1 were written; Order+1..Total were never sent.
type SaveError struct {
	Name  string
	Order int
	Total int
	Err   error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %q step %d/%d: %v", e.Name, e.Order, e.Total, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// reason returns the text shown to the user for err: the server message
// for API failures, the plain error text otherwise.
func reason(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var saga *SagaError
	if errors.As(err, &saga) {
		return reason(saga.Err)
	}
	var save *SaveError
	if errors.As(err, &save) {
		return reason(save.Err)
	}
	var panel *PanelError
	if errors.As(err, &panel) {
		return reason(panel.Err)
	}
	return err.Error()
}
