package runstate

// RecordingState is the state of the sequence recorder.
type RecordingState string

const (
	// RecordingIdle means commands are not captured.
	RecordingIdle RecordingState = "idle"

	// RecordingActive means every dispatched command is appended as a step.
	RecordingActive RecordingState = "recording"
)

// IsValid returns true if the state is a known RecordingState value.
func (s RecordingState) IsValid() bool {
	return s == RecordingIdle || s == RecordingActive
}

// CanTransitionTo returns true if moving from s to target is allowed.
// Starting an already active recording is allowed and restarts it.
func (s RecordingState) CanTransitionTo(target RecordingState) bool {
	if !s.IsValid() || !target.IsValid() {
		return false
	}
	return target == RecordingActive || s == RecordingActive
}

// String returns the string representation of the state.
func (s RecordingState) String() string {
	return string(s)
}
