// Package runstate provides the state machines of sequence playback and
// sequence recording.
//
// Playback:
//
//	idle -> playing               (run requested)
//	playing -> finished           (server reports no further step)
//	playing -> faulted            (a poll failed)
//	playing -> stopped            (user stop or a newer run replaced it)
//	finished|faulted|stopped -> playing (next run)
//
// Finished, faulted and stopped are terminal for a single run; a new run
// always starts from them or from idle.
package runstate

import "fmt"

// PlaybackState is the state of the sequence player.
type PlaybackState string

const (
	// PlaybackIdle means no run has been started yet.
	PlaybackIdle PlaybackState = "idle"

	// PlaybackPlaying means a polling loop is active.
	PlaybackPlaying PlaybackState = "playing"

	// PlaybackFinished means the server handed out no further step.
	PlaybackFinished PlaybackState = "finished"

	// PlaybackFaulted means a poll failed. Users see the same message as for
	// PlaybackFinished; callers can still tell them apart.
	PlaybackFaulted PlaybackState = "faulted"

	// PlaybackStopped means the run was cancelled.
	PlaybackStopped PlaybackState = "stopped"
)

// AllPlaybackStates returns all playback states.
func AllPlaybackStates() []PlaybackState {
	return []PlaybackState{
		PlaybackIdle,
		PlaybackPlaying,
		PlaybackFinished,
		PlaybackFaulted,
		PlaybackStopped,
	}
}

// IsValid returns true if the state is a known PlaybackState value.
func (s PlaybackState) IsValid() bool {
	switch s {
	case PlaybackIdle, PlaybackPlaying, PlaybackFinished, PlaybackFaulted, PlaybackStopped:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the state ends a run.
func (s PlaybackState) IsTerminal() bool {
	switch s {
	case PlaybackFinished, PlaybackFaulted, PlaybackStopped:
		return true
	default:
		return false
	}
}

// IsActive returns true while a polling loop runs.
func (s PlaybackState) IsActive() bool {
	return s == PlaybackPlaying
}

// CanTransitionTo returns true if moving from s to target is allowed.
func (s PlaybackState) CanTransitionTo(target PlaybackState) bool {
	if !s.IsValid() || !target.IsValid() || s == target {
		return false
	}
	switch s {
	case PlaybackPlaying:
		return target.IsTerminal()
	default:
		return target == PlaybackPlaying
	}
}

// String returns the string representation of the state.
func (s PlaybackState) String() string {
	return string(s)
}

// Transition represents a playback state transition with validation.
type Transition struct {
	From PlaybackState
	To   PlaybackState
}

// Validate returns an error if the transition is invalid.
func (t Transition) Validate() error {
	if !t.From.IsValid() {
		return fmt.Errorf("runstate: invalid source state %q", t.From)
	}
	if !t.To.IsValid() {
		return fmt.Errorf("runstate: invalid target state %q", t.To)
	}
	if !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("runstate: invalid transition from %q to %q", t.From, t.To)
	}
	return nil
}
