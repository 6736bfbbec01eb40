package roverpanel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/runstate"
)

// Recorder notices.
const (
	msgMissingName = "Falta nombre"
	msgNoSteps     = "No hay pasos grabados"
)

// Step is one recorded command.
type Step struct {
	Op    Operation
	Speed int
}

// Recorder captures dispatched commands into a step buffer and saves the
// buffer as a named remote sequence, one request per step.
type Recorder struct {
	client  *api.Client
	device  *DeviceContext
	display *Display
	logger  Logger

	mu        sync.Mutex
	state     runstate.RecordingState
	steps     []Step
	gen       int
	sequences []api.Sequence
}

// NewRecorder creates an idle recorder.
func NewRecorder(client *api.Client, device *DeviceContext, display *Display, logger Logger) *Recorder {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Recorder{
		client:  client,
		device:  device,
		display: display,
		logger:  logger,
		state:   runstate.RecordingIdle,
	}
}

// Start clears the buffer and begins capturing steps.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = runstate.RecordingActive
	r.steps = nil
	r.gen++
	r.logger.Debug("recording started")
}

// RecordStep appends a step while recording. It returns false, and does
// nothing, when the recorder is idle.
func (r *Recorder) RecordStep(op Operation, speed int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != runstate.RecordingActive {
		return false
	}
	r.steps = append(r.steps, Step{Op: op, Speed: speed})
	return true
}

// Stop ends capturing. The buffer is kept for Save.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == runstate.RecordingActive {
		r.logger.Debug("recording stopped", "steps", len(r.steps))
	}
	r.state = runstate.RecordingIdle
}

// State returns the recording state.
func (r *Recorder) State() runstate.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsRecording returns true while steps are captured.
func (r *Recorder) IsRecording() bool {
	return r.State() == runstate.RecordingActive
}

// Steps returns a copy of the buffer.
func (r *Recorder) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}

// Count returns the number of buffered steps.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps)
}

// Save writes the buffer as sequence name with orden 1..N, one request at
// a time. The first failure returns a *SaveError and later steps are not
// sent; steps already written stay on the server. On success the buffer
// is cleared and the sequence list reloaded.
func (r *Recorder) Save(ctx context.Context, name string) error {
	r.display.ClearNotice(AreaSave)

	name = strings.TrimSpace(name)
	if name == "" {
		r.display.Notify(AreaSave, msgMissingName, false)
		return fmt.Errorf("%w: %s", ErrValidation, msgMissingName)
	}

	r.mu.Lock()
	steps := append([]Step(nil), r.steps...)
	gen := r.gen
	r.mu.Unlock()

	if len(steps) == 0 {
		r.display.Notify(AreaSave, msgNoSteps, false)
		return fmt.Errorf("%w: %s", ErrValidation, msgNoSteps)
	}

	deviceID := r.device.ID()
	for i, step := range steps {
		err := r.client.AppendRouteStep(ctx, api.RouteStepRequest{
			DeviceID:     deviceID,
			SequenceName: name,
			StatusKey:    int(step.Op),
			Order:        i + 1,
		})
		if err != nil {
			saveErr := &SaveError{Name: name, Order: i + 1, Total: len(steps), Err: err}
			r.logger.Error("failed to save sequence", "name", name, "order", i+1, "error", err)
			r.display.Notify(AreaSave, "Error: "+reason(err), false)
			return NewPanelError("SaveSequence", deviceID, saveErr)
		}
	}

	r.mu.Lock()
	// A recording started during the save owns the buffer now.
	if r.gen == gen {
		r.steps = nil
	}
	r.mu.Unlock()

	r.logger.Info("sequence saved", "name", name, "steps", len(steps), "device_id", deviceID)
	r.display.Notify(AreaSave, fmt.Sprintf("Secuencia %q guardada (%d pasos)", name, len(steps)), true)

	if _, err := r.LoadSequences(ctx); err != nil {
		r.logger.Warn("failed to reload sequences", "error", err)
	}
	return nil
}

// LoadSequences fetches the sequences of the current device. Overlapping
// calls are not cancelled: the last response to arrive wins. A failure
// empties the list.
func (r *Recorder) LoadSequences(ctx context.Context) ([]api.Sequence, error) {
	deviceID := r.device.ID()
	seqs, err := r.client.RecentSequences(ctx, deviceID)

	r.mu.Lock()
	r.sequences = seqs
	r.mu.Unlock()

	if err != nil {
		return nil, NewPanelError("LoadSequences", deviceID, err)
	}
	return seqs, nil
}

// Sequences returns the last loaded sequence list.
func (r *Recorder) Sequences() []api.Sequence {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Sequence(nil), r.sequences...)
}
