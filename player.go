package roverpanel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/runstate"
)

// Player notices.
const (
	msgSelectSequence = "Selecciona una secuencia"
	msgRunning        = "Ejecutando…"
	msgFinished       = "Secuencia finalizada ✓"
	msgStopped        = "Automático detenido"
)

// Playback outcomes.
const (
	// OutcomeFinished means the server handed out no further step.
	OutcomeFinished = runstate.PlaybackFinished

	// OutcomeFaulted means a poll failed. The user sees the same message
	// as for OutcomeFinished.
	OutcomeFaulted = runstate.PlaybackFaulted

	// OutcomeStopped means the run was cancelled.
	OutcomeStopped = runstate.PlaybackStopped
)

// PlaybackResult describes a completed run.
type PlaybackResult struct {
	RunID      uuid.UUID
	SequenceID int
	Outcome    runstate.PlaybackState
	Polls      int
	Steps      int
	LastOrder  int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Playback is one run of a saved sequence.
type Playback struct {
	ID         uuid.UUID
	SequenceID int

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	state  runstate.PlaybackState
	result PlaybackResult
}

// State returns the run state.
func (pb *Playback) State() runstate.PlaybackState {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.state
}

// Done is closed when the run ends.
func (pb *Playback) Done() <-chan struct{} {
	return pb.done
}

// Wait blocks until the run ends or ctx is done.
func (pb *Playback) Wait(ctx context.Context) (PlaybackResult, error) {
	select {
	case <-pb.done:
		pb.mu.Lock()
		defer pb.mu.Unlock()
		return pb.result, nil
	case <-ctx.Done():
		return PlaybackResult{}, ctx.Err()
	}
}

func (pb *Playback) transition(to runstate.PlaybackState) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	if err := (runstate.Transition{From: pb.state, To: to}).Validate(); err != nil {
		return err
	}
	pb.state = to
	return nil
}

// Player replays saved sequences by polling /api/rutas/repetir. At most one
// run is active; starting a run cancels the previous one.
type Player struct {
	client  *api.Client
	device  *DeviceContext
	display *Display
	delay   time.Duration
	logger  Logger

	mu      sync.Mutex
	current *Playback
	last    *Playback
}

// NewPlayer creates a player that waits delay between polls.
func NewPlayer(client *api.Client, device *DeviceContext, display *Display, delay time.Duration, logger Logger) *Player {
	if logger == nil {
		logger = discardLogger{}
	}
	if delay < 0 {
		delay = DefaultPlaybackDelay
	}
	return &Player{
		client:  client,
		device:  device,
		display: display,
		delay:   delay,
		logger:  logger,
	}
}

// Run starts replaying sequenceID. The run is detached from ctx
// cancellation; end it with Stop. A sequenceID below 1 returns ErrValidation.
func (p *Player) Run(ctx context.Context, sequenceID int) (*Playback, error) {
	p.display.ClearNotice(AreaRun)
	if sequenceID < 1 {
		p.display.Notify(AreaRun, msgSelectSequence, false)
		return nil, fmt.Errorf("%w: %s", ErrValidation, msgSelectSequence)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	pb := &Playback{
		ID:         uuid.New(),
		SequenceID: sequenceID,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      runstate.PlaybackIdle,
	}
	_ = pb.transition(runstate.PlaybackPlaying)

	p.mu.Lock()
	if p.current != nil {
		p.current.cancel()
	}
	p.current = pb
	p.last = pb
	p.display.Notify(AreaRun, msgRunning, true)
	p.mu.Unlock()

	p.logger.Info("playback started", "run_id", pb.ID.String(), "sequence_id", sequenceID)
	go p.loop(runCtx, pb)

	return pb, nil
}

// Stop cancels the active run, including an in-flight poll. It is
// idempotent and returns true if a run was active.
func (p *Player) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := p.current != nil
	if active {
		p.current.cancel()
		p.current = nil
	}
	p.display.SetStatus("DETENER", ToneStopped)
	p.display.Notify(AreaRun, msgStopped, true)
	return active
}

// IsPlaying returns true while a run is active.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Last returns the most recent run, or nil.
func (p *Player) Last() *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Player) loop(ctx context.Context, pb *Playback) {
	result := PlaybackResult{
		RunID:      pb.ID,
		SequenceID: pb.SequenceID,
		StartedAt:  time.Now(),
	}
	defer func() {
		result.FinishedAt = time.Now()
		p.finish(ctx, pb, result)
	}()

	cursor := 0
	for {
		result.Polls++
		step, err := p.client.NextStep(ctx, api.RepeatRequest{
			DeviceID:     p.device.ID(),
			SequenceID:   pb.SequenceID,
			CurrentOrder: cursor,
		})
		switch {
		case ctx.Err() != nil:
			result.Outcome = OutcomeStopped
			return
		case err != nil:
			result.Outcome = OutcomeFaulted
			result.Err = NewPanelError("RunSequence", p.device.ID(), err)
			return
		case step == nil:
			result.Outcome = OutcomeFinished
			return
		}

		result.Steps++
		if step.ExecutedOrder != nil {
			cursor = *step.ExecutedOrder
		} else {
			cursor++
		}
		result.LastOrder = cursor

		if !p.showIfCurrent(ctx, stepText(step), ToneInfo) {
			result.Outcome = OutcomeStopped
			return
		}

		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Outcome = OutcomeStopped
			return
		case <-timer.C:
		}
	}
}

// showIfCurrent writes the status line unless the run was cancelled. The
// check and the write happen under the player lock so no write lands
// after Stop.
func (p *Player) showIfCurrent(ctx context.Context, text string, tone Tone) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	p.display.SetStatus(text, tone)
	return true
}

func (p *Player) finish(ctx context.Context, pb *Playback, result PlaybackResult) {
	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	if result.Outcome != OutcomeStopped && ctx.Err() == nil {
		p.display.Notify(AreaRun, msgFinished, true)
	}
	p.mu.Unlock()

	if err := pb.transition(result.Outcome); err != nil {
		p.logger.Error("invalid playback transition", "run_id", pb.ID.String(), "error", err)
	}
	pb.mu.Lock()
	pb.result = result
	pb.mu.Unlock()
	pb.cancel()
	close(pb.done)

	args := []any{
		"run_id", pb.ID.String(),
		"sequence_id", pb.SequenceID,
		"outcome", string(result.Outcome),
		"polls", result.Polls,
		"steps", result.Steps,
	}
	if result.Err != nil {
		p.logger.Warn("playback ended with a failed poll", append(args, "error", result.Err)...)
	} else {
		p.logger.Info("playback ended", args...)
	}
}

// stepText is the status shown for a step: its description, else the
// catalog label, else "Paso".
func stepText(step *api.ExecutedStep) string {
	if step.Description != "" {
		return step.Description
	}
	if op := Operation(step.StatusKey); op.Known() {
		return op.Label()
	}
	return "Paso"
}
