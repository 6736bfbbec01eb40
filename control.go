package roverpanel

import (
	"context"
	"fmt"
	"sync"

	"github.com/youssefsiam38/roverpanel/api"
	"github.com/youssefsiam38/roverpanel/notifier"
	"github.com/youssefsiam38/roverpanel/storage"
)

// Control is the control panel: device selection, manual commands, the
// obstacle flow, and sequence recording and playback.
type Control struct {
	cfg        *Config
	client     *api.Client
	device     *DeviceContext
	display    *Display
	recorder   *Recorder
	player     *Player
	dispatcher *Dispatcher
	logger     Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	pushState notifier.ConnState
	unsub     func()
}

// NewControl creates a control panel and loads the sequence list of the
// selected device. A failed list load is logged, not returned.
func NewControl(ctx context.Context, cfg *Config, store storage.Store) (*Control, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Control{
		cfg:       cfg,
		client:    api.New(cfg.APIBase, api.WithTimeout(cfg.RequestTimeout)),
		display:   NewDisplay(),
		logger:    cfg.Logger,
		pushState: notifier.StateDisabled,
	}
	if cfg.PushURL != "" {
		c.pushState = notifier.StateConnecting
	}
	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.device = NewDeviceContext(ctx, store, cfg.DeviceID, cfg.Logger)
	c.recorder = NewRecorder(c.client, c.device, c.display, cfg.Logger)
	c.player = NewPlayer(c.client, c.device, c.display, cfg.PlaybackDelay, cfg.Logger)
	c.dispatcher = NewDispatcher(c.client, c.device, c.display, c.recorder, cfg.Logger)

	c.unsub = c.device.Subscribe(func(id int) {
		if _, err := c.recorder.LoadSequences(c.ctx); err != nil {
			c.logger.Warn("failed to load sequences", "device_id", id, "error", err)
		}
	})

	if _, err := c.recorder.LoadSequences(ctx); err != nil {
		c.logger.Warn("failed to load sequences", "device_id", c.device.ID(), "error", err)
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Control) Config() *Config { return c.cfg }

// Device returns the device context.
func (c *Control) Device() *DeviceContext { return c.device }

// Display returns the status display.
func (c *Control) Display() *Display { return c.display }

// Recorder returns the sequence recorder.
func (c *Control) Recorder() *Recorder { return c.recorder }

// Player returns the sequence player.
func (c *Control) Player() *Player { return c.player }

// SetDevice switches to the device in raw and reloads its sequences.
func (c *Control) SetDevice(ctx context.Context, raw string) error {
	if err := c.device.SetString(ctx, raw); err != nil {
		c.display.SetStatus("ID DE DISPOSITIVO INVÁLIDO", ToneError)
		return err
	}
	c.display.SetStatus(fmt.Sprintf("USANDO DISPOSITIVO %d", c.device.ID()), ToneDevice)
	return nil
}

// SendCommand posts a movement. See Dispatcher.SendCommand.
func (c *Control) SendCommand(ctx context.Context, op Operation, speed int) error {
	return c.dispatcher.SendCommand(ctx, op, speed)
}

// SimulateObstacle runs the obstacle/evasion flow. See Dispatcher.SimulateObstacle.
func (c *Control) SimulateObstacle(ctx context.Context, obstacleKey int) error {
	return c.dispatcher.SimulateObstacle(ctx, obstacleKey)
}

// StartRecording clears the buffer and starts capturing commands. Under
// ModesExclusive it returns ErrModeConflict while a sequence plays.
func (c *Control) StartRecording() error {
	if c.cfg.ModePolicy == ModesExclusive && c.player.IsPlaying() {
		return NewPanelError("StartRecording", c.device.ID(), ErrModeConflict)
	}
	c.recorder.Start()
	return nil
}

// StopRecording stops capturing. The buffer is kept for SaveSequence.
func (c *Control) StopRecording() {
	c.recorder.Stop()
}

// SaveSequence saves the recorded steps. See Recorder.Save.
func (c *Control) SaveSequence(ctx context.Context, name string) error {
	return c.recorder.Save(ctx, name)
}

// LoadSequences reloads the sequence list of the current device.
func (c *Control) LoadSequences(ctx context.Context) ([]api.Sequence, error) {
	return c.recorder.LoadSequences(ctx)
}

// RunSequence starts playback. Under ModesExclusive it returns
// ErrModeConflict while recording.
func (c *Control) RunSequence(ctx context.Context, sequenceID int) (*Playback, error) {
	if c.cfg.ModePolicy == ModesExclusive && c.recorder.IsRecording() {
		return nil, NewPanelError("RunSequence", c.device.ID(), ErrModeConflict)
	}
	return c.player.Run(ctx, sequenceID)
}

// StopSequence cancels playback. It is idempotent.
func (c *Control) StopSequence() bool {
	return c.player.Stop()
}

// HandleEvent shows a push event on the status line. The control panel
// has no tables, so nothing is refreshed.
func (c *Control) HandleEvent(event *notifier.Event) {
	switch event.Type {
	case notifier.EventMovementInserted:
		text := "MOV"
		p, ok := event.Movement()
		if ok && Operation(p.StatusKey).Known() {
			text = Operation(p.StatusKey).Label()
		}
		if ok && p.SpeedPWM != 0 {
			text += fmt.Sprintf(" (Vel: %d)", p.SpeedPWM)
		}
		c.display.SetStatus(text, ToneDevice)
	case notifier.EventRouteStepExecuted:
		c.display.SetStatus("PASO EJECUTADO", ToneDevice)
	case notifier.EventObstacleDetected:
		c.display.SetStatus("OBSTÁCULO", ToneWarning)
	case notifier.EventEvasionExecuted:
		c.display.SetStatus("EVASIÓN COMPLETADA", ToneDone)
	}
}

// SetPushState records the push channel state.
func (c *Control) SetPushState(state notifier.ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushState = state
}

// PushState returns the push channel state.
func (c *Control) PushState() notifier.ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pushState
}

// Close cancels playback and background work.
func (c *Control) Close() error {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if c.player.IsPlaying() {
		c.player.Stop()
	}
	c.cancel()
	return nil
}
