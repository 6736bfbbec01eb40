package roverpanel

import (
	"context"
	"fmt"

	"github.com/youssefsiam38/roverpanel/api"
)

// Dispatcher sends manual commands and runs the obstacle/evasion flow.
// Failures are shown on the status line and returned. Nothing is retried
// or queued.
type Dispatcher struct {
	client   *api.Client
	device   *DeviceContext
	display  *Display
	recorder *Recorder
	logger   Logger
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(client *api.Client, device *DeviceContext, display *Display, recorder *Recorder, logger Logger) *Dispatcher {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Dispatcher{
		client:   client,
		device:   device,
		display:  display,
		recorder: recorder,
		logger:   logger,
	}
}

// SendCommand posts a movement for the current device. While a recording
// is active the step is captured before the request goes out.
func (d *Dispatcher) SendCommand(ctx context.Context, op Operation, speed int) error {
	if op < 1 {
		return fmt.Errorf("%w: operation %d", ErrValidation, int(op))
	}
	if err := ValidateSpeed(speed); err != nil {
		return err
	}

	if d.recorder != nil {
		d.recorder.RecordStep(op, speed)
	}

	label := op.Label()
	deviceID := d.device.ID()
	d.display.SetStatus(label, ToneInfo)

	err := d.client.PostMovement(ctx, api.MovementRequest{
		DeviceID:  deviceID,
		StatusKey: int(op),
		SpeedPWM:  speed,
	})
	if err != nil {
		d.logger.Error("command failed", "device_id", deviceID, "op", int(op), "error", err)
		d.display.SetStatus("ERROR: "+reason(err), ToneError)
		return NewPanelError("SendCommand", deviceID, err)
	}

	d.logger.Debug("command sent", "device_id", deviceID, "op", int(op), "speed", speed)
	d.display.SetStatus(fmt.Sprintf("%s ✓ (Vel: %d)", label, speed), ToneSuccess)
	return nil
}

// SimulateObstacle registers an obstacle then asks for its evasion. A
// failure stops the flow and returns a *SagaError naming the failed stage;
// a registered obstacle is never rolled back.
func (d *Dispatcher) SimulateObstacle(ctx context.Context, obstacleKey int) error {
	if obstacleKey < 1 {
		return fmt.Errorf("%w: obstacle %d", ErrValidation, obstacleKey)
	}

	deviceID := d.device.ID()
	d.display.ClearNotice(AreaObstacle)

	err := d.client.PostObstacle(ctx, api.ObstacleRequest{
		DeviceID:  deviceID,
		StatusKey: obstacleKey,
	})
	if err != nil {
		return d.sagaFailed(deviceID, &SagaError{Stage: StageObstacle, ObstacleKey: obstacleKey, Err: err}, "ERROR OBSTÁCULO: ")
	}

	d.display.Notify(AreaObstacle, fmt.Sprintf("Obstáculo %d registrado… planeando evasión", obstacleKey), true)
	d.display.SetStatus("OBSTÁCULO DETECTADO", ToneWarning)

	err = d.client.ExecuteEvasion(ctx, api.EvasionRequest{
		DeviceID:    deviceID,
		ObstacleKey: obstacleKey,
	})
	if err != nil {
		return d.sagaFailed(deviceID, &SagaError{Stage: StageEvasion, ObstacleKey: obstacleKey, Err: err}, "ERROR EVASIÓN: ")
	}

	d.logger.Info("evasion executed", "device_id", deviceID, "obstacle", obstacleKey)
	d.display.SetStatus("EVASIÓN EJECUTADA ✓", ToneSuccess)
	d.display.Notify(AreaObstacle, fmt.Sprintf("Evasión ejecutada para obstáculo %d", obstacleKey), true)
	return nil
}

func (d *Dispatcher) sagaFailed(deviceID int, sagaErr *SagaError, prefix string) error {
	msg := reason(sagaErr.Err)
	d.logger.Error("obstacle flow failed", "device_id", deviceID, "stage", string(sagaErr.Stage), "error", sagaErr.Err)
	d.display.SetStatus(prefix+msg, ToneError)
	d.display.Notify(AreaObstacle, "Error: "+msg, false)
	return NewPanelError("SimulateObstacle", deviceID, sagaErr)
}
