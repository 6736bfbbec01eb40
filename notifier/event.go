package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of push event.
type EventType string

// Recognized event types. EventUnknown covers every other name; the raw
// name stays available in Event.Name.
const (
	EventMovementInserted  EventType = "movimiento.insertado"
	EventRouteStepExecuted EventType = "ruta.paso_ejecutado"
	EventObstacleDetected  EventType = "obstaculo.detectado"
	EventEvasionExecuted   EventType = "evasion.ejecutada"
	EventPong              EventType = "pong"
	EventUnknown           EventType = "unknown"
)

// ParseEventType maps a wire name to its EventType.
func ParseEventType(name string) EventType {
	switch t := EventType(name); t {
	case EventMovementInserted, EventRouteStepExecuted, EventObstacleDetected,
		EventEvasionExecuted, EventPong:
		return t
	default:
		return EventUnknown
	}
}

// IsDataChange returns true for events announcing new rows on the server.
func (t EventType) IsDataChange() bool {
	switch t {
	case EventMovementInserted, EventRouteStepExecuted, EventObstacleDetected, EventEvasionExecuted:
		return true
	default:
		return false
	}
}

// Event represents a notification received on the push channel.
type Event struct {
	// Type is the decoded event type.
	Type EventType

	// Name is the type string as sent by the server.
	Name string

	// Payload is the raw payload object, if any.
	Payload json.RawMessage

	// ReceivedAt is when the event was received.
	ReceivedAt time.Time
}

// MovementPayload is the payload of movimiento.insertado.
type MovementPayload struct {
	StatusKey int `json:"status_clave"`
	SpeedPWM  int `json:"velocidad_pwm"`
}

// Movement decodes the payload of a movement event.
func (e *Event) Movement() (MovementPayload, bool) {
	var p MovementPayload
	if e.Type != EventMovementInserted || len(e.Payload) == 0 {
		return p, false
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return MovementPayload{}, false
	}
	return p, true
}

// wireMessage is the JSON shape of every push message.
type wireMessage struct {
	Type    *string         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEvent decodes one push message. Errors wrap ErrMalformedEvent.
func DecodeEvent(data []byte) (*Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if msg.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	payload := bytes.TrimSpace(msg.Payload)
	if bytes.Equal(payload, []byte("null")) {
		payload = nil
	}

	return &Event{
		Type:       ParseEventType(*msg.Type),
		Name:       *msg.Type,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}, nil
}
