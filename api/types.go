package api

import "fmt"

// MovementRequest records one movement command.
type MovementRequest struct {
	DeviceID  int `json:"dispositivo_id"`
	StatusKey int `json:"status_clave"`
	SpeedPWM  int `json:"velocidad_pwm"`
}

// ObstacleRequest records one obstacle detection event.
type ObstacleRequest struct {
	DeviceID  int `json:"dispositivo_id"`
	StatusKey int `json:"status_clave"`
}

// EvasionRequest triggers the evasion maneuver configured for an obstacle.
type EvasionRequest struct {
	DeviceID    int `json:"dispositivo_id"`
	ObstacleKey int `json:"obstaculo_clave"`
}

// RouteStepRequest appends one step to a named sequence.
type RouteStepRequest struct {
	DeviceID     int    `json:"dispositivo_id"`
	SequenceName string `json:"nombre_secuencia"`
	StatusKey    int    `json:"status_clave"`
	Order        int    `json:"orden"`
}

// RepeatRequest asks for the step following CurrentOrder.
type RepeatRequest struct {
	DeviceID     int `json:"dispositivo_id"`
	SequenceID   int `json:"secuencia_id"`
	CurrentOrder int `json:"orden_actual"`
}

// Sequence is a saved route as listed by /api/rutas/ultimas.
type Sequence struct {
	ID        int    `json:"secuencia_id"`
	Name      string `json:"nombre_secuencia,omitempty"`
	AltName   string `json:"nombre,omitempty"`
	CreatedAt string `json:"fecha_creacion,omitempty"`
}

// DisplayName returns the best available name for the sequence.
func (s Sequence) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.AltName != "":
		return s.AltName
	default:
		return fmt.Sprintf("Sec %d", s.ID)
	}
}

// ExecutedStep is one step handed out by /api/rutas/repetir.
type ExecutedStep struct {
	ExecutedOrder *int   `json:"orden_ejecutado,omitempty"`
	StatusKey     int    `json:"status_clave"`
	Description   string `json:"descripcion,omitempty"`
}

// Movement is a row of /api/movimientos/ultimos.
type Movement struct {
	StatusKey  int    `json:"status_clave,omitempty"`
	StatusText string `json:"status_texto,omitempty"`
	SpeedPWM   *int   `json:"velocidad_pwm,omitempty"`
	Timestamp  string `json:"fecha_hora,omitempty"`
}

// Obstacle is a row of /api/obstaculos/ultimos.
type Obstacle struct {
	StatusKey  int    `json:"status_clave,omitempty"`
	StatusText string `json:"status_texto,omitempty"`
	Timestamp  string `json:"fecha_hora,omitempty"`
}

// envelope is the {"data": [...]} wrapper used by list endpoints.
type envelope[T any] struct {
	Data []T `json:"data"`
}

// errorBody is the optional error payload of a failed request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
