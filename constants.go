package roverpanel

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation is a movement code understood by the rover.
type Operation int

// Operation catalog.
const (
	OpForward Operation = iota + 1
	OpBackward
	OpStop
	OpForwardRight
	OpForwardLeft
	OpBackwardRight
	OpBackwardLeft
	OpTurnRight90
	OpTurnLeft90
	OpSpinRight360
	OpSpinLeft360
)

// Speed levels are PWM duty values.
const (
	MinSpeed     = 0
	MaxSpeed     = 255
	DefaultSpeed = 180
)

// SpeedLevels are the presets offered by the control panel.
var SpeedLevels = []int{120, 180, 255}

var operationLabels = map[Operation]string{
	OpForward:       "Adelante",
	OpBackward:      "Atrás",
	OpStop:          "Detener",
	OpForwardRight:  "Vuelta adelante derecha",
	OpForwardLeft:   "Vuelta adelante izquierda",
	OpBackwardRight: "Vuelta atrás derecha",
	OpBackwardLeft:  "Vuelta atrás izquierda",
	OpTurnRight90:   "Giro 90° derecha",
	OpTurnLeft90:    "Giro 90° izquierda",
	OpSpinRight360:  "Giro 360° derecha",
	OpSpinLeft360:   "Giro 360° izquierda",
}

// Operations returns the catalog in code order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(operationLabels))
	for op := OpForward; op <= OpSpinLeft360; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Known returns true if op is in the catalog.
func (op Operation) Known() bool {
	_, ok := operationLabels[op]
	return ok
}

// Label returns the catalog label, or "Op <n>" for unknown codes.
func (op Operation) Label() string {
	if label, ok := operationLabels[op]; ok {
		return label
	}
	return fmt.Sprintf("Op %d", int(op))
}

// String implements fmt.Stringer.
func (op Operation) String() string {
	return op.Label()
}

// ValidateSpeed returns ErrValidation when speed is outside MinSpeed..MaxSpeed.
func ValidateSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: speed %d outside %d..%d", ErrValidation, speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// ParseOperations parses a comma separated list of codes such as "1,1,8".
func ParseOperations(raw string) ([]Operation, error) {
	var ops []Operation
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: operation %q", ErrValidation, part)
		}
		ops = append(ops, Operation(n))
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: no operations", ErrValidation)
	}
	return ops, nil
}
