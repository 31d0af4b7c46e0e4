package actuator

import (
	"fmt"
	"log/slog"
)

// Positioner maps a bounded angle range linearly onto a motor position range.
type Positioner struct {
	minAngle, maxAngle int
	minPos, maxPos     int
	motor              Motor
	log                *slog.Logger
}

// NewPositioner maps [minAngle, maxAngle] onto [minPos, maxPos].
func NewPositioner(minAngle, maxAngle, minPos, maxPos int, motor Motor, log *slog.Logger) (*Positioner, error) {
	if maxAngle <= minAngle {
		return nil, fmt.Errorf("angle %d..%d: %w", minAngle, maxAngle, ErrRange)
	}
	if maxPos < minPos {
		return nil, fmt.Errorf("position %d..%d: %w", minPos, maxPos, ErrRange)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Positioner{
		minAngle: minAngle,
		maxAngle: maxAngle,
		minPos:   minPos,
		maxPos:   maxPos,
		motor:    motor,
		log:      log,
	}, nil
}

// Position returns the motor position for angle. Angles outside the range
// are clamped to the nearest end.
func (p *Positioner) Position(angle int) int {
	if angle < p.minAngle {
		angle = p.minAngle
	} else if angle > p.maxAngle {
		angle = p.maxAngle
	}
	span := int64(p.maxPos - p.minPos)
	return p.minPos + int(int64(angle-p.minAngle)*span/int64(p.maxAngle-p.minAngle))
}

// MoveTo drives the motor to the position for angle and returns it.
func (p *Positioner) MoveTo(angle int) int {
	pos := p.Position(angle)
	if p.motor != nil {
		if err := p.motor.SetPosition(pos); err != nil {
			p.log.Warn("motor: set position failed", "angle", angle, "position", pos, "err", err)
		}
	}
	return pos
}
