package derive

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/sweeney/sensor-pipeline/internal/filter"
)

// AtanSteps is the number of equal intervals the arctangent table spans over [0, 1].
const AtanSteps = 256

// atanTable[i] holds atan(i/AtanSteps) in degrees.
var atanTable [AtanSteps + 1]float32

func init() {
	for i := range atanTable {
		atanTable[i] = math32.Atan(float32(i)/AtanSteps) * 180 / math32.Pi
	}
}

// Atan returns the arctangent of r in degrees from the lookup table.
// Values in [0, 1] are linearly interpolated between adjacent entries;
// |r| > 1 uses atan(r) = 90 - atan(1/r) and negative r uses odd symmetry,
// so the result is reproducible for every finite input.
func Atan(r float32) float32 {
	neg := r < 0
	if neg {
		r = -r
	}

	var deg float32
	switch {
	case math32.IsInf(r, 1):
		deg = 90
	case r > 1:
		deg = 90 - lookup(1/r)
	default:
		deg = lookup(r)
	}

	if neg {
		return -deg
	}
	return deg
}

// lookup interpolates the table for r in [0, 1].
func lookup(r float32) float32 {
	pos := r * AtanSteps
	i := int(pos)
	if i >= AtanSteps {
		return atanTable[AtanSteps]
	}
	frac := pos - float32(i)
	return atanTable[i] + (atanTable[i+1]-atanTable[i])*frac
}

// Pitch returns atan(x / sqrt(y² + z²)) in degrees, or 0 when y and z are both zero.
func Pitch(x, y, z int) float32 {
	return tiltAngle(x, y, z)
}

// Roll returns atan(y / sqrt(x² + z²)) in degrees, or 0 when x and z are both zero.
func Roll(x, y, z int) float32 {
	return tiltAngle(y, x, z)
}

func tiltAngle(num, a, b int) float32 {
	fa, fb := float32(a), float32(b)
	den := math32.Sqrt(fa*fa + fb*fb)
	if den == 0 {
		return 0
	}
	return Atan(float32(num) / den)
}

// Tilt derives filtered pitch and roll from raw acceleration counts.
// Each axis has its own filter; a Tilt belongs to a single task.
type Tilt struct {
	pitch *filter.MovingAverage
	roll  *filter.MovingAverage
}

// NewTilt creates a Tilt whose per-axis filters average depth samples.
func NewTilt(depth int) (*Tilt, error) {
	pitch, err := filter.New(depth)
	if err != nil {
		return nil, fmt.Errorf("pitch filter: %w", err)
	}
	roll, err := filter.New(depth)
	if err != nil {
		return nil, fmt.Errorf("roll filter: %w", err)
	}
	return &Tilt{pitch: pitch, roll: roll}, nil
}

// Update converts one acceleration sample and returns the filtered angles in
// whole degrees. Angles are truncated toward zero before filtering.
func (t *Tilt) Update(x, y, z int) (pitch, roll int) {
	pitch = t.pitch.PushMean(int(Pitch(x, y, z)))
	roll = t.roll.PushMean(int(Roll(x, y, z)))
	return pitch, roll
}
