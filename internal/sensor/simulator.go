package sensor

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Simulator produces plausible sensor data without hardware: a slowly
// swinging temperature and a board rocking about both axes, with noise.
type Simulator struct {
	reference int
	perDegree float64 // ADC counts per degree C
	oneG      float64 // acceleration counts per g

	mu    sync.Mutex
	rng   *rand.Rand
	start time.Time
	now   func() time.Time
}

// NewSimulator creates a Simulator whose factory reference is reference and
// whose temperature changes by perDegree counts per degree C.
func NewSimulator(reference int, perDegree float64, seed int64) *Simulator {
	return &Simulator{
		reference: reference,
		perDegree: perDegree,
		oneG:      1000,
		rng:       rand.New(rand.NewSource(seed)),
		start:     time.Now(),
		now:       time.Now,
	}
}

func (s *Simulator) elapsed() float64 {
	return s.now().Sub(s.start).Seconds()
}

func (s *Simulator) noise(amplitude float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64()*2 - 1) * amplitude
}

// ReadRawTemperature swings 15±20 degrees above the reference over a minute.
func (s *Simulator) ReadRawTemperature() (int, error) {
	t := s.elapsed()
	delta := 15 + 20*math.Sin(2*math.Pi*t/60)
	return s.reference + int(math.Round(delta*s.perDegree+s.noise(3))), nil
}

// ReadRawAcceleration rocks ±60 degrees in roll and ±30 in pitch.
func (s *Simulator) ReadRawAcceleration() (int, int, int, error) {
	t := s.elapsed()
	roll := 60 * math.Pi / 180 * math.Sin(2*math.Pi*t/20)
	pitch := 30 * math.Pi / 180 * math.Sin(2*math.Pi*t/13)

	x := math.Sin(pitch) * s.oneG
	y := math.Sin(roll) * math.Cos(pitch) * s.oneG
	z := math.Cos(roll) * math.Cos(pitch) * s.oneG
	return int(x + s.noise(15)), int(y + s.noise(15)), int(z + s.noise(15)), nil
}

// FactoryReference returns the configured reference.
func (s *Simulator) FactoryReference() (int, error) {
	return s.reference, nil
}
