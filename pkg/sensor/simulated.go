package sensor

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/chewxy/math32"
)

var errSimulatedFault = errors.New("simulated conversion timeout")

// SimulatedParams configures a Simulated sensor.
type SimulatedParams struct {
	OffsetMicrovolts    int32         // DC level
	AmplitudeMicrovolts int32         // Sine amplitude
	WavePeriod          time.Duration // Sine period
	NoiseMicrovolts     int32         // Peak jitter added to every reading
	FaultEvery          int           // Every Nth read fails (0 = never)
}

// Simulated produces a slow sine wave with a little deterministic jitter.
// It stands in for real hardware in mock mode and in tests.
type Simulated struct {
	params SimulatedParams
	now    func() time.Time

	mu    sync.Mutex
	start time.Time
	reads int
	seed  uint32
}

var _ Sensor = (*Simulated)(nil)

// NewSimulated creates a Simulated sensor.
func NewSimulated(params SimulatedParams) *Simulated {
	return newSimulated(params, time.Now)
}

func newSimulated(params SimulatedParams, now func() time.Time) *Simulated {
	if params.WavePeriod <= 0 {
		params.WavePeriod = time.Minute
	}
	return &Simulated{
		params: params,
		now:    now,
		start:  now(),
		seed:   0x9e3779b9,
	}
}

// Read returns the current simulated voltage.
func (s *Simulated) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if s.params.FaultEvery > 0 && s.reads%s.params.FaultEvery == 0 {
		return Reading{}, Fault(errSimulatedFault)
	}

	now := s.now()
	elapsed := float32(now.Sub(s.start).Seconds())
	phase := 2 * math32.Pi * elapsed / float32(s.params.WavePeriod.Seconds())

	v := float32(s.params.OffsetMicrovolts) + float32(s.params.AmplitudeMicrovolts)*math32.Sin(phase)
	if s.params.NoiseMicrovolts != 0 {
		v += float32(s.params.NoiseMicrovolts) * s.jitter()
	}

	return Reading{Microvolts: int32(math32.Floor(v + 0.5)), Timestamp: now}, nil
}

// Close is a no-op.
func (s *Simulated) Close() error { return nil }

// jitter returns a pseudo-random value in [-1, 1] (xorshift32).
func (s *Simulated) jitter() float32 {
	x := s.seed
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.seed = x
	return float32(x)/float32(math.MaxUint32)*2 - 1
}
