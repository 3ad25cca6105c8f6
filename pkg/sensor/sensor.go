package sensor

import (
	"errors"
	"fmt"
	"time"
)

// ErrHardwareFault marks a failed acquisition. The control loop skips the
// report for that cycle and retries on the next one.
var ErrHardwareFault = errors.New("hardware fault")

// Reading is one calibrated acquisition.
type Reading struct {
	Microvolts int32
	Timestamp  time.Time
}

// Millivolts returns the reading in millivolts, truncated toward zero.
func (r Reading) Millivolts() int32 {
	return r.Microvolts / 1000
}

// Sensor is an already configured single-channel voltage source.
type Sensor interface {
	Read() (Reading, error)
	Close() error
}

// Fault wraps err as a hardware fault.
func Fault(err error) error {
	if err == nil || errors.Is(err, ErrHardwareFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHardwareFault, err)
}
