package sampling

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/gosampler/pkg/command"
)

const (
	// MinPeriod is the shortest allowed sampling period.
	MinPeriod = command.MinSeconds * time.Second
	// MaxPeriod is the longest allowed sampling period.
	MaxPeriod = command.MaxSeconds * time.Second
	// DefaultPeriod is the sampling period after reset.
	DefaultPeriod = MinPeriod
)

// ErrInvalidPeriod is returned for periods that are not a whole number of
// seconds between MinPeriod and MaxPeriod.
var ErrInvalidPeriod = errors.New("invalid sampling period")

// State holds the run flag and the sampling period.
type State struct {
	Running bool
	Period  time.Duration
}

// Initial returns the state the controller starts in after reset.
func Initial() State {
	return State{Running: true, Period: DefaultPeriod}
}

// NewState returns a validated State.
func NewState(running bool, period time.Duration) (State, error) {
	if err := ValidatePeriod(period); err != nil {
		return State{}, err
	}
	return State{Running: running, Period: period}, nil
}

// ValidatePeriod checks that period is one of 1s, 2s, ... 9s.
func ValidatePeriod(period time.Duration) error {
	if period < MinPeriod || period > MaxPeriod || period%time.Second != 0 {
		return fmt.Errorf("%w: %s (must be whole seconds between %s and %s)", ErrInvalidPeriod, period, MinPeriod, MaxPeriod)
	}
	return nil
}

// PeriodMs returns the sampling period in milliseconds.
func (s State) PeriodMs() int64 {
	return s.Period.Milliseconds()
}

// Apply returns the state after applying cmd. Commands are never rejected.
// A new period takes effect on the next sampling cycle.
func Apply(s State, cmd command.Command) State {
	switch cmd.Kind {
	case command.Start:
		s.Running = true
	case command.Stop:
		s.Running = false
	case command.SetPeriod:
		s.Period = cmd.Period()
	}
	return s
}
