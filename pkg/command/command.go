package command

import (
	"fmt"
	"time"
)

const (
	// MinSeconds is the shortest period a SetPeriod command can select.
	MinSeconds = 1
	// MaxSeconds is the longest period a SetPeriod command can select.
	MaxSeconds = 9
)

// Kind identifies the command variant.
type Kind uint8

const (
	// Start resumes sampling.
	Start Kind = iota + 1
	// Stop suspends sampling.
	Stop
	// SetPeriod changes the sampling period.
	SetPeriod
)

// Command is a single control command received over the serial link.
type Command struct {
	Kind    Kind
	Seconds int // SetPeriod only, MinSeconds..MaxSeconds
}

// Parse maps one input byte to a Command.
// The second return value is false for bytes that are not commands.
func Parse(b byte) (Command, bool) {
	switch b {
	case 'r', 'R':
		return Command{Kind: Start}, true
	case 's', 'S':
		return Command{Kind: Stop}, true
	}

	if b >= '0'+MinSeconds && b <= '0'+MaxSeconds {
		return Command{Kind: SetPeriod, Seconds: int(b - '0')}, true
	}

	return Command{}, false
}

// NewSetPeriod returns a SetPeriod command for the given number of seconds.
func NewSetPeriod(seconds int) (Command, error) {
	if seconds < MinSeconds || seconds > MaxSeconds {
		return Command{}, fmt.Errorf("period must be between %d and %d seconds, got %d", MinSeconds, MaxSeconds, seconds)
	}
	return Command{Kind: SetPeriod, Seconds: seconds}, nil
}

// Period returns the sampling period selected by a SetPeriod command.
func (c Command) Period() time.Duration {
	return time.Duration(c.Seconds) * time.Second
}

// Byte encodes the command as its canonical protocol byte.
func (c Command) Byte() byte {
	switch c.Kind {
	case Start:
		return 'r'
	case Stop:
		return 's'
	case SetPeriod:
		return byte('0' + c.Seconds)
	}
	return 0
}

func (c Command) String() string {
	switch c.Kind {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case SetPeriod:
		return fmt.Sprintf("period %ds", c.Seconds)
	}
	return "none"
}
