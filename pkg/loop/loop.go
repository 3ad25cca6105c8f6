package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itohio/gosampler/pkg/command"
	"github.com/itohio/gosampler/pkg/sampling"
	"github.com/itohio/gosampler/pkg/sensor"
)

// SerialLink is the command input. TryReadByte must not block.
type SerialLink interface {
	TryReadByte() (byte, bool)
}

// ByteWaiter is implemented by links that can block until input arrives.
// While sampling is stopped the loop waits on it instead of spinning.
type ByteWaiter interface {
	WaitByte(ctx context.Context) (byte, error)
}

// Emitter receives every reading together with the period it was taken with.
type Emitter interface {
	Emit(r sensor.Reading, period time.Duration) error
}

// Sleeper suspends the loop for d. It returns early only when ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Logger is the subset of *zap.SugaredLogger the loop uses.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loop is the cooperative sampling scheduler. It owns the sampling state and
// is driven from a single goroutine; the only suspension point is the wait
// after a sample. Input that arrives during the wait stays in the link and is
// handled, one byte per iteration, after the wait completes.
type Loop struct {
	link     SerialLink
	sensor   sensor.Sensor
	emitter  Emitter
	ctrl     *sampling.Controller
	sleep    Sleeper
	logger   Logger
	onChange func(sampling.State)
}

// New creates a Loop starting in the initial state.
func New(link SerialLink, s sensor.Sensor, emitter Emitter, initial sampling.State, logger Logger) *Loop {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Loop{
		link:    link,
		sensor:  s,
		emitter: emitter,
		ctrl:    sampling.NewController(initial),
		sleep:   Sleep,
		logger:  logger,
	}
}

// SetSleeper replaces the timed wait. Must be called before Run.
func (l *Loop) SetSleeper(s Sleeper) {
	l.sleep = s
}

// OnChange registers a callback invoked from the loop goroutine after every
// applied command.
func (l *Loop) OnChange(fn func(sampling.State)) {
	l.onChange = fn
}

// State returns the current sampling state. Call it from the loop goroutine
// (or after Run returned).
func (l *Loop) State() sampling.State {
	return l.ctrl.State()
}

// Step runs one iteration: consume at most one input byte, then sample,
// report and wait if running. A sensor failure is returned wrapped in
// sensor.ErrHardwareFault after the wait; the state is not affected.
func (l *Loop) Step(ctx context.Context) error {
	b, ok := l.link.TryReadByte()
	return l.step(ctx, b, ok)
}

// Run repeats Step until ctx is done or the link is closed. Hardware faults
// are logged and sampling continues on the next cycle.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, ok, err := l.poll(ctx)
		if err != nil {
			return err
		}

		if err := l.step(ctx, b, ok); err != nil && !errors.Is(err, sensor.ErrHardwareFault) {
			return err
		}
	}
}

// poll reads the next input byte. While stopped it blocks on links that
// support it, which is equivalent to polling until a byte shows up.
func (l *Loop) poll(ctx context.Context) (byte, bool, error) {
	if w, ok := l.link.(ByteWaiter); ok && !l.ctrl.State().Running {
		b, err := w.WaitByte(ctx)
		if err != nil {
			return 0, false, err
		}
		return b, true, nil
	}

	b, ok := l.link.TryReadByte()
	return b, ok, nil
}

func (l *Loop) step(ctx context.Context, b byte, ok bool) error {
	if ok {
		l.handle(b)
	}

	state := l.ctrl.State()
	if !state.Running {
		return nil
	}

	var fault error
	reading, err := l.sensor.Read()
	if err != nil {
		fault = sensor.Fault(fmt.Errorf("failed to read sensor: %w", err))
		l.logger.Warnw("sample skipped", "error", fault)
	} else if err := l.emitter.Emit(reading, state.Period); err != nil {
		l.logger.Errorw("failed to emit reading", "error", err)
	}

	if err := l.sleep(ctx, state.Period); err != nil {
		return err
	}

	return fault
}

func (l *Loop) handle(b byte) {
	cmd, ok := command.Parse(b)
	if !ok {
		return
	}

	state := l.ctrl.Apply(cmd)
	l.logger.Debugw("command applied", "command", cmd.String(), "running", state.Running, "period", state.Period)

	if l.onChange != nil {
		l.onChange(state)
	}
}

type nopLogger struct{}

func (nopLogger) Debugw(string, ...interface{}) {}
func (nopLogger) Warnw(string, ...interface{})  {}
func (nopLogger) Errorw(string, ...interface{}) {}
