package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/itohio/gosampler/pkg/sensor"
)

// LineEnding terminates every emitted line (serial terminal convention).
const LineEnding = "\r\n"

// Style selects the output line format.
type Style int

const (
	// Full prints the reading and the sampling period: "V =   812 mV  T =  3 s".
	Full Style = iota
	// Compact prints the reading only: " 812".
	Compact
)

// ParseStyle maps a config value ("full", "compact") to a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "full":
		return Full, nil
	case "compact":
		return Compact, nil
	}
	return Full, fmt.Errorf("unknown report format %q", s)
}

// Format returns the full report line for a reading taken with the given
// sampling period, without line ending.
func Format(r sensor.Reading, period time.Duration) string {
	return fmt.Sprintf("V = %4d mV  T = %2d s", r.Millivolts(), period.Milliseconds()/1000)
}

// FormatCompact returns the reading in millivolts only.
func FormatCompact(r sensor.Reading) string {
	return fmt.Sprintf("%4d", r.Millivolts())
}

// Sink receives every emitted reading in addition to the line output.
type Sink interface {
	Publish(r sensor.Reading, period time.Duration) error
	Close() error
}

// Reporter writes report lines to an output and fans readings out to sinks.
type Reporter struct {
	w     io.Writer
	style Style
	sinks []Sink
}

// New creates a Reporter writing lines to w.
func New(w io.Writer, style Style, sinks ...Sink) *Reporter {
	return &Reporter{w: w, style: style, sinks: sinks}
}

// Line formats a reading according to the reporter style.
func (r *Reporter) Line(reading sensor.Reading, period time.Duration) string {
	if r.style == Compact {
		return FormatCompact(reading)
	}
	return Format(reading, period)
}

// Emit writes one line and publishes the reading to all sinks. A failing
// sink does not prevent the others from receiving the reading.
func (r *Reporter) Emit(reading sensor.Reading, period time.Duration) error {
	var errs []error

	if _, err := io.WriteString(r.w, r.Line(reading, period)+LineEnding); err != nil {
		errs = append(errs, fmt.Errorf("failed to write report: %w", err))
	}

	for _, s := range r.sinks {
		if err := s.Publish(reading, period); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish reading: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Close closes all sinks.
func (r *Reporter) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
