package grab

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Measurement is one reading received from the device.
type Measurement struct {
	Time       time.Time
	Millivolts int32
	PeriodS    int // 0 when the device reports in compact format
}

// Volts returns the reading in volts.
func (m Measurement) Volts() float64 {
	return float64(m.Millivolts) / 1000
}

// ParseLine parses a report line in either the full ("V =   812 mV  T =  3 s")
// or the compact (" 812") format.
func ParseLine(line string) (Measurement, error) {
	fields := strings.Fields(line)

	switch len(fields) {
	case 1:
		mv, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return Measurement{}, fmt.Errorf("invalid reading %q: %w", fields[0], err)
		}
		return Measurement{Millivolts: int32(mv)}, nil

	case 8:
		// V = <mv> mV T = <s> s
		if fields[0] != "V" || fields[1] != "=" || fields[3] != "mV" ||
			fields[4] != "T" || fields[5] != "=" || fields[7] != "s" {
			return Measurement{}, fmt.Errorf("invalid line format: %q", line)
		}
		mv, err := strconv.ParseInt(fields[2], 10, 32)
		if err != nil {
			return Measurement{}, fmt.Errorf("invalid reading %q: %w", fields[2], err)
		}
		period, err := strconv.Atoi(fields[6])
		if err != nil {
			return Measurement{}, fmt.Errorf("invalid period %q: %w", fields[6], err)
		}
		return Measurement{Millivolts: int32(mv), PeriodS: period}, nil
	}

	return Measurement{}, fmt.Errorf("invalid line format: expected 1 or 8 fields, got %d", len(fields))
}
