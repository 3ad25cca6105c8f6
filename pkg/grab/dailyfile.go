package grab

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dayLayout    = "2006-01-02"
	dateLayout   = "02-01-2006"
	clockLayout  = "15:04:05"
	dailyHeader  = "Day-Month-Year Hour:Min:Sec      Voltage, V\n"
	dailyPadding = "        "
)

// DailyFile appends measurements to one file per calendar day, named
// YYYY-MM-DD inside dir. A header is written when a file is created.
type DailyFile struct {
	dir string
	day string
	f   *os.File
}

// NewDailyFile creates a DailyFile writing into dir.
func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{dir: dir}
}

// Write appends m, switching to a new file when the day changes.
func (d *DailyFile) Write(m Measurement) error {
	day := m.Time.Format(dayLayout)
	if d.f == nil || day != d.day {
		if err := d.rotate(day); err != nil {
			return err
		}
	}

	line := fmt.Sprintf("%s %s%s%6.3f V\n", m.Time.Format(dateLayout), m.Time.Format(clockLayout), dailyPadding, m.Volts())
	if _, err := d.f.WriteString(line); err != nil {
		return fmt.Errorf("failed to write measurement: %w", err)
	}
	return nil
}

// Path returns the file currently written to, or "" before the first write.
func (d *DailyFile) Path() string {
	if d.f == nil {
		return ""
	}
	return d.f.Name()
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *DailyFile) rotate(day string) error {
	if err := d.Close(); err != nil {
		return fmt.Errorf("failed to close daily file: %w", err)
	}

	path := filepath.Join(d.dir, day)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open daily file: %w", err)
	}

	if isNew {
		if _, err := f.WriteString(dailyHeader); err != nil {
			f.Close()
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	d.f = f
	d.day = day
	return nil
}
