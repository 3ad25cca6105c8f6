package sensor

// Averaging reads the wrapped sensor n times per Read and returns the mean.
// The timestamp of the last acquisition is kept.
type Averaging struct {
	Sensor
	n int
}

var _ Sensor = (*Averaging)(nil)

// NewAveraging wraps s. For n <= 1 the sensor is returned unwrapped.
func NewAveraging(s Sensor, n int) Sensor {
	if n <= 1 {
		return s
	}
	return &Averaging{Sensor: s, n: n}
}

// Read performs n acquisitions. Any failure aborts the whole reading.
func (a *Averaging) Read() (Reading, error) {
	var (
		sum  int64
		last Reading
	)
	for i := 0; i < a.n; i++ {
		r, err := a.Sensor.Read()
		if err != nil {
			return Reading{}, Fault(err)
		}
		sum += int64(r.Microvolts)
		last = r
	}

	// Truncate toward zero, same as the millivolt conversion.
	last.Microvolts = int32(sum / int64(a.n))
	return last, nil
}
