package ads1115

import (
	"fmt"
	"io"
	"time"

	"github.com/itohio/gosampler/pkg/sensor"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	pointerConv   = 0x00
	pointerConfig = 0x01

	// DefaultAddress is the ADDR-to-GND bus address.
	DefaultAddress = 0x48
	// DefaultDataRate is the conversion rate in samples per second.
	DefaultDataRate = 128
	// DefaultFullScale is the PGA full-scale range.
	DefaultFullScale = 4096 * physic.MilliVolt
)

// Config selects the bus, channel and converter settings.
type Config struct {
	Bus       string // i2creg name, e.g. "2" for /dev/i2c-2
	Address   uint16
	Channel   int // single-ended input 0..3
	DataRate  int // samples per second
	FullScale physic.ElectricPotential
}

// Sensor performs single-shot conversions on one ADS1115 input.
type Sensor struct {
	dev    *i2c.Dev
	closer io.Closer

	msb, lsb  byte
	fullScale physic.ElectricPotential
	settle    time.Duration
	wait      func(time.Duration)
}

var _ sensor.Sensor = (*Sensor)(nil)

// Open initializes the host drivers, opens the I²C bus and returns a Sensor.
func Open(cfg Config) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", cfg.Bus, err)
	}
	s, err := New(bus, cfg)
	if err != nil {
		bus.Close()
		return nil, err
	}
	s.closer = bus
	return s, nil
}

// New creates a Sensor on an already opened bus.
func New(bus i2c.Bus, cfg Config) (*Sensor, error) {
	if cfg.Address == 0 {
		cfg.Address = DefaultAddress
	}
	if cfg.DataRate == 0 {
		cfg.DataRate = DefaultDataRate
	}
	if cfg.FullScale == 0 {
		cfg.FullScale = DefaultFullScale
	}

	msb, lsb, err := configBytes(cfg.Channel, cfg.DataRate, cfg.FullScale)
	if err != nil {
		return nil, err
	}

	return &Sensor{
		dev:       &i2c.Dev{Addr: cfg.Address, Bus: bus},
		msb:       msb,
		lsb:       lsb,
		fullScale: cfg.FullScale,
		settle:    conversionTime(cfg.DataRate),
		wait:      time.Sleep,
	}, nil
}

// Read starts a conversion, waits for it and returns the input voltage.
func (s *Sensor) Read() (sensor.Reading, error) {
	if err := s.dev.Tx([]byte{pointerConfig, s.msb, s.lsb}, nil); err != nil {
		return sensor.Reading{}, sensor.Fault(fmt.Errorf("failed to write config: %w", err))
	}

	s.wait(s.settle)

	buf := make([]byte, 2)
	if err := s.dev.Tx([]byte{pointerConv}, buf); err != nil {
		return sensor.Reading{}, sensor.Fault(fmt.Errorf("failed to read conversion: %w", err))
	}

	raw := int16(buf[0])<<8 | int16(buf[1])
	return sensor.Reading{
		Microvolts: toMicrovolts(raw, s.fullScale),
		Timestamp:  time.Now(),
	}, nil
}

// Close releases the bus if it was opened by Open.
func (s *Sensor) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func toMicrovolts(raw int16, fullScale physic.ElectricPotential) int32 {
	v := fullScale * physic.ElectricPotential(raw) / 32768
	return int32(v / physic.MicroVolt)
}

// conversionTime is one conversion period plus margin.
func conversionTime(dataRate int) time.Duration {
	return time.Second/time.Duration(dataRate) + 2*time.Millisecond
}

func configBytes(channel, dataRate int, fullScale physic.ElectricPotential) (byte, byte, error) {
	if channel < 0 || channel > 3 {
		return 0, 0, fmt.Errorf("invalid channel %d", channel)
	}
	mux := byte(0x4 + channel) // AINx vs GND

	var pga byte
	switch fullScale {
	case 6144 * physic.MilliVolt:
		pga = 0x0
	case 4096 * physic.MilliVolt:
		pga = 0x1
	case 2048 * physic.MilliVolt:
		pga = 0x2
	case 1024 * physic.MilliVolt:
		pga = 0x3
	case 512 * physic.MilliVolt:
		pga = 0x4
	case 256 * physic.MilliVolt:
		pga = 0x5
	default:
		return 0, 0, fmt.Errorf("unsupported full scale %s", fullScale)
	}

	var dr byte
	switch dataRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		return 0, 0, fmt.Errorf("unsupported data rate %d", dataRate)
	}

	var config uint16 = 0x8000 // start single conversion
	config |= uint16(mux) << 12
	config |= uint16(pga) << 9
	config |= 1 << 8 // single-shot
	config |= uint16(dr) << 5
	config |= 0x3 // comparator disabled
	return byte(config >> 8), byte(config & 0xFF), nil
}
