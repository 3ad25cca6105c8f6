package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/itohio/gosampler/pkg/command"
	"github.com/itohio/gosampler/pkg/sampling"
	"gopkg.in/yaml.v3"
)

// Sensor types.
const (
	SensorSimulated = "simulated"
	SensorADS1115   = "ads1115"
)

// Report formats.
const (
	FormatFull    = "full"
	FormatCompact = "compact"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	Sampling SamplingConfig `yaml:"sampling"`
	Report   ReportConfig   `yaml:"report"`
	Sensor   SensorConfig   `yaml:"sensor"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Grab     GrabConfig     `yaml:"grab"`
	Log      LogConfig      `yaml:"log"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port         string        `yaml:"port"`
	BaudRate     int           `yaml:"baud_rate"`
	BufferSize   int           `yaml:"buffer_size"`   // Receive FIFO size in bytes
	OpenAttempts uint          `yaml:"open_attempts"` // Attempts before giving up on the port
	OpenDelay    time.Duration `yaml:"open_delay"`    // Delay between attempts
}

// SamplingConfig contains the state the controller starts in.
type SamplingConfig struct {
	Running *bool         `yaml:"running"`
	Period  time.Duration `yaml:"period"`
}

// ReportConfig selects the output line format.
type ReportConfig struct {
	Format string `yaml:"format"` // full|compact
}

// SensorConfig selects and configures the sensor.
type SensorConfig struct {
	Type         string          `yaml:"type"`          // simulated|ads1115
	AverageCount int             `yaml:"average_count"` // Acquisitions averaged per reading (1 = disabled)
	ADS1115      ADS1115Config   `yaml:"ads1115"`
	Simulated    SimulatedConfig `yaml:"simulated"`
}

// ADS1115Config contains ADS1115 converter parameters.
type ADS1115Config struct {
	I2CBus      string `yaml:"i2c_bus"`
	Address     uint16 `yaml:"address"`
	Channel     int    `yaml:"channel"`
	DataRate    int    `yaml:"data_rate"`     // Samples per second
	FullScaleMV int    `yaml:"full_scale_mv"` // PGA range in millivolts
}

// SimulatedConfig contains simulated sensor parameters.
type SimulatedConfig struct {
	OffsetUV    int32         `yaml:"offset_uv"`
	AmplitudeUV int32         `yaml:"amplitude_uv"`
	WavePeriod  time.Duration `yaml:"wave_period"`
	NoiseUV     int32         `yaml:"noise_uv"`
	FaultEvery  int           `yaml:"fault_every"` // Every Nth read fails (0 = never)
}

// MQTTConfig contains the optional MQTT publisher configuration.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Server   string `yaml:"server"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// GrabConfig contains the host acquisition client configuration.
type GrabConfig struct {
	DataDir string        `yaml:"data_dir"`
	Period  int           `yaml:"period"` // Sampling period requested on start, seconds
	Settle  time.Duration `yaml:"settle"` // Time allowed for the device to flush after stop
}

// LogConfig contains logger configuration.
type LogConfig struct {
	Env string `yaml:"env"` // dev|prod
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	running := true
	return &Config{
		Serial: SerialConfig{
			Port:         "/dev/ttyACM0",
			BaudRate:     115200,
			BufferSize:   64,
			OpenAttempts: 5,
			OpenDelay:    time.Second,
		},
		Sampling: SamplingConfig{
			Running: &running,
			Period:  time.Second,
		},
		Report: ReportConfig{
			Format: FormatFull,
		},
		Sensor: SensorConfig{
			Type:         SensorSimulated,
			AverageCount: 1,
			ADS1115: ADS1115Config{
				I2CBus:      "1",
				Address:     0x48,
				Channel:     0,
				DataRate:    128,
				FullScaleMV: 4096,
			},
			Simulated: SimulatedConfig{
				OffsetUV:    1_650_000,
				AmplitudeUV: 800_000,
				WavePeriod:  time.Minute,
				NoiseUV:     2_000,
			},
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Server:   "tcp://localhost:1883",
			ClientID: "gosampler",
			Topic:    "gosampler/voltage",
		},
		Grab: GrabConfig{
			DataDir: ".",
			Period:  1,
			Settle:  time.Second,
		},
		Log: LogConfig{
			Env: "prod",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	var errs []error

	if err := sampling.ValidatePeriod(c.Sampling.Period); err != nil {
		errs = append(errs, fmt.Errorf("sampling.period: %w", err))
	}

	switch c.Report.Format {
	case FormatFull, FormatCompact:
	default:
		errs = append(errs, fmt.Errorf("report.format must be %q or %q, got %q", FormatFull, FormatCompact, c.Report.Format))
	}

	switch c.Sensor.Type {
	case SensorSimulated, SensorADS1115:
	default:
		errs = append(errs, fmt.Errorf("sensor.type must be %q or %q, got %q", SensorSimulated, SensorADS1115, c.Sensor.Type))
	}

	if c.Sensor.ADS1115.Channel < 0 || c.Sensor.ADS1115.Channel > 3 {
		errs = append(errs, fmt.Errorf("sensor.ads1115.channel must be 0..3, got %d", c.Sensor.ADS1115.Channel))
	}

	if _, err := command.NewSetPeriod(c.Grab.Period); err != nil {
		errs = append(errs, fmt.Errorf("grab.period: %w", err))
	}

	if c.MQTT.Enabled && strings.TrimSpace(c.MQTT.Server) == "" {
		errs = append(errs, errors.New("mqtt.server is required when mqtt is enabled"))
	}

	return errors.Join(errs...)
}

// InitialState returns the validated state the controller starts in.
func (c *Config) InitialState() (sampling.State, error) {
	running := c.Sampling.Running == nil || *c.Sampling.Running
	return sampling.NewState(running, c.Sampling.Period)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.BufferSize == 0 {
		c.Serial.BufferSize = def.Serial.BufferSize
	}
	if c.Serial.OpenAttempts == 0 {
		c.Serial.OpenAttempts = def.Serial.OpenAttempts
	}
	if c.Serial.OpenDelay == 0 {
		c.Serial.OpenDelay = def.Serial.OpenDelay
	}

	if c.Sampling.Running == nil {
		c.Sampling.Running = def.Sampling.Running
	}
	if c.Sampling.Period == 0 {
		c.Sampling.Period = def.Sampling.Period
	}

	if c.Report.Format == "" {
		c.Report.Format = def.Report.Format
	}

	if c.Sensor.Type == "" {
		c.Sensor.Type = def.Sensor.Type
	}
	if c.Sensor.AverageCount == 0 {
		c.Sensor.AverageCount = def.Sensor.AverageCount
	}
	if c.Sensor.ADS1115.I2CBus == "" {
		c.Sensor.ADS1115.I2CBus = def.Sensor.ADS1115.I2CBus
	}
	if c.Sensor.ADS1115.Address == 0 {
		c.Sensor.ADS1115.Address = def.Sensor.ADS1115.Address
	}
	if c.Sensor.ADS1115.DataRate == 0 {
		c.Sensor.ADS1115.DataRate = def.Sensor.ADS1115.DataRate
	}
	if c.Sensor.ADS1115.FullScaleMV == 0 {
		c.Sensor.ADS1115.FullScaleMV = def.Sensor.ADS1115.FullScaleMV
	}
	if c.Sensor.Simulated.WavePeriod == 0 {
		c.Sensor.Simulated.WavePeriod = def.Sensor.Simulated.WavePeriod
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}

	if c.Grab.DataDir == "" {
		c.Grab.DataDir = def.Grab.DataDir
	}
	if c.Grab.Period == 0 {
		c.Grab.Period = def.Grab.Period
	}
	if c.Grab.Settle == 0 {
		c.Grab.Settle = def.Grab.Settle
	}

	if c.Log.Env == "" {
		c.Log.Env = def.Log.Env
	}
}
