package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/link"
	"github.com/itohio/gosampler/pkg/loop"
	"github.com/itohio/gosampler/pkg/report"
	"github.com/itohio/gosampler/pkg/report/mqtt"
	"github.com/itohio/gosampler/pkg/sampling"
	"github.com/itohio/gosampler/pkg/sensor"
	"github.com/itohio/gosampler/pkg/sensor/ads1115"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Read commands from stdin and report to stdout instead of the serial port")
		listFlag   = flag.Bool("list", false, "List serial ports and exit")
		formatFlag = flag.String("format", "", "Report format override (full or compact)")
		sensorFlag = flag.String("sensor", "", "Sensor type override (simulated or ads1115)")
	)
	flag.Parse()

	if *listFlag {
		if err := listPorts(); err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *formatFlag != "" {
		cfg.Report.Format = *formatFlag
	}
	if *sensorFlag != "" {
		cfg.Sensor.Type = *sensorFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.Log.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, *mockFlag, sugar)
	stop()

	if err != nil {
		sugar.Errorw("sampler: stopped with error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
	sugar.Info("sampler: shutdown OK")
	logger.Sync()
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func listPorts() error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.Description)
	}
	return nil
}

// port is the link the loop reads commands from, plus the output it reports to.
type port interface {
	loop.SerialLink
	io.Writer
	Close() error
}

// stdio adapts an in-memory link fed from stdin to the port interface.
type stdio struct {
	*link.Buffer
	io.Writer
}

func run(ctx context.Context, cfg *config.Config, mock bool, logger *zap.SugaredLogger) error {
	initial, err := cfg.InitialState()
	if err != nil {
		return fmt.Errorf("invalid initial state: %w", err)
	}

	style, err := report.ParseStyle(cfg.Report.Format)
	if err != nil {
		return err
	}

	p, err := openPort(ctx, cfg.Serial, mock, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	s, err := openSensor(cfg.Sensor)
	if err != nil {
		return err
	}
	defer s.Close()

	var sinks []report.Sink
	if cfg.MQTT.Enabled {
		sink, err := mqtt.New(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}

	reporter := report.New(p, style, sinks...)
	defer reporter.Close()

	l := loop.New(p, s, reporter, initial, logger)
	l.OnChange(func(state sampling.State) {
		logger.Infow("sampling state changed", "running", state.Running, "period", state.Period)
	})

	logger.Infow("sampler: running",
		"sensor", cfg.Sensor.Type,
		"running", initial.Running,
		"period", initial.Period,
		"format", cfg.Report.Format,
		"mock", mock,
	)

	err = l.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(err, io.EOF):
		logger.Info("sampler: input closed")
		return nil
	}
	return err
}

func openPort(ctx context.Context, cfg config.SerialConfig, mock bool, logger *zap.SugaredLogger) (port, error) {
	if mock {
		buf := link.NewBuffer(cfg.BufferSize)
		go func() {
			if err := buf.Pump(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("stdin reader stopped", "error", err)
			}
			buf.Close()
		}()
		return stdio{Buffer: buf, Writer: os.Stdout}, nil
	}

	s := link.New(cfg, logger)
	if err := s.Connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func openSensor(cfg config.SensorConfig) (sensor.Sensor, error) {
	var s sensor.Sensor

	switch cfg.Type {
	case config.SensorADS1115:
		adc, err := ads1115.Open(ads1115.Config{
			Bus:       cfg.ADS1115.I2CBus,
			Address:   cfg.ADS1115.Address,
			Channel:   cfg.ADS1115.Channel,
			DataRate:  cfg.ADS1115.DataRate,
			FullScale: physic.ElectricPotential(cfg.ADS1115.FullScaleMV) * physic.MilliVolt,
		})
		if err != nil {
			return nil, err
		}
		s = adc
	default:
		s = sensor.NewSimulated(sensor.SimulatedParams{
			OffsetMicrovolts:    cfg.Simulated.OffsetUV,
			AmplitudeMicrovolts: cfg.Simulated.AmplitudeUV,
			WavePeriod:          cfg.Simulated.WavePeriod,
			NoiseMicrovolts:     cfg.Simulated.NoiseUV,
			FaultEvery:          cfg.Simulated.FaultEvery,
		})
	}

	return sensor.NewAveraging(s, cfg.AverageCount), nil
}
