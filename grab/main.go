package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/itohio/gosampler/pkg/command"
	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/grab"
	"github.com/itohio/gosampler/pkg/link"
	"go.uber.org/zap"
)

const usage = "Commands: 1..9 set period, s stop, r resume, q quit"

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		dirFlag    = flag.String("dir", "", "Data directory override")
		periodFlag = flag.Int("period", 0, "Sampling period in seconds requested on start (1..9, overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *dirFlag != "" {
		cfg.Grab.DataDir = *dirFlag
	}
	if *periodFlag != 0 {
		cfg.Grab.Period = *periodFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var logger *zap.Logger
	if cfg.Log.Env == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, sugar)
	stop()

	if err != nil {
		sugar.Errorw("grab: stopped with error", "error", err)
		logger.Sync()
		os.Exit(1)
	}
	sugar.Info("grab: shutdown OK")
	logger.Sync()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	port := link.New(cfg.Serial, logger)
	if err := port.Connect(); err != nil {
		return err
	}
	defer port.Close()

	client := grab.NewClient(port, cfg.Grab.Settle, logger)
	if err := client.Start(cfg.Grab.Period); err != nil {
		return err
	}

	out := grab.NewDailyFile(cfg.Grab.DataDir)
	defer out.Close()

	fmt.Println(usage)
	go readCommands(ctx, os.Stdin, client, cancel, logger)

	measurements := make(chan grab.Measurement)
	errs := make(chan error, 1)
	go func() {
		for {
			m, err := client.Next()
			if err != nil {
				errs <- err
				return
			}
			select {
			case measurements <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				logger.Info("grab: device link closed")
				return nil
			}
			return err

		case m := <-measurements:
			if err := out.Write(m); err != nil {
				return err
			}
			fmt.Printf("%s  %6.3f V\n", m.Time.Format("15:04:05"), m.Volts())
			logger.Debugw("measurement recorded", "millivolts", m.Millivolts, "file", out.Path())
		}
	}
}

// readCommands forwards single-character commands typed on r to the device.
// "q" cancels the acquisition.
func readCommands(ctx context.Context, r io.Reader, client *grab.Client, quit context.CancelFunc, logger *zap.SugaredLogger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		b := line[0]
		if b == 'q' || b == 'Q' {
			quit()
			return
		}

		cmd, ok := command.Parse(b)
		if !ok {
			fmt.Println(usage)
			continue
		}
		if err := client.Send(cmd); err != nil {
			logger.Errorw("failed to send command", "command", cmd.String(), "error", err)
		}
	}
}
