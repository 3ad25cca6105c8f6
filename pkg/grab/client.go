package grab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itohio/gosampler/pkg/command"
	"go.uber.org/zap"
)

// Port is the device connection used by the client.
type Port interface {
	io.ReadWriter
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// Client drives a sampling device over a serial link and reads its reports.
type Client struct {
	port    Port
	lines   *bufio.Scanner
	settle  time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
	logger  *zap.SugaredLogger
	skipped bool
}

// NewClient creates a client on port. settle is how long to wait after
// stopping the device before its input is flushed.
func NewClient(port Port, settle time.Duration, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		port:   port,
		lines:  bufio.NewScanner(port),
		settle: settle,
		now:    time.Now,
		sleep:  time.Sleep,
		logger: logger,
	}
}

// Send writes a single command byte to the device.
func (c *Client) Send(cmd command.Command) error {
	b := cmd.Byte()
	if b == 0 {
		return fmt.Errorf("invalid command: %v", cmd)
	}
	if _, err := c.port.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	c.logger.Debugw("command sent", "command", cmd.String())
	return nil
}

// Start stops the device, discards whatever it already sent, sets the
// sampling period and resumes sampling. The first line after that is
// dropped since it may be partial.
func (c *Client) Start(seconds int) error {
	period, err := command.NewSetPeriod(seconds)
	if err != nil {
		return err
	}

	if err := c.Send(command.Command{Kind: command.Stop}); err != nil {
		return err
	}

	c.sleep(c.settle)

	if err := c.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to flush input: %w", err)
	}
	if err := c.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if err := c.Send(period); err != nil {
		return err
	}
	if err := c.Send(command.Command{Kind: command.Start}); err != nil {
		return err
	}

	c.skipped = false
	c.logger.Infow("sampling started", "period_s", seconds)
	return nil
}

// Next blocks until the next report line arrives and returns it stamped with
// the host time. Lines that cannot be parsed are logged and skipped.
func (c *Client) Next() (Measurement, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return Measurement{}, err
		}

		if !c.skipped {
			c.skipped = true
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		m, err := ParseLine(line)
		if err != nil {
			c.logger.Warnw("dropping malformed line", "line", line, "error", err)
			continue
		}

		m.Time = c.now()
		return m, nil
	}
}

func (c *Client) readLine() (string, error) {
	if !c.lines.Scan() {
		if err := c.lines.Err(); err != nil {
			return "", fmt.Errorf("failed to read line: %w", err)
		}
		return "", io.EOF
	}
	return c.lines.Text(), nil
}
