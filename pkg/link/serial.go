package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/itohio/gosampler/pkg/config"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the baud rate of the device debug UART.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default receive buffer size in bytes.
	DefaultBufferSize = 64
)

// ErrNotConnected is returned by operations on a link that is not open.
var ErrNotConnected = errors.New("not connected")

// Port describes a serial port found on the host.
type Port struct {
	Name        string
	Description string
}

// Serial is a byte-oriented link over a serial port. A reader goroutine
// moves incoming bytes into a bounded buffer; consumers take them from there
// without touching the port.
type Serial struct {
	port     string
	baudRate int
	attempts uint
	delay    time.Duration
	open     func(name string, mode *serial.Mode) (serial.Port, error)
	logger   *zap.SugaredLogger

	conn      serial.Port
	rx        fifo
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a Serial link. Call Connect to open the port.
// A closed Serial cannot be connected again.
func New(cfg config.SerialConfig, logger *zap.SugaredLogger) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.OpenAttempts == 0 {
		cfg.OpenAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     cfg.Port,
		baudRate: cfg.BaudRate,
		attempts: cfg.OpenAttempts,
		delay:    cfg.OpenDelay,
		open:     serial.Open,
		logger:   logger.With("port", cfg.Port),
		rx:       newFIFO(cfg.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s (USB %s:%s %s)", d.Name, d.VID, d.PID, d.Product)
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}

	return result, nil
}

// Connect opens the serial port, retrying while the device enumerates, and
// starts the reader goroutine.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("link closed")
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
	}

	var port serial.Port
	err := retry.Do(
		func() error {
			p, err := d.open(d.port, mode)
			if err != nil {
				return err
			}
			port = p
			return nil
		},
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.OnRetry(func(n uint, err error) {
			d.logger.Warnw("serial port open failed, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go d.readLoop(port)

	d.logger.Infow("serial port opened", "baud_rate", d.baudRate)
	return nil
}

// Close closes the port and stops the reader goroutine.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	var err error
	if d.conn != nil {
		if err = d.conn.Close(); err != nil {
			d.logger.Errorw("error closing serial port", "error", err)
		}
		d.conn = nil
	}

	d.connected = false
	d.rx.close()

	return err
}

// IsConnected returns whether the port is open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// TryReadByte returns the next received byte without blocking.
func (d *Serial) TryReadByte() (byte, bool) {
	return d.rx.tryPop()
}

// WaitByte blocks until a byte is received.
func (d *Serial) WaitByte(ctx context.Context) (byte, error) {
	return d.rx.pop(ctx)
}

// Read implements io.Reader on top of the receive buffer. It returns io.EOF
// after the link is closed.
func (d *Serial) Read(p []byte) (int, error) {
	return d.rx.read(d.ctx, p)
}

// Write sends p to the device.
func (d *Serial) Write(p []byte) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return 0, ErrNotConnected
	}

	n, err := d.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to serial port: %w", err)
	}
	return n, nil
}

// ResetInputBuffer discards everything received but not yet read.
func (d *Serial) ResetInputBuffer() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if err := d.conn.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	d.rx.drain()
	return nil
}

// ResetOutputBuffer discards everything written but not yet transmitted.
func (d *Serial) ResetOutputBuffer() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if err := d.conn.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("failed to reset output buffer: %w", err)
	}
	return nil
}

// readLoop moves bytes from the port into the receive buffer.
func (d *Serial) readLoop(conn serial.Port) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("panic in serial reader", "panic", r)
		}
		d.rx.close()
	}()

	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if d.ctx.Err() == nil && !errors.Is(err, io.EOF) {
				d.logger.Errorw("error reading from serial port", "error", err)
			}
			return
		}
		for _, b := range buf[:n] {
			if err := d.rx.push(d.ctx, b); err != nil {
				return
			}
		}
	}
}
