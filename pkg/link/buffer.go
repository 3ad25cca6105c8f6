package link

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Buffer is an in-memory link. Incoming bytes are queued with Feed or Pump
// and consumed one at a time by the control loop.
type Buffer struct {
	rx fifo
}

// NewBuffer creates a Buffer holding up to size unread bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{rx: newFIFO(size)}
}

// Feed queues p, blocking while the buffer is full.
func (b *Buffer) Feed(ctx context.Context, p []byte) error {
	for _, c := range p {
		if err := b.rx.push(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Pump copies r into the buffer until r is exhausted or ctx is done.
func (b *Buffer) Pump(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := b.Feed(ctx, buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}

// TryReadByte returns the next queued byte without blocking.
func (b *Buffer) TryReadByte() (byte, bool) {
	return b.rx.tryPop()
}

// WaitByte blocks until a byte is queued. It returns io.EOF once the buffer
// is closed and empty.
func (b *Buffer) WaitByte(ctx context.Context) (byte, error) {
	return b.rx.pop(ctx)
}

// Close wakes up waiters; queued bytes can still be read with TryReadByte.
func (b *Buffer) Close() error {
	b.rx.close()
	return nil
}
