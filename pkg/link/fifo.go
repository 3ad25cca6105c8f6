package link

import (
	"context"
	"io"
	"sync"
)

// fifo is the receive buffer shared by the link implementations. Bytes that
// arrive while nobody reads stay queued until the consumer comes back.
type fifo struct {
	ch     chan byte
	closed chan struct{}
	once   *sync.Once
}

func newFIFO(size int) fifo {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return fifo{ch: make(chan byte, size), closed: make(chan struct{}), once: &sync.Once{}}
}

// push queues b, blocking while the buffer is full.
func (f fifo) push(ctx context.Context, b byte) error {
	select {
	case f.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-f.closed:
		return io.ErrClosedPipe
	}
}

// tryPop never blocks.
func (f fifo) tryPop() (byte, bool) {
	select {
	case b := <-f.ch:
		return b, true
	default:
		return 0, false
	}
}

// pop blocks until a byte is queued, the link is closed or ctx is done.
func (f fifo) pop(ctx context.Context) (byte, error) {
	select {
	case b := <-f.ch:
		return b, nil
	default:
	}

	select {
	case b := <-f.ch:
		return b, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-f.closed:
		return 0, io.EOF
	}
}

// read fills p with at least one byte, then whatever else is queued.
func (f fifo) read(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := f.pop(ctx)
	if err != nil {
		if err == context.Canceled {
			err = io.EOF
		}
		return 0, err
	}
	p[0] = b
	n := 1
	for n < len(p) {
		b, ok := f.tryPop()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n, nil
}

// drain discards everything queued.
func (f fifo) drain() {
	for {
		if _, ok := f.tryPop(); !ok {
			return
		}
	}
}

func (f fifo) close() {
	f.once.Do(func() { close(f.closed) })
}
