package core

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

type noSleep struct{}

func (noSleep) Sleep(time.Duration) {}

// recordingDialer refuses every connection and remembers the address.
// When release is non-nil each Dial blocks until it is closed, and
// entered is closed on the first Dial.
type recordingDialer struct {
	mu         sync.Mutex
	addrs      []string
	connectErr error
	connects   int
	closed     bool

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *recordingDialer) Dial(ctx context.Context, _, address string) (net.Conn, error) {
	if d.release != nil {
		d.once.Do(func() { close(d.entered) })
		select {
		case <-d.release:
		case <-ctx.Done():
		}
	}
	d.mu.Lock()
	d.addrs = append(d.addrs, address)
	d.mu.Unlock()
	return nil, errors.New("connection refused")
}

func (d *recordingDialer) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *recordingDialer) Addrs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.addrs...)
}

func (d *recordingDialer) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// connectingDialer also implements transport.Connector.
type connectingDialer struct {
	recordingDialer
}

func (d *connectingDialer) Connect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connects++
	return d.connectErr
}

// syncBuffer guards a bytes.Buffer written by several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
