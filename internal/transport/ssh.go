package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	kerr "gknock/internal/errors"
	"gknock/internal/retry"
	"gknock/tunnel"
	"gknock/util"
)

// SSHDialer routes connection attempts through an SSH gateway.  The
// gateway is connected by Connect, or lazily on the first Dial, and
// torn down on Close.
type SSHDialer struct {
	tunnel    tunnel.Tunnel
	config    *tunnel.SSHConfig
	backoff   *retry.Backoff
	logger    *util.Logger
	mu        sync.Mutex
	connected bool
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until Connect or Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return newSSHDialer(tunnel.NewSSHTunnel(cfg, logger), cfg, logger)
}

func newSSHDialer(t tunnel.Tunnel, cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	b := retry.GatewayBackoff()
	b.Retryable = gatewayRetryable
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("gateway %s attempt %d failed: %v (retrying in %s)",
			cfg.Gateway(), attempt, err, wait.Truncate(time.Millisecond))
	}
	return &SSHDialer{tunnel: t, config: cfg, backoff: b, logger: logger}
}

// Connect establishes the SSH tunnel if not already connected,
// retrying transient failures with backoff.
func (d *SSHDialer) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected && d.tunnel.IsAlive() {
		return nil
	}

	d.logger.Verbose("establishing SSH tunnel to %s@%s", d.config.User, d.config.Gateway())

	err := d.backoff.Do(ctx, func(_ int) error {
		return d.tunnel.Connect(ctx)
	})
	if err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}

	d.connected = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.Connect(ctx); err != nil {
		return nil, err
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		d.connected = false
		return d.tunnel.Close()
	}
	return nil
}

// gatewayRetryable treats credential and host-key problems as
// permanent; everything else (refused, timeout, reset) is retried.
func gatewayRetryable(err error) bool {
	if kerr.Is(err, kerr.ErrAuthFailed) || kerr.Is(err, kerr.ErrHostKeyMismatch) {
		return false
	}
	var se *kerr.SSHError
	if kerr.As(err, &se) && (se.Op == "auth" || se.Op == "hostkey") {
		return false
	}
	return true
}
