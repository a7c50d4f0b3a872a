// Package probe delivers single knocks.  A knock is the connection
// attempt itself: whether the target accepts, refuses or ignores it is
// irrelevant, so Prober reports nothing back.
package probe

import (
	"context"
	"time"

	"gknock/config"
	kerr "gknock/internal/errors"
	"gknock/internal/metrics"
	"gknock/internal/transport"
	"gknock/util"
)

// Prober attempts one TCP connection to address and returns once the
// attempt is over.  It must not panic or block past its own timeout.
type Prober interface {
	Probe(ctx context.Context, address string)
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, address string)

// Probe calls f.
func (f Func) Probe(ctx context.Context, address string) { f(ctx, address) }

// DialProber knocks by dialling through a transport.Dialer and closing
// the connection immediately, without reading or writing.
type DialProber struct {
	Dialer  transport.Dialer
	Timeout time.Duration // per-attempt bound; DefaultProbeTimeout if zero
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Probe performs the attempt.  Errors are logged at debug level and
// counted, then dropped.
func (p *DialProber) Probe(ctx context.Context, address string) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = config.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := p.Dialer.Dial(ctx, "tcp", address)
	if err != nil {
		p.Metrics.ProbeFailed()
		ne := kerr.Wrap("knock", address, err)
		p.Logger.Debug("%v (transient=%v)", ne, kerr.IsRetryable(ne))
		return
	}
	conn.Close()
	p.Logger.Debug("knock %s: connection accepted", address)
}
