// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a gknock session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Collector tracks runtime metrics for a gknock session.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	knocksSent    atomic.Int64
	probeFailures atomic.Int64
	runsStarted   atomic.Int64
	runsCompleted atomic.Int64
	runsRejected  atomic.Int64
	parseFailures atomic.Int64
	saveFailures  atomic.Int64

	// knocks per destination port, duplicates included
	portKnocks *xsync.MapOf[uint16, int64]

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime:  time.Now(),
		portKnocks: xsync.NewMapOf[uint16, int64](),
	}
}

// ── Knock metrics ────────────────────────────────────────────────────

// KnockSent records one probe attempt against port, whatever its outcome.
func (c *Collector) KnockSent(port uint16) {
	if c == nil {
		return
	}
	c.knocksSent.Add(1)
	c.portKnocks.Compute(port, func(old int64, _ bool) (int64, bool) {
		return old + 1, false
	})
}

// ProbeFailed records a probe whose connection attempt returned an error.
func (c *Collector) ProbeFailed() {
	if c == nil {
		return
	}
	c.probeFailures.Add(1)
}

// KnocksSent returns the total number of probe attempts.
func (c *Collector) KnocksSent() int64 {
	if c == nil {
		return 0
	}
	return c.knocksSent.Load()
}

// ProbeFailures returns how many probe attempts errored.
func (c *Collector) ProbeFailures() int64 {
	if c == nil {
		return 0
	}
	return c.probeFailures.Load()
}

// PortKnocks returns how many times port has been knocked.
func (c *Collector) PortKnocks(port uint16) int64 {
	if c == nil {
		return 0
	}
	n, _ := c.portKnocks.Load(port)
	return n
}

// ── Run metrics ──────────────────────────────────────────────────────

// RunStarted records an accepted sequence start.
func (c *Collector) RunStarted() {
	if c == nil {
		return
	}
	c.runsStarted.Add(1)
}

// RunCompleted records a sequence that reached its last port.
func (c *Collector) RunCompleted() {
	if c == nil {
		return
	}
	c.runsCompleted.Add(1)
}

// RunRejected records a start that was dropped (busy or empty list).
func (c *Collector) RunRejected() {
	if c == nil {
		return
	}
	c.runsRejected.Add(1)
}

// RunsStarted returns the number of accepted runs.
func (c *Collector) RunsStarted() int64 {
	if c == nil {
		return 0
	}
	return c.runsStarted.Load()
}

// RunsCompleted returns the number of finished runs.
func (c *Collector) RunsCompleted() int64 {
	if c == nil {
		return 0
	}
	return c.runsCompleted.Load()
}

// RunsRejected returns the number of dropped starts.
func (c *Collector) RunsRejected() int64 {
	if c == nil {
		return 0
	}
	return c.runsRejected.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// ParseFailed records n rejected port-list tokens.
func (c *Collector) ParseFailed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.parseFailures.Add(int64(n))
}

// SaveFailed records a failed settings write and stores the message.
func (c *Collector) SaveFailed(msg string) {
	if c == nil {
		return
	}
	c.saveFailures.Add(1)
	c.RecordError(msg)
}

// RecordError stores the most recent user-visible error message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string           `json:"uptime"`
	KnocksSent       int64            `json:"knocks_sent"`
	ProbeFailures    int64            `json:"probe_failures"`
	RunsStarted      int64            `json:"runs_started"`
	RunsCompleted    int64            `json:"runs_completed"`
	RunsRejected     int64            `json:"runs_rejected"`
	ParseFailures    int64            `json:"parse_failures"`
	SaveFailures     int64            `json:"save_failures"`
	PortKnocks       map[uint16]int64 `json:"port_knocks,omitempty"`
	LastError        string           `json:"last_error,omitempty"`
	LastErrorMessage string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:        time.Since(c.startTime).Truncate(time.Second).String(),
		KnocksSent:    c.knocksSent.Load(),
		ProbeFailures: c.probeFailures.Load(),
		RunsStarted:   c.runsStarted.Load(),
		RunsCompleted: c.runsCompleted.Load(),
		RunsRejected:  c.runsRejected.Load(),
		ParseFailures: c.parseFailures.Load(),
		SaveFailures:  c.saveFailures.Load(),
	}
	if c.portKnocks.Size() > 0 {
		s.PortKnocks = make(map[uint16]int64, c.portKnocks.Size())
		c.portKnocks.Range(func(port uint16, n int64) bool {
			s.PortKnocks[port] = n
			return true
		})
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
