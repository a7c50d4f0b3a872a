// Package shutdown turns an external close request into a close knock
// sequence and holds process termination until that sequence is done.
package shutdown

import (
	"sync"
	"time"

	"gknock/internal/notify"
	"gknock/internal/portlist"
	"gknock/util"
)

// State is the coordinator's lifecycle position.
type State int

const (
	// Running is the initial state: no close request accepted yet.
	Running State = iota
	// Draining means a close request was accepted and termination is
	// pending on (or has followed) the close sequence.
	Draining
)

func (s State) String() string {
	if s == Draining {
		return "draining"
	}
	return "running"
}

// Sequencer is the part of knock.Sequencer the coordinator drives.
type Sequencer interface {
	Start(kind notify.Kind, ports portlist.Sequence, host string, delay time.Duration) bool
	Busy() bool
}

// Target supplies the close sequence as it stands when the request
// arrives; the front end may have edited it since startup.
type Target interface {
	CloseTarget() (ports portlist.Sequence, host string, delay time.Duration)
}

// TargetFunc adapts a function to Target.
type TargetFunc func() (portlist.Sequence, string, time.Duration)

// CloseTarget calls f.
func (f TargetFunc) CloseTarget() (portlist.Sequence, string, time.Duration) { return f() }

// Coordinator owns the close-requested flag.  Once set it is never
// cleared, and terminate is invoked at most once.
type Coordinator struct {
	seq       Sequencer
	target    Target
	terminate func()
	logger    *util.Logger

	mu             sync.Mutex
	closeRequested bool
	once           sync.Once
	terminated     chan struct{}
}

// New returns a Coordinator in the Running state.  terminate is the
// "exit now" command; it is called from whichever goroutine completes
// the shutdown.
func New(seq Sequencer, target Target, terminate func(), logger *util.Logger) *Coordinator {
	return &Coordinator{
		seq:        seq,
		target:     target,
		terminate:  terminate,
		logger:     logger,
		terminated: make(chan struct{}),
	}
}

// RequestClose handles one external close request.  While a run of
// any kind is in progress the request is ignored and the flag stays
// clear.  Otherwise the flag is set and either termination happens at
// once (empty close list) or the close sequence is started.
func (c *Coordinator) RequestClose() {
	if c.requestClose() {
		c.finish()
	}
}

// requestClose applies a close request under c.mu and reports whether
// the process should terminate immediately.
func (c *Coordinator) requestClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closeRequested {
		c.logger.Debug("close already requested")
		return false
	}
	if c.seq.Busy() {
		c.logger.Info("close request ignored: a knock sequence is in progress")
		return false
	}

	ports, host, delay := c.target.CloseTarget()
	if len(ports) == 0 {
		c.closeRequested = true
		c.logger.Verbose("close requested with an empty close list; exiting")
		return true
	}

	// The completion hook takes c.mu, so it cannot observe the flag
	// before Start has decided.
	c.closeRequested = true
	if !c.seq.Start(notify.Close, ports, host, delay) {
		c.closeRequested = false
		c.logger.Info("close request ignored: a knock sequence is in progress")
		return false
	}
	c.logger.Info("close requested, sending close sequence [%s] to %s", ports, host)
	return false
}

// SequenceDone is the knock.Sequencer completion hook.  A finished close
// run triggers termination when a close was requested; an open run
// never does.
func (c *Coordinator) SequenceDone(kind notify.Kind) {
	c.mu.Lock()
	requested := c.closeRequested
	c.mu.Unlock()

	if kind == notify.Close && requested {
		c.finish()
	}
}

// CloseRequested reports whether a close request has been accepted.
func (c *Coordinator) CloseRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeRequested
}

// State returns Running until a close request is accepted.
func (c *Coordinator) State() State {
	if c.CloseRequested() {
		return Draining
	}
	return Running
}

// Terminated is closed after terminate has been called.
func (c *Coordinator) Terminated() <-chan struct{} { return c.terminated }

func (c *Coordinator) finish() {
	c.once.Do(func() {
		if c.terminate != nil {
			c.terminate()
		}
		close(c.terminated)
	})
}
