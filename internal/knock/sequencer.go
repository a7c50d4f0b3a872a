// Package knock drives a knock sequence: one ordered, timed pass over a
// port list, one connection attempt at a time.
//
// A Sequencer is single-flight.  Start is rejected while a run is in
// progress and there is no queue; a rejected start is simply dropped.
// A run cannot be cancelled once started.
package knock

import (
	"context"
	"sync"
	"time"

	"gknock/internal/metrics"
	"gknock/internal/notify"
	"gknock/internal/portlist"
	"gknock/internal/probe"
	"gknock/util"
)

// CompletionFunc is called after a run has finished and its
// SequenceCompleted event has been emitted.
type CompletionFunc func(kind notify.Kind)

// run is the state of the sequence currently being knocked.
type run struct {
	kind  notify.Kind
	ports portlist.Sequence
	next  int
	host  string
	delay time.Duration
	done  chan struct{}
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock used for inter-knock delays.
func WithClock(c Clock) Option { return func(s *Sequencer) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *util.Logger) Option { return func(s *Sequencer) { s.logger = l } }

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option { return func(s *Sequencer) { s.metrics = m } }

// Sequencer owns the busy flag and the active run.
type Sequencer struct {
	prober  probe.Prober
	sink    notify.Sink
	clock   Clock
	logger  *util.Logger
	metrics *metrics.Collector

	mu         sync.Mutex
	active     *run
	done       chan struct{} // closed when the latest run has fully finished
	onComplete CompletionFunc
}

// New returns an idle Sequencer that knocks through p and reports to sink.
func New(p probe.Prober, sink notify.Sink, opts ...Option) *Sequencer {
	if sink == nil {
		sink = notify.Discard
	}
	s := &Sequencer{prober: p, sink: sink, clock: realClock{}, done: make(chan struct{})}
	close(s.done)
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnComplete registers fn to be called at the end of every run.  It
// replaces any previous hook.
func (s *Sequencer) OnComplete(fn CompletionFunc) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// Busy reports whether a run is in progress.
func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Done returns a channel closed once the most recent run has finished,
// including its completion event and hook.  Before the first run the
// channel is already closed.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Start begins knocking ports on host, waiting delay after every
// attempt.  It returns false without doing anything when a run is
// already in progress or ports is empty.
func (s *Sequencer) Start(kind notify.Kind, ports portlist.Sequence, host string, delay time.Duration) bool {
	s.mu.Lock()
	if busy := s.active != nil; busy || len(ports) == 0 {
		s.mu.Unlock()
		s.metrics.RunRejected()
		s.logger.Debug("%s sequence rejected (busy=%v, ports=%d)", kind, busy, len(ports))
		return false
	}
	r := &run{
		kind:  kind,
		ports: append(portlist.Sequence(nil), ports...),
		host:  host,
		delay: delay,
		done:  make(chan struct{}),
	}
	s.active = r
	s.done = r.done
	s.mu.Unlock()

	s.metrics.RunStarted()
	s.logger.Verbose("%s sequence started: %s -> [%s], delay %s", kind, host, r.ports, delay)

	go s.loop(r)
	return true
}

// loop knocks every port of r in order.  Probe outcomes are not
// inspected; every attempt counts as a delivered knock.
func (s *Sequencer) loop(r *run) {
	ctx := context.Background()

	for r.next < len(r.ports) {
		port := r.ports[r.next]
		s.prober.Probe(ctx, util.FormatAddr(r.host, int(port)))
		s.metrics.KnockSent(port)
		s.clock.Sleep(r.delay)

		s.sink.Notify(notify.StepCompleted{Kind: r.kind, Index: r.next, Port: port, Host: r.host})
		r.next++
	}

	s.mu.Lock()
	s.active = nil
	hook := s.onComplete
	s.mu.Unlock()

	s.metrics.RunCompleted()
	s.sink.Notify(notify.SequenceCompleted{Kind: r.kind, Steps: len(r.ports)})
	if hook != nil {
		hook(r.kind)
	}
	close(r.done)
}
