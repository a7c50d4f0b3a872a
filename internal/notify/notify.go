// Package notify defines the events the knock core produces for a front
// end and the Sink that receives them.  The core emits events; it never
// renders them.
package notify

import (
	"fmt"
	"sync"

	"gknock/util"
)

// Kind selects which port list is in play and what happens when its
// run finishes.
type Kind int

const (
	Open Kind = iota
	Close
)

func (k Kind) String() string {
	switch k {
	case Open:
		return "open"
	case Close:
		return "close"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one notification.  The concrete types below are the only
// implementations.
type Event interface {
	event()
}

// StepCompleted is emitted after each probe and its trailing delay.
type StepCompleted struct {
	Kind  Kind
	Index int // 0-based position in the sequence
	Port  uint16
	Host  string
}

// SequenceCompleted is emitted once, after the last step of a run.
type SequenceCompleted struct {
	Kind  Kind
	Steps int
}

// ParseFailed reports one rejected token from a port list.
type ParseFailed struct {
	List     Kind
	Position int
	Token    string
	Reason   string
}

// SaveCompleted reports the outcome of persisting settings.  Err is nil
// on success.
type SaveCompleted struct {
	Path string
	Err  error
}

func (StepCompleted) event()     {}
func (SequenceCompleted) event() {}
func (ParseFailed) event()       {}
func (SaveCompleted) event()     {}

// Sink receives events.  Implementations must not block for long: the
// sequencer calls Notify between steps.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Notify calls f(e).
func (f SinkFunc) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans an event out to every sink in order.
type Multi []Sink

// Notify forwards e to each sink.
func (m Multi) Notify(e Event) {
	for _, s := range m {
		if s != nil {
			s.Notify(e)
		}
	}
}

// LogSink renders events through a Logger.
type LogSink struct {
	Logger *util.Logger
}

// Notify logs e at a level matching its severity.
func (s LogSink) Notify(e Event) {
	switch ev := e.(type) {
	case StepCompleted:
		s.Logger.Info("%s knock %d sent to %s",
			ev.Kind, ev.Index+1, util.FormatAddr(ev.Host, int(ev.Port)))
	case SequenceCompleted:
		s.Logger.Info("all %s ports knocked (%d)", ev.Kind, ev.Steps)
	case ParseFailed:
		s.Logger.Warn("%s port entry %d %q: %s", ev.List, ev.Position, ev.Token, ev.Reason)
	case SaveCompleted:
		if ev.Err != nil {
			s.Logger.Warn("saving settings: %v", ev.Err)
		} else {
			s.Logger.Info("settings saved to %s", ev.Path)
		}
	}
}

// Recorder keeps every event it receives.  It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify appends e.
func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
