package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gknock/internal/console"
	"gknock/internal/knock"
	"gknock/internal/metrics"
	"gknock/internal/notify"
	"gknock/internal/settings"
	"gknock/internal/shutdown"
	"gknock/internal/transport"
	"gknock/util"
)

// SessionMode runs the interactive front end.  It ends only through
// the shutdown coordinator: an interrupt, "quit" or end of input
// requests the close sequence, and the session exits once that
// sequence has been knocked.
type SessionMode struct {
	Target    *Target
	Dialer    transport.Dialer
	Sequencer *knock.Sequencer
	Console   *console.Console
	Store     settings.Store
	Sink      notify.Sink
	Metrics   *metrics.Collector
	Logger    *util.Logger

	// Signals delivers close requests.  When nil, Run subscribes to
	// SIGINT and SIGTERM itself.
	Signals <-chan os.Signal
}

// Run blocks until the coordinator terminates the session.  ctx only
// bounds the gateway connection; cancelling it later does not end the
// session, since shutdown must go through the close sequence.
func (m *SessionMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if err := connect(ctx, m.Dialer); err != nil {
		return err
	}

	sigs := m.Signals
	if sigs == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigs = ch
	}

	coord := shutdown.New(m.Sequencer, m.Target, func() {
		m.Logger.Verbose("session terminating")
	}, m.Logger)
	m.Sequencer.OnComplete(coord.SequenceDone)
	defer m.Sequencer.OnComplete(nil)

	ctl := &controller{m: m, coord: coord}

	inputCtx, stopInput := context.WithCancel(context.Background())
	defer stopInput()
	inputDone := make(chan error, 1)
	go func() { inputDone <- m.Console.Run(inputCtx, ctl) }()

	for {
		select {
		case <-coord.Terminated():
			return nil
		case sig := <-sigs:
			m.Logger.Verbose("received %s", sig)
			ctl.Quit()
		case <-inputDone:
			inputDone = nil
			if !coord.CloseRequested() {
				m.Logger.Warn("input closed while a knock sequence is running; interrupt again once it finishes")
			}
		}
	}
}

// controller carries out console commands for a SessionMode.
type controller struct {
	m     *SessionMode
	coord *shutdown.Coordinator
}

func (c *controller) Open()  { c.start(notify.Open) }
func (c *controller) Close() { c.start(notify.Close) }

// start begins a user-requested run.  A rejected start is dropped, and
// no run starts once a close has been accepted.
func (c *controller) start(kind notify.Kind) {
	if c.coord.CloseRequested() {
		c.m.Console.Printf("shutting down; %s request dropped", kind)
		return
	}
	ports, host, delay := c.m.Target.Sequence(kind)
	if len(ports) == 0 {
		c.m.Console.Printf("%s port list is empty", kind)
		return
	}
	if !c.m.Sequencer.Start(kind, ports, host, delay) {
		c.m.Logger.Info("%s request dropped: a knock sequence is in progress", kind)
	}
}

func (c *controller) Set(field, value string) error {
	switch field {
	case "host":
		return c.m.Target.SetHost(value)
	case "open":
		c.m.Target.SetPorts(notify.Open, value)
	case "close":
		c.m.Target.SetPorts(notify.Close, value)
	case "delay":
		return c.m.Target.SetDelay(value)
	default:
		return fmt.Errorf("unknown field (want host, open, close or delay)")
	}
	return nil
}

func (c *controller) Show() string { return c.m.Target.String() }

func (c *controller) Save() {
	err := c.m.Store.Save(c.m.Target.Settings())
	if err != nil {
		c.m.Metrics.SaveFailed(err.Error())
	}
	c.m.Sink.Notify(notify.SaveCompleted{Path: c.m.Store.Path(), Err: err})
}

func (c *controller) Status() string { return c.m.Metrics.JSON() }

// Quit requests the close sequence.  While a run is in progress the
// request is ignored and the user may ask again.
func (c *controller) Quit() {
	c.coord.RequestClose()
	if !c.coord.CloseRequested() {
		c.m.Console.Printf("a knock sequence is in progress; quit again once it finishes")
	}
}
