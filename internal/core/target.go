package core

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gknock/config"
	"gknock/internal/metrics"
	"gknock/internal/notify"
	"gknock/internal/portlist"
	"gknock/internal/settings"
	"gknock/util"
)

// Target is the editable knock target: host, both port lists and the
// delay.  Port text is parsed when it is set, and every rejected entry
// is reported to the sink as a ParseFailed event.
type Target struct {
	sink    notify.Sink
	metrics *metrics.Collector
	noDNS   bool

	mu        sync.RWMutex
	host      string
	openText  string
	closeText string
	openSeq   portlist.Sequence
	closeSeq  portlist.Sequence
	delay     time.Duration
}

// NewTarget builds a Target from cfg, reporting diagnostics for both
// port lists.
func NewTarget(cfg *config.Config, sink notify.Sink, m *metrics.Collector) *Target {
	if sink == nil {
		sink = notify.Discard
	}
	t := &Target{
		sink:    sink,
		metrics: m,
		noDNS:   cfg.NoDNS,
		host:    cfg.Host,
		delay:   cfg.Delay,
	}
	t.SetPorts(notify.Open, cfg.OpenPorts)
	t.SetPorts(notify.Close, cfg.ClosePorts)
	return t
}

// SetHost replaces the host after validating it.
func (t *Target) SetHost(host string) error {
	if err := util.ValidateHost(host, t.noDNS); err != nil {
		return err
	}
	t.mu.Lock()
	t.host = host
	t.mu.Unlock()
	return nil
}

// SetPorts parses text as the port list for kind.  Invalid entries are
// dropped and reported; the rest replace the current list.
func (t *Target) SetPorts(kind notify.Kind, text string) {
	seq, diags := portlist.Parse(text)

	t.mu.Lock()
	if kind == notify.Close {
		t.closeText, t.closeSeq = text, seq
	} else {
		t.openText, t.openSeq = text, seq
	}
	t.mu.Unlock()

	t.metrics.ParseFailed(len(diags))
	for _, d := range diags {
		t.sink.Notify(notify.ParseFailed{List: kind, Position: d.Position, Token: d.Token, Reason: d.Reason})
	}
}

// SetDelay parses text as a number of milliseconds.  On error the
// delay is left unchanged.
func (t *Target) SetDelay(text string) error {
	ms, err := strconv.ParseUint(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return fmt.Errorf("%q is not a number of milliseconds", text)
	}
	t.mu.Lock()
	t.delay = time.Duration(ms) * time.Millisecond
	t.mu.Unlock()
	return nil
}

// Sequence returns the ports, host and delay for a run of kind.
func (t *Target) Sequence(kind notify.Kind) (portlist.Sequence, string, time.Duration) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if kind == notify.Close {
		return t.closeSeq, t.host, t.delay
	}
	return t.openSeq, t.host, t.delay
}

// CloseTarget implements shutdown.Target.
func (t *Target) CloseTarget() (portlist.Sequence, string, time.Duration) {
	return t.Sequence(notify.Close)
}

// Settings returns the target as a persistable record.  Port lists are
// saved as the user typed them.
func (t *Target) Settings() settings.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return settings.Settings{
		Host:        t.host,
		OpenPorts:   t.openText,
		ClosePorts:  t.closeText,
		DelayMillis: settings.DelayMillisOf(t.delay),
	}
}

// String renders the target for display.
func (t *Target) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fmt.Sprintf("host   %s\nopen   [%s]\nclose  [%s]\ndelay  %d ms",
		t.host, t.openSeq, t.closeSeq, t.delay.Milliseconds())
}
